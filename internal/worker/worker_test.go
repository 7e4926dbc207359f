package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Fabrika/internal/adapter"
	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/pipeline"
	"github.com/shaiso/Fabrika/internal/repo"
)

// --- Fakes ---

type fakeStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job
}

func newFakeStore(jobs ...*domain.Job) *fakeStore {
	s := &fakeStore{jobs: make(map[uuid.UUID]*domain.Job)}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

func (s *fakeStore) ClaimQueued(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return nil, repo.ErrInvalidState
	}
	job.MarkActive()
	return job, nil
}

func (s *fakeStore) Update(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return repo.ErrNotFound
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) ListQueued(_ context.Context, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Job
	for _, j := range s.jobs {
		if j.Status == domain.JobStatusQueued && len(out) < limit {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *fakeStore) RequeueStaleActive(_ context.Context, olderThanMinutes int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(olderThanMinutes) * time.Minute)
	n := 0
	for _, j := range s.jobs {
		if j.Status != domain.JobStatusActive || !j.UpdatedAt.Before(cutoff) {
			continue
		}
		// Зеркало repo.JobRepo: зависший на последней попытке job
		// паркуется, иначе повторный claim превысил бы max_attempts.
		if j.Attempts >= j.MaxAttempts {
			j.MarkFailed("stale job exhausted attempts")
			continue
		}
		j.Requeue(j.LastError)
		n++
	}
	return n, nil
}

type fakeExecutor struct {
	failAttempts int // сколько первых попыток падает
	err          error

	calls      int
	lastSource string
}

func (e *fakeExecutor) Execute(_ context.Context, req *domain.ContentRequest, source string) (*domain.PipelineRun, error) {
	e.calls++
	e.lastSource = source
	if e.calls <= e.failAttempts {
		if e.err != nil {
			return nil, e.err
		}
		return nil, &pipeline.StageError{
			Stage: domain.CapabilityScript,
			Err:   adapter.Unavailable("studio", "generate_script", errors.New("element not found")),
		}
	}
	run := domain.NewPipelineRun(req)
	run.RecordStage(domain.CapabilityCompilation, domain.Artifact{Ref: "final://x", Kind: "video"})
	run.Receipts = append(run.Receipts, domain.DistributionReceipt{Platform: "youtube", Succeeded: true})
	run.MarkSucceeded()
	return run, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeEvents) PublishUserEvent(_ context.Context, _ string, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) types() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.EventType
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(context.Context, string) (string, error) {
	return f.text, f.err
}

// --- Helpers ---

func fastJob(t domain.JobType, maxAttempts int) *domain.Job {
	req := domain.ContentRequest{ID: uuid.New(), Topic: "space travel", UserID: "u1"}
	if t == domain.JobTypeCreateFromURL {
		req.Topic = ""
		req.SourceURL = "https://example.com/article"
	}
	job := domain.NewJob(t, req, maxAttempts)
	job.Backoff = domain.BackoffPolicy{InitialDelayMs: 1, MaxDelayMs: 2}
	return job
}

func newTestWorker(store JobStore, exec Executor, opts ...func(*Config)) (*Worker, *fakeEvents) {
	events := &fakeEvents{}
	cfg := Config{
		Store:     store,
		Executor:  exec,
		Events:    events,
		RateLimit: -1, // лимитер в юнит-тестах отключён
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg), events
}

// --- Tests ---

func TestProcessJobSuccess(t *testing.T) {
	job := fastJob(domain.JobTypeCreateFromTopic, 3)
	store := newFakeStore(job)
	exec := &fakeExecutor{}
	w, events := newTestWorker(store, exec)

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("process job: %v", err)
	}

	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("job status = %s, want COMPLETED", job.Status)
	}
	if job.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", job.Attempts)
	}
	if exec.lastSource != "space travel" {
		t.Errorf("источник strategy = %q, want topic", exec.lastSource)
	}

	got := events.types()
	if len(got) != 2 || got[0] != domain.EventTaskStarted || got[1] != domain.EventTaskCompleted {
		t.Fatalf("events = %v", got)
	}
}

func TestProcessJobRetriesThenSucceeds(t *testing.T) {
	job := fastJob(domain.JobTypeCreateFromTopic, 5)
	store := newFakeStore(job)
	exec := &fakeExecutor{failAttempts: 2}
	w, _ := newTestWorker(store, exec)

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("process job: %v", err)
	}

	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("job status = %s, want COMPLETED", job.Status)
	}
	if job.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", job.Attempts)
	}
	if exec.calls != 3 {
		t.Fatalf("executor calls = %d, want 3", exec.calls)
	}
}

func TestProcessJobParksAfterExhaustedRetries(t *testing.T) {
	job := fastJob(domain.JobTypeCreateFromTopic, 2)
	store := newFakeStore(job)
	exec := &fakeExecutor{failAttempts: 100}
	w, events := newTestWorker(store, exec)

	// Парковка — штатный исход: сообщение очереди подтверждается.
	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("process job: %v", err)
	}

	if job.Status != domain.JobStatusFailed {
		t.Fatalf("job status = %s, want FAILED (parked)", job.Status)
	}
	if job.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2 (bounded)", job.Attempts)
	}
	if job.LastError == "" || !strings.Contains(job.LastError, "stage script") {
		t.Errorf("last error = %q", job.LastError)
	}

	got := events.types()
	if len(got) != 2 || got[1] != domain.EventTaskError {
		t.Fatalf("events = %v", got)
	}
}

func TestProcessJobSkipsAlreadyClaimed(t *testing.T) {
	job := fastJob(domain.JobTypeCreateFromTopic, 3)
	job.MarkActive()
	store := newFakeStore(job)
	w, _ := newTestWorker(store, &fakeExecutor{})

	err := w.processJob(context.Background(), job.ID)
	if !errors.Is(err, ErrJobNotQueued) {
		t.Fatalf("expected ErrJobNotQueued, got %v", err)
	}
}

func TestProcessJobMissing(t *testing.T) {
	store := newFakeStore()
	w, _ := newTestWorker(store, &fakeExecutor{})

	err := w.processJob(context.Background(), uuid.New())
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestProcessJobInvalidRequestNotRetried(t *testing.T) {
	job := fastJob(domain.JobTypeCreateFromTopic, 5)
	store := newFakeStore(job)
	exec := &fakeExecutor{
		failAttempts: 100,
		err:          pipeline.ErrInvalidRequest,
	}
	w, _ := newTestWorker(store, exec)

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("process job: %v", err)
	}

	if job.Status != domain.JobStatusFailed {
		t.Fatalf("job status = %s, want FAILED", job.Status)
	}
	if exec.calls != 1 {
		t.Fatalf("executor calls = %d, want 1 (no retry for invalid request)", exec.calls)
	}
}

func TestURLJobExtractsAndTruncatesSource(t *testing.T) {
	job := fastJob(domain.JobTypeCreateFromURL, 3)
	store := newFakeStore(job)
	exec := &fakeExecutor{}
	w, _ := newTestWorker(store, exec, func(cfg *Config) {
		cfg.Extractor = &fakeExtractor{text: strings.Repeat("a", 500)}
		cfg.MaxSourceChars = 100
	})

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("process job: %v", err)
	}

	if len(exec.lastSource) != 100 {
		t.Fatalf("source length = %d, want truncated to 100", len(exec.lastSource))
	}
}

func TestPollRequeuesStaleButParksExhausted(t *testing.T) {
	stale := time.Now().Add(-3 * time.Hour)

	// Воркер умер посреди попытки: job завис в ACTIVE.
	retriable := fastJob(domain.JobTypeCreateFromTopic, 3)
	retriable.Status = domain.JobStatusActive
	retriable.Attempts = 1
	retriable.UpdatedAt = stale

	// Тот же сценарий, но попытки уже исчерпаны.
	exhausted := fastJob(domain.JobTypeCreateFromTopic, 2)
	exhausted.Status = domain.JobStatusActive
	exhausted.Attempts = 2
	exhausted.UpdatedAt = stale

	store := newFakeStore(retriable, exhausted)
	w, _ := newTestWorker(store, &fakeExecutor{})

	w.poll(context.Background())

	if retriable.Status != domain.JobStatusCompleted {
		t.Fatalf("retriable job status = %s, want COMPLETED after requeue", retriable.Status)
	}
	if retriable.Attempts > retriable.MaxAttempts {
		t.Fatalf("retriable attempts = %d, exceeds max %d", retriable.Attempts, retriable.MaxAttempts)
	}

	if exhausted.Status != domain.JobStatusFailed {
		t.Fatalf("exhausted job status = %s, want FAILED (parked)", exhausted.Status)
	}
	if exhausted.Attempts != exhausted.MaxAttempts {
		t.Fatalf("exhausted attempts = %d, want %d (never incremented past max)",
			exhausted.Attempts, exhausted.MaxAttempts)
	}
}

func TestRateLimiterCapsStartsPerWindow(t *testing.T) {
	limiter := NewRateLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("first two starts must not block, took %v", elapsed)
	}

	// Третий старт ждёт выхода первого из окна.
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("third wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("third start must wait for the window, took %v", elapsed)
	}
}

func TestRateLimiterRespectsContext(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected context error while window is full")
	}
}
