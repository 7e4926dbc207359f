package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/repo"
)

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job
	err  error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (f *fakeJobStore) Create(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobStore) ListByStatus(_ context.Context, status domain.JobStatus, limit int) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Job
	for _, j := range f.jobs {
		if status != "" && j.Status != status {
			continue
		}
		out = append(out, *j)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeNotify struct {
	jobIDs []uuid.UUID
	events []domain.Event
}

func (f *fakeNotify) PublishJobQueued(_ context.Context, jobID uuid.UUID) error {
	f.jobIDs = append(f.jobIDs, jobID)
	return nil
}

func (f *fakeNotify) PublishUserEvent(_ context.Context, _ string, event domain.Event) error {
	f.events = append(f.events, event)
	return nil
}

type staticVerifier struct {
	userID string
	err    error
}

func (v *staticVerifier) Verify(_ *http.Request) (string, error) {
	return v.userID, v.err
}

func newTestServer(t *testing.T, store *fakeJobStore, notify *fakeNotify, verifier TokenVerifier) *httptest.Server {
	t.Helper()
	h := NewHandler(Config{
		Jobs:     store,
		Notify:   notify,
		Verifier: verifier,
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decodeJob(t *testing.T, resp *http.Response) JobResponse {
	t.Helper()
	defer resp.Body.Close()
	raw := struct {
		Data JobResponse `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return raw.Data
}

func TestCreateJobQueuesAndResponds(t *testing.T) {
	store := newFakeJobStore()
	notify := &fakeNotify{}
	srv := newTestServer(t, store, notify, &staticVerifier{userID: "user-1"})

	payload := bytes.NewBufferString(`{"topic": "space"}`)
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", payload)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	job := decodeJob(t, resp)
	if job.Type != domain.JobTypeCreateFromTopic {
		t.Errorf("type = %s", job.Type)
	}
	if job.Status != domain.JobStatusQueued {
		t.Errorf("status = %s", job.Status)
	}
	if job.UserID != "user-1" {
		t.Errorf("user_id = %q, want user-1", job.UserID)
	}

	if len(store.jobs) != 1 {
		t.Fatalf("stored %d jobs, want 1", len(store.jobs))
	}
	if len(notify.jobIDs) != 1 {
		t.Errorf("published %d job.queued, want 1", len(notify.jobIDs))
	}
	if len(notify.events) != 1 || notify.events[0].Type != domain.EventTaskQueued {
		t.Errorf("events = %+v", notify.events)
	}
}

func TestCreateJobFromURL(t *testing.T) {
	store := newFakeJobStore()
	srv := newTestServer(t, store, &fakeNotify{}, nil)

	payload := bytes.NewBufferString(`{"source_url": "https://example.com/article"}`)
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", payload)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	job := decodeJob(t, resp)
	if job.Type != domain.JobTypeCreateFromURL {
		t.Errorf("type = %s, want %s", job.Type, domain.JobTypeCreateFromURL)
	}
}

func TestCreateJobRejectsAmbiguousSource(t *testing.T) {
	srv := newTestServer(t, newFakeJobStore(), &fakeNotify{}, nil)

	payload := bytes.NewBufferString(`{"topic": "space", "source_url": "https://example.com"}`)
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", payload)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateJobRejectsEmptySource(t *testing.T) {
	srv := newTestServer(t, newFakeJobStore(), &fakeNotify{}, nil)

	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateJobUnauthorized(t *testing.T) {
	srv := newTestServer(t, newFakeJobStore(), &fakeNotify{}, &staticVerifier{err: errors.New("bad token")})

	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", bytes.NewBufferString(`{"topic": "space"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestGetJob(t *testing.T) {
	store := newFakeJobStore()
	job := domain.NewJob(domain.JobTypeCreateFromTopic, domain.ContentRequest{ID: uuid.New(), Topic: "space"}, 3)
	store.jobs[job.ID] = job
	srv := newTestServer(t, store, &fakeNotify{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/jobs/" + job.ID.String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decodeJob(t, resp)
	if got.ID != job.ID || got.Topic != "space" {
		t.Errorf("job = %+v", got)
	}
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeJobStore(), &fakeNotify{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/jobs/" + uuid.NewString())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListJobsFiltersByStatus(t *testing.T) {
	store := newFakeJobStore()
	queued := domain.NewJob(domain.JobTypeCreateFromTopic, domain.ContentRequest{ID: uuid.New(), Topic: "a"}, 3)
	failed := domain.NewJob(domain.JobTypeCreateFromTopic, domain.ContentRequest{ID: uuid.New(), Topic: "b"}, 3)
	failed.Status = domain.JobStatusFailed
	store.jobs[queued.ID] = queued
	store.jobs[failed.ID] = failed
	srv := newTestServer(t, store, &fakeNotify{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/jobs?status=FAILED")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var raw struct {
		Data []JobResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw.Data) != 1 || raw.Data[0].Status != domain.JobStatusFailed {
		t.Errorf("list = %+v", raw.Data)
	}
}

func TestListJobsRejectsUnknownStatus(t *testing.T) {
	srv := newTestServer(t, newFakeJobStore(), &fakeNotify{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/jobs?status=BOGUS")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
