package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/extract"
	"github.com/shaiso/Fabrika/internal/mq"
)

// Default configuration values.
const (
	defaultPoolSize     = 2
	defaultPollInterval = 15 * time.Second
	defaultBatchSize    = 20
	defaultRateLimit    = 6
	defaultRateWindow   = time.Minute
	defaultStaleMinutes = 120
)

// JobStore — durable-хранилище jobs.
// Реализуется repo.JobRepo; в тестах подменяется фейком.
type JobStore interface {
	ClaimQueued(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
	ListQueued(ctx context.Context, limit int) ([]domain.Job, error)
	RequeueStaleActive(ctx context.Context, olderThanMinutes int) (int, error)
}

// Executor — один сквозной проход конвейера.
// Реализуется pipeline.Orchestrator.
type Executor interface {
	Execute(ctx context.Context, req *domain.ContentRequest, source string) (*domain.PipelineRun, error)
}

// EventSink — доставка realtime-событий пользователю.
// Реализуется mq.Publisher (PublishUserEvent).
type EventSink interface {
	PublishUserEvent(ctx context.Context, userID string, event domain.Event) error
}

// Worker выполняет jobs производства контента.
//
// Worker — stateless компонент, который:
//   - получает сигналы о новых jobs из RabbitMQ (event-driven)
//   - периодически проверяет QUEUED jobs в БД (polling fallback)
//   - ограничивает частоту стартов скользящим окном
//   - для create_from_url сначала извлекает текст источника
//   - выполняет конвейер с retry и экспоненциальной задержкой;
//     каждая попытка — новый PipelineRun
//   - паркует jobs с исчерпанными попытками (FAILED, не удаляются)
//
// Экземпляры масштабируются горизонтально: очередь одна, jobs
// забираются атомарным claim в Postgres.
type Worker struct {
	store     JobStore
	executor  Executor
	extractor extract.Extractor
	events    EventSink

	conn    *mq.Connection
	limiter *RateLimiter

	poolSize       int
	pollInterval   time.Duration
	batchSize      int
	maxSourceChars int
	staleMinutes   int

	// slots — общий предел одновременных jobs для обоих путей доставки.
	slots chan struct{}

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	// Store — durable-хранилище jobs (обязательно).
	Store JobStore

	// Executor — оркестратор конвейера (обязательно).
	Executor Executor

	// Extractor — извлечение текста для create_from_url.
	Extractor extract.Extractor

	// Events — realtime-события (опционально; nil — без событий).
	Events EventSink

	// Conn — соединение RabbitMQ (опционально; nil — только polling).
	Conn *mq.Connection

	// PoolSize — число одновременных jobs (default: 2).
	PoolSize int

	// PollInterval — интервал polling fallback (default: 15s).
	PollInterval time.Duration

	// BatchSize — jobs за один poll (default: 20).
	BatchSize int

	// RateLimit — стартов в RateWindow (default: 6/min; 0 — без лимита).
	RateLimit int

	// RateWindow — окно лимитера (default: 1m).
	RateWindow time.Duration

	// MaxSourceChars — предел длины извлечённого текста.
	MaxSourceChars int

	// StaleAfterMinutes — порог возврата зависших ACTIVE jobs (default: 120).
	StaleAfterMinutes int

	// Logger — логгер.
	Logger *slog.Logger
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxSourceChars := cfg.MaxSourceChars
	if maxSourceChars <= 0 {
		maxSourceChars = extract.DefaultMaxChars
	}
	staleMinutes := cfg.StaleAfterMinutes
	if staleMinutes <= 0 {
		staleMinutes = defaultStaleMinutes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rateLimit := cfg.RateLimit
	rateWindow := cfg.RateWindow
	if rateLimit == 0 && rateWindow == 0 {
		rateLimit = defaultRateLimit
		rateWindow = defaultRateWindow
	}

	return &Worker{
		store:          cfg.Store,
		executor:       cfg.Executor,
		extractor:      cfg.Extractor,
		events:         cfg.Events,
		conn:           cfg.Conn,
		limiter:        NewRateLimiter(rateLimit, rateWindow),
		poolSize:       poolSize,
		pollInterval:   pollInterval,
		batchSize:      batchSize,
		maxSourceChars: maxSourceChars,
		staleMinutes:   staleMinutes,
		slots:          make(chan struct{}, poolSize),
		logger:         logger,
	}
}

// Start запускает Worker: пул consumers и polling fallback.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"pool_size", w.poolSize,
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
	)

	if w.conn != nil {
		for i := 0; i < w.poolSize; i++ {
			consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
				Queue:    string(mq.QueueJobsReady),
				Handler:  w.handleJobQueued,
				Prefetch: 1,
			})
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					w.logger.Error("job consumer error", "error", err)
				}
			}()
		}
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и дожидается текущих jobs.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// pollLoop — polling fallback: подхватывает jobs, созданные пока
// брокер был недоступен, и возвращает зависшие ACTIVE jobs в очередь.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (w *Worker) poll(ctx context.Context) {
	if n, err := w.store.RequeueStaleActive(ctx, w.staleMinutes); err != nil {
		w.logger.Error("failed to requeue stale jobs", "error", err)
	} else if n > 0 {
		w.logger.Warn("requeued stale active jobs", "count", n)
	}

	jobs, err := w.store.ListQueued(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list queued jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	w.logger.Debug("poll found queued jobs", "count", len(jobs))

	for i := range jobs {
		if ctx.Err() != nil {
			return
		}
		if err := w.processJob(ctx, jobs[i].ID); err != nil {
			if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrJobNotQueued) {
				continue
			}
			w.logger.Error("failed to process job from poll",
				"job_id", jobs[i].ID,
				"error", err,
			)
		}
	}
}
