package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Fabrika/internal/domain"
)

// JobStore — доступ к очереди jobs.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.Job, error)
}

// Notifier — публикация job.queued и realtime-событий.
type Notifier interface {
	PublishJobQueued(ctx context.Context, jobID uuid.UUID) error
	PublishUserEvent(ctx context.Context, userID string, event domain.Event) error
}

// TokenVerifier — внешний коллаборатор, проверяющий API-токен из
// запроса и возвращающий userID. Хранение аккаунтов — вне ядра.
type TokenVerifier interface {
	Verify(r *http.Request) (string, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	jobs     JobStore
	notify   Notifier
	verifier TokenVerifier
	ws       http.Handler
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Jobs     JobStore
	Notify   Notifier
	Verifier TokenVerifier
	WS       http.Handler
	Logger   *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		jobs:     cfg.Jobs,
		notify:   cfg.Notify,
		verifier: cfg.Verifier,
		ws:       cfg.WS,
		logger:   logger,
	}
}
