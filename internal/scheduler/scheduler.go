package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/telemetry"
)

// SubscriberSource — источник кандидатов на автопилот.
type SubscriberSource interface {
	ListAutopilotCandidates(ctx context.Context) ([]domain.Subscriber, error)
}

// SubscriptionValidator — внешний коллаборатор, подтверждающий
// актуальность подписки на момент цикла. Локальная проекция могла
// устареть: платёж не прошёл, аккаунт заморожен.
type SubscriptionValidator interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// JobStore — постановка jobs в очередь.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
}

// Notifier — публикация job.queued и realtime-событий.
// В продакшене это *mq.Publisher.
type Notifier interface {
	PublishJobQueued(ctx context.Context, jobID uuid.UUID) error
	PublishUserEvent(ctx context.Context, userID string, event domain.Event) error
}

// Scheduler раз в период перечисляет подписчиков с автопилотом и
// ставит по одному job create_from_topic на каждого подходящего.
type Scheduler struct {
	subscribers SubscriberSource
	validator   SubscriptionValidator
	jobs        JobStore
	notify      Notifier
	logger      *slog.Logger
	maxAttempts int
	backoff     domain.BackoffPolicy
}

// Config — конфигурация Scheduler.
type Config struct {
	Subscribers SubscriberSource
	Validator   SubscriptionValidator
	Jobs        JobStore
	Notify      Notifier
	Logger      *slog.Logger

	// MaxAttempts — лимит попыток для создаваемых jobs (default: 3).
	MaxAttempts int

	// Backoff — политика задержки для создаваемых jobs.
	Backoff domain.BackoffPolicy
}

// New создаёт Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		subscribers: cfg.Subscribers,
		validator:   cfg.Validator,
		jobs:        cfg.Jobs,
		notify:      cfg.Notify,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}
}

// Tick выполняет один цикл планировщика.
//
// Перечисляет кандидатов, отсеивает неподходящих (автопилот выключен,
// бесплатный план, пустая тема, неактивная подписка) и ставит job на
// каждого оставшегося. Ошибка одного подписчика не блокирует
// остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	candidates, err := s.subscribers.ListAutopilotCandidates(ctx)
	if err != nil {
		return fmt.Errorf("list autopilot candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	var queued, skipped int
	for i := range candidates {
		sub := &candidates[i]

		ok, err := s.eligible(ctx, sub)
		if err != nil {
			s.logger.Error("failed to validate subscription",
				"user_id", sub.UserID,
				"error", err,
			)
			skipped++
			continue
		}
		if !ok {
			skipped++
			continue
		}

		if err := s.enqueue(ctx, sub); err != nil {
			s.logger.Error("failed to enqueue autopilot job",
				"user_id", sub.UserID,
				"error", err,
			)
			continue
		}
		queued++
	}

	s.logger.Info("scheduler tick completed",
		"candidates", len(candidates),
		"queued", queued,
		"skipped", skipped,
	)
	return nil
}

// eligible проверяет кандидата: локальные условия и актуальность
// подписки у внешнего валидатора.
func (s *Scheduler) eligible(ctx context.Context, sub *domain.Subscriber) (bool, error) {
	if !sub.EligibleForAutopilot() {
		return false, nil
	}
	if s.validator == nil {
		return true, nil
	}
	active, err := s.validator.IsActive(ctx, sub.UserID)
	if err != nil {
		return false, fmt.Errorf("validate subscription: %w", err)
	}
	if !active {
		s.logger.Debug("subscription stale, skipping", "user_id", sub.UserID)
	}
	return active, nil
}

// enqueue создаёт job create_from_topic и публикует уведомления.
func (s *Scheduler) enqueue(ctx context.Context, sub *domain.Subscriber) error {
	req := domain.ContentRequest{
		ID:     uuid.New(),
		Topic:  sub.Topic,
		UserID: sub.UserID,
		Params: sub.Params,
	}

	job := domain.NewJob(domain.JobTypeCreateFromTopic, req, s.maxAttempts)
	job.Backoff = s.backoff

	if err := s.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	telemetry.ScheduledJobs.Inc()

	s.logger.Info("autopilot job queued",
		"job_id", job.ID,
		"user_id", sub.UserID,
		"topic", sub.Topic,
	)

	if s.notify == nil {
		return nil
	}
	// Job уже в БД: воркер подберёт его поллингом, даже если publish
	// не удался.
	if err := s.notify.PublishJobQueued(ctx, job.ID); err != nil {
		s.logger.Warn("failed to publish job.queued", "job_id", job.ID, "error", err)
	}
	event := domain.Event{
		Type: domain.EventTaskQueued,
		Data: map[string]any{"job_id": job.ID.String(), "topic": sub.Topic},
	}
	if err := s.notify.PublishUserEvent(ctx, sub.UserID, event); err != nil {
		s.logger.Warn("failed to publish task_queued event", "user_id", sub.UserID, "error", err)
	}
	return nil
}
