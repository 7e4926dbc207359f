package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/extract"
	"github.com/shaiso/Fabrika/internal/mq"
	"github.com/shaiso/Fabrika/internal/pipeline"
	"github.com/shaiso/Fabrika/internal/repo"
	"github.com/shaiso/Fabrika/internal/telemetry"
)

// handleJobQueued обрабатывает сигнал о новом job из очереди.
func (w *Worker) handleJobQueued(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JobQueuedPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse job.queued payload", "error", err)
		return err
	}

	if err := w.processJob(ctx, payload.JobID); err != nil {
		// Ожидаемые гонки доставки (job уже взят polling-циклом или
		// другим воркером) — ack без повтора.
		if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrJobNotQueued) {
			w.logger.Debug("job not processed", "job_id", payload.JobID, "reason", err)
			return nil
		}
		return err
	}
	return nil
}

// processJob забирает job, выполняет конвейер с retry и финализирует
// результат. Каждая попытка порождает новый PipelineRun.
func (w *Worker) processJob(ctx context.Context, jobID uuid.UUID) error {
	select {
	case w.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-w.slots }()

	job, err := w.store.ClaimQueued(ctx, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrJobNotQueued
		}
		return fmt.Errorf("claim job: %w", err)
	}

	logger := w.logger.With("job_id", job.ID.String(), "type", string(job.Type))
	logger.Info("job started", "attempt", job.Attempts)

	w.emit(ctx, job.Request.UserID, domain.Event{
		Type: domain.EventTaskStarted,
		Data: map[string]any{"job_id": job.ID.String(), "attempt": job.Attempts},
	})

	run, execErr := w.executeWithRetry(ctx, job, logger)

	if execErr == nil {
		job.MarkCompleted()
		if err := w.store.Update(ctx, job); err != nil {
			return fmt.Errorf("update job to completed: %w", err)
		}
		telemetry.JobsCompleted.WithLabelValues(string(job.Type), "succeeded").Inc()
		logger.Info("job completed",
			"operation_id", run.OperationID.String(),
			"attempts", job.Attempts,
		)

		data := map[string]any{
			"job_id":       job.ID.String(),
			"operation_id": run.OperationID.String(),
		}
		if final, ok := run.FinalArtifact(); ok {
			data["final_ref"] = final.Ref
		}
		published := 0
		for _, r := range run.Receipts {
			if r.Succeeded {
				published++
			}
		}
		data["platforms_published"] = published
		w.emit(ctx, job.Request.UserID, domain.Event{Type: domain.EventTaskCompleted, Data: data})
		return nil
	}

	if ctx.Err() != nil {
		// Shutdown посреди job: статус вернёт RequeueStaleActive,
		// сообщение будет redelivered (at-least-once).
		return ctx.Err()
	}

	// Попытки исчерпаны — паркуем для разбора, не удаляем.
	job.MarkFailed(execErr.Error())
	if err := w.store.Update(ctx, job); err != nil {
		return fmt.Errorf("update job to failed: %w", err)
	}
	telemetry.JobsCompleted.WithLabelValues(string(job.Type), "failed").Inc()
	telemetry.JobsParked.WithLabelValues(string(job.Type)).Inc()
	logger.Warn("job parked after exhausting retries",
		"attempts", job.Attempts,
		"error", execErr,
	)

	w.emit(ctx, job.Request.UserID, domain.Event{
		Type: domain.EventTaskError,
		Data: map[string]any{
			"job_id": job.ID.String(),
			"error":  execErr.Error(),
		},
	})

	// Job финализирован в БД — сообщение ack.
	return nil
}

// executeWithRetry выполняет попытки конвейера с экспоненциальной
// задержкой из политики job.
func (w *Worker) executeWithRetry(ctx context.Context, job *domain.Job, logger *slog.Logger) (*domain.PipelineRun, error) {
	var run *domain.PipelineRun
	first := true

	operation := func() error {
		// Первая попытка засчитана атомарным claim.
		if !first {
			job.MarkActive()
			if err := w.store.Update(ctx, job); err != nil {
				return backoff.Permanent(fmt.Errorf("update job attempt: %w", err))
			}
		}
		first = false

		if err := w.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		telemetry.JobsStarted.WithLabelValues(string(job.Type)).Inc()

		source, err := w.resolveSource(ctx, job)
		if err != nil {
			logger.Warn("source extraction failed", "attempt", job.Attempts, "error", err)
			return err
		}

		attempt, err := w.executor.Execute(ctx, &job.Request, source)
		if err != nil {
			if errors.Is(err, pipeline.ErrInvalidRequest) || errors.Is(err, pipeline.ErrStageUnresolvable) {
				// Retry не починит невалидный запрос или пустой реестр.
				return backoff.Permanent(err)
			}
			logger.Warn("pipeline attempt failed", "attempt", job.Attempts, "error", err)
			return err
		}
		run = attempt
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(&jobBackOff{job: job}, ctx))
	if err != nil {
		return nil, err
	}
	return run, nil
}

// resolveSource возвращает вход этапа strategy: тему или извлечённый
// и обрезанный текст источника.
func (w *Worker) resolveSource(ctx context.Context, job *domain.Job) (string, error) {
	if job.Type != domain.JobTypeCreateFromURL {
		return job.Request.Topic, nil
	}
	if w.extractor == nil {
		return "", backoff.Permanent(errors.New("url job without extractor configured"))
	}

	text, err := w.extractor.ExtractText(ctx, job.Request.SourceURL)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", job.Request.SourceURL, err)
	}
	return extract.Truncate(text, w.maxSourceChars), nil
}

// emit отправляет realtime-событие, если sink настроен.
// Сбой доставки событий не влияет на выполнение job.
func (w *Worker) emit(ctx context.Context, userID string, event domain.Event) {
	if w.events == nil || userID == "" {
		return
	}
	if err := w.events.PublishUserEvent(ctx, userID, event); err != nil {
		w.logger.Warn("failed to publish user event",
			"user_id", userID,
			"type", string(event.Type),
			"error", err,
		)
	}
}

// jobBackOff — адаптер политики retry job под backoff.BackOff:
// задержка из BackoffPolicy, остановка при исчерпании MaxAttempts.
type jobBackOff struct {
	job *domain.Job
}

func (b *jobBackOff) NextBackOff() time.Duration {
	if !b.job.CanRetry() {
		return backoff.Stop
	}
	return b.job.NextDelay()
}

func (b *jobBackOff) Reset() {}
