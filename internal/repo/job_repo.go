package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Fabrika/internal/domain"
)

// JobRepo — репозиторий jobs.
//
// Postgres — источник истины для jobs: очередь RabbitMQ несёт только
// сигналы с идентификаторами, поэтому потеря брокера не теряет работу.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create вставляет новый job.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	backoffJSON, err := json.Marshal(job.Backoff)
	if err != nil {
		return fmt.Errorf("marshal backoff: %w", err)
	}

	query := `
		INSERT INTO jobs (id, type, request, attempts, max_attempts, backoff, status, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.Type,
		requestJSON,
		job.Attempts,
		job.MaxAttempts,
		backoffJSON,
		job.Status,
		nullString(job.LastError),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, type, request, attempts, max_attempts, backoff, status, last_error, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`
	return scanJob(r.pool.QueryRow(ctx, query, id))
}

// Update сохраняет изменившиеся поля job.
func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE jobs
		SET attempts = $2, status = $3, last_error = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Attempts,
		job.Status,
		nullString(job.LastError),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimQueued атомарно переводит QUEUED job в ACTIVE и засчитывает
// попытку. Возвращает ErrInvalidState, если job уже взят другим
// воркером или завершён — так polling fallback и MQ-доставка не
// выполняют один job дважды одновременно.
func (r *JobRepo) ClaimQueued(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $2, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING id, type, request, attempts, max_attempts, backoff, status, last_error, created_at, updated_at
	`
	job, err := scanJob(r.pool.QueryRow(ctx, query, id, domain.JobStatusActive, domain.JobStatusQueued))
	if errors.Is(err, ErrNotFound) {
		// Либо job не существует, либо статус уже не QUEUED.
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return nil, ErrInvalidState
		}
		return nil, ErrNotFound
	}
	return job, err
}

// ListQueued возвращает jobs в статусе QUEUED (старые первыми).
// Используется polling fallback, когда брокер недоступен.
func (r *JobRepo) ListQueued(ctx context.Context, limit int) ([]domain.Job, error) {
	return r.list(ctx, `
		SELECT id, type, request, attempts, max_attempts, backoff, status, last_error, created_at, updated_at
		FROM jobs
		WHERE status = 'QUEUED'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
}

// ListByStatus возвращает jobs с указанным статусом (новые первыми).
// Пустой статус — все jobs.
func (r *JobRepo) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.Job, error) {
	if status == "" {
		return r.list(ctx, `
			SELECT id, type, request, attempts, max_attempts, backoff, status, last_error, created_at, updated_at
			FROM jobs
			ORDER BY created_at DESC
			LIMIT $1
		`, limit)
	}
	return r.list(ctx, `
		SELECT id, type, request, attempts, max_attempts, backoff, status, last_error, created_at, updated_at
		FROM jobs
		WHERE status = $2
		ORDER BY created_at DESC
		LIMIT $1
	`, limit, status)
}

// RequeueStaleActive возвращает в очередь jobs, зависшие в ACTIVE
// дольше порога (воркер умер между claim и финализацией).
//
// Зависший на последней попытке job не возвращается в очередь:
// повторный claim увеличил бы attempts сверх max_attempts. Такие jobs
// паркуются как FAILED.
func (r *JobRepo) RequeueStaleActive(ctx context.Context, olderThanMinutes int) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin requeue tx: %w", err)
	}
	defer tx.Rollback(ctx)

	parkQuery := `
		UPDATE jobs
		SET status = 'FAILED', last_error = 'stale job exhausted attempts', updated_at = NOW()
		WHERE status = 'ACTIVE'
		  AND updated_at < NOW() - make_interval(mins => $1)
		  AND attempts >= max_attempts
	`
	if _, err := tx.Exec(ctx, parkQuery, olderThanMinutes); err != nil {
		return 0, fmt.Errorf("park exhausted stale jobs: %w", err)
	}

	requeueQuery := `
		UPDATE jobs
		SET status = 'QUEUED', updated_at = NOW()
		WHERE status = 'ACTIVE'
		  AND updated_at < NOW() - make_interval(mins => $1)
		  AND attempts < max_attempts
	`
	result, err := tx.Exec(ctx, requeueQuery, olderThanMinutes)
	if err != nil {
		return 0, fmt.Errorf("requeue stale jobs: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit requeue tx: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *JobRepo) list(ctx context.Context, query string, args ...any) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// --- Helpers ---

func scanJob(row pgx.Row) (*domain.Job, error) {
	job, err := scanJobRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

func scanJobRow(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var requestJSON, backoffJSON []byte
	var lastError *string

	err := row.Scan(
		&job.ID,
		&job.Type,
		&requestJSON,
		&job.Attempts,
		&job.MaxAttempts,
		&backoffJSON,
		&job.Status,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pgx.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err := json.Unmarshal(requestJSON, &job.Request); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	if len(backoffJSON) > 0 {
		if err := json.Unmarshal(backoffJSON, &job.Backoff); err != nil {
			return nil, fmt.Errorf("unmarshal backoff: %w", err)
		}
	}
	if lastError != nil {
		job.LastError = *lastError
	}
	return &job, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
