package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobType — тип job в очереди.
type JobType string

const (
	// JobTypeCreateFromTopic — производство контента по теме.
	JobTypeCreateFromTopic JobType = "create_from_topic"

	// JobTypeCreateFromURL — производство контента по статье-источнику.
	JobTypeCreateFromURL JobType = "create_from_url"
)

// BackoffPolicy — политика задержки между попытками job.
//
// Задержка: InitialDelay × 2^(attempt-1), с потолком MaxDelay.
type BackoffPolicy struct {
	// InitialDelayMs — начальная задержка в миллисекундах.
	InitialDelayMs int `json:"initial_delay_ms,omitempty"`

	// MaxDelayMs — максимальная задержка в миллисекундах.
	MaxDelayMs int `json:"max_delay_ms,omitempty"`
}

// Delay вычисляет задержку перед указанной попыткой (начиная с 1).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	initial := time.Duration(p.InitialDelayMs) * time.Millisecond
	if initial <= 0 {
		initial = time.Second
	}
	maxDelay := time.Duration(p.MaxDelayMs) * time.Millisecond
	if maxDelay <= 0 {
		maxDelay = 5 * time.Minute
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// Job — долговечная единица работы очереди.
//
// Job принадлежит очереди; его жизненный цикл независим от PipelineRun,
// который он порождает: retry того же job создаёт новую попытку run.
// Доставка at-least-once — после падения воркера job возвращается
// в очередь и выполняется заново с нуля.
type Job struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"id"`

	// Type — тип job (create_from_topic / create_from_url).
	Type JobType `json:"type"`

	// Request — полезная нагрузка: запрос на производство контента.
	Request ContentRequest `json:"request"`

	// Attempts — количество выполненных попыток (начиная с 0).
	// Строго возрастает при каждой попытке и никогда не превышает
	// MaxAttempts.
	Attempts int `json:"attempts"`

	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int `json:"max_attempts"`

	// Backoff — политика задержки между попытками.
	Backoff BackoffPolicy `json:"backoff"`

	// Status — текущий статус job.
	Status JobStatus `json:"status"`

	// LastError — ошибка последней неудачной попытки.
	LastError string `json:"last_error,omitempty"`

	// CreatedAt — время постановки в очередь.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJob создаёт job в статусе QUEUED.
func NewJob(jobType JobType, req ContentRequest, maxAttempts int) *Job {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	now := time.Now()
	return &Job{
		ID:          uuid.New(),
		Type:        jobType,
		Request:     req,
		MaxAttempts: maxAttempts,
		Status:      JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkActive переводит job в ACTIVE и засчитывает попытку.
func (j *Job) MarkActive() {
	j.Status = JobStatusActive
	j.Attempts++
	j.UpdatedAt = time.Now()
}

// MarkCompleted переводит job в COMPLETED.
func (j *Job) MarkCompleted() {
	j.Status = JobStatusCompleted
	j.LastError = ""
	j.UpdatedAt = time.Now()
}

// MarkFailed паркует job как окончательно неудачный.
// Job сохраняется для разбора, не удаляется.
func (j *Job) MarkFailed(err string) {
	j.Status = JobStatusFailed
	j.LastError = err
	j.UpdatedAt = time.Now()
}

// Requeue возвращает job в очередь для следующей попытки.
func (j *Job) Requeue(err string) {
	j.Status = JobStatusQueued
	j.LastError = err
	j.UpdatedAt = time.Now()
}

// CanRetry проверяет, остались ли попытки.
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// NextDelay возвращает задержку перед следующей попыткой.
func (j *Job) NextDelay() time.Duration {
	return j.Backoff.Delay(j.Attempts)
}
