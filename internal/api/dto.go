package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Fabrika/internal/domain"
)

// CreateJobRequest — запрос на постановку производства контента.
// Ровно одно из полей topic / source_url должно быть заполнено.
type CreateJobRequest struct {
	Topic     string         `json:"topic,omitempty"`
	SourceURL string         `json:"source_url,omitempty"`
	Params    map[string]any `json:"params,omitempty"`

	// MaxAttempts — лимит попыток (default: 3).
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// JobResponse — ответ с job.
type JobResponse struct {
	ID          uuid.UUID        `json:"id"`
	Type        domain.JobType   `json:"type"`
	Status      domain.JobStatus `json:"status"`
	Topic       string           `json:"topic,omitempty"`
	SourceURL   string           `json:"source_url,omitempty"`
	UserID      string           `json:"user_id,omitempty"`
	Attempts    int              `json:"attempts"`
	MaxAttempts int              `json:"max_attempts"`
	LastError   string           `json:"last_error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j *domain.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		Type:        j.Type,
		Status:      j.Status,
		Topic:       j.Request.Topic,
		SourceURL:   j.Request.SourceURL,
		UserID:      j.Request.UserID,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		LastError:   j.LastError,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
