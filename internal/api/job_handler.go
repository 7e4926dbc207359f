package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Fabrika/internal/domain"
)

const defaultListLimit = 50

// CreateJob ставит производство контента в очередь и сразу отвечает:
// сама работа занимает минуты и выполняется воркерами.
// POST /api/v1/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var body CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	req := domain.ContentRequest{
		ID:        uuid.New(),
		Topic:     body.Topic,
		SourceURL: body.SourceURL,
		UserID:    UserID(r),
		Params:    body.Params,
	}
	if err := req.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	jobType := domain.JobTypeCreateFromTopic
	if req.SourceURL != "" {
		jobType = domain.JobTypeCreateFromURL
	}

	job := domain.NewJob(jobType, req, body.MaxAttempts)
	if err := h.jobs.Create(r.Context(), job); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("job queued",
		"job_id", job.ID,
		"type", job.Type,
		"user_id", req.UserID,
	)

	if h.notify != nil {
		// Job уже в БД: при неудаче publish его подберёт поллинг воркера.
		if err := h.notify.PublishJobQueued(r.Context(), job.ID); err != nil {
			h.logger.Warn("failed to publish job.queued", "job_id", job.ID, "error", err)
		}
		if req.UserID != "" {
			event := domain.Event{
				Type: domain.EventTaskQueued,
				Data: map[string]any{"job_id": job.ID.String()},
			}
			if err := h.notify.PublishUserEvent(r.Context(), req.UserID, event); err != nil {
				h.logger.Warn("failed to publish task_queued event", "job_id", job.ID, "error", err)
			}
		}
	}

	Accepted(w, JobFromDomain(job))
}

// GetJob возвращает job по ID.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	Success(w, JobFromDomain(job))
}

// ListJobs возвращает список jobs с фильтрацией по статусу.
// GET /api/v1/jobs?status=...&limit=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var status domain.JobStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status = domain.JobStatus(s)
		if !status.Valid() {
			BadRequest(w, "invalid status")
			return
		}
	}

	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	jobs, err := h.jobs.ListByStatus(r.Context(), status, limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]JobResponse, len(jobs))
	for i := range jobs {
		result[i] = JobFromDomain(&jobs[i])
	}

	List(w, result, len(result))
}
