package domain

import (
	"time"

	"github.com/google/uuid"
)

// Artifact — ссылка на результат одного этапа конвейера.
//
// Сам результат (текст, изображение, видео) хранится у внешнего
// архиватора; здесь — только ссылка и метаданные.
type Artifact struct {
	// Ref — ссылка на артефакт (URL или путь во внешнем хранилище).
	Ref string `json:"ref"`

	// Kind — вид артефакта: "strategy", "text", "image", "audio", "video".
	Kind string `json:"kind"`

	// AdapterID — адаптер, который произвёл артефакт.
	AdapterID string `json:"adapter_id"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// DistributionReceipt — квитанция публикации на одну платформу.
//
// Под-этапы публикации выполняются последовательно и записываются
// независимо: неудача одной платформы не откатывает успех другой.
type DistributionReceipt struct {
	// Platform — платформа публикации ("youtube", "tiktok", ...).
	Platform string `json:"platform"`

	// AdapterID — адаптер, выполнявший публикацию.
	AdapterID string `json:"adapter_id"`

	// Succeeded — удалась ли публикация.
	Succeeded bool `json:"succeeded"`

	// Ref — ссылка на опубликованный материал (при успехе).
	Ref string `json:"ref,omitempty"`

	// Error — текст ошибки (при неудаче).
	Error string `json:"error,omitempty"`

	// PublishedAt — время попытки публикации.
	PublishedAt time.Time `json:"published_at"`
}

// PipelineRun — один сквозной проход конвейера для одного ContentRequest.
//
// Run создаётся когда воркер начинает выполнение job и мутируется
// этап за этапом. Retry job порождает НОВЫЙ PipelineRun — run не
// возобновляется с середины. За пределами внешнего audit-коллаборатора
// run не персистируется.
type PipelineRun struct {
	// OperationID — уникальный идентификатор операции.
	// Возвращается вызывающему сразу при постановке job в очередь.
	OperationID uuid.UUID `json:"operation_id"`

	// RequestID — ссылка на ContentRequest.
	RequestID uuid.UUID `json:"request_id"`

	// UserID — пользователь-инициатор (копия из запроса).
	UserID string `json:"user_id,omitempty"`

	// StageResults — артефакты завершённых этапов.
	// При падении run артефакты уже пройденных этапов сохраняются
	// для последующего разбора.
	StageResults map[Capability]Artifact `json:"stage_results"`

	// Receipts — квитанции публикации, по одной на попытку платформы.
	Receipts []DistributionReceipt `json:"receipts,omitempty"`

	// Status — текущий статус run.
	Status RunStatus `json:"status"`

	// Error — текст первой невосстановимой ошибки.
	Error string `json:"error,omitempty"`

	// FailedStage — этап, на котором run остановился.
	FailedStage Capability `json:"failed_stage,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewPipelineRun создаёт run в статусе RUNNING.
func NewPipelineRun(req *ContentRequest) *PipelineRun {
	return &PipelineRun{
		OperationID:  uuid.New(),
		RequestID:    req.ID,
		UserID:       req.UserID,
		StageResults: make(map[Capability]Artifact),
		Status:       RunStatusRunning,
		StartedAt:    time.Now(),
	}
}

// RecordStage записывает артефакт завершённого этапа.
func (r *PipelineRun) RecordStage(c Capability, a Artifact) {
	r.StageResults[c] = a
}

// StageArtifact возвращает артефакт этапа, если этап завершён.
func (r *PipelineRun) StageArtifact(c Capability) (Artifact, bool) {
	a, ok := r.StageResults[c]
	return a, ok
}

// FinalArtifact возвращает артефакт этапа compilation.
func (r *PipelineRun) FinalArtifact() (Artifact, bool) {
	return r.StageArtifact(CapabilityCompilation)
}

// MarkSucceeded переводит run в SUCCEEDED.
func (r *PipelineRun) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в FAILED с указанием упавшего этапа.
func (r *PipelineRun) MarkFailed(stage Capability, err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FailedStage = stage
	r.Error = err
	r.FinishedAt = &now
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *PipelineRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
