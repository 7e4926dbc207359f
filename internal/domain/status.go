package domain

// JobStatus — статус job в очереди.
//
// Жизненный цикл:
//
//	QUEUED → ACTIVE → COMPLETED
//	                ↘ FAILED (после исчерпания retry; job сохраняется)
//	        (crash) → QUEUED (redelivery, at-least-once)
type JobStatus string

const (
	// JobStatusQueued — job в очереди, ожидает воркера.
	JobStatusQueued JobStatus = "QUEUED"

	// JobStatusActive — job выполняется воркером.
	JobStatusActive JobStatus = "ACTIVE"

	// JobStatusCompleted — job успешно завершён.
	JobStatusCompleted JobStatus = "COMPLETED"

	// JobStatusFailed — job исчерпал retry и припаркован для разбора.
	JobStatusFailed JobStatus = "FAILED"
)

// Valid возвращает true для известного статуса.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusActive, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// RunStatus — статус выполнения PipelineRun.
//
// Run создаётся сразу в RUNNING (в момент, когда воркер начал попытку)
// и завершается SUCCEEDED либо FAILED на первой невосстановимой ошибке.
// Отмена посреди run не поддерживается.
type RunStatus string

const (
	// RunStatusRunning — run в процессе выполнения этапов.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все этапы завершены, есть финальный артефакт.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — run остановлен на первом невосстановимом этапе.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если run завершён.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}
