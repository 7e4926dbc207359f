package worker

import "errors"

// Ошибки воркера.
var (
	// ErrJobNotFound — job не найден в БД.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotQueued — job не в статусе QUEUED (уже взят или завершён).
	ErrJobNotQueued = errors.New("job is not in QUEUED status")

	// ErrRetryExhausted — все попытки job исчерпаны, job запаркован.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)
