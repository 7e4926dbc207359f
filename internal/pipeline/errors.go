package pipeline

import (
	"errors"
	"fmt"

	"github.com/shaiso/Fabrika/internal/domain"
)

// Ошибки оркестратора.
var (
	// ErrStageUnresolvable — для этапа не зарегистрирован ни один адаптер.
	ErrStageUnresolvable = errors.New("no adapter can serve stage")

	// ErrInvalidRequest — ContentRequest не прошёл валидацию.
	ErrInvalidRequest = errors.New("invalid content request")
)

// StageError — падение конкретного этапа конвейера.
// Run останавливается на первом StageError; артефакты уже
// пройденных этапов сохраняются в PipelineRun.
type StageError struct {
	// Stage — упавший этап.
	Stage domain.Capability

	// Err — исходная ошибка адаптера.
	Err error
}

// Error реализует error.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap возвращает исходную ошибку.
func (e *StageError) Unwrap() error {
	return e.Err
}
