package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Таксономия отказов адаптера. Любая ошибка capability-вызова
// сводится к одному из трёх видов.
var (
	// ErrUnavailable — элемент UI провайдера не найден или навигация
	// превысила таймаут.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrAuthRequired — сессия провайдера невалидна или истекла.
	ErrAuthRequired = errors.New("provider auth required")

	// ErrMalformed — вывод провайдера не удалось разобрать в ожидаемую
	// форму артефакта.
	ErrMalformed = errors.New("provider output malformed")
)

// Kind — вид отказа адаптера.
type Kind string

const (
	KindUnavailable  Kind = "unavailable"
	KindAuthRequired Kind = "auth_required"
	KindMalformed    Kind = "malformed"
)

// sentinel возвращает sentinel-ошибку для вида отказа.
func (k Kind) sentinel() error {
	switch k {
	case KindAuthRequired:
		return ErrAuthRequired
	case KindMalformed:
		return ErrMalformed
	default:
		return ErrUnavailable
	}
}

// ProviderError — ошибка capability-вызова с контекстом для разбора.
//
// Перед пропагацией адаптер best-effort снимает диагностический
// снимок (скриншот/DOM); ссылка на него попадает в Diagnostic.
type ProviderError struct {
	// Kind — вид отказа.
	Kind Kind

	// AdapterID — адаптер, в котором произошёл отказ.
	AdapterID string

	// Op — операция, в которой произошёл отказ ("generate_script", ...).
	Op string

	// Diagnostic — ссылка на диагностический артефакт (может быть пустой:
	// снятие снимка само по себе best-effort).
	Diagnostic string

	// Err — исходная ошибка.
	Err error
}

// Error реализует error.
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.AdapterID, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.AdapterID, e.Op, e.Kind)
}

// Unwrap возвращает исходную ошибку.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ProviderError с sentinel-ошибками таксономии,
// чтобы работали errors.Is(err, ErrUnavailable) и т.п.
func (e *ProviderError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Unavailable оборачивает ошибку как отказ вида Unavailable.
func Unavailable(adapterID, op string, err error) *ProviderError {
	return &ProviderError{Kind: KindUnavailable, AdapterID: adapterID, Op: op, Err: err}
}

// AuthRequired оборачивает ошибку как отказ вида AuthRequired.
func AuthRequired(adapterID, op string, err error) *ProviderError {
	return &ProviderError{Kind: KindAuthRequired, AdapterID: adapterID, Op: op, Err: err}
}

// Malformed оборачивает ошибку как отказ вида Malformed.
func Malformed(adapterID, op string, err error) *ProviderError {
	return &ProviderError{Kind: KindMalformed, AdapterID: adapterID, Op: op, Err: err}
}

// KindOf возвращает вид отказа для ошибки.
// Таймауты и сетевые ошибки сводятся к Unavailable; неизвестные
// ошибки — тоже (консервативный выбор: retry на уровне job).
func KindOf(err error) Kind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, ErrAuthRequired) {
		return KindAuthRequired
	}
	if errors.Is(err, ErrMalformed) {
		return KindMalformed
	}
	return KindUnavailable
}

// IsTimeout проверяет, является ли ошибка превышением таймаута.
// Превышение любого настроенного таймаута трактуется как Unavailable.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
