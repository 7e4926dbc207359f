package repo

import "errors"

// Общие ошибки репозиториев. pgx.ErrNoRows наружу не выходит:
// репозитории сводят его к ErrNotFound.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — конфликт уникальности.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — операция невозможна в текущем состоянии записи.
	ErrInvalidState = errors.New("invalid state")
)
