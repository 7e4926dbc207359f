package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Fabrika/internal/domain"
)

// SessionRepo — персистенс браузерных сессий провайдеров.
// Реализует browser.SessionStore.
type SessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepo создаёт SessionRepo.
func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// LoadSession возвращает сохранённую запись сессии.
func (r *SessionRepo) LoadSession(ctx context.Context, sessionKey string) (*domain.SessionRecord, error) {
	query := `
		SELECT session_key, adapter_id, auth_state, updated_at
		FROM sessions
		WHERE session_key = $1
	`
	var rec domain.SessionRecord
	err := r.pool.QueryRow(ctx, query, sessionKey).Scan(
		&rec.SessionKey,
		&rec.AdapterID,
		&rec.AuthState,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &rec, nil
}

// SaveSession сохраняет запись сессии (upsert по sessionKey).
func (r *SessionRepo) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	query := `
		INSERT INTO sessions (session_key, adapter_id, auth_state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_key)
		DO UPDATE SET adapter_id = $2, auth_state = $3, updated_at = $4
	`
	_, err := r.pool.Exec(ctx, query,
		rec.SessionKey,
		rec.AdapterID,
		rec.AuthState,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
