package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Fabrika/internal/domain"
)

// PreferenceRepo — read-only доступ к пользовательским предпочтениям.
// Записи мутируются внешним API; ядро их только читает в момент
// резолва этапа. Реализует adapter.PreferenceSource.
type PreferenceRepo struct {
	pool *pgxpool.Pool
}

// NewPreferenceRepo создаёт PreferenceRepo.
func NewPreferenceRepo(pool *pgxpool.Pool) *PreferenceRepo {
	return &PreferenceRepo{pool: pool}
}

// GetPreference возвращает предпочтение (userID, capability).
// Отсутствие записи — ErrNotFound.
func (r *PreferenceRepo) GetPreference(ctx context.Context, userID string, c domain.Capability) (*domain.ServicePreference, error) {
	query := `
		SELECT user_id, capability, adapter_ids
		FROM service_preferences
		WHERE user_id = $1 AND capability = $2
	`
	var pref domain.ServicePreference
	var idsJSON []byte
	err := r.pool.QueryRow(ctx, query, userID, c).Scan(
		&pref.UserID,
		&pref.Capability,
		&idsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}

	if err := json.Unmarshal(idsJSON, &pref.AdapterIDs); err != nil {
		return nil, fmt.Errorf("unmarshal adapter ids: %w", err)
	}
	return &pref, nil
}
