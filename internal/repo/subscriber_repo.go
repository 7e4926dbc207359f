package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Fabrika/internal/domain"
)

// SubscriberRepo — read-only проекция внешнего user store для
// планировщика. Хранение аккаунтов и биллинг — вне ядра.
type SubscriberRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriberRepo создаёт SubscriberRepo.
func NewSubscriberRepo(pool *pgxpool.Pool) *SubscriberRepo {
	return &SubscriberRepo{pool: pool}
}

// ListAutopilotCandidates возвращает подписчиков с включённым
// автопилотом. Фильтры плана/темы и проверка активности подписки
// выполняются планировщиком поверх этой выборки.
func (r *SubscriberRepo) ListAutopilotCandidates(ctx context.Context) ([]domain.Subscriber, error) {
	query := `
		SELECT user_id, autopilot_enabled, plan, topic, params
		FROM subscribers
		WHERE autopilot_enabled = TRUE
		ORDER BY user_id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list autopilot candidates: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		var s domain.Subscriber
		var paramsJSON []byte
		if err := rows.Scan(&s.UserID, &s.AutopilotEnabled, &s.Plan, &s.Topic, &paramsJSON); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		if len(paramsJSON) > 0 {
			if err := json.Unmarshal(paramsJSON, &s.Params); err != nil {
				return nil, fmt.Errorf("unmarshal params: %w", err)
			}
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
