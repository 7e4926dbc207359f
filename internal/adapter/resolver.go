package adapter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/repo"
)

// PreferenceSource — источник пользовательских предпочтений.
// Ядро читает предпочтения только в момент резолва; запись — снаружи.
type PreferenceSource interface {
	// GetPreference возвращает предпочтение пользователя для capability.
	// Отсутствие предпочтения — repo.ErrNotFound, не ошибка резолва.
	GetPreference(ctx context.Context, userID string, c domain.Capability) (*domain.ServicePreference, error)
}

// Resolver выбирает адаптер для этапа с учётом предпочтений пользователя.
//
// Резолв выполняется независимо на каждый этап каждого run: один run
// может использовать разные провайдеры на разных этапах, а разные
// пользователи — разные провайдеры на одном этапе. Резолв не мутирует
// разделяемое состояние и безопасен для конкурентных вызовов.
type Resolver struct {
	registry *Registry
	prefs    PreferenceSource
	logger   *slog.Logger
}

// NewResolver создаёт Resolver.
// prefs может быть nil — тогда всегда используется дефолт реестра.
func NewResolver(registry *Registry, prefs PreferenceSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		registry: registry,
		prefs:    prefs,
		logger:   logger,
	}
}

// Resolve возвращает адаптер для capability.
//
// Порядок выбора:
//  1. Если у (userID, capability) есть предпочтение — первый его id,
//     зарегистрированный для этой capability.
//  2. Иначе — дефолт реестра.
//
// Предпочтение, ссылающееся только на незарегистрированные адаптеры,
// не является ошибкой: происходит откат на дефолт. Ошибка возможна
// только когда для capability не зарегистрировано ничего.
func (r *Resolver) Resolve(ctx context.Context, c domain.Capability, userID string) (Adapter, domain.AdapterDescriptor, error) {
	if userID == "" || r.prefs == nil {
		return r.registry.Default(c)
	}

	pref, err := r.prefs.GetPreference(ctx, userID, c)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			// Источник предпочтений недоступен — откатываемся на дефолт,
			// но логируем громко: это деградация, а не норма.
			r.logger.Warn("preference lookup failed, using registry default",
				"user_id", userID,
				"capability", c,
				"error", err,
			)
		}
		return r.registry.Default(c)
	}

	for _, id := range pref.AdapterIDs {
		if a, desc, ok := r.registry.Lookup(c, id); ok {
			return a, desc, nil
		}
		r.logger.Debug("preferred adapter not registered, skipping",
			"user_id", userID,
			"capability", c,
			"adapter_id", id,
		)
	}

	return r.registry.Default(c)
}
