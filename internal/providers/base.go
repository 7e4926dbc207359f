package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shaiso/Fabrika/internal/adapter"
	"github.com/shaiso/Fabrika/internal/browser"
	"github.com/shaiso/Fabrika/internal/domain"
)

// ErrNotOpen — capability-вызов до Open или после Close.
var ErrNotOpen = errors.New("adapter is not open")

// Base — общая часть браузерных адаптеров: жизненный цикл сессии,
// circuit breaker на Open и сведение ошибок к таксономии отказов.
//
// Конкретные адаптеры (StrategyAdapter, PublisherAdapter, ...)
// встраивают Base и делегируют UI-сценарий подменяемому Flow.
type Base struct {
	desc    domain.AdapterDescriptor
	manager *browser.Manager
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger

	session *browser.Session
	usage   UsageFlow
}

// NewBase создаёт Base для дескриптора.
//
// Breaker размыкается после трёх подряд неудачных Open: хлопающий
// провайдер быстро возвращает Unavailable вместо прогрева браузера
// на каждую попытку.
func NewBase(desc domain.AdapterDescriptor, manager *browser.Manager, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{
		desc:    desc,
		manager: manager,
		logger:  logger.With("adapter_id", desc.ID),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        desc.ID,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// ID возвращает идентификатор адаптера.
func (b *Base) ID() string { return b.desc.ID }

// SessionKey возвращает ключ браузерного профиля.
func (b *Base) SessionKey() string { return b.desc.SessionKey }

// Descriptor возвращает дескриптор адаптера.
func (b *Base) Descriptor() domain.AdapterDescriptor { return b.desc }

// Open открывает браузерную сессию провайдера через breaker.
// Повторный Open уже открытого адаптера — no-op.
func (b *Base) Open(ctx context.Context) error {
	if b.session != nil {
		return nil
	}

	_, err := b.breaker.Execute(func() (any, error) {
		s, err := b.manager.Open(ctx, b.desc)
		if err != nil {
			return nil, err
		}
		b.session = s
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return adapter.Unavailable(b.desc.ID, "open", fmt.Errorf("circuit open: %w", err))
		}
		return b.fail("open", err)
	}
	return nil
}

// Close персистирует сессию и освобождает браузерный контекст.
// Безопасен на любом пути выхода, в том числе без успешного Open.
func (b *Base) Close(ctx context.Context) error {
	if b.session == nil {
		return nil
	}
	s := b.session
	b.session = nil
	if err := s.Close(ctx); err != nil {
		return fmt.Errorf("close adapter %s: %w", b.desc.ID, err)
	}
	return nil
}

// Session возвращает открытую сессию (nil до Open).
func (b *Base) Session() *browser.Session { return b.session }

// SetUsageFlow подключает опциональный сценарий снятия квоты.
func (b *Base) SetUsageFlow(flow UsageFlow) { b.usage = flow }

// FetchUsage снимает показатели квоты провайдера.
// Без подключённого UsageFlow возвращает Unavailable: не каждый
// провайдер показывает квоту в UI.
func (b *Base) FetchUsage(ctx context.Context) (*domain.UsageSnapshot, error) {
	const op = "usage"
	if b.usage == nil {
		return nil, adapter.Unavailable(b.desc.ID, op, errors.New("usage reporting not supported"))
	}
	if err := b.ready(op); err != nil {
		return nil, err
	}
	snap, err := b.usage.FetchUsage(ctx, b.session)
	if err != nil {
		return nil, b.fail(op, err)
	}
	snap.AdapterID = b.desc.ID
	return snap, nil
}

// fail сводит ошибку capability-вызова к ProviderError: классифицирует
// вид отказа, best-effort снимает диагностический снимок и помечает
// его путь в ошибке.
func (b *Base) fail(op string, err error) error {
	var pe *adapter.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	kind := adapter.KindOf(err)
	if adapter.IsTimeout(err) {
		kind = adapter.KindUnavailable
	}

	diag := ""
	if b.session != nil {
		diag = b.session.Capture(op)
	}

	b.logger.Warn("provider call failed",
		"op", op,
		"kind", string(kind),
		"diagnostic", diag,
		"error", err,
	)
	return &adapter.ProviderError{
		Kind:       kind,
		AdapterID:  b.desc.ID,
		Op:         op,
		Diagnostic: diag,
		Err:        err,
	}
}

// ready проверяет, что сессия открыта, перед capability-вызовом.
func (b *Base) ready(op string) error {
	if b.session == nil {
		return adapter.Unavailable(b.desc.ID, op, ErrNotOpen)
	}
	return nil
}
