package providers

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shaiso/Fabrika/internal/adapter"
	"github.com/shaiso/Fabrika/internal/browser"
	"github.com/shaiso/Fabrika/internal/domain"
)

// Entry — пара дескриптор + flow в каталоге провайдеров.
// Flow должен реализовывать интерфейс, соответствующий capability
// дескриптора (StrategyFlow для strategy и так далее).
type Entry struct {
	Descriptor domain.AdapterDescriptor
	Flow       any

	// Usage — опциональный сценарий снятия квоты провайдера.
	Usage UsageFlow
}

var (
	catalogMu sync.Mutex
	catalog   []Entry
)

// RegisterFlow добавляет провайдера в каталог процесса.
// Вызывается из init() пакетов с конкретными UI-сценариями;
// порядок регистрации определяет дефолты реестра.
func RegisterFlow(desc domain.AdapterDescriptor, flow any) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalog = append(catalog, Entry{Descriptor: desc, Flow: flow})
}

// Catalog возвращает копию зарегистрированных провайдеров.
func Catalog() []Entry {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	return append([]Entry(nil), catalog...)
}

// BuildRegistry собирает adapter.Registry из записей каталога:
// на каждую запись — Base поверх manager и capability-адаптер
// вокруг flow.
func BuildRegistry(entries []Entry, manager *browser.Manager, logger *slog.Logger) (*adapter.Registry, error) {
	reg := adapter.NewRegistry()
	for _, e := range entries {
		a, err := buildAdapter(e, manager, logger)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(e.Descriptor, a); err != nil {
			return nil, fmt.Errorf("register %s: %w", e.Descriptor.ID, err)
		}
	}
	return reg, nil
}

func buildAdapter(e Entry, manager *browser.Manager, logger *slog.Logger) (adapter.Adapter, error) {
	base := NewBase(e.Descriptor, manager, logger)
	if e.Usage != nil {
		base.SetUsageFlow(e.Usage)
	}
	cap := e.Descriptor.Capability

	switch {
	case cap == domain.CapabilityStrategy:
		flow, ok := e.Flow.(StrategyFlow)
		if !ok {
			return nil, flowMismatch(e)
		}
		return NewStrategyAdapter(base, flow), nil
	case cap == domain.CapabilityScript:
		flow, ok := e.Flow.(ScriptFlow)
		if !ok {
			return nil, flowMismatch(e)
		}
		return NewScriptAdapter(base, flow), nil
	case cap == domain.CapabilityImage:
		flow, ok := e.Flow.(ImageFlow)
		if !ok {
			return nil, flowMismatch(e)
		}
		return NewImageAdapter(base, flow), nil
	case cap == domain.CapabilityAudio:
		flow, ok := e.Flow.(AudioFlow)
		if !ok {
			return nil, flowMismatch(e)
		}
		return NewAudioAdapter(base, flow), nil
	case cap == domain.CapabilityVideoClip:
		flow, ok := e.Flow.(VideoClipFlow)
		if !ok {
			return nil, flowMismatch(e)
		}
		return NewVideoClipAdapter(base, flow), nil
	case cap == domain.CapabilityCompilation:
		flow, ok := e.Flow.(CompileFlow)
		if !ok {
			return nil, flowMismatch(e)
		}
		return NewCompilerAdapter(base, flow), nil
	case cap.IsDistribution():
		flow, ok := e.Flow.(PublishFlow)
		if !ok {
			return nil, flowMismatch(e)
		}
		return NewPublisherAdapter(base, flow), nil
	default:
		return nil, fmt.Errorf("unknown capability %q for adapter %s", cap, e.Descriptor.ID)
	}
}

func flowMismatch(e Entry) error {
	return fmt.Errorf("adapter %s: flow %T does not implement %s flow interface",
		e.Descriptor.ID, e.Flow, e.Descriptor.Capability)
}
