package adapter

import (
	"errors"
	"fmt"

	"github.com/shaiso/Fabrika/internal/domain"
)

// Ошибки реестра.
var (
	// ErrNoAdapter — для capability не зарегистрирован ни один адаптер.
	ErrNoAdapter = errors.New("no adapter registered for capability")

	// ErrDuplicateAdapter — адаптер уже зарегистрирован для capability.
	ErrDuplicateAdapter = errors.New("adapter already registered for capability")

	// ErrCapabilityMismatch — адаптер не реализует заявленную capability.
	ErrCapabilityMismatch = errors.New("adapter does not implement capability")
)

// entry — одна регистрационная запись реестра.
type entry struct {
	descriptor domain.AdapterDescriptor
	adapter    Adapter
}

// Registry — статическая таблица capability → упорядоченный набор адаптеров.
//
// Строится один раз при старте и передаётся компонентам явно (DI);
// после старта не мутируется, поэтому чтение безопасно из любого
// количества горутин без блокировок. Порядок регистрации задаёт
// порядок кандидатов: первый зарегистрированный — default.
type Registry struct {
	byCapability map[domain.Capability][]entry
	byID         map[string]Adapter

	// capOrder — capabilities в порядке первой регистрации.
	capOrder []domain.Capability
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		byCapability: make(map[domain.Capability][]entry),
		byID:         make(map[string]Adapter),
	}
}

// Register регистрирует адаптер для capability из дескриптора.
//
// Проверяет соответствие capability-интерфейса в момент регистрации:
// ошибка конфигурации обнаруживается при старте, не при вызове.
func (r *Registry) Register(desc domain.AdapterDescriptor, a Adapter) error {
	if desc.ID == "" {
		return fmt.Errorf("register adapter: empty id")
	}
	if desc.ID != a.ID() {
		return fmt.Errorf("register adapter: descriptor id %q does not match adapter id %q", desc.ID, a.ID())
	}
	if !Supports(a, desc.Capability) {
		return fmt.Errorf("%w: %s for %s", ErrCapabilityMismatch, desc.ID, desc.Capability)
	}

	for _, e := range r.byCapability[desc.Capability] {
		if e.descriptor.ID == desc.ID {
			return fmt.Errorf("%w: %s for %s", ErrDuplicateAdapter, desc.ID, desc.Capability)
		}
	}

	desc.IsDefault = len(r.byCapability[desc.Capability]) == 0
	if desc.IsDefault {
		r.capOrder = append(r.capOrder, desc.Capability)
	}
	r.byCapability[desc.Capability] = append(r.byCapability[desc.Capability], entry{
		descriptor: desc,
		adapter:    a,
	})
	r.byID[desc.ID] = a

	return nil
}

// Default возвращает дефолтный адаптер capability
// (первый зарегистрированный).
func (r *Registry) Default(c domain.Capability) (Adapter, domain.AdapterDescriptor, error) {
	entries := r.byCapability[c]
	if len(entries) == 0 {
		return nil, domain.AdapterDescriptor{}, fmt.Errorf("%w: %s", ErrNoAdapter, c)
	}
	return entries[0].adapter, entries[0].descriptor, nil
}

// Lookup возвращает адаптер с указанным id, зарегистрированный
// для capability. Возвращает false, если такой регистрации нет.
func (r *Registry) Lookup(c domain.Capability, adapterID string) (Adapter, domain.AdapterDescriptor, bool) {
	for _, e := range r.byCapability[c] {
		if e.descriptor.ID == adapterID {
			return e.adapter, e.descriptor, true
		}
	}
	return nil, domain.AdapterDescriptor{}, false
}

// Candidates возвращает дескрипторы всех адаптеров capability
// в порядке регистрации.
func (r *Registry) Candidates(c domain.Capability) []domain.AdapterDescriptor {
	entries := r.byCapability[c]
	descs := make([]domain.AdapterDescriptor, 0, len(entries))
	for _, e := range entries {
		descs = append(descs, e.descriptor)
	}
	return descs
}

// Capabilities возвращает все capabilities, у которых есть хотя бы
// один зарегистрированный адаптер, в порядке первой регистрации.
func (r *Registry) Capabilities() []domain.Capability {
	caps := make([]domain.Capability, len(r.capOrder))
	copy(caps, r.capOrder)
	return caps
}

// Platforms возвращает платформы публикации, для которых
// зарегистрированы адаптеры, в порядке их первой регистрации.
func (r *Registry) Platforms() []string {
	var platforms []string
	for _, c := range r.capOrder {
		if p := c.Platform(); p != "" {
			platforms = append(platforms, p)
		}
	}
	return platforms
}
