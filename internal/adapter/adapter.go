package adapter

import (
	"context"

	"github.com/shaiso/Fabrika/internal/domain"
)

// Adapter — базовый интерфейс обёртки над одним внешним провайдером.
//
// Каждый адаптер дополнительно реализует подмножество capability-интерфейсов
// (StrategyGenerator, ScriptGenerator, ...). Набор capabilities проверяется
// реестром один раз при регистрации, не при вызове.
//
// Контракт жизненного цикла:
//   - Open() восстанавливает SessionRecord (если есть) в свежий браузерный
//     контекст и открывает точку входа провайдера.
//   - Close() снимает и персистирует SessionRecord, затем освобождает
//     браузерный контекст. Close обязан выполняться на всех путях выхода,
//     включая ошибочные — авторизованное состояние не теряется молча.
type Adapter interface {
	// ID возвращает уникальный идентификатор адаптера.
	ID() string

	// SessionKey возвращает ключ браузерного профиля провайдера.
	SessionKey() string

	// Open подготавливает адаптер к вызовам capabilities.
	Open(ctx context.Context) error

	// Close персистирует сессию и освобождает ресурсы.
	Close(ctx context.Context) error
}

// StrategyGenerator — capability "strategy".
type StrategyGenerator interface {
	Adapter

	// GenerateStrategy строит контент-стратегию по теме или
	// извлечённому тексту источника.
	GenerateStrategy(ctx context.Context, source string) (*domain.Strategy, error)
}

// ScriptGenerator — capability "script".
type ScriptGenerator interface {
	Adapter

	// GenerateScript пишет сценарий по стратегии.
	GenerateScript(ctx context.Context, strategy *domain.Strategy) (string, error)
}

// ImageGenerator — capability "image".
type ImageGenerator interface {
	Adapter

	// GenerateImage генерирует изображение по промпту.
	// aspectRatio может быть пустым — тогда используется default провайдера.
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (*domain.Artifact, error)
}

// AudioGenerator — capability "audio".
type AudioGenerator interface {
	Adapter

	// GenerateAudio озвучивает текстовый фрагмент.
	GenerateAudio(ctx context.Context, text string) (*domain.Artifact, error)
}

// VideoClipGenerator — capability "video_clip".
type VideoClipGenerator interface {
	Adapter

	// GenerateVideoClip генерирует видеоклип по стратегии.
	GenerateVideoClip(ctx context.Context, strategy *domain.Strategy) (*domain.Artifact, error)
}

// Compiler — capability "compilation".
type Compiler interface {
	Adapter

	// Compile собирает финальный ролик из ассетов.
	Compile(ctx context.Context, assets domain.AssetBundle) (*domain.Artifact, error)
}

// Publisher — capabilities "distribution:<platform>".
type Publisher interface {
	Adapter

	// Publish публикует материал на платформу и возвращает квитанцию.
	Publish(ctx context.Context, payload domain.PublishPayload) (*domain.DistributionReceipt, error)
}

// UsageReporter — опциональная возможность снятия квоты провайдера.
// Не является этапом конвейера; используется для мониторинга.
type UsageReporter interface {
	// FetchUsage возвращает снимок использования квоты.
	FetchUsage(ctx context.Context) (*domain.UsageSnapshot, error)
}

// Supports проверяет, реализует ли адаптер указанную capability.
// Проверка по интерфейсам, без duck-typing в момент вызова.
func Supports(a Adapter, c domain.Capability) bool {
	if c.IsDistribution() {
		_, ok := a.(Publisher)
		return ok
	}

	switch c {
	case domain.CapabilityStrategy:
		_, ok := a.(StrategyGenerator)
		return ok
	case domain.CapabilityScript:
		_, ok := a.(ScriptGenerator)
		return ok
	case domain.CapabilityImage:
		_, ok := a.(ImageGenerator)
		return ok
	case domain.CapabilityAudio:
		_, ok := a.(AudioGenerator)
		return ok
	case domain.CapabilityVideoClip:
		_, ok := a.(VideoClipGenerator)
		return ok
	case domain.CapabilityCompilation:
		_, ok := a.(Compiler)
		return ok
	default:
		return false
	}
}
