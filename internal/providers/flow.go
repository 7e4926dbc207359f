package providers

import (
	"context"

	"github.com/shaiso/Fabrika/internal/browser"
	"github.com/shaiso/Fabrika/internal/domain"
)

// Flow-интерфейсы — подменяемые UI-сценарии конкретных провайдеров
// (списки селекторов, последовательности кликов). Адаптер владеет
// жизненным циклом и классификацией отказов; flow — только шагами
// взаимодействия с открытой сессией.

// StrategyFlow строит контент-стратегию в UI провайдера.
type StrategyFlow interface {
	GenerateStrategy(ctx context.Context, s *browser.Session, source string) (*domain.Strategy, error)
}

// ScriptFlow пишет сценарий по стратегии в UI провайдера.
type ScriptFlow interface {
	GenerateScript(ctx context.Context, s *browser.Session, strategy *domain.Strategy) (string, error)
}

// ImageFlow генерирует изображение в UI провайдера.
type ImageFlow interface {
	GenerateImage(ctx context.Context, s *browser.Session, prompt, aspectRatio string) (*domain.Artifact, error)
}

// AudioFlow озвучивает текст в UI провайдера.
type AudioFlow interface {
	GenerateAudio(ctx context.Context, s *browser.Session, text string) (*domain.Artifact, error)
}

// VideoClipFlow генерирует видеоклип в UI провайдера.
type VideoClipFlow interface {
	GenerateVideoClip(ctx context.Context, s *browser.Session, strategy *domain.Strategy) (*domain.Artifact, error)
}

// CompileFlow собирает финальный ролик из ассетов в UI провайдера.
type CompileFlow interface {
	Compile(ctx context.Context, s *browser.Session, assets domain.AssetBundle) (*domain.Artifact, error)
}

// PublishFlow публикует материал на платформу через UI провайдера.
type PublishFlow interface {
	Publish(ctx context.Context, s *browser.Session, payload domain.PublishPayload) (*domain.DistributionReceipt, error)
}

// UsageFlow снимает показатели квоты в UI провайдера.
type UsageFlow interface {
	FetchUsage(ctx context.Context, s *browser.Session) (*domain.UsageSnapshot, error)
}
