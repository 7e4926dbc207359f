package providers

import (
	"context"
	"time"

	"github.com/shaiso/Fabrika/internal/domain"
)

// StrategyAdapter реализует capability "strategy" поверх StrategyFlow.
type StrategyAdapter struct {
	*Base
	flow StrategyFlow
}

// NewStrategyAdapter создаёт адаптер стратегии.
func NewStrategyAdapter(base *Base, flow StrategyFlow) *StrategyAdapter {
	return &StrategyAdapter{Base: base, flow: flow}
}

// GenerateStrategy строит контент-стратегию по теме или тексту источника.
func (a *StrategyAdapter) GenerateStrategy(ctx context.Context, source string) (*domain.Strategy, error) {
	const op = "generate_strategy"
	if err := a.ready(op); err != nil {
		return nil, err
	}
	st, err := a.flow.GenerateStrategy(ctx, a.session, source)
	if err != nil {
		return nil, a.fail(op, err)
	}
	return st, nil
}

// ScriptAdapter реализует capability "script" поверх ScriptFlow.
type ScriptAdapter struct {
	*Base
	flow ScriptFlow
}

// NewScriptAdapter создаёт адаптер сценария.
func NewScriptAdapter(base *Base, flow ScriptFlow) *ScriptAdapter {
	return &ScriptAdapter{Base: base, flow: flow}
}

// GenerateScript пишет сценарий по стратегии.
func (a *ScriptAdapter) GenerateScript(ctx context.Context, strategy *domain.Strategy) (string, error) {
	const op = "generate_script"
	if err := a.ready(op); err != nil {
		return "", err
	}
	text, err := a.flow.GenerateScript(ctx, a.session, strategy)
	if err != nil {
		return "", a.fail(op, err)
	}
	return text, nil
}

// ImageAdapter реализует capability "image" поверх ImageFlow.
type ImageAdapter struct {
	*Base
	flow ImageFlow
}

// NewImageAdapter создаёт адаптер изображений.
func NewImageAdapter(base *Base, flow ImageFlow) *ImageAdapter {
	return &ImageAdapter{Base: base, flow: flow}
}

// GenerateImage генерирует изображение по промпту.
func (a *ImageAdapter) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*domain.Artifact, error) {
	const op = "generate_image"
	if err := a.ready(op); err != nil {
		return nil, err
	}
	art, err := a.flow.GenerateImage(ctx, a.session, prompt, aspectRatio)
	if err != nil {
		return nil, a.fail(op, err)
	}
	return a.stamp(art), nil
}

// AudioAdapter реализует capability "audio" поверх AudioFlow.
type AudioAdapter struct {
	*Base
	flow AudioFlow
}

// NewAudioAdapter создаёт адаптер озвучки.
func NewAudioAdapter(base *Base, flow AudioFlow) *AudioAdapter {
	return &AudioAdapter{Base: base, flow: flow}
}

// GenerateAudio озвучивает текстовый фрагмент.
func (a *AudioAdapter) GenerateAudio(ctx context.Context, text string) (*domain.Artifact, error) {
	const op = "generate_audio"
	if err := a.ready(op); err != nil {
		return nil, err
	}
	art, err := a.flow.GenerateAudio(ctx, a.session, text)
	if err != nil {
		return nil, a.fail(op, err)
	}
	return a.stamp(art), nil
}

// VideoClipAdapter реализует capability "video_clip" поверх VideoClipFlow.
type VideoClipAdapter struct {
	*Base
	flow VideoClipFlow
}

// NewVideoClipAdapter создаёт адаптер видеоклипов.
func NewVideoClipAdapter(base *Base, flow VideoClipFlow) *VideoClipAdapter {
	return &VideoClipAdapter{Base: base, flow: flow}
}

// GenerateVideoClip генерирует видеоклип по стратегии.
func (a *VideoClipAdapter) GenerateVideoClip(ctx context.Context, strategy *domain.Strategy) (*domain.Artifact, error) {
	const op = "generate_video_clip"
	if err := a.ready(op); err != nil {
		return nil, err
	}
	art, err := a.flow.GenerateVideoClip(ctx, a.session, strategy)
	if err != nil {
		return nil, a.fail(op, err)
	}
	return a.stamp(art), nil
}

// CompilerAdapter реализует capability "compilation" поверх CompileFlow.
type CompilerAdapter struct {
	*Base
	flow CompileFlow
}

// NewCompilerAdapter создаёт адаптер сборки.
func NewCompilerAdapter(base *Base, flow CompileFlow) *CompilerAdapter {
	return &CompilerAdapter{Base: base, flow: flow}
}

// Compile собирает финальный ролик из ассетов.
func (a *CompilerAdapter) Compile(ctx context.Context, assets domain.AssetBundle) (*domain.Artifact, error) {
	const op = "compile"
	if err := a.ready(op); err != nil {
		return nil, err
	}
	art, err := a.flow.Compile(ctx, a.session, assets)
	if err != nil {
		return nil, a.fail(op, err)
	}
	return a.stamp(art), nil
}

// PublisherAdapter реализует capabilities "distribution:<platform>"
// поверх PublishFlow.
type PublisherAdapter struct {
	*Base
	flow PublishFlow
}

// NewPublisherAdapter создаёт адаптер публикации.
func NewPublisherAdapter(base *Base, flow PublishFlow) *PublisherAdapter {
	return &PublisherAdapter{Base: base, flow: flow}
}

// Publish публикует материал на платформу и возвращает квитанцию.
func (a *PublisherAdapter) Publish(ctx context.Context, payload domain.PublishPayload) (*domain.DistributionReceipt, error) {
	const op = "publish"
	if err := a.ready(op); err != nil {
		return nil, err
	}
	receipt, err := a.flow.Publish(ctx, a.session, payload)
	if err != nil {
		return nil, a.fail(op, err)
	}
	if receipt.AdapterID == "" {
		receipt.AdapterID = a.ID()
	}
	if receipt.PublishedAt.IsZero() {
		receipt.PublishedAt = time.Now()
	}
	return receipt, nil
}

// stamp помечает артефакт адаптером-источником и временем создания.
func (b *Base) stamp(art *domain.Artifact) *domain.Artifact {
	if art == nil {
		return nil
	}
	if art.AdapterID == "" {
		art.AdapterID = b.desc.ID
	}
	if art.CreatedAt.IsZero() {
		art.CreatedAt = time.Now()
	}
	return art
}
