package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Fabrika/internal/adapter"
	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/telemetry"
)

// defaultAspectRatio — соотношение сторон короткого вертикального видео.
const defaultAspectRatio = "9:16"

// Orchestrator выполняет конвейер производства контента.
//
// Последовательность этапов фиксирована: strategy → script → image →
// audio → video_clip → compilation → distribution (под-этап на каждую
// платформу). Для каждого этапа адаптер разрешается независимо через
// Resolver; уже открытый в рамках run адаптер переиспользуется и
// закрывается после последнего этапа, которому он нужен.
//
// Падение этапа останавливает run немедленно — автоматического
// fallback на другой адаптер внутри одного run нет; retry происходит
// на уровне job и порождает новый run. Под-этапы distribution —
// исключение: они записываются независимо, неудача одной платформы
// не валит run и не откатывает другие.
type Orchestrator struct {
	registry *adapter.Registry
	resolver *adapter.Resolver
	archiver Archiver

	aspectRatio string
	logger      *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Registry — реестр адаптеров (обязательно).
	Registry *adapter.Registry

	// Resolver — разрешение предпочтений пользователя (обязательно).
	Resolver *adapter.Resolver

	// Archiver — внешнее хранилище текстовых артефактов (обязательно).
	Archiver Archiver

	// AspectRatio — дефолтное соотношение сторон (default: "9:16").
	AspectRatio string

	// Logger — логгер.
	Logger *slog.Logger
}

// New создаёт Orchestrator.
func New(cfg Config) *Orchestrator {
	aspectRatio := cfg.AspectRatio
	if aspectRatio == "" {
		aspectRatio = defaultAspectRatio
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry:    cfg.Registry,
		resolver:    cfg.Resolver,
		archiver:    cfg.Archiver,
		aspectRatio: aspectRatio,
		logger:      logger,
	}
}

// plannedStage — один этап run с уже разрешённым адаптером.
type plannedStage struct {
	capability domain.Capability
	adapter    adapter.Adapter
}

// Execute выполняет один сквозной проход конвейера.
//
// source — тема запроса или извлечённый текст источника (для
// createFromUrl извлечение выполняет воркер до вызова Execute).
//
// Возвращаемый PipelineRun всегда не-nil: при падении этапа он
// содержит статус FAILED, упавший этап и артефакты уже пройденных
// этапов.
func (o *Orchestrator) Execute(ctx context.Context, req *domain.ContentRequest, source string) (*domain.PipelineRun, error) {
	run := domain.NewPipelineRun(req)
	logger := o.logger.With(
		"operation_id", run.OperationID.String(),
		"request_id", req.ID.String(),
	)

	if err := req.Validate(); err != nil {
		run.MarkFailed("", err.Error())
		return run, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	plan, failedStage, err := o.plan(ctx, req.UserID)
	if err != nil {
		run.MarkFailed(failedStage, err.Error())
		return run, err
	}

	// Последний этап, которому нужен каждый адаптер: после него Close.
	lastUse := make(map[string]int, len(plan))
	for i, ps := range plan {
		lastUse[ps.adapter.ID()] = i
	}
	open := make(map[string]adapter.Adapter)

	// Close обязан выполниться на всех путях выхода, включая ошибочные;
	// авторизованное состояние сессий не теряется молча.
	defer func() {
		closeCtx := context.WithoutCancel(ctx)
		for id, a := range open {
			if err := a.Close(closeCtx); err != nil {
				logger.Warn("adapter close failed", "adapter_id", id, "error", err)
			}
		}
	}()

	var (
		strategy *domain.Strategy
		script   string
		bundle   domain.AssetBundle
	)

	for i, ps := range plan {
		a := ps.adapter
		stageLogger := logger.With("stage", string(ps.capability), "adapter_id", a.ID())

		if _, ok := open[a.ID()]; !ok {
			if err := a.Open(ctx); err != nil {
				return o.failStage(run, ps.capability, a.ID(), err, stageLogger)
			}
			open[a.ID()] = a
		}

		stageLogger.Info("stage started")
		started := time.Now()

		if ps.capability.IsDistribution() {
			receipt := o.publish(ctx, a, ps.capability.Platform(), strategy, run)
			run.Receipts = append(run.Receipts, *receipt)
			telemetry.StageDuration.WithLabelValues(string(ps.capability), a.ID()).Observe(time.Since(started).Seconds())
			if receipt.Succeeded {
				stageLogger.Info("platform published", "ref", receipt.Ref)
			} else {
				stageLogger.Warn("platform publish failed", "error", receipt.Error)
			}
			o.closeDone(ctx, open, lastUse, i, logger)
			continue
		}

		artifact, stageErr := o.runStage(ctx, run, req, ps.capability, a, source, &strategy, &script, &bundle)
		telemetry.StageDuration.WithLabelValues(string(ps.capability), a.ID()).Observe(time.Since(started).Seconds())
		if stageErr != nil {
			return o.failStage(run, ps.capability, a.ID(), stageErr, stageLogger)
		}

		run.RecordStage(ps.capability, *artifact)
		stageLogger.Info("stage completed",
			"ref", artifact.Ref,
			"duration", time.Since(started).String(),
		)

		o.closeDone(ctx, open, lastUse, i, logger)
	}

	run.MarkSucceeded()
	logger.Info("run succeeded",
		"duration", run.Duration().String(),
		"receipts", len(run.Receipts),
	)
	return run, nil
}

// plan разрешает адаптер для каждого этапа run заранее, чтобы знать,
// после какого этапа адаптер можно закрывать.
func (o *Orchestrator) plan(ctx context.Context, userID string) ([]plannedStage, domain.Capability, error) {
	stages := domain.StageOrder()
	for _, platform := range o.registry.Platforms() {
		stages = append(stages, domain.DistributionFor(platform))
	}

	plan := make([]plannedStage, 0, len(stages))
	for _, c := range stages {
		a, _, err := o.resolver.Resolve(ctx, c, userID)
		if err != nil {
			return nil, c, fmt.Errorf("%w: %s: %v", ErrStageUnresolvable, c, err)
		}
		plan = append(plan, plannedStage{capability: c, adapter: a})
	}
	return plan, "", nil
}

// runStage выполняет один не-distribution этап.
func (o *Orchestrator) runStage(
	ctx context.Context,
	run *domain.PipelineRun,
	req *domain.ContentRequest,
	c domain.Capability,
	a adapter.Adapter,
	source string,
	strategy **domain.Strategy,
	script *string,
	bundle *domain.AssetBundle,
) (*domain.Artifact, error) {
	switch c {
	case domain.CapabilityStrategy:
		sg := a.(adapter.StrategyGenerator)
		st, err := sg.GenerateStrategy(ctx, source)
		if err != nil {
			return nil, err
		}
		*strategy = st
		raw, err := json.Marshal(st)
		if err != nil {
			return nil, fmt.Errorf("encode strategy: %w", err)
		}
		return o.archive(ctx, run, "strategy.json", "strategy", a.ID(), raw)

	case domain.CapabilityScript:
		sg := a.(adapter.ScriptGenerator)
		text, err := sg.GenerateScript(ctx, *strategy)
		if err != nil {
			return nil, err
		}
		*script = text
		return o.archive(ctx, run, "script.txt", "text", a.ID(), []byte(text))

	case domain.CapabilityImage:
		ig := a.(adapter.ImageGenerator)
		// Клиентский aspect_ratio из запроса имеет приоритет над дефолтом.
		art, err := ig.GenerateImage(ctx, (*strategy).ImagePrompt, req.AspectRatio(o.aspectRatio))
		if err != nil {
			return nil, err
		}
		bundle.Images = append(bundle.Images, *art)
		return art, nil

	case domain.CapabilityAudio:
		ag := a.(adapter.AudioGenerator)
		art, err := ag.GenerateAudio(ctx, *script)
		if err != nil {
			return nil, err
		}
		bundle.Audio = append(bundle.Audio, *art)
		return art, nil

	case domain.CapabilityVideoClip:
		vg := a.(adapter.VideoClipGenerator)
		art, err := vg.GenerateVideoClip(ctx, *strategy)
		if err != nil {
			return nil, err
		}
		bundle.Clips = append(bundle.Clips, *art)
		return art, nil

	case domain.CapabilityCompilation:
		comp := a.(adapter.Compiler)
		bundle.Script = *script
		return comp.Compile(ctx, *bundle)

	default:
		return nil, fmt.Errorf("unknown stage %s", c)
	}
}

// publish выполняет один под-этап distribution и всегда возвращает
// квитанцию: неудача записывается, но run не останавливается.
func (o *Orchestrator) publish(
	ctx context.Context,
	a adapter.Adapter,
	platform string,
	strategy *domain.Strategy,
	run *domain.PipelineRun,
) *domain.DistributionReceipt {
	final, ok := run.FinalArtifact()
	if !ok {
		return &domain.DistributionReceipt{
			Platform:    platform,
			AdapterID:   a.ID(),
			Succeeded:   false,
			Error:       "no final artifact to publish",
			PublishedAt: time.Now(),
		}
	}

	payload := domain.PublishPayload{
		Platform:    platform,
		Video:       final,
		Title:       strategy.Title,
		Description: strategy.Hook,
		Tags:        strategy.Tags,
	}

	pub := a.(adapter.Publisher)
	receipt, err := pub.Publish(ctx, payload)
	if err != nil {
		telemetry.StageFailures.WithLabelValues(string(domain.DistributionFor(platform)), string(adapter.KindOf(err))).Inc()
		return &domain.DistributionReceipt{
			Platform:    platform,
			AdapterID:   a.ID(),
			Succeeded:   false,
			Error:       err.Error(),
			PublishedAt: time.Now(),
		}
	}
	receipt.Platform = platform
	receipt.Succeeded = true
	return receipt
}

// archive сохраняет текстовый артефакт и собирает ссылку на него.
func (o *Orchestrator) archive(ctx context.Context, run *domain.PipelineRun, name, kind, adapterID string, data []byte) (*domain.Artifact, error) {
	ref, err := o.archiver.ArchiveText(ctx, run.OperationID, name, data)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", name, err)
	}
	return &domain.Artifact{
		Ref:       ref,
		Kind:      kind,
		AdapterID: adapterID,
		CreatedAt: time.Now(),
	}, nil
}

// failStage финализирует run после падения этапа.
func (o *Orchestrator) failStage(run *domain.PipelineRun, c domain.Capability, adapterID string, err error, logger *slog.Logger) (*domain.PipelineRun, error) {
	telemetry.StageFailures.WithLabelValues(string(c), string(adapter.KindOf(err))).Inc()
	run.MarkFailed(c, err.Error())
	logger.Error("stage failed",
		"kind", string(adapter.KindOf(err)),
		"error", err,
	)
	return run, &StageError{Stage: c, Err: err}
}

// closeDone закрывает адаптеры, которым не осталось этапов в run.
func (o *Orchestrator) closeDone(ctx context.Context, open map[string]adapter.Adapter, lastUse map[string]int, idx int, logger *slog.Logger) {
	for id, last := range lastUse {
		if last != idx {
			continue
		}
		a, ok := open[id]
		if !ok {
			continue
		}
		delete(open, id)
		if err := a.Close(ctx); err != nil {
			logger.Warn("adapter close failed", "adapter_id", id, "error", err)
		}
	}
}
