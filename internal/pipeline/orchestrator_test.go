package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Fabrika/internal/adapter"
	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/repo"

	"github.com/google/uuid"
)

// fakeAdapter реализует все capabilities; падение настраивается
// через failOp.
type fakeAdapter struct {
	id     string
	opens  int
	closes int
	calls  map[string]int

	openErr error
	failOp  string
	failErr error

	imageRatio string
}

func newFakeAdapter(id string) *fakeAdapter {
	return &fakeAdapter{id: id, calls: make(map[string]int)}
}

func (f *fakeAdapter) ID() string         { return f.id }
func (f *fakeAdapter) SessionKey() string { return f.id + "_main" }

func (f *fakeAdapter) Open(context.Context) error {
	f.opens++
	return f.openErr
}

func (f *fakeAdapter) Close(context.Context) error {
	f.closes++
	return nil
}

func (f *fakeAdapter) call(op string) error {
	f.calls[op]++
	if f.failOp == op {
		if f.failErr != nil {
			return f.failErr
		}
		return adapter.Unavailable(f.id, op, errors.New("element not found"))
	}
	return nil
}

func (f *fakeAdapter) GenerateStrategy(_ context.Context, source string) (*domain.Strategy, error) {
	if err := f.call("strategy"); err != nil {
		return nil, err
	}
	return &domain.Strategy{
		Title:       "Video about " + source,
		Hook:        "You will not believe this",
		Outline:     []string{"intro", "body", "outro"},
		ImagePrompt: "cover for " + source,
		Tags:        []string{"auto"},
	}, nil
}

func (f *fakeAdapter) GenerateScript(_ context.Context, s *domain.Strategy) (string, error) {
	if err := f.call("script"); err != nil {
		return "", err
	}
	return "script for " + s.Title, nil
}

func (f *fakeAdapter) GenerateImage(_ context.Context, prompt, aspectRatio string) (*domain.Artifact, error) {
	f.imageRatio = aspectRatio
	if err := f.call("image"); err != nil {
		return nil, err
	}
	return &domain.Artifact{Ref: "image://" + f.id, Kind: "image", AdapterID: f.id, CreatedAt: time.Now()}, nil
}

func (f *fakeAdapter) GenerateAudio(_ context.Context, text string) (*domain.Artifact, error) {
	if err := f.call("audio"); err != nil {
		return nil, err
	}
	return &domain.Artifact{Ref: "audio://" + f.id, Kind: "audio", AdapterID: f.id, CreatedAt: time.Now()}, nil
}

func (f *fakeAdapter) GenerateVideoClip(_ context.Context, s *domain.Strategy) (*domain.Artifact, error) {
	if err := f.call("video_clip"); err != nil {
		return nil, err
	}
	return &domain.Artifact{Ref: "clip://" + f.id, Kind: "video", AdapterID: f.id, CreatedAt: time.Now()}, nil
}

func (f *fakeAdapter) Compile(_ context.Context, assets domain.AssetBundle) (*domain.Artifact, error) {
	if err := f.call("compile"); err != nil {
		return nil, err
	}
	if assets.Script == "" || len(assets.Images) == 0 || len(assets.Audio) == 0 || len(assets.Clips) == 0 {
		return nil, adapter.Malformed(f.id, "compile", errors.New("incomplete asset bundle"))
	}
	return &domain.Artifact{Ref: "final://" + f.id, Kind: "video", AdapterID: f.id, CreatedAt: time.Now()}, nil
}

func (f *fakeAdapter) Publish(_ context.Context, p domain.PublishPayload) (*domain.DistributionReceipt, error) {
	if err := f.call("publish:" + p.Platform); err != nil {
		return nil, err
	}
	return &domain.DistributionReceipt{
		Platform:    p.Platform,
		AdapterID:   f.id,
		Ref:         "https://" + p.Platform + ".example/v/1",
		PublishedAt: time.Now(),
	}, nil
}

// fakePrefs — источник предпочтений в памяти.
type fakePrefs map[string]map[domain.Capability][]string

func (p fakePrefs) GetPreference(_ context.Context, userID string, c domain.Capability) (*domain.ServicePreference, error) {
	ids, ok := p[userID][c]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &domain.ServicePreference{UserID: userID, Capability: c, AdapterIDs: ids}, nil
}

func coreCapabilities() []domain.Capability {
	return []domain.Capability{
		domain.CapabilityStrategy,
		domain.CapabilityScript,
		domain.CapabilityImage,
		domain.CapabilityAudio,
		domain.CapabilityVideoClip,
		domain.CapabilityCompilation,
	}
}

// registerForAll регистрирует адаптер на все core-этапы и платформы.
func registerForAll(t *testing.T, reg *adapter.Registry, a *fakeAdapter, platforms ...string) {
	t.Helper()
	for _, c := range coreCapabilities() {
		if err := reg.Register(domain.AdapterDescriptor{ID: a.id, Capability: c, SessionKey: a.SessionKey()}, a); err != nil {
			t.Fatalf("register %s for %s: %v", a.id, c, err)
		}
	}
	for _, p := range platforms {
		c := domain.DistributionFor(p)
		if err := reg.Register(domain.AdapterDescriptor{ID: a.id, Capability: c, SessionKey: a.SessionKey()}, a); err != nil {
			t.Fatalf("register %s for %s: %v", a.id, c, err)
		}
	}
}

func newOrchestrator(t *testing.T, reg *adapter.Registry, prefs adapter.PreferenceSource) *Orchestrator {
	t.Helper()
	return New(Config{
		Registry: reg,
		Resolver: adapter.NewResolver(reg, prefs, nil),
		Archiver: &FileArchiver{Dir: t.TempDir()},
	})
}

func topicRequest(topic string) *domain.ContentRequest {
	return &domain.ContentRequest{ID: uuid.New(), Topic: topic, UserID: "u1"}
}

func TestExecuteHappyPathWithRegistryDefaults(t *testing.T) {
	reg := adapter.NewRegistry()
	all := newFakeAdapter("omni")
	registerForAll(t, reg, all, "youtube")

	o := newOrchestrator(t, reg, nil)
	req := topicRequest("space travel")

	run, err := o.Execute(context.Background(), req, req.Topic)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if run.Status != domain.RunStatusSucceeded {
		t.Fatalf("run status = %s, want SUCCEEDED (error %q)", run.Status, run.Error)
	}

	for _, c := range coreCapabilities() {
		if _, ok := run.StageArtifact(c); !ok {
			t.Errorf("no artifact recorded for stage %s", c)
		}
	}
	final, ok := run.FinalArtifact()
	if !ok || final.Ref != "final://omni" {
		t.Fatalf("final artifact = %+v, ok=%v", final, ok)
	}

	if len(run.Receipts) != 1 {
		t.Fatalf("receipts = %d, want 1", len(run.Receipts))
	}
	if r := run.Receipts[0]; !r.Succeeded || r.Platform != "youtube" {
		t.Fatalf("receipt = %+v", r)
	}

	// Один адаптер обслуживает все этапы: одна сессия на run.
	if all.opens != 1 || all.closes != 1 {
		t.Fatalf("opens=%d closes=%d, want 1/1", all.opens, all.closes)
	}
}

func TestExecuteStageFailureStopsRunImmediately(t *testing.T) {
	reg := adapter.NewRegistry()
	strategist := newFakeAdapter("strategist")
	scripter := newFakeAdapter("scripter")
	scripter.failOp = "script"
	rest := newFakeAdapter("rest")

	mustRegister := func(a *fakeAdapter, c domain.Capability) {
		t.Helper()
		if err := reg.Register(domain.AdapterDescriptor{ID: a.id, Capability: c, SessionKey: a.SessionKey()}, a); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	mustRegister(strategist, domain.CapabilityStrategy)
	mustRegister(scripter, domain.CapabilityScript)
	mustRegister(rest, domain.CapabilityImage)
	mustRegister(rest, domain.CapabilityAudio)
	mustRegister(rest, domain.CapabilityVideoClip)
	mustRegister(rest, domain.CapabilityCompilation)
	mustRegister(rest, domain.DistributionFor("youtube"))

	o := newOrchestrator(t, reg, nil)
	run, err := o.Execute(context.Background(), topicRequest("cooking"), "cooking")

	if run.Status != domain.RunStatusFailed {
		t.Fatalf("run status = %s, want FAILED", run.Status)
	}
	if run.FailedStage != domain.CapabilityScript {
		t.Fatalf("failed stage = %s, want script", run.FailedStage)
	}

	var se *StageError
	if !errors.As(err, &se) || se.Stage != domain.CapabilityScript {
		t.Fatalf("expected StageError for script, got %v", err)
	}
	if !errors.Is(err, adapter.ErrUnavailable) {
		t.Fatalf("expected Unavailable, got %v", err)
	}

	// Артефакт пройденного этапа сохранён.
	if _, ok := run.StageArtifact(domain.CapabilityStrategy); !ok {
		t.Error("strategy artifact must be retained after later-stage failure")
	}
	// Этапы после упавшего не выполнялись.
	if rest.opens != 0 {
		t.Errorf("downstream adapter opened %d times after failure", rest.opens)
	}
	// Сессии открытых адаптеров закрыты несмотря на падение.
	if strategist.closes != 1 || scripter.closes != 1 {
		t.Errorf("closes strategist=%d scripter=%d, want 1/1", strategist.closes, scripter.closes)
	}
}

func TestExecuteDistributionFailureDoesNotFailRun(t *testing.T) {
	reg := adapter.NewRegistry()
	all := newFakeAdapter("omni")
	all.failOp = "publish:tiktok"
	registerForAll(t, reg, all, "youtube", "tiktok")

	o := newOrchestrator(t, reg, nil)
	run, err := o.Execute(context.Background(), topicRequest("travel"), "travel")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if run.Status != domain.RunStatusSucceeded {
		t.Fatalf("run status = %s, want SUCCEEDED", run.Status)
	}
	if len(run.Receipts) != 2 {
		t.Fatalf("receipts = %d, want 2", len(run.Receipts))
	}

	byPlatform := map[string]domain.DistributionReceipt{}
	for _, r := range run.Receipts {
		byPlatform[r.Platform] = r
	}
	if !byPlatform["youtube"].Succeeded {
		t.Error("youtube receipt must be succeeded")
	}
	if r := byPlatform["tiktok"]; r.Succeeded || r.Error == "" {
		t.Errorf("tiktok receipt must record the failure, got %+v", r)
	}
}

func TestExecuteRoutesStageByUserPreference(t *testing.T) {
	reg := adapter.NewRegistry()
	all := newFakeAdapter("omni")
	registerForAll(t, reg, all, "youtube")

	alt := newFakeAdapter("alt_scripter")
	if err := reg.Register(domain.AdapterDescriptor{ID: alt.id, Capability: domain.CapabilityScript, SessionKey: alt.SessionKey()}, alt); err != nil {
		t.Fatalf("register alt: %v", err)
	}

	prefs := fakePrefs{
		"u1": {domain.CapabilityScript: []string{"missing", "alt_scripter"}},
	}

	o := newOrchestrator(t, reg, prefs)
	run, err := o.Execute(context.Background(), topicRequest("chess"), "chess")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if run.Status != domain.RunStatusSucceeded {
		t.Fatalf("run status = %s", run.Status)
	}

	if alt.calls["script"] != 1 {
		t.Errorf("preferred adapter got %d script calls, want 1", alt.calls["script"])
	}
	if all.calls["script"] != 0 {
		t.Errorf("default adapter got %d script calls, want 0", all.calls["script"])
	}
	if alt.closes != 1 {
		t.Errorf("preferred adapter closes = %d, want 1", alt.closes)
	}
}

func TestExecuteUnresolvableStageFailsBeforeAnyStage(t *testing.T) {
	reg := adapter.NewRegistry()
	strategist := newFakeAdapter("strategist")
	if err := reg.Register(domain.AdapterDescriptor{ID: strategist.id, Capability: domain.CapabilityStrategy, SessionKey: strategist.SessionKey()}, strategist); err != nil {
		t.Fatalf("register: %v", err)
	}

	o := newOrchestrator(t, reg, nil)
	run, err := o.Execute(context.Background(), topicRequest("space"), "space")
	if !errors.Is(err, ErrStageUnresolvable) {
		t.Fatalf("expected ErrStageUnresolvable, got %v", err)
	}
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("run status = %s, want FAILED", run.Status)
	}
	if strategist.opens != 0 {
		t.Error("no stage may start when the plan is unresolvable")
	}
}

func TestExecuteImageStageUsesRequestAspectRatio(t *testing.T) {
	reg := adapter.NewRegistry()
	all := newFakeAdapter("omni")
	registerForAll(t, reg, all, "youtube")

	o := newOrchestrator(t, reg, nil)
	req := topicRequest("space")
	req.Params = map[string]any{"aspect_ratio": "1:1"}

	if _, err := o.Execute(context.Background(), req, req.Topic); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if all.imageRatio != "1:1" {
		t.Fatalf("image stage got ratio %q, want client param 1:1", all.imageRatio)
	}

	// Без клиентского параметра действует дефолт оркестратора.
	if _, err := o.Execute(context.Background(), topicRequest("space"), "space"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if all.imageRatio != defaultAspectRatio {
		t.Fatalf("image stage got ratio %q, want default %q", all.imageRatio, defaultAspectRatio)
	}
}

func TestExecuteRejectsInvalidRequest(t *testing.T) {
	reg := adapter.NewRegistry()
	registerForAll(t, reg, newFakeAdapter("omni"), "youtube")

	o := newOrchestrator(t, reg, nil)
	req := &domain.ContentRequest{ID: uuid.New(), Topic: "a", SourceURL: "https://b"}
	_, err := o.Execute(context.Background(), req, "a")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestExecuteAdapterOpenFailureFailsStage(t *testing.T) {
	reg := adapter.NewRegistry()
	all := newFakeAdapter("omni")
	all.openErr = adapter.AuthRequired("omni", "open", errors.New("login expired"))
	registerForAll(t, reg, all, "youtube")

	o := newOrchestrator(t, reg, nil)
	run, err := o.Execute(context.Background(), topicRequest("space"), "space")
	if !errors.Is(err, adapter.ErrAuthRequired) {
		t.Fatalf("expected AuthRequired, got %v", err)
	}
	if run.FailedStage != domain.CapabilityStrategy {
		t.Fatalf("failed stage = %s, want strategy", run.FailedStage)
	}
}
