package providers

import (
	"context"
	"testing"

	"github.com/shaiso/Fabrika/internal/browser"
	"github.com/shaiso/Fabrika/internal/domain"
)

type stubStrategyFlow struct{}

func (stubStrategyFlow) GenerateStrategy(_ context.Context, _ *browser.Session, _ string) (*domain.Strategy, error) {
	return &domain.Strategy{Title: "stub"}, nil
}

func TestBuildRegistryWiresCatalogEntries(t *testing.T) {
	entries := []Entry{
		{
			Descriptor: domain.AdapterDescriptor{
				ID:         "stub_strategist",
				Capability: domain.CapabilityStrategy,
				SessionKey: "stub",
			},
			Flow: stubStrategyFlow{},
		},
	}

	reg, err := BuildRegistry(entries, nil, nil)
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}

	descs := reg.Candidates(domain.CapabilityStrategy)
	if len(descs) != 1 || descs[0].ID != "stub_strategist" {
		t.Fatalf("descriptors = %+v", descs)
	}
	if !descs[0].IsDefault {
		t.Error("first registered adapter should be the default")
	}
}

func TestBuildRegistryRejectsFlowMismatch(t *testing.T) {
	entries := []Entry{
		{
			Descriptor: domain.AdapterDescriptor{
				ID:         "bad",
				Capability: domain.CapabilityScript,
			},
			Flow: stubStrategyFlow{}, // не ScriptFlow
		},
	}

	if _, err := BuildRegistry(entries, nil, nil); err == nil {
		t.Fatal("expected flow mismatch error")
	}
}
