package producer

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Interface compliance (compile-time assertion)
var _ Producer = (*MockProducer)(nil)

func drain(t *testing.T, unitCh <-chan Unit, errCh <-chan error) ([]Unit, error) {
	t.Helper()
	var units []Unit
	var err error
	for unitCh != nil || errCh != nil {
		select {
		case u, ok := <-unitCh:
			if !ok {
				unitCh = nil
				continue
			}
			units = append(units, u)
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			err = e
		case <-time.After(5 * time.Second):
			t.Fatal("timed out draining producer")
		}
	}
	return units, err
}

func TestMockProducer_ReplaysScriptPerRune(t *testing.T) {
	m := NewMockProducer()
	m.AddScript("greet", []Unit{
		{Kind: UnitBlockBegin, BlockType: "paragraph"},
		{Kind: UnitContentFragment, Text: "Hi"},
		{Kind: UnitBlockComplete},
	})

	unitCh, errCh := m.Produce(context.Background(), Request{Prompt: "greet"})
	units, err := drain(t, unitCh, errCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "Hi" splits into two single-rune fragments.
	want := []UnitKind{UnitBlockBegin, UnitContentFragment, UnitContentFragment, UnitBlockComplete}
	if len(units) != len(want) {
		t.Fatalf("expected %d units, got %d: %v", len(want), len(units), kinds(units))
	}
	if units[1].Text != "H" || units[2].Text != "i" {
		t.Errorf("expected per-rune split, got %q %q", units[1].Text, units[2].Text)
	}
}

func TestMockProducer_UnscriptedPromptFallsBack(t *testing.T) {
	m := NewMockProducer()
	unitCh, errCh := m.Produce(context.Background(), Request{Prompt: "anything"})
	units, err := drain(t, unitCh, errCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units[0].Kind != UnitBlockBegin || units[0].BlockType != "paragraph" {
		t.Fatalf("expected fallback paragraph, got %+v", units[0])
	}
	if units[len(units)-1].Kind != UnitBlockComplete {
		t.Error("fallback should close its block")
	}
}

func TestMockProducer_DeliversConfiguredError(t *testing.T) {
	m := NewMockProducer()
	m.AddScript("boom", []Unit{{Kind: UnitBlockBegin, BlockType: "paragraph"}})
	m.Err = errors.New("provider unavailable")

	unitCh, errCh := m.Produce(context.Background(), Request{Prompt: "boom"})
	_, err := drain(t, unitCh, errCh)
	if err == nil || err.Error() != "provider unavailable" {
		t.Fatalf("expected configured error, got %v", err)
	}
}

func TestMockProducer_StopsOnContextCancel(t *testing.T) {
	m := NewMockProducer()
	m.AddScript("slow", []Unit{
		{Kind: UnitBlockBegin, BlockType: "paragraph"},
		{Kind: UnitContentFragment, Text: "never fully delivered"},
		{Kind: UnitBlockComplete},
	})
	m.UnitDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	unitCh, errCh := m.Produce(ctx, Request{Prompt: "slow"})
	cancel()

	units, err := drain(t, unitCh, errCh)
	if err != nil {
		t.Fatalf("cancellation should close channels, not error: %v", err)
	}
	if len(units) >= 3 {
		t.Errorf("expected a truncated stream, got %d units", len(units))
	}
}
