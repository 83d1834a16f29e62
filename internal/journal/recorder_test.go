package journal

import (
	"testing"
	"time"

	"github.com/attunelabs/attune/internal/classify"
	"github.com/attunelabs/attune/internal/event"
	"github.com/attunelabs/attune/internal/logging"
)

func TestRecorderWritesEngineOutput(t *testing.T) {
	store := NewStore(t.TempDir())
	rec := NewRecorder(store, logging.NopLogger())
	bus := event.NewBus()
	rec.Start(bus)
	defer rec.Stop()

	bus.Publish(event.NewSessionStartedEvent("s1", "u1", "l1"))
	bus.Publish(event.NewModeChangedEvent("s1", classify.ModeFocused, classify.ModeIntensive, 0.7))
	bus.Publish(event.NewCognitiveStateChangedEvent("s1", classify.StateOptimal, classify.StateOverloaded, 0.85))
	bus.Publish(event.NewAdaptationEmittedEvent("a1", "s1", "mode_change",
		map[string]float64{"content_density": 0.8}, "", 0.7, 0))
	bus.Publish(event.NewBreakthroughDetectedEvent("s1", 0.92))
	bus.Publish(event.NewSessionEndedEvent("s1", event.EndRequested, 2, time.Minute))

	// Inbound signals are not part of the audit trail.
	bus.Publish(event.NewSignalUpdateEvent("s1", 0.5, nil, time.Now()))

	entries, err := store.Read("s1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	wantTypes := []EntryType{
		EntrySessionStarted,
		EntryModeChanged,
		EntryStateChanged,
		EntryAdaptation,
		EntryBreakthrough,
		EntrySessionEnded,
	}
	if len(entries) != len(wantTypes) {
		t.Fatalf("journal has %d entries, want %d: %+v", len(entries), len(wantTypes), entries)
	}
	for i, want := range wantTypes {
		if entries[i].Type != want {
			t.Errorf("entry %d type = %q, want %q", i, entries[i].Type, want)
		}
	}

	if got := entries[1].Fields["current"]; got != "intensive" {
		t.Errorf("mode change current = %v, want intensive", got)
	}
	if got := entries[5].Fields["reason"]; got != "requested" {
		t.Errorf("end reason = %v, want requested", got)
	}
}

func TestRecorderStopDetaches(t *testing.T) {
	store := NewStore(t.TempDir())
	rec := NewRecorder(store, logging.NopLogger())
	bus := event.NewBus()
	rec.Start(bus)
	rec.Stop()

	bus.Publish(event.NewSessionStartedEvent("s1", "u1", "l1"))

	entries, err := store.Read("s1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if entries != nil {
		t.Errorf("entries after Stop = %+v, want none", entries)
	}
}
