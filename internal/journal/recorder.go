package journal

import (
	"github.com/attunelabs/attune/internal/event"
	"github.com/attunelabs/attune/internal/logging"
)

// Recorder subscribes to the event bus and appends a journal entry for each
// engine output event. Write failures are logged and never block delivery
// to other subscribers.
type Recorder struct {
	store  *Store
	bus    *event.Bus
	log    *logging.Logger
	subIDs []string
}

// NewRecorder creates a Recorder writing through the given store.
func NewRecorder(store *Store, log *logging.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log.WithComponent("journal"),
	}
}

// Start subscribes to engine output events on the bus. Call Stop to detach.
func (r *Recorder) Start(bus *event.Bus) {
	r.bus = bus
	r.subIDs = []string{
		bus.Subscribe("session.started", r.record),
		bus.Subscribe("session.ended", r.record),
		bus.Subscribe("session.mode_changed", r.record),
		bus.Subscribe("session.state_changed", r.record),
		bus.Subscribe("adaptation.emitted", r.record),
		bus.Subscribe("breakthrough.detected", r.record),
	}
}

// Stop unsubscribes from the bus. Safe to call if Start was never called.
func (r *Recorder) Stop() {
	for _, id := range r.subIDs {
		r.bus.Unsubscribe(id)
	}
	r.subIDs = nil
}

func (r *Recorder) record(e event.Event) {
	entry, ok := translate(e)
	if !ok {
		return
	}
	if err := r.store.Append(entry); err != nil {
		r.log.Warn("journal append failed",
			"session_id", entry.SessionID,
			"type", entry.Type,
			"error", err)
	}
}

// translate maps a bus event onto a journal entry. Unknown event types are
// skipped.
func translate(e event.Event) (Entry, bool) {
	switch evt := e.(type) {
	case event.SessionStartedEvent:
		return Entry{
			SessionID: evt.SessionID,
			Type:      EntrySessionStarted,
			At:        evt.Timestamp(),
			Fields: map[string]any{
				"user_id":   evt.UserID,
				"lesson_id": evt.LessonID,
			},
		}, true

	case event.SessionEndedEvent:
		return Entry{
			SessionID: evt.SessionID,
			Type:      EntrySessionEnded,
			At:        evt.Timestamp(),
			Fields: map[string]any{
				"reason":      string(evt.Reason),
				"adaptations": evt.Adaptations,
				"duration_ms": evt.Duration.Milliseconds(),
			},
		}, true

	case event.ModeChangedEvent:
		return Entry{
			SessionID: evt.SessionID,
			Type:      EntryModeChanged,
			At:        evt.Timestamp(),
			Fields: map[string]any{
				"previous": string(evt.Previous),
				"current":  string(evt.Current),
				"level":    evt.Level,
			},
		}, true

	case event.CognitiveStateChangedEvent:
		return Entry{
			SessionID: evt.SessionID,
			Type:      EntryStateChanged,
			At:        evt.Timestamp(),
			Fields: map[string]any{
				"previous":   string(evt.Previous),
				"current":    string(evt.Current),
				"load_score": evt.LoadScore,
			},
		}, true

	case event.AdaptationEmittedEvent:
		fields := map[string]any{
			"adaptation_id": evt.AdaptationID,
			"kind":          evt.Kind,
			"trigger_level": evt.TriggerLevel,
		}
		if evt.Action != "" {
			fields["action"] = evt.Action
		}
		if evt.Parameters != nil {
			fields["parameters"] = evt.Parameters
		}
		return Entry{
			SessionID: evt.SessionID,
			Type:      EntryAdaptation,
			At:        evt.Timestamp(),
			Fields:    fields,
		}, true

	case event.BreakthroughDetectedEvent:
		return Entry{
			SessionID: evt.SessionID,
			Type:      EntryBreakthrough,
			At:        evt.Timestamp(),
			Fields: map[string]any{
				"trigger_level": evt.TriggerLevel,
			},
		}, true
	}

	return Entry{}, false
}
