package event

import (
	"time"

	"github.com/attunelabs/attune/internal/classify"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "session.started", "signal.updated")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Inbound Signal Events
// -----------------------------------------------------------------------------

// SignalUpdateEvent carries one engagement measurement from the upstream
// instrumentation feed. The engine is the only intended consumer.
type SignalUpdateEvent struct {
	baseEvent
	SessionID  string             // Session the measurement belongs to
	Level      float64            // Raw signal level, clamped by the engine
	Activities map[string]float64 // Activity breakdown (executive/memory/sensory)
	SampledAt  time.Time          // When the measurement was taken upstream
}

// NewSignalUpdateEvent creates a SignalUpdateEvent.
func NewSignalUpdateEvent(sessionID string, level float64, activities map[string]float64, sampledAt time.Time) SignalUpdateEvent {
	return SignalUpdateEvent{
		baseEvent:  newBaseEvent("signal.updated"),
		SessionID:  sessionID,
		Level:      level,
		Activities: activities,
		SampledAt:  sampledAt,
	}
}

// -----------------------------------------------------------------------------
// Session Lifecycle Events
// -----------------------------------------------------------------------------

// SessionStartedEvent is emitted when a session enters the active state.
type SessionStartedEvent struct {
	baseEvent
	SessionID string // Unique identifier for the session
	UserID    string // Learner the session belongs to
	LessonID  string // Lesson being worked through
}

// NewSessionStartedEvent creates a SessionStartedEvent.
func NewSessionStartedEvent(sessionID, userID, lessonID string) SessionStartedEvent {
	return SessionStartedEvent{
		baseEvent: newBaseEvent("session.started"),
		SessionID: sessionID,
		UserID:    userID,
		LessonID:  lessonID,
	}
}

// EndReason explains why a session ended.
type EndReason string

const (
	// EndRequested means a caller invoked End explicitly.
	EndRequested EndReason = "requested"

	// EndIdleTimeout means the session saw no signal for too long.
	EndIdleTimeout EndReason = "idle_timeout"

	// EndShutdown means the engine itself was shut down.
	EndShutdown EndReason = "shutdown"
)

// SessionEndedEvent is emitted when a session reaches its terminal state.
type SessionEndedEvent struct {
	baseEvent
	SessionID   string        // Session that ended
	Reason      EndReason     // Why it ended
	Adaptations int           // Total adaptation records appended over its lifetime
	Duration    time.Duration // Wall-clock session length
}

// NewSessionEndedEvent creates a SessionEndedEvent.
func NewSessionEndedEvent(sessionID string, reason EndReason, adaptations int, duration time.Duration) SessionEndedEvent {
	return SessionEndedEvent{
		baseEvent:   newBaseEvent("session.ended"),
		SessionID:   sessionID,
		Reason:      reason,
		Adaptations: adaptations,
		Duration:    duration,
	}
}

// -----------------------------------------------------------------------------
// Classification Events
// -----------------------------------------------------------------------------

// ModeChangedEvent is emitted when a session's operating mode transitions.
type ModeChangedEvent struct {
	baseEvent
	SessionID string                 // Session whose mode changed
	Previous  classify.OperatingMode // Mode before the transition
	Current   classify.OperatingMode // Mode after the transition
	Level     float64                // Signal level that triggered the transition
}

// NewModeChangedEvent creates a ModeChangedEvent.
func NewModeChangedEvent(sessionID string, previous, current classify.OperatingMode, level float64) ModeChangedEvent {
	return ModeChangedEvent{
		baseEvent: newBaseEvent("session.mode_changed"),
		SessionID: sessionID,
		Previous:  previous,
		Current:   current,
		Level:     level,
	}
}

// CognitiveStateChangedEvent is emitted when a session's cognitive-load
// state transitions.
type CognitiveStateChangedEvent struct {
	baseEvent
	SessionID string             // Session whose state changed
	Previous  classify.LoadState // State before the transition
	Current   classify.LoadState // State after the transition
	LoadScore float64            // Weighted load score that triggered the transition
}

// NewCognitiveStateChangedEvent creates a CognitiveStateChangedEvent.
func NewCognitiveStateChangedEvent(sessionID string, previous, current classify.LoadState, loadScore float64) CognitiveStateChangedEvent {
	return CognitiveStateChangedEvent{
		baseEvent: newBaseEvent("session.state_changed"),
		SessionID: sessionID,
		Previous:  previous,
		Current:   current,
		LoadScore: loadScore,
	}
}

// -----------------------------------------------------------------------------
// Adaptation Events
// -----------------------------------------------------------------------------

// AdaptationEmittedEvent is emitted whenever the engine appends an
// adaptation record to a session. The content-generation service consumes
// the parameter set; analytics consume the rest.
type AdaptationEmittedEvent struct {
	baseEvent
	AdaptationID  string             // Unique identifier of the adaptation record
	SessionID     string             // Session the adaptation applies to
	Kind          string             // mode_change, cognitive_change, optimization, breakthrough
	Parameters    map[string]float64 // Parameter set applied
	Action        string             // Cognitive action, empty for mode changes
	TriggerLevel  float64            // Signal level at the moment of adaptation
	Effectiveness float64            // Current effectiveness estimate, set for optimization kind
}

// NewAdaptationEmittedEvent creates an AdaptationEmittedEvent.
func NewAdaptationEmittedEvent(adaptationID, sessionID, kind string, parameters map[string]float64, action string, triggerLevel, effectiveness float64) AdaptationEmittedEvent {
	return AdaptationEmittedEvent{
		baseEvent:     newBaseEvent("adaptation.emitted"),
		AdaptationID:  adaptationID,
		SessionID:     sessionID,
		Kind:          kind,
		Parameters:    parameters,
		Action:        action,
		TriggerLevel:  triggerLevel,
		Effectiveness: effectiveness,
	}
}

// BreakthroughDetectedEvent is emitted when the breakthrough detector fires
// for a session. At most one is emitted per session per cool-down window.
type BreakthroughDetectedEvent struct {
	baseEvent
	SessionID    string  // Session that hit the breakthrough
	TriggerLevel float64 // Signal level that fired the detection
}

// NewBreakthroughDetectedEvent creates a BreakthroughDetectedEvent.
func NewBreakthroughDetectedEvent(sessionID string, triggerLevel float64) BreakthroughDetectedEvent {
	return BreakthroughDetectedEvent{
		baseEvent:    newBaseEvent("breakthrough.detected"),
		SessionID:    sessionID,
		TriggerLevel: triggerLevel,
	}
}
