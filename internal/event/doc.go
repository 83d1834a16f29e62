// Package event provides a pub-sub event bus for decoupled communication
// between the session engine and its collaborators.
//
// The engine publishes its output (adaptations, breakthroughs, lifecycle
// transitions) without knowing who consumes it, and receives inbound signal
// updates without knowing who produces them. The content-generation service,
// analytics, and the metrics aggregator all attach as subscribers.
//
// # Main Types
//
//   - [Event]: Interface all events implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub dispatcher, safe for concurrent use
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Inbound:
//   - [SignalUpdateEvent]: One engagement measurement from the upstream feed
//
// Session lifecycle:
//   - [SessionStartedEvent]: A session entered the active state
//   - [SessionEndedEvent]: A session reached its terminal state
//
// Classification:
//   - [ModeChangedEvent]: A session's operating mode transitioned
//   - [CognitiveStateChangedEvent]: A session's cognitive-load state transitioned
//
// Adaptation:
//   - [AdaptationEmittedEvent]: An adaptation record was appended to a session
//   - [BreakthroughDetectedEvent]: The breakthrough detector fired
//
// # Thread Safety
//
// The [Bus] is safe for concurrent use. Handlers are called synchronously and
// protected against panics - a panicking handler will not prevent other
// handlers from being called.
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - signal.updated
//   - session.started, session.ended, session.mode_changed, session.state_changed
//   - adaptation.emitted
//   - breakthrough.detected
package event
