// Package session defines the session record owned by the store and the
// adaptation history appended to it by the engine.
package session

import (
	"time"

	"github.com/attunelabs/attune/internal/classify"
)

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusActive means the session accepts signal updates and ticks.
	StatusActive Status = "active"

	// StatusEnded is terminal; no further mutation is permitted.
	StatusEnded Status = "ended"
)

// AdaptationKind distinguishes why an adaptation record was appended.
type AdaptationKind string

const (
	// KindModeChange records an operating-mode transition.
	KindModeChange AdaptationKind = "mode_change"

	// KindCognitiveChange records a cognitive-load state transition.
	KindCognitiveChange AdaptationKind = "cognitive_change"

	// KindOptimization records a parameter nudge from a periodic review.
	KindOptimization AdaptationKind = "optimization"

	// KindBreakthrough records a rate-limited breakthrough moment.
	KindBreakthrough AdaptationKind = "breakthrough"
)

// TrajectorySample is one engagement measurement on a session's timeline.
type TrajectorySample struct {
	At    time.Time `json:"at"`
	Level float64   `json:"level"`
}

// Adaptation is an immutable record of one parameter change applied to a
// session. Only the Effectiveness score may be back-filled after creation,
// and only by the session's own serialized handler.
type Adaptation struct {
	ID            string             `json:"id"`
	SessionID     string             `json:"session_id"`
	Kind          AdaptationKind     `json:"kind"`
	TriggerLevel  float64            `json:"trigger_level"`
	Parameters    map[string]float64 `json:"parameters,omitempty"`
	Action        string             `json:"action,omitempty"`
	Effectiveness float64            `json:"effectiveness"`
	At            time.Time          `json:"at"`
}

// Session is the live record for one active learning session. It is owned
// by the Store and mutated only by the engine's per-session worker, which
// guarantees single-writer access. Mode and State are derived from the
// signal, never set directly by callers.
type Session struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	LessonID string `json:"lesson_id"`

	Status Status                 `json:"status"`
	Level  float64                `json:"level"`
	Mode   classify.OperatingMode `json:"mode"`
	State  classify.LoadState     `json:"state"`

	// Trajectory is append-only and strictly timestamp-ordered.
	Trajectory []TrajectorySample `json:"trajectory"`

	// History is append-only and strictly timestamp-ordered. Only
	// effectiveness back-fill may touch an existing entry.
	History []Adaptation `json:"history"`

	// Performance holds named metrics updated by exponential moving average.
	Performance map[string]float64 `json:"performance"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
}

// LastSampleAt returns the timestamp of the most recent trajectory sample,
// or the zero time for an empty trajectory.
func (s *Session) LastSampleAt() time.Time {
	if len(s.Trajectory) == 0 {
		return time.Time{}
	}
	return s.Trajectory[len(s.Trajectory)-1].At
}

// Clone returns a deep copy. Snapshots handed to callers outside the
// per-session worker must never alias the live record.
func (s *Session) Clone() *Session {
	out := *s

	out.Trajectory = make([]TrajectorySample, len(s.Trajectory))
	copy(out.Trajectory, s.Trajectory)

	out.History = make([]Adaptation, len(s.History))
	for i, a := range s.History {
		out.History[i] = a
		if a.Parameters != nil {
			params := make(map[string]float64, len(a.Parameters))
			for k, v := range a.Parameters {
				params[k] = v
			}
			out.History[i].Parameters = params
		}
	}

	out.Performance = make(map[string]float64, len(s.Performance))
	for k, v := range s.Performance {
		out.Performance[k] = v
	}

	return &out
}
