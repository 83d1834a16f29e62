// Package breakthrough provides rate-limited detection of rare high-signal
// moments in a session.
//
// A breakthrough is eligible to fire when the signal level crosses the
// trigger threshold and the session has not fired within the cool-down
// window. The one-firing-per-window rule is a hard invariant: no matter how
// many qualifying signals arrive inside the window, at most one opportunity
// is returned.
package breakthrough

import (
	"sync"
	"time"
)

// Default detector values.
const (
	defaultTriggerLevel = 0.85
	defaultCooldown     = 60 * time.Second
)

// Option configures a Detector.
type Option func(*Detector)

// WithTriggerLevel sets the signal level above which a breakthrough may fire.
// The rule is strict: the level must exceed the threshold, not merely meet it.
func WithTriggerLevel(level float64) Option {
	return func(d *Detector) { d.triggerLevel = level }
}

// WithCooldown sets the minimum wall-clock time between breakthroughs for a
// single session.
func WithCooldown(window time.Duration) Option {
	return func(d *Detector) { d.cooldown = window }
}

// WithClock replaces the time source. Tests use this to step through the
// cool-down window without sleeping.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// Opportunity describes a breakthrough moment the engine should act on.
type Opportunity struct {
	// SessionID is the session the opportunity belongs to.
	SessionID string

	// TriggerLevel is the signal level that fired the detection.
	TriggerLevel float64

	// At is when the detection fired.
	At time.Time
}

// Detector applies the breakthrough rule across sessions. State is tracked
// per session so one session's firing never suppresses another's. It is safe
// for concurrent use.
type Detector struct {
	mu           sync.Mutex
	triggerLevel float64
	cooldown     time.Duration
	lastFired    map[string]time.Time
	now          func() time.Time
}

// New creates a Detector with the given options. Unset options use defaults.
func New(opts ...Option) *Detector {
	d := &Detector{
		triggerLevel: defaultTriggerLevel,
		cooldown:     defaultCooldown,
		lastFired:    make(map[string]time.Time),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TriggerLevel returns the configured trigger threshold.
func (d *Detector) TriggerLevel() float64 {
	return d.triggerLevel
}

// Observe feeds one signal level for a session and reports whether a
// breakthrough fired. When it fires, the cool-down window for that session
// restarts immediately, so a second qualifying signal inside the window
// returns false.
func (d *Detector) Observe(sessionID string, level float64) (Opportunity, bool) {
	if level <= d.triggerLevel {
		return Opportunity{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastFired[sessionID]; ok && now.Sub(last) < d.cooldown {
		return Opportunity{}, false
	}

	d.lastFired[sessionID] = now
	return Opportunity{
		SessionID:    sessionID,
		TriggerLevel: level,
		At:           now,
	}, true
}

// Forget discards the per-session state. Called when a session ends so the
// map does not grow without bound.
func (d *Detector) Forget(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.lastFired, sessionID)
}
