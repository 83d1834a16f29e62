// Package metrics accumulates cross-session counters from engine output.
//
// The Aggregator subscribes to the event bus and maintains running totals
// (sessions started/ended, adaptations, breakthroughs), a one-minute
// adaptation rate, and moving averages of per-session adaptation rate and
// effectiveness. No session-specific detail is aggregated beyond counts;
// external observers poll a read-only snapshot.
package metrics

import (
	"sync"
	"time"

	"github.com/attunelabs/attune/internal/event"
	"github.com/attunelabs/attune/internal/session"
)

// rateWindow is the sliding window used for the adaptations-per-minute rate.
const rateWindow = time.Minute

// emaWeight is the weight of the previous value in moving averages,
// matching the engine's performance-metric continuity rule.
const emaWeight = 0.9

// Snapshot is the read-only view exposed to external observers.
type Snapshot struct {
	// ActiveSessions is the number of sessions currently active.
	ActiveSessions int64

	// TotalSessions is the number of sessions ever started.
	TotalSessions int64

	// TotalAdaptations is the number of adaptation records emitted.
	TotalAdaptations int64

	// BreakthroughEvents is the number of breakthroughs detected.
	BreakthroughEvents int64

	// AdaptationsPerMinute is the count of adaptations in the last minute.
	AdaptationsPerMinute int64

	// AvgAdaptationRate is a moving average of per-session adaptation rate
	// (adaptations per minute of session lifetime), updated as sessions end.
	AvgAdaptationRate float64

	// AvgEffectiveness is a moving average of the effectiveness estimates
	// reported by periodic optimization reviews.
	AvgEffectiveness float64
}

// Aggregator accumulates engine counters. It is safe for concurrent use;
// many session workers publish into it simultaneously.
type Aggregator struct {
	mu     sync.Mutex
	bus    *event.Bus
	subIDs []string
	now    func() time.Time

	started       int64
	ended         int64
	adaptations   int64
	breakthroughs int64

	// recent holds timestamps of adaptations inside the rate window.
	recent []time.Time

	avgRate          float64
	rateSamples      int64
	avgEffectiveness float64
	effSamples       int64
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator. Call Start to attach it to a bus.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start subscribes to engine events on the bus. Call Stop to detach.
func (a *Aggregator) Start(bus *event.Bus) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bus = bus
	a.subIDs = []string{
		bus.Subscribe("session.started", a.handleSessionStarted),
		bus.Subscribe("session.ended", a.handleSessionEnded),
		bus.Subscribe("adaptation.emitted", a.handleAdaptation),
		bus.Subscribe("breakthrough.detected", a.handleBreakthrough),
	}
}

// Stop unsubscribes from the bus. Safe to call if Start was never called.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range a.subIDs {
		a.bus.Unsubscribe(id)
	}
	a.subIDs = nil
}

// Snapshot returns the current counter values.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pruneLocked(a.now())

	return Snapshot{
		ActiveSessions:       a.started - a.ended,
		TotalSessions:        a.started,
		TotalAdaptations:     a.adaptations,
		BreakthroughEvents:   a.breakthroughs,
		AdaptationsPerMinute: int64(len(a.recent)),
		AvgAdaptationRate:    a.avgRate,
		AvgEffectiveness:     a.avgEffectiveness,
	}
}

func (a *Aggregator) handleSessionStarted(e event.Event) {
	if _, ok := e.(event.SessionStartedEvent); !ok {
		return
	}

	a.mu.Lock()
	a.started++
	a.mu.Unlock()
}

func (a *Aggregator) handleSessionEnded(e event.Event) {
	ended, ok := e.(event.SessionEndedEvent)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.ended++

	// Fold this session's adaptation rate into the moving average. The
	// first sample seeds the average directly.
	if ended.Duration > 0 {
		rate := float64(ended.Adaptations) / ended.Duration.Minutes()
		if a.rateSamples == 0 {
			a.avgRate = rate
		} else {
			a.avgRate = emaWeight*a.avgRate + (1-emaWeight)*rate
		}
		a.rateSamples++
	}
}

func (a *Aggregator) handleAdaptation(e event.Event) {
	emitted, ok := e.(event.AdaptationEmittedEvent)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.adaptations++

	now := a.now()
	a.recent = append(a.recent, now)
	a.pruneLocked(now)

	if emitted.Kind == string(session.KindOptimization) {
		if a.effSamples == 0 {
			a.avgEffectiveness = emitted.Effectiveness
		} else {
			a.avgEffectiveness = emaWeight*a.avgEffectiveness + (1-emaWeight)*emitted.Effectiveness
		}
		a.effSamples++
	}
}

func (a *Aggregator) handleBreakthrough(e event.Event) {
	if _, ok := e.(event.BreakthroughDetectedEvent); !ok {
		return
	}

	a.mu.Lock()
	a.breakthroughs++
	a.mu.Unlock()
}

// pruneLocked drops adaptation timestamps older than the rate window.
// The caller must hold the mutex.
func (a *Aggregator) pruneLocked(now time.Time) {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(a.recent) && a.recent[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		a.recent = append(a.recent[:0], a.recent[i:]...)
	}
}
