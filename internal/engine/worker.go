package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/attunelabs/attune/internal/classify"
	"github.com/attunelabs/attune/internal/errors"
	"github.com/attunelabs/attune/internal/event"
	"github.com/attunelabs/attune/internal/logging"
	"github.com/attunelabs/attune/internal/session"
)

// Performance metric names maintained on the session record.
const (
	perfEngagement    = "engagement"
	perfEffectiveness = "effectiveness"
)

// perfWeight is the weight of the previous value when folding a new sample
// into a performance metric.
const perfWeight = 0.9

// worker is the single goroutine allowed to mutate one session record. It
// consumes the mailbox, runs the periodic review tick, and performs the
// final end-of-session mutation before exiting.
type worker struct {
	engine *Engine
	sess   *session.Session
	log    *logging.Logger

	mailbox  chan event.SignalUpdateEvent
	snapCh   chan chan *session.Session
	endCh    chan event.EndReason
	done     chan struct{}
	endOnce  sync.Once
	subID    string
	lastSeen atomic.Int64 // unix nanos of the most recent accepted sample

	// mutating counts goroutines inside the mutation section. The worker
	// is the only writer, so the count must never exceed one; violations
	// records any breach for the race probe.
	mutating   atomic.Int32
	violations atomic.Int64

	// review failure tracking for backoff.
	failures int
}

func newWorker(e *Engine, sess *session.Session) *worker {
	w := &worker{
		engine:  e,
		sess:    sess,
		log:     e.log.WithSession(sess.ID),
		mailbox: make(chan event.SignalUpdateEvent, e.mailboxSize),
		snapCh:  make(chan chan *session.Session),
		endCh:   make(chan event.EndReason, 1),
		done:    make(chan struct{}),
	}
	w.lastSeen.Store(sess.StartedAt.UnixNano())
	return w
}

// start subscribes the worker to inbound signal updates and launches its
// loop.
func (w *worker) start() {
	w.subID = w.engine.bus.Subscribe("signal.updated", func(e event.Event) {
		sig, ok := e.(event.SignalUpdateEvent)
		if !ok || sig.SessionID != w.sess.ID {
			return
		}
		if !classify.Valid(sig.Level) {
			w.log.Warn("dropping non-numeric signal from bus", "raw", sig.Level)
			return
		}
		w.enqueue(sig)
	})

	go w.loop()
}

// enqueue delivers a signal to the mailbox without blocking. A full mailbox
// means the session is falling behind; the newest sample is dropped rather
// than stalling the publisher.
func (w *worker) enqueue(sig event.SignalUpdateEvent) {
	select {
	case w.mailbox <- sig:
	case <-w.done:
	default:
		w.log.Warn("mailbox full, dropping signal", "level", sig.Level)
	}
}

// end requests termination and blocks until the worker has finished its
// final mutation. Safe to call from any goroutine, any number of times.
func (w *worker) end(reason event.EndReason) {
	w.endOnce.Do(func() {
		w.endCh <- reason
	})
	<-w.done
}

// lastActivity reports when the session last accepted a sample. Used by the
// idle sweeper, which runs outside the worker goroutine.
func (w *worker) lastActivity() time.Time {
	return time.Unix(0, w.lastSeen.Load())
}

// snapshot asks the worker goroutine for a deep copy of the session record,
// keeping reads serialized with mutation. If the worker has already exited,
// the record is terminal and the store copy is safe to read directly.
func (w *worker) snapshot() (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	select {
	case w.snapCh <- reply:
		return <-reply, nil
	case <-w.done:
		return w.engine.store.Snapshot(w.sess.ID)
	}
}

func (w *worker) loop() {
	ticker := time.NewTicker(w.engine.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-w.mailbox:
			w.mutate(func() { w.handleSignal(sig) })
		case reply := <-w.snapCh:
			w.mutate(func() { reply <- w.sess.Clone() })
		case <-ticker.C:
			w.mutate(func() { w.handleTick(ticker) })
		case reason := <-w.endCh:
			w.mutate(func() { w.finalize(reason) })
			return
		}
	}
}

// mutate runs fn inside the mutation section, recording any concurrent
// entry. Only the worker goroutine calls it; a nonzero violation count
// means the single-writer guarantee was broken.
func (w *worker) mutate(fn func()) {
	if w.mutating.Add(1) != 1 {
		w.violations.Add(1)
	}
	defer w.mutating.Add(-1)
	fn()
}

// handleSignal applies one engagement measurement: staleness check, clamp,
// trajectory append, reclassification, and breakthrough detection.
func (w *worker) handleSignal(sig event.SignalUpdateEvent) {
	sampledAt := sig.SampledAt
	if sampledAt.IsZero() {
		sampledAt = w.engine.now()
	}

	if sampledAt.Before(w.sess.LastSampleAt()) {
		w.log.Debug("dropping stale signal",
			"sampled_at", sampledAt,
			"last_sample_at", w.sess.LastSampleAt(),
			"err", errors.ErrStaleSignal)
		return
	}

	level, clamped := classify.Clamp(sig.Level)
	if clamped {
		w.log.Warn("signal level clamped", "raw", sig.Level, "clamped", level)
	}

	w.sess.Level = level
	w.sess.Trajectory = append(w.sess.Trajectory, session.TrajectorySample{
		At:    sampledAt,
		Level: level,
	})
	w.foldPerformance(perfEngagement, level)
	w.lastSeen.Store(sampledAt.UnixNano())

	w.reclassifyMode(level)
	w.reclassifyState(level, sig.Activities)

	if opp, fired := w.engine.detector.Observe(w.sess.ID, level); fired {
		w.appendAdaptation(session.Adaptation{
			Kind:         session.KindBreakthrough,
			TriggerLevel: opp.TriggerLevel,
			At:           opp.At,
		})
		w.log.Info("breakthrough detected", "level", opp.TriggerLevel)
		w.engine.bus.Publish(event.NewBreakthroughDetectedEvent(w.sess.ID, opp.TriggerLevel))
	}
}

// reclassifyMode transitions the operating mode when the new level crosses
// a threshold, applying the mode's parameter set.
func (w *worker) reclassifyMode(level float64) {
	mode := classify.Mode(level)
	if mode == w.sess.Mode {
		return
	}

	previous := w.sess.Mode
	w.sess.Mode = mode
	params := w.engine.table.Load().ForMode(mode)

	adaptation := w.appendAdaptation(session.Adaptation{
		Kind:         session.KindModeChange,
		TriggerLevel: level,
		Parameters:   params.Map(),
		At:           w.engine.now(),
	})

	w.log.Info("mode changed", "previous", previous, "current", mode, "level", level)
	w.engine.bus.Publish(event.NewModeChangedEvent(w.sess.ID, previous, mode, level))
	w.engine.bus.Publish(event.NewAdaptationEmittedEvent(
		adaptation.ID, w.sess.ID, string(adaptation.Kind),
		adaptation.Parameters, "", level, 0))
}

// reclassifyState transitions the cognitive-load state when the weighted
// load score crosses a boundary, applying the state's action.
func (w *worker) reclassifyState(level float64, activities map[string]float64) {
	state := classify.CognitiveState(level, activities)
	if state == w.sess.State {
		return
	}

	previous := w.sess.State
	w.sess.State = state
	action := w.engine.table.Load().ForState(state)
	score := classify.LoadScore(level, activities)

	adaptation := w.appendAdaptation(session.Adaptation{
		Kind:         session.KindCognitiveChange,
		TriggerLevel: level,
		Action:       action.String(),
		At:           w.engine.now(),
	})

	w.log.Info("cognitive state changed",
		"previous", previous, "current", state, "load_score", score)
	w.engine.bus.Publish(event.NewCognitiveStateChangedEvent(w.sess.ID, previous, state, score))
	w.engine.bus.Publish(event.NewAdaptationEmittedEvent(
		adaptation.ID, w.sess.ID, string(adaptation.Kind),
		nil, adaptation.Action, level, 0))
}

// handleTick runs one periodic effectiveness review under a bounded
// deadline. Consecutive failures double the tick interval up to the cap;
// the first success restores it.
func (w *worker) handleTick(ticker *time.Ticker) {
	ctx, cancel := context.WithTimeout(context.Background(), w.engine.tickTimeout)
	defer cancel()

	review, err := w.engine.reviewer.Review(ctx, w.sess.Clone())
	if err != nil {
		w.failures++
		interval := backoffInterval(w.engine.tickInterval, w.failures, w.engine.backoffCap)
		ticker.Reset(interval)
		w.log.Warn("effectiveness review failed",
			"error", err,
			"consecutive_failures", w.failures,
			"next_tick", interval)
		return
	}

	if w.failures > 0 {
		w.failures = 0
		ticker.Reset(w.engine.tickInterval)
	}

	w.foldPerformance(perfEffectiveness, review.Effectiveness)
	effectiveness := w.sess.Performance[perfEffectiveness]

	// Back-fill the effectiveness estimate onto adaptations appended since
	// the last review.
	for i := range w.sess.History {
		if w.sess.History[i].Effectiveness == 0 {
			w.sess.History[i].Effectiveness = effectiveness
		}
	}

	if review.Parameters == nil {
		return
	}

	adaptation := w.appendAdaptation(session.Adaptation{
		Kind:          session.KindOptimization,
		TriggerLevel:  w.sess.Level,
		Parameters:    review.Parameters,
		Action:        review.Note,
		Effectiveness: effectiveness,
		At:            w.engine.now(),
	})

	w.log.Debug("optimization emitted",
		"effectiveness", effectiveness, "note", review.Note)
	w.engine.bus.Publish(event.NewAdaptationEmittedEvent(
		adaptation.ID, w.sess.ID, string(adaptation.Kind),
		adaptation.Parameters, adaptation.Action, w.sess.Level, effectiveness))
}

// finalize performs the terminal mutation and releases all per-session
// resources. Runs exactly once, in the worker goroutine.
func (w *worker) finalize(reason event.EndReason) {
	defer close(w.done)

	w.engine.bus.Unsubscribe(w.subID)

	// The status flip goes through the store so readers holding its lock,
	// like ActiveCount, never race the worker.
	now := w.engine.now()
	w.engine.store.MarkEnded(w.sess.ID, now)

	w.engine.detector.Forget(w.sess.ID)
	w.engine.removeWorker(w.sess.ID)

	duration := now.Sub(w.sess.StartedAt)
	w.log.Info("session ended",
		"reason", reason,
		"adaptations", len(w.sess.History),
		"duration", duration)
	w.engine.bus.Publish(event.NewSessionEndedEvent(
		w.sess.ID, reason, len(w.sess.History), duration))
}

// appendAdaptation stamps an ID and session ID onto the record and appends
// it to the history.
func (w *worker) appendAdaptation(a session.Adaptation) session.Adaptation {
	a.ID = uuid.NewString()
	a.SessionID = w.sess.ID
	w.sess.History = append(w.sess.History, a)
	return a
}

// foldPerformance updates a named performance metric by exponential moving
// average. The first sample seeds the metric directly.
func (w *worker) foldPerformance(name string, value float64) {
	if w.sess.Performance == nil {
		w.sess.Performance = make(map[string]float64)
	}
	if old, ok := w.sess.Performance[name]; ok {
		w.sess.Performance[name] = perfWeight*old + (1-perfWeight)*value
	} else {
		w.sess.Performance[name] = value
	}
}

// backoffInterval doubles the base interval per consecutive failure, capped.
func backoffInterval(base time.Duration, failures int, max time.Duration) time.Duration {
	interval := base
	for i := 0; i < failures; i++ {
		interval *= 2
		if interval >= max {
			return max
		}
	}
	return interval
}
