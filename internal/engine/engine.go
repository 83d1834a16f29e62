// Package engine drives adaptive session control. It owns session
// lifecycle, routes inbound signal updates to exactly one goroutine per
// session, and emits classification, adaptation, and breakthrough events
// on the bus.
//
// Concurrency model: every session gets a dedicated worker goroutine with a
// bounded mailbox. All mutation of a session record happens inside that
// goroutine, so no per-session locking is needed. The engine itself only
// guards the worker registry.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/attunelabs/attune/internal/breakthrough"
	"github.com/attunelabs/attune/internal/classify"
	"github.com/attunelabs/attune/internal/errors"
	"github.com/attunelabs/attune/internal/event"
	"github.com/attunelabs/attune/internal/logging"
	"github.com/attunelabs/attune/internal/session"
	"github.com/attunelabs/attune/internal/strategy"
)

const (
	defaultTickInterval = 10 * time.Second
	defaultTickTimeout  = 2 * time.Second
	defaultIdleTimeout  = 10 * time.Minute
	defaultMailboxSize  = 64

	// defaultBackoffCap bounds the tick interval growth after consecutive
	// review failures.
	defaultBackoffCap = 80 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithTickInterval sets the period of the per-session review tick.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}

// WithTickTimeout bounds how long a single periodic review may run.
func WithTickTimeout(d time.Duration) Option {
	return func(e *Engine) { e.tickTimeout = d }
}

// WithIdleTimeout sets how long a session may go without a signal before
// the sweeper ends it. Zero disables idle sweeping.
func WithIdleTimeout(d time.Duration) Option {
	return func(e *Engine) { e.idleTimeout = d }
}

// WithSweepInterval sets how often the idle sweeper scans. Defaults to a
// quarter of the idle timeout.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) { e.sweepInterval = d }
}

// WithMailboxSize sets the per-session signal mailbox capacity. Signals
// arriving while the mailbox is full are dropped and logged.
func WithMailboxSize(n int) Option {
	return func(e *Engine) { e.mailboxSize = n }
}

// WithBackoffCap bounds the review backoff interval.
func WithBackoffCap(d time.Duration) Option {
	return func(e *Engine) { e.backoffCap = d }
}

// WithReviewer replaces the periodic effectiveness reviewer.
func WithReviewer(r EffectivenessReviewer) Option {
	return func(e *Engine) { e.reviewer = r }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine coordinates all active sessions. It is safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	workers map[string]*worker
	closed  bool

	store    *session.Store
	bus      *event.Bus
	table    atomic.Pointer[strategy.Table]
	detector *breakthrough.Detector
	reviewer EffectivenessReviewer
	log      *logging.Logger
	now      func() time.Time

	tickInterval  time.Duration
	tickTimeout   time.Duration
	idleTimeout   time.Duration
	sweepInterval time.Duration
	mailboxSize   int
	backoffCap    time.Duration

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New creates an Engine wired to the given collaborators. Call Close to
// shut down all sessions and background work.
func New(store *session.Store, bus *event.Bus, table *strategy.Table, detector *breakthrough.Detector, log *logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		workers:      make(map[string]*worker),
		store:        store,
		bus:          bus,
		detector:     detector,
		log:          log.WithComponent("engine"),
		now:          time.Now,
		tickInterval: defaultTickInterval,
		tickTimeout:  defaultTickTimeout,
		idleTimeout:  defaultIdleTimeout,
		mailboxSize:  defaultMailboxSize,
		backoffCap:   defaultBackoffCap,
	}
	e.table.Store(table)
	for _, opt := range opts {
		opt(e)
	}
	if e.reviewer == nil {
		e.reviewer = NewTrajectoryReviewer()
	}
	if e.sweepInterval <= 0 {
		e.sweepInterval = e.idleTimeout / 4
	}

	e.sweepStop = make(chan struct{})
	e.sweepDone = make(chan struct{})
	go e.sweepLoop()

	return e
}

// Start creates a new active session seeded with an initial signal level
// and returns its ID. The initial classification sets the baseline mode and
// state without emitting change events.
func (e *Engine) Start(userID, lessonID string, initialLevel float64) (string, error) {
	if !classify.Valid(initialLevel) {
		return "", errors.NewValidationError("initial signal level is not a usable number").
			WithField("level").
			WithValue(initialLevel).
			WithCause(errors.ErrInvalidSignal)
	}

	level, clamped := classify.Clamp(initialLevel)
	now := e.now()

	sess := &session.Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		LessonID: lessonID,
		Status:   session.StatusActive,
		Level:    level,
		Mode:     classify.Mode(level),
		State:    classify.CognitiveState(level, nil),
		Trajectory: []session.TrajectorySample{
			{At: now, Level: level},
		},
		Performance: map[string]float64{
			perfEngagement: level,
		},
		StartedAt: now,
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", errors.ErrEngineClosed
	}
	if err := e.store.Add(sess); err != nil {
		e.mu.Unlock()
		return "", err
	}
	w := newWorker(e, sess)
	e.workers[sess.ID] = w
	e.mu.Unlock()

	if clamped {
		e.log.Warn("initial signal level clamped",
			"session_id", sess.ID, "raw", initialLevel, "clamped", level)
	}

	w.start()

	e.log.Info("session started",
		"session_id", sess.ID,
		"user_id", userID,
		"lesson_id", lessonID,
		"mode", sess.Mode,
		"state", sess.State)
	e.bus.Publish(event.NewSessionStartedEvent(sess.ID, userID, lessonID))

	return sess.ID, nil
}

// UpdateSignal feeds one engagement measurement into a session. The update
// is applied asynchronously by the session's worker; validation that needs
// only the arguments happens here, staleness is checked against the session
// record inside the worker.
func (e *Engine) UpdateSignal(sessionID string, level float64, activities map[string]float64, sampledAt time.Time) error {
	if !classify.Valid(level) {
		return errors.NewValidationError("signal level is not a usable number").
			WithField("level").
			WithValue(level).
			WithCause(errors.ErrInvalidSignal)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errors.ErrEngineClosed
	}
	w, ok := e.workers[sessionID]
	e.mu.Unlock()

	if !ok {
		if _, err := e.store.Snapshot(sessionID); err == nil {
			return errors.NewSessionError("signal update rejected", errors.ErrSessionEnded).
				WithSessionID(sessionID)
		}
		return errors.Wrapf(errors.ErrSessionNotFound, "update signal %s", sessionID)
	}

	w.enqueue(event.NewSignalUpdateEvent(sessionID, level, activities, sampledAt))
	return nil
}

// End transitions a session to its terminal state. Ending is idempotent:
// ending an already-ended session is a no-op, but an ID that never existed
// returns ErrSessionNotFound.
func (e *Engine) End(sessionID string) error {
	return e.end(sessionID, event.EndRequested)
}

func (e *Engine) end(sessionID string, reason event.EndReason) error {
	e.mu.Lock()
	w, ok := e.workers[sessionID]
	e.mu.Unlock()

	if !ok {
		if _, err := e.store.Snapshot(sessionID); err == nil {
			return nil
		}
		return errors.NewSessionError("cannot end session", errors.ErrSessionNotFound).
			WithSessionID(sessionID)
	}

	w.end(reason)
	return nil
}

// GetSnapshot returns a deep copy of the session record, including ended
// sessions. For an active session the copy is taken by its worker, so the
// read is serialized with mutation and never aliases the live record.
func (e *Engine) GetSnapshot(sessionID string) (*session.Session, error) {
	e.mu.Lock()
	w, ok := e.workers[sessionID]
	e.mu.Unlock()

	if ok {
		return w.snapshot()
	}
	return e.store.Snapshot(sessionID)
}

// Close ends every active session with the shutdown reason and stops the
// idle sweeper. The engine accepts no work afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	workers := make([]*worker, 0, len(e.workers))
	for _, w := range e.workers {
		workers = append(workers, w)
	}
	e.mu.Unlock()

	close(e.sweepStop)
	<-e.sweepDone

	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error {
			w.end(event.EndShutdown)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.log.Info("engine closed", "sessions_ended", len(workers))
	return nil
}

// SwapTable replaces the strategy tables. Sessions pick up the new
// parameters on their next transition; records already appended keep the
// parameters they were created with.
func (e *Engine) SwapTable(table *strategy.Table) {
	e.table.Store(table)
	e.log.Info("strategy tables replaced")
}

// removeWorker drops a finished worker from the registry. The session
// record stays in the store so snapshots remain readable after the end.
func (e *Engine) removeWorker(sessionID string) {
	e.mu.Lock()
	delete(e.workers, sessionID)
	e.mu.Unlock()
}

// sweepLoop periodically ends sessions that have gone quiet.
func (e *Engine) sweepLoop() {
	defer close(e.sweepDone)

	// A zero or negative idle timeout disables sweeping entirely.
	if e.idleTimeout <= 0 {
		<-e.sweepStop
		return
	}

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.sweepStop:
			return
		case <-ticker.C:
			e.sweepIdle()
		}
	}
}

// sweepIdle ends every active session whose last sample is older than the
// idle timeout.
func (e *Engine) sweepIdle() {
	cutoff := e.now().Add(-e.idleTimeout)

	e.mu.Lock()
	stale := make([]*worker, 0)
	for _, w := range e.workers {
		if w.lastActivity().Before(cutoff) {
			stale = append(stale, w)
		}
	}
	e.mu.Unlock()

	for _, w := range stale {
		e.log.Info("ending idle session", "session_id", w.sess.ID)
		w.end(event.EndIdleTimeout)
	}
}
