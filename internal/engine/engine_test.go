package engine

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/attunelabs/attune/internal/breakthrough"
	"github.com/attunelabs/attune/internal/classify"
	"github.com/attunelabs/attune/internal/errors"
	"github.com/attunelabs/attune/internal/event"
	"github.com/attunelabs/attune/internal/logging"
	"github.com/attunelabs/attune/internal/session"
	"github.com/attunelabs/attune/internal/strategy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder captures published events for assertion. Bus handlers run on
// worker goroutines, so access is locked.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) attach(bus *event.Bus) {
	bus.SubscribeAll(func(e event.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
}

func (r *recorder) ofType(eventType string) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []event.Event
	for _, e := range r.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	engine *Engine
	bus    *event.Bus
	store  *session.Store
	rec    *recorder
}

func newTestEnv(t *testing.T, detector *breakthrough.Detector, opts ...Option) *testEnv {
	t.Helper()

	bus := event.NewBus()
	store := session.NewStore()
	if detector == nil {
		detector = breakthrough.New()
	}

	// Ticks and idle sweeping are disabled by default so tests only see
	// the behavior they drive explicitly.
	base := []Option{
		WithTickInterval(time.Hour),
		WithIdleTimeout(0),
	}
	e := New(store, bus, strategy.NewTable(), detector, logging.NopLogger(),
		append(base, opts...)...)
	t.Cleanup(func() { e.Close() })

	rec := &recorder{}
	rec.attach(bus)

	return &testEnv{engine: e, bus: bus, store: store, rec: rec}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// trajectoryLen polls the snapshot for the number of accepted samples.
func (env *testEnv) waitTrajectory(t *testing.T, id string, n int) *session.Session {
	t.Helper()

	var snap *session.Session
	waitFor(t, 2*time.Second, func() bool {
		s, err := env.engine.GetSnapshot(id)
		if err != nil {
			return false
		}
		snap = s
		return len(s.Trajectory) >= n
	})
	return snap
}

func TestEngine_StartClassifiesBaseline(t *testing.T) {
	env := newTestEnv(t, nil)

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap, err := env.engine.GetSnapshot(id)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.Status != session.StatusActive {
		t.Errorf("Status = %q, want active", snap.Status)
	}
	if snap.Mode != classify.ModeFocused {
		t.Errorf("Mode = %q, want %q", snap.Mode, classify.ModeFocused)
	}
	if snap.State != classify.StateOptimal {
		t.Errorf("State = %q, want %q", snap.State, classify.StateOptimal)
	}
	if len(snap.Trajectory) != 1 || snap.Trajectory[0].Level != 0.5 {
		t.Errorf("Trajectory = %+v, want one sample at 0.5", snap.Trajectory)
	}
	if len(snap.History) != 0 {
		t.Errorf("baseline classification appended %d adaptations, want 0", len(snap.History))
	}

	if got := len(env.rec.ofType("session.started")); got != 1 {
		t.Errorf("session.started events = %d, want 1", got)
	}
}

func TestEngine_StartRejectsNonNumericSignal(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, level := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := env.engine.Start("u", "l", level); !errors.Is(err, errors.ErrInvalidSignal) {
			t.Errorf("Start(%v) error = %v, want ErrInvalidSignal", level, err)
		}
	}
}

func TestEngine_BreakthroughScenario(t *testing.T) {
	env := newTestEnv(t, nil)

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	base := time.Now()
	if err := env.engine.UpdateSignal(id, 0.82, nil, base); err != nil {
		t.Fatalf("UpdateSignal(0.82): %v", err)
	}
	if err := env.engine.UpdateSignal(id, 0.9, nil, base.Add(10*time.Millisecond)); err != nil {
		t.Fatalf("UpdateSignal(0.9): %v", err)
	}

	snap := env.waitTrajectory(t, id, 3)

	if snap.Mode != classify.ModeBreakthrough {
		t.Errorf("Mode = %q, want %q", snap.Mode, classify.ModeBreakthrough)
	}

	modeChanges := env.rec.ofType("session.mode_changed")
	if len(modeChanges) != 1 {
		t.Fatalf("mode_changed events = %d, want exactly 1", len(modeChanges))
	}
	mc := modeChanges[0].(event.ModeChangedEvent)
	if mc.Previous != classify.ModeFocused || mc.Current != classify.ModeBreakthrough {
		t.Errorf("mode change = %q -> %q, want focused -> breakthrough", mc.Previous, mc.Current)
	}

	if got := len(env.rec.ofType("breakthrough.detected")); got != 1 {
		t.Errorf("breakthrough.detected events = %d, want exactly 1", got)
	}

	var kinds []session.AdaptationKind
	for _, a := range snap.History {
		kinds = append(kinds, a.Kind)
	}
	want := []session.AdaptationKind{session.KindModeChange, session.KindBreakthrough}
	if len(kinds) != len(want) {
		t.Fatalf("adaptation kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("adaptation[%d].Kind = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestEngine_ModeSweep(t *testing.T) {
	// Trigger level above any clamped signal keeps breakthrough detection
	// out of the sweep.
	detector := breakthrough.New(breakthrough.WithTriggerLevel(2))
	env := newTestEnv(t, detector)

	id, err := env.engine.Start("user-1", "lesson-1", 0.1)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	base := time.Now()
	levels := []float64{0.3, 0.6, 0.8}
	for i, level := range levels {
		if err := env.engine.UpdateSignal(id, level, nil, base.Add(time.Duration(i)*time.Millisecond)); err != nil {
			t.Fatalf("UpdateSignal(%v): %v", level, err)
		}
	}

	snap := env.waitTrajectory(t, id, 4)

	wantModes := []classify.OperatingMode{
		classify.ModeFocused,
		classify.ModeIntensive,
		classify.ModeBreakthrough,
	}
	changes := env.rec.ofType("session.mode_changed")
	if len(changes) != len(wantModes) {
		t.Fatalf("mode_changed events = %d, want %d", len(changes), len(wantModes))
	}
	for i, want := range wantModes {
		mc := changes[i].(event.ModeChangedEvent)
		if mc.Current != want {
			t.Errorf("transition %d entered %q, want %q", i, mc.Current, want)
		}
	}

	// The last mode change carries the breakthrough parameter set.
	last := snap.History[len(snap.History)-1]
	if last.Kind != session.KindModeChange {
		t.Fatalf("last adaptation kind = %q, want mode_change", last.Kind)
	}
	if got := last.Parameters["content_density"]; got != 1.0 {
		t.Errorf("content_density = %v, want 1.0", got)
	}
}

func TestEngine_CognitiveStateTransitions(t *testing.T) {
	detector := breakthrough.New(breakthrough.WithTriggerLevel(2))
	env := newTestEnv(t, detector)

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	high := map[string]float64{
		classify.ActivityExecutive: 1,
		classify.ActivityMemory:    1,
		classify.ActivitySensory:   1,
	}
	low := map[string]float64{
		classify.ActivityExecutive: 0,
		classify.ActivityMemory:    0,
		classify.ActivitySensory:   0,
	}

	base := time.Now()
	env.engine.UpdateSignal(id, 0.9, high, base)                      //nolint:errcheck
	env.engine.UpdateSignal(id, 0.0, low, base.Add(time.Millisecond)) //nolint:errcheck

	snap := env.waitTrajectory(t, id, 3)

	if snap.State != classify.StateFatigued {
		t.Errorf("State = %q, want %q", snap.State, classify.StateFatigued)
	}

	var actions []string
	for _, a := range snap.History {
		if a.Kind == session.KindCognitiveChange {
			actions = append(actions, a.Action)
		}
	}
	want := []string{
		strategy.ActionReduceLoad.String(),
		strategy.ActionOfferRecovery.String(),
	}
	if len(actions) != len(want) {
		t.Fatalf("cognitive actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("action[%d] = %q, want %q", i, actions[i], want[i])
		}
	}
}

func TestEngine_SignalValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	t.Run("non-numeric rejected", func(t *testing.T) {
		for _, level := range []float64{math.NaN(), math.Inf(1)} {
			if err := env.engine.UpdateSignal(id, level, nil, time.Now()); !errors.Is(err, errors.ErrInvalidSignal) {
				t.Errorf("UpdateSignal(%v) error = %v, want ErrInvalidSignal", level, err)
			}
		}
	})

	t.Run("out of range clamped", func(t *testing.T) {
		if err := env.engine.UpdateSignal(id, 1.5, nil, time.Now()); err != nil {
			t.Fatalf("UpdateSignal(1.5): %v", err)
		}
		snap := env.waitTrajectory(t, id, 2)
		if got := snap.Trajectory[1].Level; got != 1.0 {
			t.Errorf("clamped level = %v, want 1.0", got)
		}
		if snap.Mode != classify.ModeBreakthrough {
			t.Errorf("Mode = %q, want breakthrough after clamp to 1.0", snap.Mode)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		err := env.engine.UpdateSignal("no-such-session", 0.5, nil, time.Now())
		if !errors.Is(err, errors.ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestEngine_StaleSignalDropped(t *testing.T) {
	env := newTestEnv(t, nil)

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	base := time.Now()
	env.engine.UpdateSignal(id, 0.6, nil, base)                        //nolint:errcheck
	env.engine.UpdateSignal(id, 0.2, nil, base.Add(-time.Second))      //nolint:errcheck
	env.engine.UpdateSignal(id, 0.65, nil, base.Add(time.Millisecond)) //nolint:errcheck

	snap := env.waitTrajectory(t, id, 3)

	if len(snap.Trajectory) != 3 {
		t.Fatalf("trajectory length = %d, want 3 (stale sample dropped)", len(snap.Trajectory))
	}
	for i := 1; i < len(snap.Trajectory); i++ {
		if snap.Trajectory[i].At.Before(snap.Trajectory[i-1].At) {
			t.Errorf("trajectory out of order at %d", i)
		}
	}
	if snap.Level != 0.65 {
		t.Errorf("Level = %v, want 0.65", snap.Level)
	}
}

func TestEngine_BusSignalDelivery(t *testing.T) {
	env := newTestEnv(t, nil)

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	env.bus.Publish(event.NewSignalUpdateEvent(id, 0.7, nil, time.Now()))
	env.bus.Publish(event.NewSignalUpdateEvent("someone-else", 0.1, nil, time.Now()))

	snap := env.waitTrajectory(t, id, 2)
	if snap.Level != 0.7 {
		t.Errorf("Level = %v, want 0.7", snap.Level)
	}
	if len(snap.Trajectory) != 2 {
		t.Errorf("trajectory length = %d, want 2 (foreign session ignored)", len(snap.Trajectory))
	}
}

func TestEngine_EndLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := env.engine.End(id); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := env.engine.End(id); err != nil {
		t.Errorf("second End = %v, want nil (idempotent)", err)
	}
	if err := env.engine.End("no-such-session"); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("End(unknown) = %v, want ErrSessionNotFound", err)
	}

	// The record stays readable after the end.
	snap, err := env.engine.GetSnapshot(id)
	if err != nil {
		t.Fatalf("GetSnapshot after end: %v", err)
	}
	if snap.Status != session.StatusEnded {
		t.Errorf("Status = %q, want ended", snap.Status)
	}
	if snap.EndedAt.IsZero() {
		t.Error("EndedAt not set")
	}

	if err := env.engine.UpdateSignal(id, 0.6, nil, time.Now()); !errors.Is(err, errors.ErrSessionEnded) {
		t.Errorf("UpdateSignal after end = %v, want ErrSessionEnded", err)
	}

	ended := env.rec.ofType("session.ended")
	if len(ended) != 1 {
		t.Fatalf("session.ended events = %d, want 1", len(ended))
	}
	if got := ended[0].(event.SessionEndedEvent).Reason; got != event.EndRequested {
		t.Errorf("end reason = %q, want requested", got)
	}
}

func TestEngine_IdleSweep(t *testing.T) {
	env := newTestEnv(t, nil,
		WithIdleTimeout(30*time.Millisecond),
		WithSweepInterval(10*time.Millisecond))

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		snap, err := env.engine.GetSnapshot(id)
		return err == nil && snap.Status == session.StatusEnded
	})

	ended := env.rec.ofType("session.ended")
	if len(ended) != 1 {
		t.Fatalf("session.ended events = %d, want 1", len(ended))
	}
	if got := ended[0].(event.SessionEndedEvent).Reason; got != event.EndIdleTimeout {
		t.Errorf("end reason = %q, want idle_timeout", got)
	}
}

type stubReviewer struct {
	mu     sync.Mutex
	calls  int
	review Review
	err    error
}

func (r *stubReviewer) Review(_ context.Context, _ *session.Session) (Review, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.review, r.err
}

func (r *stubReviewer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestEngine_PeriodicReviewEmitsOptimization(t *testing.T) {
	reviewer := &stubReviewer{review: Review{
		Effectiveness: 0.8,
		Parameters:    map[string]float64{"content_density": 0.05},
		Note:          "increase_challenge",
	}}
	env := newTestEnv(t, nil,
		WithTickInterval(10*time.Millisecond),
		WithReviewer(reviewer))

	id, err := env.engine.Start("user-1", "lesson-1", 0.9)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var snap *session.Session
	waitFor(t, 2*time.Second, func() bool {
		s, err := env.engine.GetSnapshot(id)
		if err != nil {
			return false
		}
		snap = s
		return len(s.History) >= 2
	})

	var opt *session.Adaptation
	for i := range snap.History {
		if snap.History[i].Kind == session.KindOptimization {
			opt = &snap.History[i]
			break
		}
	}
	if opt == nil {
		t.Fatalf("no optimization adaptation in history: %+v", snap.History)
	}
	if opt.Effectiveness != 0.8 {
		t.Errorf("optimization effectiveness = %v, want 0.8 (first review seeds the metric)", opt.Effectiveness)
	}
	if opt.Parameters["content_density"] != 0.05 {
		t.Errorf("optimization parameters = %v", opt.Parameters)
	}
	if got := snap.Performance[perfEffectiveness]; got == 0 {
		t.Error("effectiveness metric not folded into performance")
	}
}

func TestEngine_ReviewBackfillsEffectiveness(t *testing.T) {
	reviewer := &stubReviewer{review: Review{Effectiveness: 0.6}}
	detector := breakthrough.New(breakthrough.WithTriggerLevel(2))
	env := newTestEnv(t, detector,
		WithTickInterval(20*time.Millisecond),
		WithReviewer(reviewer))

	id, err := env.engine.Start("user-1", "lesson-1", 0.2)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Force a mode change so there is an adaptation to back-fill.
	if err := env.engine.UpdateSignal(id, 0.7, nil, time.Now()); err != nil {
		t.Fatalf("UpdateSignal: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return reviewer.callCount() >= 1
	})

	var snap *session.Session
	waitFor(t, 2*time.Second, func() bool {
		s, err := env.engine.GetSnapshot(id)
		if err != nil {
			return false
		}
		snap = s
		return len(s.History) >= 1 && s.History[0].Effectiveness != 0
	})

	if got := snap.History[0].Effectiveness; got != 0.6 {
		t.Errorf("back-filled effectiveness = %v, want 0.6", got)
	}
}

func TestEngine_ReviewFailureBacksOff(t *testing.T) {
	reviewer := &stubReviewer{err: errors.New("analytics store unreachable")}
	env := newTestEnv(t, nil,
		WithTickInterval(5*time.Millisecond),
		WithBackoffCap(40*time.Millisecond),
		WithReviewer(reviewer))

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return reviewer.callCount() >= 3
	})

	// Failures never append adaptations or corrupt the record.
	snap, err := env.engine.GetSnapshot(id)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if len(snap.History) != 0 {
		t.Errorf("failed reviews appended %d adaptations, want 0", len(snap.History))
	}
}

func TestBackoffInterval(t *testing.T) {
	base := 5 * time.Second
	max := 80 * time.Second

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, 80 * time.Second},
		{5, 80 * time.Second},
		{10, 80 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffInterval(base, tt.failures, max); got != tt.want {
			t.Errorf("backoffInterval(%v, %d, %v) = %v, want %v", base, tt.failures, max, got, tt.want)
		}
	}
}

func TestEngine_SerializedMutation(t *testing.T) {
	env := newTestEnv(t, nil, WithTickInterval(time.Millisecond))

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	env.engine.mu.Lock()
	w := env.engine.workers[id]
	env.engine.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				level := float64(j%10) / 10
				env.engine.UpdateSignal(id, level, nil, time.Now()) //nolint:errcheck
				if j%10 == 0 {
					env.engine.GetSnapshot(id) //nolint:errcheck
				}
			}
		}(i)
	}
	wg.Wait()

	if err := env.engine.End(id); err != nil {
		t.Fatalf("End: %v", err)
	}

	if got := w.violations.Load(); got != 0 {
		t.Errorf("single-writer violations = %d, want 0", got)
	}
}

func TestEngine_ActiveCountDuringEnd(t *testing.T) {
	env := newTestEnv(t, nil)

	ids := make([]string, 5)
	for i := range ids {
		id, err := env.engine.Start("user-1", "lesson-1", 0.5)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		ids[i] = id
	}

	// Poll the store while the workers flip sessions to ended; the count
	// must move through consistent values only.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if got := env.store.ActiveCount(); got < 0 || got > len(ids) {
				t.Errorf("ActiveCount() = %d, want within [0, %d]", got, len(ids))
				return
			}
		}
	}()

	for _, id := range ids {
		if err := env.engine.End(id); err != nil {
			t.Fatalf("End(%s): %v", id, err)
		}
	}
	<-done

	if got := env.store.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount() = %d after ending all sessions, want 0", got)
	}
	if got := env.store.Len(); got != len(ids) {
		t.Errorf("Len() = %d, want %d (ended sessions stay readable)", got, len(ids))
	}
}

func TestEngine_SwapTablePicksUpNewParameters(t *testing.T) {
	env := newTestEnv(t, breakthrough.New(breakthrough.WithTriggerLevel(2)))

	id, err := env.engine.Start("user-1", "lesson-1", 0.5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	override, err := strategy.Parse([]byte(`
modes:
  intensive:
    content_density: 0.95
    interaction_frequency: 0.25
    guidance_level: 0.2
    hands_on_ratio: 0.45
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	env.engine.SwapTable(override)

	if err := env.engine.UpdateSignal(id, 0.7, nil, time.Now()); err != nil {
		t.Fatalf("UpdateSignal: %v", err)
	}
	snap := env.waitTrajectory(t, id, 2)

	if len(snap.History) == 0 {
		t.Fatal("no adaptation recorded for mode change")
	}
	if got := snap.History[0].Parameters["content_density"]; got != 0.95 {
		t.Errorf("content_density = %v, want 0.95 from swapped table", got)
	}
}

func TestEngine_Close(t *testing.T) {
	env := newTestEnv(t, nil)

	id1, _ := env.engine.Start("user-1", "lesson-1", 0.5)
	id2, _ := env.engine.Start("user-2", "lesson-2", 0.5)

	if err := env.engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, id := range []string{id1, id2} {
		snap, err := env.engine.GetSnapshot(id)
		if err != nil {
			t.Fatalf("GetSnapshot(%s): %v", id, err)
		}
		if snap.Status != session.StatusEnded {
			t.Errorf("session %s status = %q, want ended", id, snap.Status)
		}
	}

	ended := env.rec.ofType("session.ended")
	if len(ended) != 2 {
		t.Fatalf("session.ended events = %d, want 2", len(ended))
	}
	for _, e := range ended {
		if got := e.(event.SessionEndedEvent).Reason; got != event.EndShutdown {
			t.Errorf("end reason = %q, want shutdown", got)
		}
	}

	if _, err := env.engine.Start("u", "l", 0.5); !errors.Is(err, errors.ErrEngineClosed) {
		t.Errorf("Start after Close = %v, want ErrEngineClosed", err)
	}
	if err := env.engine.UpdateSignal(id1, 0.5, nil, time.Now()); !errors.Is(err, errors.ErrEngineClosed) {
		t.Errorf("UpdateSignal after Close = %v, want ErrEngineClosed", err)
	}

	if err := env.engine.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}
