package engine

import (
	"context"

	"github.com/attunelabs/attune/internal/session"
)

// Review is the outcome of one periodic effectiveness review.
type Review struct {
	// Effectiveness estimates how well the current parameters are working,
	// in [0, 1]. 0.5 is neutral.
	Effectiveness float64

	// Parameters holds signed adjustments to apply to the session's
	// parameter set. Nil means the review found nothing worth changing.
	Parameters map[string]float64

	// Note names the direction of the adjustment, for the history record.
	Note string
}

// EffectivenessReviewer evaluates a session snapshot on each tick. The
// engine gives it a deep copy and a bounded context; implementations that
// call out to slow backends must honor the deadline.
type EffectivenessReviewer interface {
	Review(ctx context.Context, snap *session.Session) (Review, error)
}

// Default trajectory reviewer tuning.
const (
	defaultReviewWindow = 10

	// defaultDeadband is the projected level change below which the review
	// leaves the parameters alone.
	defaultDeadband = 0.1

	// nudgeStep is the magnitude of one parameter adjustment.
	nudgeStep = 0.05
)

// ReviewerOption configures a TrajectoryReviewer.
type ReviewerOption func(*TrajectoryReviewer)

// WithReviewWindow sets how many recent trajectory samples the slope is
// fitted over.
func WithReviewWindow(n int) ReviewerOption {
	return func(r *TrajectoryReviewer) { r.window = n }
}

// WithDeadband sets the minimum projected level change that produces an
// adjustment.
func WithDeadband(d float64) ReviewerOption {
	return func(r *TrajectoryReviewer) { r.deadband = d }
}

// TrajectoryReviewer is the built-in reviewer. It fits a least-squares
// slope over the recent trajectory: a rising signal means the current
// parameters are working and the session can take more challenge, a falling
// one means the pace should ease off.
type TrajectoryReviewer struct {
	window   int
	deadband float64
}

// NewTrajectoryReviewer creates a TrajectoryReviewer with default tuning.
func NewTrajectoryReviewer(opts ...ReviewerOption) *TrajectoryReviewer {
	r := &TrajectoryReviewer{
		window:   defaultReviewWindow,
		deadband: defaultDeadband,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Review implements EffectivenessReviewer.
func (r *TrajectoryReviewer) Review(ctx context.Context, snap *session.Session) (Review, error) {
	if err := ctx.Err(); err != nil {
		return Review{}, err
	}

	samples := snap.Trajectory
	if len(samples) > r.window {
		samples = samples[len(samples)-r.window:]
	}

	// Too little history to say anything; report neutral and change nothing.
	if len(samples) < 2 {
		return Review{Effectiveness: 0.5}, nil
	}

	trend := projectedChange(samples)

	review := Review{Effectiveness: clamp01(0.5 + trend/2)}
	switch {
	case trend > r.deadband:
		review.Note = "increase_challenge"
		review.Parameters = map[string]float64{
			"content_density": nudgeStep,
			"guidance_level":  -nudgeStep,
		}
	case trend < -r.deadband:
		review.Note = "reduce_pace"
		review.Parameters = map[string]float64{
			"content_density":       -nudgeStep,
			"interaction_frequency": nudgeStep,
		}
	}
	return review, nil
}

// projectedChange fits a least-squares slope over the samples and projects
// the level change across the whole window. Zero-duration windows (all
// samples at one instant) project no change.
func projectedChange(samples []session.TrajectorySample) float64 {
	start := samples[0].At
	span := samples[len(samples)-1].At.Sub(start)
	if span <= 0 {
		return 0
	}

	var sumT, sumL, sumTT, sumTL float64
	for _, s := range samples {
		t := s.At.Sub(start).Seconds()
		sumT += t
		sumL += s.Level
		sumTT += t * t
		sumTL += t * s.Level
	}

	n := float64(len(samples))
	denom := n*sumTT - sumT*sumT
	if denom == 0 {
		return 0
	}
	slope := (n*sumTL - sumT*sumL) / denom

	change := slope * span.Seconds()
	if change > 1 {
		return 1
	}
	if change < -1 {
		return -1
	}
	return change
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
