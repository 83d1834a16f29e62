// Package classify maps a normalized engagement signal onto a session's
// operating mode and cognitive-load state.
//
// All functions in this package are pure: identical inputs always produce
// identical outputs, and no state or I/O is involved. The engine relies on
// this to re-classify on every inbound signal without side effects.
package classify

import "math"

// Mode threshold boundaries. A boundary value classifies into the higher
// tier: 0.3 is FOCUSED, 0.6 is INTENSIVE, 0.8 is BREAKTHROUGH.
const (
	focusedThreshold      = 0.3
	intensiveThreshold    = 0.6
	breakthroughThreshold = 0.8
)

// Cognitive load score weights. The signal level dominates, with the
// executive, memory, and sensory activity components contributing the rest.
const (
	levelWeight     = 0.4
	executiveWeight = 0.3
	memoryWeight    = 0.2
	sensoryWeight   = 0.1

	// defaultActivity is assumed for any activity component the upstream
	// feed did not report.
	defaultActivity = 0.5
)

// Cognitive state bucket boundaries over the weighted load score.
const (
	overloadedThreshold    = 0.8
	fatiguedThreshold      = 0.2
	underutilizedThreshold = 0.3
)

// Activity component keys recognized in the activities map of a signal
// update. Unknown keys are ignored.
const (
	ActivityExecutive = "executive"
	ActivityMemory    = "memory"
	ActivitySensory   = "sensory"
)

// Mode classifies the signal level into one of the four operating modes.
// The level must already be clamped into [0, 1]; see Clamp.
func Mode(level float64) OperatingMode {
	switch {
	case level >= breakthroughThreshold:
		return ModeBreakthrough
	case level >= intensiveThreshold:
		return ModeIntensive
	case level >= focusedThreshold:
		return ModeFocused
	default:
		return ModeExploration
	}
}

// CognitiveState classifies the signal level and activity breakdown into a
// cognitive-load state. Missing activity components default to 0.5.
//
// The FATIGUED and UNDERUTILIZED buckets overlap on (0.2, 0.3] in the source
// policy; FATIGUED is evaluated first, so UNDERUTILIZED effectively covers
// the half-open interval (0.2, 0.3].
func CognitiveState(level float64, activities map[string]float64) LoadState {
	score := LoadScore(level, activities)
	switch {
	case score >= overloadedThreshold:
		return StateOverloaded
	case score <= fatiguedThreshold:
		return StateFatigued
	case score <= underutilizedThreshold:
		return StateUnderutilized
	default:
		return StateOptimal
	}
}

// LoadScore computes the weighted cognitive load score used by
// CognitiveState. Exposed so callers can log or inspect the raw score.
func LoadScore(level float64, activities map[string]float64) float64 {
	return levelWeight*level +
		executiveWeight*activityOrDefault(activities, ActivityExecutive) +
		memoryWeight*activityOrDefault(activities, ActivityMemory) +
		sensoryWeight*activityOrDefault(activities, ActivitySensory)
}

func activityOrDefault(activities map[string]float64, key string) float64 {
	if v, ok := activities[key]; ok {
		return v
	}
	return defaultActivity
}

// Valid reports whether a signal level is a usable number. NaN and ±Inf
// values cannot be clamped meaningfully and must be rejected by the caller.
func Valid(level float64) bool {
	return !math.IsNaN(level) && !math.IsInf(level, 0)
}

// Clamp forces a finite signal level into [0, 1]. The second return value
// reports whether clamping changed the input, so callers can log it.
func Clamp(level float64) (float64, bool) {
	switch {
	case level < 0:
		return 0, true
	case level > 1:
		return 1, true
	default:
		return level, false
	}
}
