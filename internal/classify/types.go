package classify

// OperatingMode is the discrete mode a session operates in, derived purely
// from the signal level. It governs content density and pacing parameters.
type OperatingMode string

const (
	// ModeExploration covers low engagement, level < 0.3.
	ModeExploration OperatingMode = "exploration"

	// ModeFocused covers moderate engagement, 0.3 <= level < 0.6.
	ModeFocused OperatingMode = "focused"

	// ModeIntensive covers high engagement, 0.6 <= level < 0.8.
	ModeIntensive OperatingMode = "intensive"

	// ModeBreakthrough covers peak engagement, level >= 0.8.
	ModeBreakthrough OperatingMode = "breakthrough"
)

// String returns the string representation of the mode.
func (m OperatingMode) String() string {
	return string(m)
}

// Modes returns all operating modes in ascending engagement order.
// Useful for exhaustiveness checks over strategy tables.
func Modes() []OperatingMode {
	return []OperatingMode{ModeExploration, ModeFocused, ModeIntensive, ModeBreakthrough}
}

// LoadState is the discrete cognitive-load state of a session, derived from
// the signal level and activity breakdown. It governs load-reduction or
// complexity-increase actions.
type LoadState string

const (
	// StateOverloaded means the weighted load score is at or above 0.8.
	StateOverloaded LoadState = "overloaded"

	// StateOptimal is the healthy middle band.
	StateOptimal LoadState = "optimal"

	// StateUnderutilized means the load score is in (0.2, 0.3].
	StateUnderutilized LoadState = "underutilized"

	// StateFatigued means the load score is at or below 0.2.
	StateFatigued LoadState = "fatigued"
)

// String returns the string representation of the load state.
func (s LoadState) String() string {
	return string(s)
}

// LoadStates returns all cognitive-load states.
// Useful for exhaustiveness checks over strategy tables.
func LoadStates() []LoadState {
	return []LoadState{StateOverloaded, StateOptimal, StateUnderutilized, StateFatigued}
}
