package journal

import "time"

// EntryType identifies the kind of journal entry.
type EntryType string

const (
	// EntrySessionStarted records a session entering the active state.
	EntrySessionStarted EntryType = "session_started"

	// EntrySessionEnded records a session reaching its terminal state.
	EntrySessionEnded EntryType = "session_ended"

	// EntryModeChanged records an operating-mode transition.
	EntryModeChanged EntryType = "mode_changed"

	// EntryStateChanged records a cognitive-load state transition.
	EntryStateChanged EntryType = "state_changed"

	// EntryAdaptation records an adaptation applied to the session.
	EntryAdaptation EntryType = "adaptation"

	// EntryBreakthrough records a breakthrough detection.
	EntryBreakthrough EntryType = "breakthrough"
)

// Entry is one line in a session's journal file.
type Entry struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EntryType      `json:"type"`
	At        time.Time      `json:"at"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Valid entry types for validation.
var validEntryTypes = map[EntryType]bool{
	EntrySessionStarted: true,
	EntrySessionEnded:   true,
	EntryModeChanged:    true,
	EntryStateChanged:   true,
	EntryAdaptation:     true,
	EntryBreakthrough:   true,
}

// ValidateEntryType returns true if the given type is a known entry type.
func ValidateEntryType(t EntryType) bool {
	return validEntryTypes[t]
}
