// Package strategy provides the adaptation parameter tables consulted when a
// session changes operating mode or cognitive-load state.
//
// The tables are pure data: every enum value has an entry (total mapping),
// lookups never fail, and the built-in defaults can be replaced wholesale
// from a YAML file without touching the engine.
package strategy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/attunelabs/attune/internal/classify"
)

// ModeParameters is the parameter set applied when a session enters an
// operating mode. All values are normalized to [0, 1].
type ModeParameters struct {
	// ContentDensity controls how much material is presented at once.
	ContentDensity float64 `yaml:"content_density"`

	// InteractionFrequency controls how often the learner is prompted.
	InteractionFrequency float64 `yaml:"interaction_frequency"`

	// GuidanceLevel controls how much scaffolding accompanies content.
	GuidanceLevel float64 `yaml:"guidance_level"`

	// HandsOnRatio controls the share of practical versus expository content.
	HandsOnRatio float64 `yaml:"hands_on_ratio"`
}

// Map flattens the parameter set into the name/value form recorded on
// Adaptation records and carried on outbound events.
func (p ModeParameters) Map() map[string]float64 {
	return map[string]float64{
		"content_density":       p.ContentDensity,
		"interaction_frequency": p.InteractionFrequency,
		"guidance_level":        p.GuidanceLevel,
		"hands_on_ratio":        p.HandsOnRatio,
	}
}

// StateAction is the action taken when a session enters a cognitive-load
// state.
type StateAction string

const (
	// ActionReduceLoad lightens the session for an overloaded learner.
	ActionReduceLoad StateAction = "reduce_load"

	// ActionMaintain keeps the current parameters for an optimal learner.
	ActionMaintain StateAction = "maintain"

	// ActionIncreaseComplexity raises difficulty for an underutilized learner.
	ActionIncreaseComplexity StateAction = "increase_complexity"

	// ActionOfferRecovery suggests a break for a fatigued learner.
	ActionOfferRecovery StateAction = "offer_recovery"
)

// String returns the string representation of the action.
func (a StateAction) String() string {
	return string(a)
}

// knownActions is the closed set accepted when loading override files.
var knownActions = map[StateAction]bool{
	ActionReduceLoad:         true,
	ActionMaintain:           true,
	ActionIncreaseComplexity: true,
	ActionOfferRecovery:      true,
}

// Table holds both lookup tables. A Table is immutable after construction
// and safe for concurrent use.
type Table struct {
	modes  map[classify.OperatingMode]ModeParameters
	states map[classify.LoadState]StateAction
}

// NewTable returns a Table populated with the built-in defaults. The
// defaults cover every operating mode and every cognitive-load state.
func NewTable() *Table {
	return &Table{
		modes: map[classify.OperatingMode]ModeParameters{
			classify.ModeExploration: {
				ContentDensity:       0.3,
				InteractionFrequency: 0.7,
				GuidanceLevel:        0.8,
				HandsOnRatio:         0.6,
			},
			classify.ModeFocused: {
				ContentDensity:       0.6,
				InteractionFrequency: 0.5,
				GuidanceLevel:        0.5,
				HandsOnRatio:         0.5,
			},
			classify.ModeIntensive: {
				ContentDensity:       0.8,
				InteractionFrequency: 0.3,
				GuidanceLevel:        0.3,
				HandsOnRatio:         0.4,
			},
			classify.ModeBreakthrough: {
				ContentDensity:       1.0,
				InteractionFrequency: 0.2,
				GuidanceLevel:        0.1,
				HandsOnRatio:         0.7,
			},
		},
		states: map[classify.LoadState]StateAction{
			classify.StateOverloaded:    ActionReduceLoad,
			classify.StateOptimal:       ActionMaintain,
			classify.StateUnderutilized: ActionIncreaseComplexity,
			classify.StateFatigued:      ActionOfferRecovery,
		},
	}
}

// ForMode returns the parameter set for the given operating mode. The
// mapping is total; every mode produced by classify has an entry.
func (t *Table) ForMode(m classify.OperatingMode) ModeParameters {
	return t.modes[m]
}

// ForState returns the action for the given cognitive-load state. The
// mapping is total; every state produced by classify has an entry.
func (t *Table) ForState(s classify.LoadState) StateAction {
	return t.states[s]
}

// fileSchema is the YAML shape of an override file. Both sections are
// optional; omitted entries keep the built-in defaults.
type fileSchema struct {
	Modes  map[string]ModeParameters `yaml:"modes"`
	States map[string]StateAction    `yaml:"states"`
}

// LoadFile reads a YAML override file and returns a Table with the file's
// entries merged over the built-in defaults. Unknown mode or state names and
// unknown actions are rejected so a typo cannot silently leave a hole in the
// mapping.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Table from YAML override content merged over the defaults.
func Parse(data []byte) (*Table, error) {
	var file fileSchema
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse strategy file: %w", err)
	}

	t := NewTable()

	for name, params := range file.Modes {
		mode := classify.OperatingMode(name)
		if _, ok := t.modes[mode]; !ok {
			return nil, fmt.Errorf("unknown operating mode %q in strategy file", name)
		}
		t.modes[mode] = params
	}

	for name, action := range file.States {
		state := classify.LoadState(name)
		if _, ok := t.states[state]; !ok {
			return nil, fmt.Errorf("unknown cognitive state %q in strategy file", name)
		}
		if !knownActions[action] {
			return nil, fmt.Errorf("unknown action %q for state %q in strategy file", action, name)
		}
		t.states[state] = action
	}

	return t, nil
}
