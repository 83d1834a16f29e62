package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/attunelabs/attune/internal/classify"
)

func TestNewTable_TotalOverModes(t *testing.T) {
	table := NewTable()
	for _, mode := range classify.Modes() {
		params := table.ForMode(mode)
		if params == (ModeParameters{}) {
			t.Errorf("ForMode(%s) returned zero parameters, want a populated entry", mode)
		}
	}
}

func TestNewTable_TotalOverStates(t *testing.T) {
	table := NewTable()
	for _, state := range classify.LoadStates() {
		if action := table.ForState(state); action == "" {
			t.Errorf("ForState(%s) returned empty action, want a defined entry", state)
		}
	}
}

func TestNewTable_StateActions(t *testing.T) {
	table := NewTable()
	tests := []struct {
		state classify.LoadState
		want  StateAction
	}{
		{classify.StateOverloaded, ActionReduceLoad},
		{classify.StateOptimal, ActionMaintain},
		{classify.StateUnderutilized, ActionIncreaseComplexity},
		{classify.StateFatigued, ActionOfferRecovery},
	}
	for _, tt := range tests {
		if got := table.ForState(tt.state); got != tt.want {
			t.Errorf("ForState(%s) = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestModeParameters_Map(t *testing.T) {
	p := ModeParameters{
		ContentDensity:       0.1,
		InteractionFrequency: 0.2,
		GuidanceLevel:        0.3,
		HandsOnRatio:         0.4,
	}
	m := p.Map()
	if len(m) != 4 {
		t.Fatalf("Map() has %d entries, want 4", len(m))
	}
	if m["content_density"] != 0.1 || m["hands_on_ratio"] != 0.4 {
		t.Errorf("Map() = %v, want flattening of %+v", m, p)
	}
}

func TestParse_MergesOverDefaults(t *testing.T) {
	table, err := Parse([]byte(`
modes:
  focused:
    content_density: 0.9
    interaction_frequency: 0.1
    guidance_level: 0.2
    hands_on_ratio: 0.3
states:
  fatigued: maintain
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// Overridden entries take the file values.
	if got := table.ForMode(classify.ModeFocused).ContentDensity; got != 0.9 {
		t.Errorf("overridden focused content_density = %v, want 0.9", got)
	}
	if got := table.ForState(classify.StateFatigued); got != ActionMaintain {
		t.Errorf("overridden fatigued action = %s, want %s", got, ActionMaintain)
	}

	// Untouched entries keep the defaults.
	defaults := NewTable()
	if got, want := table.ForMode(classify.ModeExploration), defaults.ForMode(classify.ModeExploration); got != want {
		t.Errorf("exploration parameters = %+v, want default %+v", got, want)
	}
	if got := table.ForState(classify.StateOverloaded); got != ActionReduceLoad {
		t.Errorf("overloaded action = %s, want %s", got, ActionReduceLoad)
	}
}

func TestParse_RejectsUnknownMode(t *testing.T) {
	_, err := Parse([]byte("modes:\n  turbo:\n    content_density: 1.0\n"))
	if err == nil {
		t.Fatal("Parse() with unknown mode succeeded, want error")
	}
}

func TestParse_RejectsUnknownState(t *testing.T) {
	_, err := Parse([]byte("states:\n  sleepy: maintain\n"))
	if err == nil {
		t.Fatal("Parse() with unknown state succeeded, want error")
	}
}

func TestParse_RejectsUnknownAction(t *testing.T) {
	_, err := Parse([]byte("states:\n  optimal: panic\n"))
	if err == nil {
		t.Fatal("Parse() with unknown action succeeded, want error")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strategy.yaml")
	content := "states:\n  optimal: increase_complexity\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write strategy file: %v", err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := table.ForState(classify.StateOptimal); got != ActionIncreaseComplexity {
		t.Errorf("ForState(optimal) = %s, want %s", got, ActionIncreaseComplexity)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadFile() with missing file succeeded, want error")
	}
}
