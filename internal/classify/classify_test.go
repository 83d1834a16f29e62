package classify

import (
	"math"
	"testing"
)

func TestMode(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		want  OperatingMode
	}{
		{"zero level", 0.0, ModeExploration},
		{"just below focused boundary", 0.29999, ModeExploration},
		{"focused boundary maps to higher tier", 0.3, ModeFocused},
		{"mid focused band", 0.45, ModeFocused},
		{"intensive boundary maps to higher tier", 0.6, ModeIntensive},
		{"mid intensive band", 0.75, ModeIntensive},
		{"breakthrough boundary maps to higher tier", 0.8, ModeBreakthrough},
		{"max level", 1.0, ModeBreakthrough},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mode(tt.level); got != tt.want {
				t.Errorf("Mode(%v) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestMode_Deterministic(t *testing.T) {
	// Two identical levels must always classify identically across the
	// whole [0, 1] range.
	for level := 0.0; level <= 1.0; level += 0.001 {
		if Mode(level) != Mode(level) {
			t.Fatalf("Mode(%v) not deterministic", level)
		}
	}
}

func TestCognitiveState(t *testing.T) {
	tests := []struct {
		name       string
		level      float64
		activities map[string]float64
		want       LoadState
	}{
		{
			name:  "all defaults gives optimal",
			level: 0.5,
			// 0.4*0.5 + 0.3*0.5 + 0.2*0.5 + 0.1*0.5 = 0.5
			activities: nil,
			want:       StateOptimal,
		},
		{
			name:  "everything maxed is overloaded",
			level: 1.0,
			activities: map[string]float64{
				ActivityExecutive: 1.0,
				ActivityMemory:    1.0,
				ActivitySensory:   1.0,
			},
			want: StateOverloaded,
		},
		{
			name:  "score exactly at overloaded boundary",
			level: 0.8,
			// 0.4*0.8 + 0.3*0.8 + 0.2*0.8 + 0.1*0.8 = 0.8
			activities: map[string]float64{
				ActivityExecutive: 0.8,
				ActivityMemory:    0.8,
				ActivitySensory:   0.8,
			},
			want: StateOverloaded,
		},
		{
			name:  "everything zero is fatigued",
			level: 0.0,
			activities: map[string]float64{
				ActivityExecutive: 0.0,
				ActivityMemory:    0.0,
				ActivitySensory:   0.0,
			},
			want: StateFatigued,
		},
		{
			name:  "score exactly 0.2 is fatigued not underutilized",
			level: 0.2,
			// 0.4*0.2 + 0.6*0.2 = 0.2
			activities: map[string]float64{
				ActivityExecutive: 0.2,
				ActivityMemory:    0.2,
				ActivitySensory:   0.2,
			},
			want: StateFatigued,
		},
		{
			name:  "score in overlap band is underutilized",
			level: 0.25,
			// uniform 0.25 gives score 0.25, inside (0.2, 0.3]
			activities: map[string]float64{
				ActivityExecutive: 0.25,
				ActivityMemory:    0.25,
				ActivitySensory:   0.25,
			},
			want: StateUnderutilized,
		},
		{
			name:  "score exactly 0.3 is underutilized",
			level: 0.0,
			// 0.3*1.0 lands exactly on the boundary
			activities: map[string]float64{
				ActivityExecutive: 1.0,
				ActivityMemory:    0,
				ActivitySensory:   0,
			},
			want: StateUnderutilized,
		},
		{
			name:  "missing components default to 0.5",
			level: 0.0,
			// 0.4*0 + (0.3+0.2+0.1)*0.5 = 0.3 -> underutilized
			activities: map[string]float64{},
			want:       StateUnderutilized,
		},
		{
			name:  "unknown activity keys are ignored",
			level: 0.5,
			activities: map[string]float64{
				"daydreaming": 1.0,
			},
			want: StateOptimal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CognitiveState(tt.level, tt.activities); got != tt.want {
				score := LoadScore(tt.level, tt.activities)
				t.Errorf("CognitiveState(%v, %v) = %v (score %v), want %v",
					tt.level, tt.activities, got, score, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		want  bool
	}{
		{"normal value", 0.5, true},
		{"negative but finite", -3.0, true},
		{"above one but finite", 42.0, true},
		{"NaN", math.NaN(), false},
		{"positive infinity", math.Inf(1), false},
		{"negative infinity", math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.level); got != tt.want {
				t.Errorf("Valid(%v) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name        string
		level       float64
		want        float64
		wantClamped bool
	}{
		{"in range unchanged", 0.5, 0.5, false},
		{"zero unchanged", 0.0, 0.0, false},
		{"one unchanged", 1.0, 1.0, false},
		{"negative clamps to zero", -0.2, 0.0, true},
		{"above one clamps to one", 1.7, 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := Clamp(tt.level)
			if got != tt.want || clamped != tt.wantClamped {
				t.Errorf("Clamp(%v) = (%v, %v), want (%v, %v)",
					tt.level, got, clamped, tt.want, tt.wantClamped)
			}
		})
	}
}
