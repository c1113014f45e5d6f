package game

import (
	"math"
	"testing"
)

// TestDropTimeCurve verifies the difficulty curve against known points
func TestDropTimeCurve(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{1, 2.0},
		{2, 1.8},
		{3, 1.6},
		{7, 0.8},
		{8, 0.6}, // floor reached
		{20, 0.6},
		{100, 0.6},
		{0, 2.0},  // clamped to level 1
		{-3, 2.0}, // clamped to level 1
	}

	for _, tt := range tests {
		got := DropTime(tt.level)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DropTime(%d) = %f, want %f", tt.level, got, tt.want)
		}
	}
}

// TestDropTimeMonotonic verifies the curve never speeds back down
func TestDropTimeMonotonic(t *testing.T) {
	prev := DropTime(1)
	for level := 2; level <= 30; level++ {
		cur := DropTime(level)
		if cur > prev+1e-9 {
			t.Fatalf("DropTime(%d)=%f exceeds DropTime(%d)=%f", level, cur, level-1, prev)
		}
		if cur < MinDropSeconds-1e-9 {
			t.Fatalf("DropTime(%d)=%f fell below the floor", level, cur)
		}
		prev = cur
	}
}

// TestKindCatalog verifies points and hazard flags
func TestKindCatalog(t *testing.T) {
	tests := []struct {
		kind   Kind
		points int
		hazard bool
	}{
		{KindBomb, 0, true},
		{KindApple, 100, false},
		{KindPear, 150, false},
		{KindOrange, 200, false},
	}

	for _, tt := range tests {
		if got := tt.kind.Points(); got != tt.points {
			t.Errorf("%s points = %d, want %d", tt.kind, got, tt.points)
		}
		if got := tt.kind.Hazard(); got != tt.hazard {
			t.Errorf("%s hazard = %v, want %v", tt.kind, got, tt.hazard)
		}
	}

	// Unknown kinds fall back to a safe default
	info := GetKind(Kind("durian"))
	if info.Kind != KindApple {
		t.Errorf("Unknown kind should default to apple, got %s", info.Kind)
	}
}

// TestZoneValidation verifies only the three lanes pass
func TestZoneValidation(t *testing.T) {
	for _, z := range []Zone{ZoneLeft, ZoneCenter, ZoneRight} {
		if !z.Valid() {
			t.Errorf("%s should be valid", z)
		}
	}
	for _, z := range []Zone{"", "up", "middle", "LEFT"} {
		if z.Valid() {
			t.Errorf("%q should not be valid", z)
		}
	}
}
