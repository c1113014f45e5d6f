package game

import "time"

// Tuning constants for a run. Levels only change pacing, never these.
const (
	// MaxMisses is how many fruit may reach the ground before the run ends.
	MaxMisses = 2

	// LevelTimeLimit is the play-clock for each level, in seconds.
	LevelTimeLimit = 20

	// LevelUpPause is the breather between levels, in seconds.
	LevelUpPause = 3

	// CatchLine is the progress at which an item reaches the basket row.
	CatchLine = 0.85

	// GraceDelay is how long a resolved item lingers before removal.
	GraceDelay = 300 * time.Millisecond

	// BombChance is the probability that a spawn is a hazard.
	BombChance = 0.20

	// DefaultTickRate is the physics update frequency in Hz.
	DefaultTickRate = 60
)

// Fall-speed curve. Each level shaves a fixed slice off the top-to-ground
// time until the floor, so late levels stay physically catchable.
const (
	BaseDropSeconds = 2.0
	DropSecondsStep = 0.2
	MinDropSeconds  = 0.6
)

// Spawn cadence, expressed as a fraction of the current drop time. Drawing
// from a band rather than a point keeps the rhythm from feeling mechanical.
const (
	SpawnFactorMin = 0.6
	SpawnFactorMax = 0.8
)

// DropTime returns the top-to-ground fall time, in seconds, for a level.
// Levels below 1 are treated as level 1.
func DropTime(level int) float64 {
	if level < 1 {
		level = 1
	}
	d := BaseDropSeconds - DropSecondsStep*float64(level-1)
	if d < MinDropSeconds {
		return MinDropSeconds
	}
	return d
}
