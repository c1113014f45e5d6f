package game

// Zone is one of the three lanes items fall through. The basket occupies
// exactly one zone at a time.
type Zone string

const (
	ZoneLeft   Zone = "left"
	ZoneCenter Zone = "center"
	ZoneRight  Zone = "right"
)

// zones in lane order, used for random spawns and index lookups
var zones = [3]Zone{ZoneLeft, ZoneCenter, ZoneRight}

// Valid reports whether z is one of the three lanes.
func (z Zone) Valid() bool {
	return z == ZoneLeft || z == ZoneCenter || z == ZoneRight
}

// Kind identifies what is falling: one hazard and three fruit types.
type Kind string

const (
	KindBomb   Kind = "bomb"
	KindApple  Kind = "apple"
	KindPear   Kind = "pear"
	KindOrange Kind = "orange"
)

// fruitKinds are the kinds a non-hazard spawn picks from, equally likely
var fruitKinds = [3]Kind{KindApple, KindPear, KindOrange}

// KindInfo describes one item type for scoring and for renderers.
type KindInfo struct {
	Kind   Kind   `json:"kind"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Hazard bool   `json:"hazard"`
	Color  string `json:"color"`
	Emoji  string `json:"emoji"`
}

// Kinds is the catalog of everything that can spawn.
var Kinds = map[Kind]KindInfo{
	KindBomb: {
		Kind:   KindBomb,
		Name:   "Bomb",
		Points: 0,
		Hazard: true,
		Color:  "#37474f",
		Emoji:  "💣",
	},
	KindApple: {
		Kind:   KindApple,
		Name:   "Apple",
		Points: 100,
		Hazard: false,
		Color:  "#e53935",
		Emoji:  "🍎",
	},
	KindPear: {
		Kind:   KindPear,
		Name:   "Pear",
		Points: 150,
		Hazard: false,
		Color:  "#8bc34a",
		Emoji:  "🍐",
	},
	KindOrange: {
		Kind:   KindOrange,
		Name:   "Orange",
		Points: 200,
		Hazard: false,
		Color:  "#ff9800",
		Emoji:  "🍊",
	},
}

// Points returns the score value for catching k. Hazards are worth nothing.
func (k Kind) Points() int {
	return Kinds[k].Points
}

// Hazard reports whether catching k ends the run.
func (k Kind) Hazard() bool {
	return Kinds[k].Hazard
}

// GetKind returns the catalog entry for k, defaulting to the apple so a
// stale or unknown kind never breaks a renderer.
func GetKind(k Kind) KindInfo {
	if info, ok := Kinds[k]; ok {
		return info
	}
	return Kinds[KindApple]
}

// AllKinds returns the catalog as a slice.
func AllKinds() []KindInfo {
	kinds := make([]KindInfo, 0, len(Kinds))
	for _, info := range Kinds {
		kinds = append(kinds, info)
	}
	return kinds
}

// Item is a single falling object. Progress runs from 0.0 at the spawn
// point to 1.0 at the ground; the basket row sits at CatchLine. A caught
// item is frozen at the catch line until the grace removal fires, so
// renderers get a beat to play the pickup.
type Item struct {
	ID           uint64  `json:"id"`
	Zone         Zone    `json:"zone"`
	Kind         Kind    `json:"kind"`
	Progress     float64 `json:"progress"`
	FallDuration float64 `json:"fallDuration"` // seconds from top to ground
	Caught       bool    `json:"caught"`
}
