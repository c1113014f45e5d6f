package input

import (
	"strings"
	"time"

	"fruit-rush/internal/game"
)

// Command is one parsed instruction from whatever feeds player input: the
// pose-classifier bridge, a keyboard relay, or a human typing in chat.
type Command struct {
	Action     Action
	Zone       game.Zone // meaningful when Action == ActionMove
	Source     string    // who sent it, used for rate limiting
	Raw        string    // original text, for logs
	ReceivedAt time.Time
}

// Action for routing
type Action int

const (
	ActionUnknown Action = iota
	ActionStart
	ActionStop
	ActionMove
)

// String returns a human-readable action name
func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionMove:
		return "move"
	default:
		return "unknown"
	}
}

// zoneAliases maps the accepted directional vocabulary to lanes. The pose
// bridge sends lean_* labels, keyboards send single letters, chat users
// type whatever feels natural.
var zoneAliases = map[string]game.Zone{
	// Left variants
	"left":      game.ZoneLeft,
	"l":         game.ZoneLeft,
	"lean_left": game.ZoneLeft,
	"izquierda": game.ZoneLeft,

	// Center variants
	"center": game.ZoneCenter,
	"c":      game.ZoneCenter,
	"m":      game.ZoneCenter,
	"centre": game.ZoneCenter,
	"middle": game.ZoneCenter,
	"stand":  game.ZoneCenter,
	"centro": game.ZoneCenter,

	// Right variants
	"right":      game.ZoneRight,
	"r":          game.ZoneRight,
	"lean_right": game.ZoneRight,
	"derecha":    game.ZoneRight,
}

// controlWords maps lifecycle vocabulary to actions
var controlWords = map[string]Action{
	"start": ActionStart,
	"go":    ActionStart,
	"play":  ActionStart,

	"stop": ActionStop,
	"end":  ActionStop,
	"quit": ActionStop,
}

// ParseZone normalizes a single directional word to a lane.
func ParseZone(word string) (game.Zone, bool) {
	z, ok := zoneAliases[strings.ToLower(strings.TrimSpace(word))]
	return z, ok
}

// Parse turns raw text into a Command. Vocabulary outside the fixed set
// comes back as ActionUnknown; callers drop those silently.
func Parse(source, text string) Command {
	cmd := Command{Source: source, Raw: text, ReceivedAt: time.Now()}

	word := strings.ToLower(strings.TrimSpace(text))
	if word == "" {
		return cmd
	}

	// Only the first token counts; trailing chatter is tolerated
	if i := strings.IndexAny(word, " \t"); i >= 0 {
		word = word[:i]
	}

	if zone, ok := zoneAliases[word]; ok {
		cmd.Action = ActionMove
		cmd.Zone = zone
		return cmd
	}
	if action, ok := controlWords[word]; ok {
		cmd.Action = action
		return cmd
	}
	return cmd
}
