package input

import (
	"log"

	"fruit-rush/internal/game"
)

// Handler applies parsed commands to the engine.
type Handler struct {
	engine      *game.Engine
	rateLimiter *RateLimiter
}

// NewHandler creates a command handler with default rate limiting.
func NewHandler(engine *game.Engine) *Handler {
	return &Handler{
		engine:      engine,
		rateLimiter: NewRateLimiter(DefaultRateLimitConfig),
	}
}

// ProcessCommand handles a single command. Out-of-order or redundant
// commands are absorbed here or by the engine; nothing from the outside can
// fault the run.
func (h *Handler) ProcessCommand(cmd Command) {
	if cmd.Action == ActionUnknown {
		// Not our vocabulary, stay quiet
		return
	}

	if !h.rateLimiter.Allow(cmd.Source) {
		log.Printf("🚫 Rate limited: %s", cmd.Source)
		return
	}

	switch cmd.Action {
	case ActionStart:
		if h.engine.Start() {
			log.Printf("▶️ %s started a run", cmd.Source)
		}
	case ActionStop:
		if h.engine.Stop() {
			log.Printf("⏹️ %s stopped the run", cmd.Source)
		}
	case ActionMove:
		h.engine.MoveBasket(cmd.Zone)
	}
}

// Run drains a channel of commands (call in a goroutine).
func (h *Handler) Run(commands <-chan Command) {
	for cmd := range commands {
		h.ProcessCommand(cmd)
	}
	log.Println("📜 Input handler stopped")
}
