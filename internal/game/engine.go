package game

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

// Phase gates what the three periodic processes may do. The countdown owns
// the play clock while RUNNING and the pause clock while LEVEL_UP_PAUSE,
// the spawner only acts while RUNNING, and physics runs in every phase
// except LEVEL_UP_PAUSE.
type Phase string

const (
	PhaseRunning     Phase = "running"
	PhaseLevelEnding Phase = "level_ending"
	PhaseLevelUp     Phase = "level_up_pause"
)

// Config carries engine construction options.
type Config struct {
	// TickRate is the physics frequency in Hz. DefaultTickRate if <= 0.
	TickRate int

	// Seed makes runs reproducible. 0 means seed from the clock.
	Seed int64

	// TickObserver, if set, receives the duration of every physics step.
	TickObserver func(time.Duration)

	// SpawnObserver, if set, is called with the kind of every spawned item.
	// It runs with the engine lock held and must not block.
	SpawnObserver func(Kind)
}

// Engine is the authoritative rule engine for a run. All state lives behind
// one mutex; the countdown, spawner, and physics loops are separate
// goroutines but every externally visible mutation happens inside a single
// locked tick or command handler.
type Engine struct {
	mu sync.RWMutex

	// Run state
	active           bool
	phase            Phase
	score            int
	level            int
	missCount        int
	basketZone       Zone
	timeRemaining    int // play-clock seconds left in the level
	levelUpCountdown int // pause seconds left, meaningful in PhaseLevelUp
	items            []Item

	nextItemID uint64

	// generation bumps on every start and every finish. Timer callbacks and
	// loop ticks capture it at scheduling time and bail out on mismatch, so
	// nothing scheduled against an old run can touch a new one.
	generation uint64
	stopChan   chan struct{}

	tickRate int
	rng      *rand.Rand
	rngSeed  int64

	// Lifetime counters, survive across runs
	stats Stats
	seq   uint64

	tickObserver  func(time.Duration)
	spawnObserver func(Kind)

	feed     *Feed
	eventLog *EventLog
}

// NewEngine creates an idle engine. Start begins the first run.
func NewEngine(cfg Config) *Engine {
	tickRate := cfg.TickRate
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		phase:         PhaseRunning,
		level:         1,
		basketZone:    ZoneCenter,
		timeRemaining: LevelTimeLimit,
		tickRate:      tickRate,
		rng:           rand.New(rand.NewSource(seed)),
		rngSeed:       seed,
		tickObserver:  cfg.TickObserver,
		spawnObserver: cfg.SpawnObserver,
		feed:          newFeed(),
		eventLog:      NewEventLog(),
	}
}

// Start begins a new run, resetting everything from the previous one.
// Calling it while a run is active is a harmless no-op.
func (e *Engine) Start() bool {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return false
	}

	e.resetRunLocked()
	e.active = true
	e.generation++
	e.stopChan = make(chan struct{})
	e.stats.RunsStarted++

	stop := e.stopChan
	gen := e.generation
	e.mu.Unlock()

	go e.countdownLoop(stop, gen)
	go e.spawnLoop(stop, gen)
	go e.updateLoop(stop, gen)

	log.Printf("🎮 Run started (tick rate %d Hz, seed %d)", e.tickRate, e.rngSeed)
	return true
}

// resetRunLocked restores the documented start-of-run state. Caller holds mu.
func (e *Engine) resetRunLocked() {
	e.score = 0
	e.level = 1
	e.missCount = 0
	e.basketZone = ZoneCenter
	e.items = e.items[:0]
	e.phase = PhaseRunning
	e.timeRemaining = LevelTimeLimit
	e.levelUpCountdown = 0
}

// Stop ends the current run on request. Safe to call when idle.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return false
	}
	e.finishLocked(EndReasonStopped)
	return true
}

// finishLocked terminates the run: cancels the three loops, invalidates
// pending grace-delay removals, and publishes the terminal event. Items are
// left in place so the final frame still shows them. Caller holds mu.
func (e *Engine) finishLocked(reason EndReason) {
	e.active = false
	e.generation++
	close(e.stopChan)
	e.stopChan = nil

	e.stats.RunsFinished++
	if e.score > e.stats.HighScore {
		e.stats.HighScore = e.score
	}

	e.publishLocked(EventGameEnded, GameEndedPayload{
		Score:   e.score,
		Level:   e.level,
		Reason:  reason,
		Message: endMessage(reason, e.score),
	})

	log.Printf("🏁 Run over (%s): score %d, level %d", reason, e.score, e.level)
}

// endMessage is the user-facing line shipped with game_ended.
func endMessage(reason EndReason, score int) string {
	switch reason {
	case EndReasonHazard:
		return fmt.Sprintf("Boom! You caught a bomb. Final score: %d", score)
	case EndReasonMissLimit:
		return fmt.Sprintf("You dropped %d fruits. Final score: %d", MaxMisses, score)
	default:
		return fmt.Sprintf("Game stopped. Final score: %d", score)
	}
}

// MoveBasket slides the basket to z. Rejected while idle; commands naming
// the current zone change nothing. Reports whether the basket moved.
func (e *Engine) MoveBasket(z Zone) bool {
	if !z.Valid() {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || z == e.basketZone {
		return false
	}

	e.basketZone = z
	e.publishLocked(EventBasketMoved, BasketMovedPayload{Zone: z})
	return true
}

// Active reports whether a run is in progress.
func (e *Engine) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// TickRate returns the configured physics frequency in Hz.
func (e *Engine) TickRate() int {
	return e.tickRate
}

// Subscribe attaches a listener to the notification feed.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	return e.feed.Subscribe(buffer)
}

// publishLocked stamps an event, fans it out, and records it. Both the feed
// and the log are non-blocking, so this is safe under mu. Caller holds mu.
func (e *Engine) publishLocked(t EventType, payload interface{}) {
	e.seq++
	ev := NewEvent(t, e.seq, payload)
	e.feed.publish(ev)
	e.eventLog.Emit(ev)
}

// countdownLoop drives the 1 Hz clock that both the play timer and the
// level-up pause run on.
func (e *Engine) countdownLoop(stop <-chan struct{}, gen uint64) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tickSecond(gen)
		case <-stop:
			return
		}
	}
}

// tickSecond advances whichever clock the current phase owns.
func (e *Engine) tickSecond(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || gen != e.generation {
		return
	}

	switch e.phase {
	case PhaseRunning:
		e.timeRemaining--
		if e.timeRemaining > 0 {
			return
		}
		e.timeRemaining = 0
		e.phase = PhaseLevelEnding
		// Nothing airborne means nothing to wait for.
		if len(e.items) == 0 {
			e.enterLevelUpLocked()
		}

	case PhaseLevelUp:
		e.levelUpCountdown--
		if e.levelUpCountdown <= 0 {
			e.resumeLocked()
		}

	case PhaseLevelEnding:
		// Clock frozen until the last airborne item resolves.
	}
}

// enterLevelUpLocked moves to the between-levels pause: level goes up, the
// play clock is reloaded, and the pause countdown starts. Caller holds mu.
func (e *Engine) enterLevelUpLocked() {
	e.level++
	e.phase = PhaseLevelUp
	e.levelUpCountdown = LevelUpPause
	e.timeRemaining = LevelTimeLimit
}

// resumeLocked returns to play after the pause and announces the new level.
// Caller holds mu.
func (e *Engine) resumeLocked() {
	e.phase = PhaseRunning
	e.levelUpCountdown = 0
	e.publishLocked(EventLevelChanged, LevelChangedPayload{
		Level:    e.level,
		DropTime: DropTime(e.level),
	})
	log.Printf("🆙 Level %d (drop time %.1fs)", e.level, DropTime(e.level))
}

// StartEventLog enables JSONL persistence of every published event.
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.StartPersistence(filePath)
}

// StopEventLog flushes and stops event persistence.
func (e *Engine) StopEventLog() {
	e.eventLog.StopPersistence()
}

// EventLogStats returns counters from the event log.
func (e *Engine) EventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}
