package game

import (
	"encoding/json"
	"testing"
	"time"
)

// beginRun puts the engine into an active run without starting the timer
// loops, so tests can drive ticks by hand. Returns the run generation to
// pass to tick functions.
func beginRun(e *Engine) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetRunLocked()
	e.active = true
	e.generation++
	e.stopChan = make(chan struct{})
	return e.generation
}

// addItem appends an item directly, bypassing the spawner.
func addItem(e *Engine, zone Zone, kind Kind, progress float64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextItemID++
	e.items = append(e.items, Item{
		ID:           e.nextItemID,
		Zone:         zone,
		Kind:         kind,
		Progress:     progress,
		FallDuration: DropTime(e.level),
	})
	return e.nextItemID
}

// waitEvent pulls events until one of the wanted type arrives.
func waitEvent(tb testing.TB, ch <-chan Event, want EventType) Event {
	tb.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				tb.Fatalf("feed closed while waiting for %s", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			tb.Fatalf("timed out waiting for %s", want)
		}
	}
}

// expectNoEvent asserts nothing of the given type is already buffered.
func expectNoEvent(tb testing.TB, ch <-chan Event, unwanted EventType) {
	tb.Helper()
	for {
		select {
		case ev := <-ch:
			if ev.Type == unwanted {
				tb.Fatalf("unexpected %s event", unwanted)
			}
		default:
			return
		}
	}
}

// TestNewEngineDefaults verifies construction without options
func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(Config{})

	if e.tickRate != DefaultTickRate {
		t.Errorf("Expected tick rate %d, got %d", DefaultTickRate, e.tickRate)
	}

	state := e.State()
	if state.Active {
		t.Error("New engine should be idle")
	}
	if state.Level != 1 {
		t.Errorf("Expected level 1, got %d", state.Level)
	}
	if state.BasketZone != ZoneCenter {
		t.Errorf("Expected basket at center, got %s", state.BasketZone)
	}
	if state.TimeRemaining != LevelTimeLimit {
		t.Errorf("Expected %ds remaining, got %d", LevelTimeLimit, state.TimeRemaining)
	}
}

// TestStartResetsRunState verifies a start wipes the previous run
func TestStartResetsRunState(t *testing.T) {
	e := NewEngine(Config{Seed: 1})

	// Leftovers from an imaginary earlier run
	e.score = 999
	e.level = 5
	e.missCount = 1
	e.basketZone = ZoneLeft
	e.items = append(e.items, Item{ID: 1, Zone: ZoneLeft, Kind: KindApple})
	e.timeRemaining = 3

	if !e.Start() {
		t.Fatal("Start should succeed on an idle engine")
	}
	defer e.Stop()

	state := e.State()
	if !state.Active {
		t.Error("Engine should be active after start")
	}
	if state.Score != 0 || state.Level != 1 || state.MissCount != 0 {
		t.Errorf("Run state not reset: score=%d level=%d misses=%d",
			state.Score, state.Level, state.MissCount)
	}
	if state.BasketZone != ZoneCenter {
		t.Errorf("Basket should reset to center, got %s", state.BasketZone)
	}
	if state.AirborneItemCount != 0 {
		t.Errorf("Items should be cleared, got %d airborne", state.AirborneItemCount)
	}
	if state.TimeRemaining != LevelTimeLimit {
		t.Errorf("Clock should reset to %d, got %d", LevelTimeLimit, state.TimeRemaining)
	}
	if state.Phase != PhaseRunning {
		t.Errorf("Expected running phase, got %s", state.Phase)
	}
}

// TestDuplicateStartIsNoOp verifies starting twice does not reset the run
func TestDuplicateStartIsNoOp(t *testing.T) {
	e := NewEngine(Config{Seed: 1})

	if !e.Start() {
		t.Fatal("First start should succeed")
	}
	defer e.Stop()

	e.mu.Lock()
	e.score = 400
	gen := e.generation
	e.mu.Unlock()

	if e.Start() {
		t.Error("Second start should be a no-op")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.score != 400 {
		t.Errorf("Duplicate start must not reset score, got %d", e.score)
	}
	if e.generation != gen {
		t.Error("Duplicate start must not bump the run generation")
	}
}

// TestStopIsIdempotent verifies stop on an idle engine is harmless
func TestStopIsIdempotent(t *testing.T) {
	e := NewEngine(Config{Seed: 1})

	if e.Stop() {
		t.Error("Stop on an idle engine should report false")
	}

	e.Start()
	if !e.Stop() {
		t.Error("Stop on an active engine should report true")
	}
	if e.Stop() {
		t.Error("Second stop should report false")
	}
}

// TestStopEmitsGameEnded verifies the terminal notification for manual stop
func TestStopEmitsGameEnded(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	events, cancel := e.Subscribe(32)
	defer cancel()

	e.Start()
	e.mu.Lock()
	e.score = 250
	e.level = 2
	e.mu.Unlock()
	e.Stop()

	ev := waitEvent(t, events, EventGameEnded)
	var p GameEndedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if p.Reason != EndReasonStopped {
		t.Errorf("Expected reason %s, got %s", EndReasonStopped, p.Reason)
	}
	if p.Score != 250 || p.Level != 2 {
		t.Errorf("Expected final 250/2, got %d/%d", p.Score, p.Level)
	}
	if p.Message == "" {
		t.Error("Terminal message should not be empty")
	}
}

// TestMoveBasket verifies zone changes and their notifications
func TestMoveBasket(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	events, cancel := e.Subscribe(32)
	defer cancel()

	// Inactive engine ignores commands
	if e.MoveBasket(ZoneLeft) {
		t.Error("MoveBasket should be a no-op while idle")
	}

	beginRun(e)

	if !e.MoveBasket(ZoneLeft) {
		t.Error("MoveBasket to a new zone should succeed")
	}
	ev := waitEvent(t, events, EventBasketMoved)
	var p BasketMovedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if p.Zone != ZoneLeft {
		t.Errorf("Expected zone left, got %s", p.Zone)
	}

	// Same zone is a no-op and emits nothing
	if e.MoveBasket(ZoneLeft) {
		t.Error("MoveBasket to the current zone should be a no-op")
	}
	expectNoEvent(t, events, EventBasketMoved)

	// Garbage zone is rejected
	if e.MoveBasket(Zone("up")) {
		t.Error("MoveBasket should reject unknown zones")
	}
}

// TestCountdownAdvancesClock verifies the 1 Hz play clock
func TestCountdownAdvancesClock(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	gen := beginRun(e)

	e.tickSecond(gen)
	if got := e.State().TimeRemaining; got != LevelTimeLimit-1 {
		t.Errorf("Expected %d remaining, got %d", LevelTimeLimit-1, got)
	}

	// A stale loop tick must not touch the clock
	e.tickSecond(gen - 1)
	if got := e.State().TimeRemaining; got != LevelTimeLimit-1 {
		t.Errorf("Stale tick changed the clock: got %d", got)
	}
}

// TestLevelEndingWaitsForAirborneItems verifies the expiry-with-items edge
func TestLevelEndingWaitsForAirborneItems(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	gen := beginRun(e)
	id := addItem(e, ZoneLeft, KindApple, 0.4)

	e.mu.Lock()
	e.timeRemaining = 1
	e.mu.Unlock()

	e.tickSecond(gen)
	state := e.State()
	if state.Phase != PhaseLevelEnding {
		t.Fatalf("Expected level_ending, got %s", state.Phase)
	}
	if state.Level != 1 {
		t.Errorf("Level must not advance while items are airborne, got %d", state.Level)
	}

	// Clock stays frozen while the item is up
	e.tickSecond(gen)
	e.tickSecond(gen)
	if got := e.State().Phase; got != PhaseLevelEnding {
		t.Errorf("Phase drifted to %s while waiting", got)
	}

	// Removing the last item starts the pause
	e.removeItem(id, gen)
	state = e.State()
	if state.Phase != PhaseLevelUp {
		t.Fatalf("Expected level_up_pause after board cleared, got %s", state.Phase)
	}
	if state.Level != 2 {
		t.Errorf("Expected level 2, got %d", state.Level)
	}
	if state.TimeRemaining != LevelTimeLimit {
		t.Errorf("Clock should reload to %d, got %d", LevelTimeLimit, state.TimeRemaining)
	}
	if state.LevelUpCountdown != LevelUpPause {
		t.Errorf("Expected pause countdown %d, got %d", LevelUpPause, state.LevelUpCountdown)
	}
}

// TestLevelUpImmediateOnEmptyBoard verifies expiry with nothing airborne
func TestLevelUpImmediateOnEmptyBoard(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	events, cancel := e.Subscribe(32)
	defer cancel()
	gen := beginRun(e)

	e.mu.Lock()
	e.timeRemaining = 1
	e.mu.Unlock()

	e.tickSecond(gen)
	if got := e.State().Phase; got != PhaseLevelUp {
		t.Fatalf("Expected level_up_pause right away, got %s", got)
	}

	// Pause counts 3..2..1, then play resumes and the new level is announced
	e.tickSecond(gen)
	e.tickSecond(gen)
	if got := e.State().Phase; got != PhaseLevelUp {
		t.Fatalf("Pause ended early, phase %s", got)
	}
	e.tickSecond(gen)

	state := e.State()
	if state.Phase != PhaseRunning {
		t.Fatalf("Expected running after pause, got %s", state.Phase)
	}
	if state.Level != 2 {
		t.Errorf("Expected level 2, got %d", state.Level)
	}

	ev := waitEvent(t, events, EventLevelChanged)
	var p LevelChangedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if p.Level != 2 {
		t.Errorf("Notification should carry level 2, got %d", p.Level)
	}
	if p.DropTime != DropTime(2) {
		t.Errorf("Notification should carry the new drop time, got %f", p.DropTime)
	}
}

// TestRestartAfterGameOver verifies a finished engine can run again
func TestRestartAfterGameOver(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	gen := beginRun(e)
	addItem(e, ZoneCenter, KindBomb, CatchLine)

	// One big step drives the bomb into the basket
	e.stepItems(gen, 0.05)
	if e.Active() {
		t.Fatal("Catching a bomb should end the run")
	}

	if !e.Start() {
		t.Fatal("Engine should accept a new run after game over")
	}
	defer e.Stop()

	state := e.State()
	if !state.Active || state.Score != 0 || state.AirborneItemCount != 0 {
		t.Errorf("Fresh run not clean: %+v", state)
	}
}

// TestConcurrentAccess exercises commands and reads against live loops
func TestConcurrentAccess(t *testing.T) {
	e := NewEngine(Config{TickRate: 120, Seed: 1})
	e.Start()
	defer e.Stop()

	done := make(chan bool)
	zonesToTry := []Zone{ZoneLeft, ZoneCenter, ZoneRight}

	for i := 0; i < 8; i++ {
		go func(n int) {
			for j := 0; j < 200; j++ {
				e.MoveBasket(zonesToTry[(n+j)%3])
				e.State()
				e.Snapshot()
				e.Stats()
			}
			done <- true
		}(i)
	}

	for i := 0; i < 8; i++ {
		<-done
	}
}
