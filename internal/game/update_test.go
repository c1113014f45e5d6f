package game

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

// TestPhysicsAdvancesProgress verifies progress moves by dt over duration
func TestPhysicsAdvancesProgress(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	gen := beginRun(e)
	addItem(e, ZoneLeft, KindApple, 0) // fall duration 2.0s at level 1

	e.stepItems(gen, 0.5)

	got := e.Snapshot().Items[0].Progress
	if math.Abs(got-0.25) > 1e-9 {
		t.Errorf("Progress = %f after 0.5s of a 2s fall, want 0.25", got)
	}
}

// TestCatchFruitScores verifies the catch outcome end to end
func TestCatchFruitScores(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	events, cancel := e.Subscribe(32)
	defer cancel()
	gen := beginRun(e)

	addItem(e, ZoneCenter, KindPear, 0.84) // basket starts center
	e.stepItems(gen, 0.05)

	state := e.State()
	if state.Score != 150 {
		t.Errorf("Expected score 150 after catching a pear, got %d", state.Score)
	}
	if !state.Active {
		t.Error("Catching fruit must not end the run")
	}

	item := e.Snapshot().Items[0]
	if !item.Caught {
		t.Error("Item should be marked caught")
	}
	if math.Abs(item.Progress-CatchLine) > 1e-9 {
		t.Errorf("Caught item should clamp to the catch line, got %f", item.Progress)
	}

	ev := waitEvent(t, events, EventScoreChanged)
	var sp ScoreChangedPayload
	if err := json.Unmarshal(ev.Payload, &sp); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if sp.Score != 150 || sp.Gained != 150 || sp.Kind != KindPear || sp.Zone != ZoneCenter {
		t.Errorf("Unexpected score payload: %+v", sp)
	}

	fb := waitEvent(t, events, EventFeedback)
	var fp FeedbackPayload
	if err := json.Unmarshal(fb.Payload, &fp); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if fp.Kind != FeedbackSuccess {
		t.Errorf("Expected success feedback, got %s", fp.Kind)
	}
	if fp.Zone != ZoneCenter {
		t.Errorf("Feedback should carry the catch zone, got %s", fp.Zone)
	}

	if got := e.Stats().ItemsCaught; got != 1 {
		t.Errorf("Expected 1 caught in stats, got %d", got)
	}
}

// TestCatchBombEndsRun verifies the hazard outcome
func TestCatchBombEndsRun(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	events, cancel := e.Subscribe(32)
	defer cancel()
	gen := beginRun(e)

	e.mu.Lock()
	e.score = 300
	e.mu.Unlock()

	addItem(e, ZoneCenter, KindBomb, 0.84)
	e.stepItems(gen, 0.05)

	if e.Active() {
		t.Fatal("Catching a bomb must end the run")
	}

	ev := waitEvent(t, events, EventGameEnded)
	var p GameEndedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if p.Reason != EndReasonHazard {
		t.Errorf("Expected reason %s, got %s", EndReasonHazard, p.Reason)
	}
	if p.Score != 300 {
		t.Errorf("Final score should survive into the payload, got %d", p.Score)
	}

	// The board is left as-is for the terminal frame
	if got := len(e.Snapshot().Items); got != 1 {
		t.Errorf("Items should freeze on game over, got %d", got)
	}
}

// TestMissedFruitCountsAndWarns verifies the first miss outcome
func TestMissedFruitCountsAndWarns(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	events, cancel := e.Subscribe(32)
	defer cancel()
	gen := beginRun(e)

	addItem(e, ZoneLeft, KindApple, 0.84) // basket center, so this drops
	e.stepItems(gen, 0.05)

	state := e.State()
	if state.MissCount != 1 {
		t.Fatalf("Expected 1 miss, got %d", state.MissCount)
	}
	if !state.Active {
		t.Error("First miss must not end the run")
	}
	if state.Score != 0 {
		t.Errorf("Misses must not score, got %d", state.Score)
	}

	ev := waitEvent(t, events, EventMissChanged)
	var mp MissChangedPayload
	if err := json.Unmarshal(ev.Payload, &mp); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if mp.MissCount != 1 || mp.Remaining != MaxMisses-1 {
		t.Errorf("Unexpected miss payload: %+v", mp)
	}

	fb := waitEvent(t, events, EventFeedback)
	var fp FeedbackPayload
	if err := json.Unmarshal(fb.Payload, &fp); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if fp.Kind != FeedbackWarning {
		t.Errorf("First miss should warn, got %s", fp.Kind)
	}
}

// TestMissLimitEndsRun verifies the run dies on the second miss
func TestMissLimitEndsRun(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	events, cancel := e.Subscribe(32)
	defer cancel()
	gen := beginRun(e)

	addItem(e, ZoneLeft, KindApple, 0.84)
	e.stepItems(gen, 0.05)
	addItem(e, ZoneRight, KindOrange, 0.84)
	e.stepItems(gen, 0.05)

	if e.Active() {
		t.Fatal("Second miss must end the run")
	}

	ev := waitEvent(t, events, EventGameEnded)
	var p GameEndedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if p.Reason != EndReasonMissLimit {
		t.Errorf("Expected reason %s, got %s", EndReasonMissLimit, p.Reason)
	}

	if got := e.Stats().ItemsMissed; got != 2 {
		t.Errorf("Expected 2 missed in stats, got %d", got)
	}
}

// TestBombPassingByIsHarmless verifies bombs outside the basket zone are
// ignored rather than counted as misses
func TestBombPassingByIsHarmless(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	events, cancel := e.Subscribe(32)
	defer cancel()
	gen := beginRun(e)

	addItem(e, ZoneRight, KindBomb, 0.84) // basket center
	e.stepItems(gen, 0.05)

	state := e.State()
	if !state.Active {
		t.Fatal("A bomb falling past should not end the run")
	}
	if state.MissCount != 0 {
		t.Errorf("A bomb falling past should not count as a miss, got %d", state.MissCount)
	}
	expectNoEvent(t, events, EventMissChanged)

	// It still resolves and leaves the board after the grace delay
	if !e.Snapshot().Items[0].Caught {
		t.Error("The bomb should still resolve at the catch line")
	}
}

// TestPhysicsFrozenDuringPause verifies the level-up pause halts falling
func TestPhysicsFrozenDuringPause(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	gen := beginRun(e)
	addItem(e, ZoneLeft, KindApple, 0.3)

	e.mu.Lock()
	e.phase = PhaseLevelUp
	e.mu.Unlock()

	e.stepItems(gen, 1.0)

	if got := e.Snapshot().Items[0].Progress; math.Abs(got-0.3) > 1e-9 {
		t.Errorf("Progress moved to %f during the pause", got)
	}
}

// TestCaughtItemsDoNotAdvance verifies resolved items stay pinned
func TestCaughtItemsDoNotAdvance(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	gen := beginRun(e)
	id := addItem(e, ZoneCenter, KindApple, CatchLine)

	e.mu.Lock()
	e.items[0].Caught = true
	e.mu.Unlock()

	e.stepItems(gen, 1.0)

	item := e.Snapshot().Items[0]
	if item.ID != id || math.Abs(item.Progress-CatchLine) > 1e-9 {
		t.Errorf("Caught item moved: %+v", item)
	}
}

// TestRemovalKeepsOtherItems verifies removal is by id, not position
func TestRemovalKeepsOtherItems(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	gen := beginRun(e)
	first := addItem(e, ZoneLeft, KindApple, 0.1)
	victim := addItem(e, ZoneCenter, KindPear, 0.2)
	last := addItem(e, ZoneRight, KindOrange, 0.3)

	e.removeItem(victim, gen)

	items := e.Snapshot().Items
	if len(items) != 2 {
		t.Fatalf("Expected 2 items left, got %d", len(items))
	}
	if items[0].ID != first || items[1].ID != last {
		t.Errorf("Wrong survivors: %d and %d", items[0].ID, items[1].ID)
	}

	// Removing an id that is already gone is harmless
	e.removeItem(victim, gen)
	if got := len(e.Snapshot().Items); got != 2 {
		t.Errorf("Double removal changed the board: %d items", got)
	}
}

// TestRemovalDuringPlayDoesNotLevelUp verifies an empty board alone is not
// a level transition
func TestRemovalDuringPlayDoesNotLevelUp(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	gen := beginRun(e)
	id := addItem(e, ZoneLeft, KindApple, 0.5)

	e.removeItem(id, gen)

	state := e.State()
	if state.Phase != PhaseRunning || state.Level != 1 {
		t.Errorf("Emptying the board mid-play moved the machine: %+v", state)
	}
}

// TestGraceRemovalAfterStopIsNoOp verifies a pending removal cannot touch a
// stopped engine
func TestGraceRemovalAfterStopIsNoOp(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	gen := beginRun(e)

	addItem(e, ZoneCenter, KindApple, 0.84)
	e.stepItems(gen, 0.05) // catch arms the 300ms removal
	e.Stop()

	time.Sleep(GraceDelay + 150*time.Millisecond)

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.items) != 1 {
		t.Errorf("Stale removal mutated a stopped engine: %d items", len(e.items))
	}
}

// TestStaleRemovalIgnoresNewRun verifies a removal armed in one run cannot
// delete items belonging to the next
func TestStaleRemovalIgnoresNewRun(t *testing.T) {
	e := NewEngine(Config{Seed: 1})
	oldGen := beginRun(e)
	addItem(e, ZoneCenter, KindApple, 0.5)

	// The run turns over before the grace delay fires
	newGen := beginRun(e)
	id := addItem(e, ZoneLeft, KindPear, 0.1)

	e.removeItem(id, oldGen)
	if got := len(e.Snapshot().Items); got != 1 {
		t.Fatalf("Removal from a previous run deleted a live item: %d items", got)
	}

	e.removeItem(id, newGen)
	if got := len(e.Snapshot().Items); got != 0 {
		t.Errorf("Current-run removal failed: %d items", got)
	}
}
