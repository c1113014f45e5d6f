package game

import (
	"fmt"
	"time"
)

// updateLoop runs the physics step at the configured tick rate.
func (e *Engine) updateLoop(stop <-chan struct{}, gen uint64) {
	ticker := time.NewTicker(time.Second / time.Duration(e.tickRate))
	defer ticker.Stop()

	dt := 1.0 / float64(e.tickRate)
	for {
		select {
		case <-ticker.C:
			started := time.Now()
			e.stepItems(gen, dt)
			if e.tickObserver != nil {
				e.tickObserver(time.Since(started))
			}
		case <-stop:
			return
		}
	}
}

// stepItems advances every uncaught item by dt seconds and resolves the
// ones that reach the catch line. Physics keeps running through
// LEVEL_ENDING so leftovers land, but freezes during the level-up pause.
func (e *Engine) stepItems(gen uint64, dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || gen != e.generation || e.phase == PhaseLevelUp {
		return
	}

	e.stats.TickCount++

	for i := range e.items {
		it := &e.items[i]
		if it.Caught {
			continue
		}

		it.Progress += dt / it.FallDuration
		if it.Progress < CatchLine {
			continue
		}

		// Resolution happens at the catch line, before the visual bottom,
		// so the outcome never depends on animation timing.
		it.Progress = CatchLine
		it.Caught = true

		if e.resolveItemLocked(*it) {
			// Run just ended. Remaining items stay frozen in place.
			return
		}
		e.scheduleRemovalLocked(it.ID)
	}
}

// resolveItemLocked applies the catch or miss outcome for an item that just
// reached the basket row. Returns true when the run ended. Caller holds mu.
func (e *Engine) resolveItemLocked(it Item) bool {
	if it.Zone == e.basketZone {
		return e.catchLocked(it)
	}
	// Bombs drifting past the basket are harmless.
	if it.Kind.Hazard() {
		return false
	}
	return e.missLocked(it)
}

// catchLocked handles an item landing in the basket. Caller holds mu.
func (e *Engine) catchLocked(it Item) bool {
	if it.Kind.Hazard() {
		e.finishLocked(EndReasonHazard)
		return true
	}

	info := GetKind(it.Kind)
	e.score += info.Points
	e.stats.ItemsCaught++

	e.publishLocked(EventScoreChanged, ScoreChangedPayload{
		Score:  e.score,
		Gained: info.Points,
		Kind:   it.Kind,
		Zone:   it.Zone,
	})
	e.publishLocked(EventFeedback, FeedbackPayload{
		Kind:    FeedbackSuccess,
		Message: fmt.Sprintf("%s +%d %s!", info.Emoji, info.Points, info.Name),
		Zone:    it.Zone,
	})
	return false
}

// missLocked handles a fruit hitting the ground outside the basket.
// Caller holds mu.
func (e *Engine) missLocked(it Item) bool {
	e.missCount++
	e.stats.ItemsMissed++

	e.publishLocked(EventMissChanged, MissChangedPayload{
		MissCount: e.missCount,
		Remaining: MaxMisses - e.missCount,
		Kind:      it.Kind,
		Zone:      it.Zone,
	})

	if e.missCount == 1 {
		e.publishLocked(EventFeedback, FeedbackPayload{
			Kind:    FeedbackWarning,
			Message: fmt.Sprintf("Dropped a %s! One more and it's over.", GetKind(it.Kind).Name),
			Zone:    it.Zone,
		})
	}

	if e.missCount >= MaxMisses {
		e.finishLocked(EndReasonMissLimit)
		return true
	}
	return false
}

// scheduleRemovalLocked arms the grace-delay removal for a resolved item.
// The callback revalidates run identity before touching anything, so a stop
// or restart between scheduling and firing turns it into a no-op.
// Caller holds mu.
func (e *Engine) scheduleRemovalLocked(id uint64) {
	gen := e.generation
	time.AfterFunc(GraceDelay, func() {
		e.removeItem(id, gen)
	})
}

// removeItem drops a resolved item once its grace delay has played out. If
// that empties the board during LEVEL_ENDING, the level-up pause begins.
func (e *Engine) removeItem(id uint64, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || gen != e.generation {
		return
	}

	idx := -1
	for i := range e.items {
		if e.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	e.items = append(e.items[:idx], e.items[idx+1:]...)

	if len(e.items) == 0 && e.phase == PhaseLevelEnding {
		e.enterLevelUpLocked()
	}
}
