package game

import "time"

// spawnLoop schedules spawns on a timer whose delay is re-drawn after every
// firing, so the cadence tracks the level's drop time as the run speeds up.
// A delay drawn during the level-up pause already sees the incremented
// level, which puts the first spawn after resume on the new rhythm.
func (e *Engine) spawnLoop(stop <-chan struct{}, gen uint64) {
	timer := time.NewTimer(e.nextSpawnInterval())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			e.trySpawn(gen)
			timer.Reset(e.nextSpawnInterval())
		case <-stop:
			return
		}
	}
}

// nextSpawnInterval draws the delay before the next spawn attempt.
func (e *Engine) nextSpawnInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drawSpawnIntervalLocked()
}

// drawSpawnIntervalLocked picks uniformly from the spawn band scaled by the
// current drop time, so airborne density stays level as fall speed rises.
// Caller holds mu.
func (e *Engine) drawSpawnIntervalLocked() time.Duration {
	factor := SpawnFactorMin + e.rng.Float64()*(SpawnFactorMax-SpawnFactorMin)
	seconds := factor * DropTime(e.level)
	return time.Duration(seconds * float64(time.Second))
}

// trySpawn creates one item if the run is active and in a spawning phase.
// The spawner itself never caps airborne items; density is controlled
// entirely by the interval-to-drop-time ratio.
func (e *Engine) trySpawn(gen uint64) (Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active || gen != e.generation || e.phase != PhaseRunning {
		return Item{}, false
	}
	return e.spawnItemLocked(), true
}

// spawnItemLocked appends a fresh item: uniform zone, biased kind, fall
// duration fixed at creation from the current level. Caller holds mu.
func (e *Engine) spawnItemLocked() Item {
	e.nextItemID++
	item := Item{
		ID:           e.nextItemID,
		Zone:         zones[e.rng.Intn(len(zones))],
		Kind:         e.rollKindLocked(),
		Progress:     0,
		FallDuration: DropTime(e.level),
	}
	e.items = append(e.items, item)
	e.stats.ItemsSpawned++
	if e.spawnObserver != nil {
		e.spawnObserver(item.Kind)
	}
	return item
}

// rollKindLocked picks a hazard BombChance of the time, otherwise one of
// the fruit kinds with equal probability. Caller holds mu.
func (e *Engine) rollKindLocked() Kind {
	if e.rng.Float64() < BombChance {
		return KindBomb
	}
	return fruitKinds[e.rng.Intn(len(fruitKinds))]
}
