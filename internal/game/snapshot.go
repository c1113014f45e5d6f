package game

// State is the read-only projection for UI polling. It carries values only,
// never references into engine internals.
type State struct {
	Active            bool  `json:"active"`
	Score             int   `json:"score"`
	Level             int   `json:"level"`
	MissCount         int   `json:"missCount"`
	BasketZone        Zone  `json:"basketZone"`
	AirborneItemCount int   `json:"airborneItemCount"`
	Phase             Phase `json:"phase"`
	TimeRemaining     int   `json:"timeRemaining"`
	LevelUpCountdown  int   `json:"levelUpCountdown"`
}

// Snapshot is a full render frame: the projection plus a copy of every
// falling item and the current fall speed.
type Snapshot struct {
	State
	DropTime float64 `json:"dropTime"` // seconds top-to-ground at this level
	Items    []Item  `json:"items"`
}

// State returns the polling projection.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	airborne := 0
	for i := range e.items {
		if !e.items[i].Caught {
			airborne++
		}
	}
	return State{
		Active:            e.active,
		Score:             e.score,
		Level:             e.level,
		MissCount:         e.missCount,
		BasketZone:        e.basketZone,
		AirborneItemCount: airborne,
		Phase:             e.phase,
		TimeRemaining:     e.timeRemaining,
		LevelUpCountdown:  e.levelUpCountdown,
	}
}

// Snapshot returns a full copy for rendering. At most a handful of items
// are ever airborne, so a plain copy beats the bookkeeping of a pool.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	items := make([]Item, len(e.items))
	copy(items, e.items)

	return Snapshot{
		State:    e.stateLocked(),
		DropTime: DropTime(e.level),
		Items:    items,
	}
}

// Stats are lifetime process counters. They survive across runs.
type Stats struct {
	RunsStarted   uint64 `json:"runsStarted"`
	RunsFinished  uint64 `json:"runsFinished"`
	ItemsSpawned  uint64 `json:"itemsSpawned"`
	ItemsCaught   uint64 `json:"itemsCaught"`
	ItemsMissed   uint64 `json:"itemsMissed"`
	HighScore     int    `json:"highScore"`
	TickCount     uint64 `json:"tickCount"`
	Subscribers   int    `json:"subscribers"`
	EventsDropped uint64 `json:"eventsDropped"`
}

// Stats returns lifetime counters plus live feed gauges.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	s := e.stats
	e.mu.RUnlock()

	s.Subscribers = e.feed.SubscriberCount()
	s.EventsDropped = e.feed.DroppedCount()
	return s
}
