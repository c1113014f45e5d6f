package game

import "sync"

// Feed fans events out to in-process subscribers. Sends never block the
// engine: a consumer that falls behind loses events instead of stalling a
// physics tick. Anything that needs a complete picture should read the
// periodic snapshots, not reconstruct state from events.
type Feed struct {
	mu      sync.Mutex
	subs    map[uint64]chan Event
	nextSub uint64
	dropped uint64
}

func newFeed() *Feed {
	return &Feed{subs: make(map[uint64]chan Event)}
}

// Subscribe registers a listener with its own buffered channel. The
// returned cancel func unregisters and closes the channel; it is safe to
// call more than once.
func (f *Feed) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			close(ch)
			f.mu.Unlock()
		})
	}
	return ch, cancel
}

// publish delivers ev to every subscriber with buffer room.
func (f *Feed) publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			f.dropped++
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// DroppedCount returns how many sends were skipped on full buffers.
func (f *Feed) DroppedCount() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
