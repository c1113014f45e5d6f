package game

import (
	"testing"
	"time"
)

// TestFeedDeliversToSubscribers verifies basic fan-out
func TestFeedDeliversToSubscribers(t *testing.T) {
	f := newFeed()
	a, cancelA := f.Subscribe(8)
	b, cancelB := f.Subscribe(8)
	defer cancelA()
	defer cancelB()

	ev := NewEvent(EventBasketMoved, 1, BasketMovedPayload{Zone: ZoneLeft})
	f.publish(ev)

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.Type != EventBasketMoved {
				t.Errorf("Subscriber %s got %s, want %s", name, got.Type, EventBasketMoved)
			}
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %s received nothing", name)
		}
	}
}

// TestFeedDropsWhenSubscriberIsFull verifies publish never blocks
func TestFeedDropsWhenSubscriberIsFull(t *testing.T) {
	f := newFeed()
	ch, cancel := f.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			f.publish(NewEvent(EventScoreChanged, uint64(i), nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	// Exactly one event fit the buffer, the rest were dropped
	if got := len(ch); got != 1 {
		t.Errorf("Expected 1 buffered event, got %d", got)
	}
	if got := f.DroppedCount(); got != 4 {
		t.Errorf("Expected 4 drops, got %d", got)
	}
}

// TestFeedCancelIsIdempotent verifies double cancel is safe
func TestFeedCancelIsIdempotent(t *testing.T) {
	f := newFeed()
	ch, cancel := f.Subscribe(1)

	cancel()
	cancel() // must not panic or double-close

	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after cancel")
	}
	if got := f.SubscriberCount(); got != 0 {
		t.Errorf("Expected 0 subscribers, got %d", got)
	}

	// Publishing with nobody listening is fine
	f.publish(NewEvent(EventFeedback, 1, nil))
}

// TestFeedSubscriberCount verifies registration bookkeeping
func TestFeedSubscriberCount(t *testing.T) {
	f := newFeed()

	_, cancelA := f.Subscribe(1)
	_, cancelB := f.Subscribe(1)
	if got := f.SubscriberCount(); got != 2 {
		t.Errorf("Expected 2 subscribers, got %d", got)
	}

	cancelA()
	if got := f.SubscriberCount(); got != 1 {
		t.Errorf("Expected 1 subscriber, got %d", got)
	}
	cancelB()
	if got := f.SubscriberCount(); got != 0 {
		t.Errorf("Expected 0 subscribers, got %d", got)
	}
}
