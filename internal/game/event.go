package game

import (
	"encoding/json"
	"time"
)

// EventType names a state-change notification. The values double as the
// "event" field on the wire, so renderers switch on them directly.
type EventType string

const (
	EventScoreChanged EventType = "score_changed"
	EventMissChanged  EventType = "miss_changed"
	EventLevelChanged EventType = "level_changed"
	EventBasketMoved  EventType = "basket_moved"
	EventGameEnded    EventType = "game_ended"
	EventFeedback     EventType = "feedback"
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// EndReason tags why a run finished.
type EndReason string

const (
	EndReasonStopped   EndReason = "stopped"    // operator called stop
	EndReasonHazard    EndReason = "hazard"     // basket caught a bomb
	EndReasonMissLimit EndReason = "miss_limit" // too many fruit hit the ground
)

// FeedbackKind separates celebratory toasts from warnings.
type FeedbackKind string

const (
	FeedbackSuccess FeedbackKind = "success"
	FeedbackWarning FeedbackKind = "warning"
)

// Event is one notification as it flows to subscribers and the event log.
// Payload holds the type-specific body already encoded, so fan-out and
// persistence never re-marshal.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic per process
	Payload   json.RawMessage `json:"payload"`
}

// Typed payloads for each event type

// ScoreChangedPayload reports a successful catch.
type ScoreChangedPayload struct {
	Score  int  `json:"score"`  // new total
	Gained int  `json:"gained"` // points from this catch
	Kind   Kind `json:"kind"`
	Zone   Zone `json:"zone"`
}

// MissChangedPayload reports a fruit reaching the ground unclaimed.
type MissChangedPayload struct {
	MissCount int  `json:"missCount"`
	Remaining int  `json:"remaining"` // misses left before the run ends
	Kind      Kind `json:"kind"`
	Zone      Zone `json:"zone"`
}

// LevelChangedPayload reports play resuming at a new level.
type LevelChangedPayload struct {
	Level    int     `json:"level"`
	DropTime float64 `json:"dropTime"` // seconds top-to-ground at this level
}

// BasketMovedPayload reports the basket arriving in a zone.
type BasketMovedPayload struct {
	Zone Zone `json:"zone"`
}

// GameEndedPayload carries the terminal result of a run.
type GameEndedPayload struct {
	Score   int       `json:"score"`
	Level   int       `json:"level"`
	Reason  EndReason `json:"reason"`
	Message string    `json:"message"`
}

// FeedbackPayload is a transient user-facing toast.
type FeedbackPayload struct {
	Kind    FeedbackKind `json:"kind"`
	Message string       `json:"message"`
	Zone    Zone         `json:"zone,omitempty"` // where it happened, if anywhere
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates an event with the current timestamp.
func NewEvent(eventType EventType, sequence uint64, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Sequence:  sequence,
		Payload:   EncodePayload(payload),
	}
}
