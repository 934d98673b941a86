package events

import "time"

// Event types emitted over the external bus.
const (
	TypeFeedbackRecorded = "FEEDBACK_RECORDED"
	TypeSessionEnded     = "SESSION_ENDED"
	TypePassagesIngested = "PASSAGES_INGESTED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "FEEDBACK_RECORDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewFeedbackRecorded builds the event mirrored to the bus when a learner
// judges an assistant turn.
func NewFeedbackRecorded(sessionId, turnId, verdict string) BaseEvent {
	return BaseEvent{
		Type: TypeFeedbackRecorded,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"turn_id":    turnId,
			"verdict":    verdict,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionEnded marks the final audit flush for a disconnected session.
func NewSessionEnded(sessionId string, turnCount int) BaseEvent {
	return BaseEvent{
		Type: TypeSessionEnded,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"turn_count": turnCount,
		},
		OccurredAt: time.Now(),
	}
}
