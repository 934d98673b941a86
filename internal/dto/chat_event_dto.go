package dto

import "encoding/json"

// Inbound event names accepted over the chat socket.
const (
	EventMessage  = "message"
	EventFeedback = "feedback"
)

// Outbound event names.
const (
	EventGreeting           = "greeting"
	EventChatResponse       = "chat_response"
	EventRegenerateResponse = "regenerate_response"
	EventRetrieving         = "retrieving"
	EventThinking           = "thinking"
	EventBusy               = "busy"
	EventNotice             = "notice"
)

// InboundEvent is the envelope for every client frame. Data is decoded
// separately once the event name is known.
type InboundEvent struct {
	Event string          `json:"event" validate:"required,oneof=message feedback"`
	Data  json.RawMessage `json:"data" validate:"required"`
}

type MessagePayload struct {
	Content string `json:"content" validate:"required"`
}

type FeedbackPayload struct {
	TurnId  string `json:"turnId" validate:"required"`
	Verdict string `json:"verdict" validate:"required,oneof=good neutral bad"`
}

// OutboundEvent mirrors the inbound envelope for server frames.
type OutboundEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type GreetingData struct {
	Content string `json:"content"`
}

type ChatResponseData struct {
	TurnId  string `json:"turnId"`
	Content string `json:"content"`
}

type RegenerateResponseData struct {
	OldTurnId   string           `json:"oldTurnId"`
	NewResponse ChatResponseData `json:"newResponse"`
}

type BusyData struct {
	Reason string `json:"reason"`
}

type NoticeData struct {
	Content string `json:"content"`
}
