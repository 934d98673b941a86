package dto

import "ai-talkcoach-be/internal/entity"

// Audit message kinds carried on the internal queue.
const (
	AuditKindConversationSnapshot = "conversation_snapshot"
	AuditKindFeedbackRecorded     = "feedback_recorded"
)

// PublishAuditMessage is the envelope queued for every session mutation.
// Snapshots carry the full turn list so the consumer can upsert without
// reconstructing state; feedback entries are append-only.
type PublishAuditMessage struct {
	Kind      string                `json:"kind"`
	SessionId string                `json:"session_id"`
	Final     bool                  `json:"final,omitempty"`
	Turns     []entity.Turn         `json:"turns,omitempty"`
	Feedback  *entity.FeedbackEntry `json:"feedback,omitempty"`
}

// PublishIngestPassagesMessage asks the ingest worker to (re)index a document.
type PublishIngestPassagesMessage struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}
