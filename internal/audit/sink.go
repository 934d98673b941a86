// FILE: internal/audit/sink.go
package audit

import (
	"encoding/json"

	"ai-talkcoach-be/internal/dto"
	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Sink receives session mutations for durable recording. Implementations
// must not block the caller: the conversation loop publishes and moves on.
type Sink interface {
	RecordSnapshot(sessionId string, turns []entity.Turn, final bool)
	RecordFeedback(sessionId string, entry entity.FeedbackEntry)
}

// QueueSink enqueues audit envelopes on an in-process pub/sub channel.
// Publish order on a single topic is preserved, so the consumer applies
// mutations for a session in the order they happened.
type QueueSink struct {
	pubSub *gochannel.GoChannel
	topic  string
	logger logger.ILogger
}

func NewQueueSink(pubSub *gochannel.GoChannel, topic string, log logger.ILogger) *QueueSink {
	return &QueueSink{pubSub: pubSub, topic: topic, logger: log}
}

func (s *QueueSink) RecordSnapshot(sessionId string, turns []entity.Turn, final bool) {
	s.publish(dto.PublishAuditMessage{
		Kind:      dto.AuditKindConversationSnapshot,
		SessionId: sessionId,
		Final:     final,
		Turns:     turns,
	})
}

func (s *QueueSink) RecordFeedback(sessionId string, entry entity.FeedbackEntry) {
	s.publish(dto.PublishAuditMessage{
		Kind:      dto.AuditKindFeedbackRecorded,
		SessionId: sessionId,
		Feedback:  &entry,
	})
}

func (s *QueueSink) publish(payload dto.PublishAuditMessage) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Audit", "Failed to marshal audit envelope", map[string]interface{}{
			"session_id": payload.SessionId,
			"kind":       payload.Kind,
			"error":      err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := s.pubSub.Publish(s.topic, msg); err != nil {
		// Audit is best-effort. A full queue must never stall the session.
		s.logger.Error("Audit", "Failed to enqueue audit envelope", map[string]interface{}{
			"session_id": payload.SessionId,
			"kind":       payload.Kind,
			"error":      err.Error(),
		})
	}
}
