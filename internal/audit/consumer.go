// FILE: internal/audit/consumer.go
package audit

import (
	"context"
	"encoding/json"
	"log"

	"ai-talkcoach-be/internal/dto"
	"ai-talkcoach-be/internal/repository/contract"
	"ai-talkcoach-be/pkg/events"
	"ai-talkcoach-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumer interface {
	Consume(ctx context.Context) error
}

// consumer drains the audit topic sequentially. A single goroutine applies
// writes, which keeps per-session mutation order intact without locking.
type consumer struct {
	pubSub        *gochannel.GoChannel
	topicName     string
	conversations contract.ConversationRecordRepository
	feedback      contract.FeedbackRecordRepository
	busPublisher  *nats.Publisher
}

func NewConsumer(
	pubSub *gochannel.GoChannel,
	topicName string,
	conversations contract.ConversationRecordRepository,
	feedback contract.FeedbackRecordRepository,
	busPublisher *nats.Publisher,
) IConsumer {
	return &consumer{
		pubSub:        pubSub,
		topicName:     topicName,
		conversations: conversations,
		feedback:      feedback,
		busPublisher:  busPublisher,
	}
}

func (c *consumer) Consume(ctx context.Context) error {
	messages, err := c.pubSub.Subscribe(ctx, c.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (c *consumer) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishAuditMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal audit envelope: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	switch payload.Kind {
	case dto.AuditKindConversationSnapshot:
		if err := c.conversations.Upsert(ctx, payload.SessionId, payload.Turns); err != nil {
			// Best-effort: losing one snapshot is recoverable, the next
			// mutation carries the full state again.
			log.Printf("[ERROR] Failed to upsert conversation %s: %v", payload.SessionId, err)
			msg.Ack()
			return
		}
		if payload.Final {
			c.mirror(ctx, events.NewSessionEnded(payload.SessionId, len(payload.Turns)))
		}

	case dto.AuditKindFeedbackRecorded:
		if payload.Feedback == nil {
			log.Printf("[ERROR] Feedback envelope for session %s has no entry", payload.SessionId)
			msg.Ack()
			return
		}
		if err := c.feedback.Append(ctx, payload.SessionId, *payload.Feedback); err != nil {
			log.Printf("[ERROR] Failed to append feedback for session %s: %v", payload.SessionId, err)
			msg.Ack()
			return
		}
		c.mirror(ctx, events.NewFeedbackRecorded(payload.SessionId, payload.Feedback.TurnId, payload.Feedback.Verdict))

	default:
		log.Printf("[WARN] Unknown audit kind %q, skipping", payload.Kind)
	}

	msg.Ack()
}

func (c *consumer) mirror(ctx context.Context, event events.Event) {
	if c.busPublisher == nil {
		return
	}
	if err := c.busPublisher.Publish(ctx, event); err != nil {
		log.Printf("[WARN] Failed to mirror %s to NATS: %v", event.EventType(), err)
	}
}
