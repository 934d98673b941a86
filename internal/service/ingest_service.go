// FILE: internal/service/ingest_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-talkcoach-be/internal/dto"
	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/pkg/logger"
	"ai-talkcoach-be/internal/repository/contract"
	"ai-talkcoach-be/pkg/embedding"
	"ai-talkcoach-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IIngestService queues documents for asynchronous chunking and embedding.
type IIngestService interface {
	Publish(ctx context.Context, source, content string) error
}

type ingestService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	logger    logger.ILogger
}

func NewIngestService(pubSub *gochannel.GoChannel, topicName string, log logger.ILogger) IIngestService {
	return &ingestService{pubSub: pubSub, topicName: topicName, logger: log}
}

func (s *ingestService) Publish(ctx context.Context, source, content string) error {
	payload, err := json.Marshal(dto.PublishIngestPassagesMessage{
		Source:  source,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal ingest message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		return fmt.Errorf("failed to queue ingest for %s: %w", source, err)
	}

	s.logger.Info("Ingest", "Document queued", map[string]interface{}{
		"source": source,
		"length": len(content),
	})
	return nil
}

// IIngestConsumerService drains the ingest topic: split, embed, replace.
type IIngestConsumerService interface {
	Consume(ctx context.Context) error
}

type ingestConsumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	passages          contract.PassageRepository
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewIngestConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	passages contract.PassageRepository,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) IIngestConsumerService {
	return &ingestConsumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		passages:          passages,
		embeddingProvider: embeddingProvider,
		logger:            log,
	}
}

func (cs *ingestConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *ingestConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestPassagesMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Ingest", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("Ingest", "Processing document", map[string]interface{}{
		"source": payload.Source,
		"length": len(payload.Content),
	})

	// ChunkSize: 1500 chars (approx 375 tokens) - keeps chunks well inside
	// the embedding model's context window. Overlap: 200 chars.
	chunks := utils.SplitText(payload.Content, 1500, 200)

	newPassages := make([]*entity.Passage, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(ctx, chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			cs.logger.Error("Ingest", "Failed to embed chunk", map[string]interface{}{
				"source": payload.Source,
				"chunk":  i,
				"error":  err.Error(),
			})
			msg.Nack() // Nack for retriable errors
			return
		}

		newPassages = append(newPassages, &entity.Passage{
			Id:         uuid.New(),
			Source:     payload.Source,
			Content:    chunk,
			Embedding:  res.Embedding.Values,
			ChunkIndex: i,
			CreatedAt:  time.Now(),
		})
	}

	// Replace-by-source: re-ingesting a document never duplicates passages.
	if err := cs.passages.DeleteBySource(ctx, payload.Source); err != nil {
		cs.logger.Error("Ingest", "Failed to delete old passages", map[string]interface{}{
			"source": payload.Source,
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}

	if len(newPassages) > 0 {
		if err := cs.passages.CreateBulk(ctx, newPassages); err != nil {
			cs.logger.Error("Ingest", "Failed to store passages", map[string]interface{}{
				"source": payload.Source,
				"error":  err.Error(),
			})
			msg.Nack()
			return
		}
	}

	cs.logger.Info("Ingest", "Document indexed", map[string]interface{}{
		"source": payload.Source,
		"chunks": len(newPassages),
	})
	msg.Ack()
}
