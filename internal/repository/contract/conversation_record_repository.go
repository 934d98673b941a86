package contract

import (
	"context"
	"time"

	"ai-talkcoach-be/internal/entity"
)

// SessionSummary is a listing row for the admin conversation viewer.
type SessionSummary struct {
	SessionId string
	TurnCount int
	UpdatedAt time.Time
}

type ConversationRecordRepository interface {
	// Upsert replaces the session's full turn snapshot.
	Upsert(ctx context.Context, sessionId string, turns []entity.Turn) error
	FindBySessionId(ctx context.Context, sessionId string) ([]entity.Turn, error)
	ListSessions(ctx context.Context, limit, offset int) ([]SessionSummary, error)
	Count(ctx context.Context) (int64, error)
}
