package contract

import (
	"context"

	"ai-talkcoach-be/internal/entity"
)

type FeedbackRecordRepository interface {
	Append(ctx context.Context, sessionId string, entry entity.FeedbackEntry) error
	FindBySessionId(ctx context.Context, sessionId string) ([]entity.FeedbackEntry, error)
	ListSessionIds(ctx context.Context) ([]string, error)
	CountByVerdict(ctx context.Context) (map[string]int64, error)
}
