package contract

import (
	"context"

	"ai-talkcoach-be/internal/entity"
)

type PassageRepository interface {
	CreateBulk(ctx context.Context, passages []*entity.Passage) error
	DeleteBySource(ctx context.Context, source string) error
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*entity.Passage, error)
	Count(ctx context.Context) (int64, error)
}
