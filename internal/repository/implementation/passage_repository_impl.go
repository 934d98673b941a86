package implementation

import (
	"context"

	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/mapper"
	"ai-talkcoach-be/internal/model"
	"ai-talkcoach-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type PassageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PassageMapper
}

func NewPassageRepository(db *gorm.DB) contract.PassageRepository {
	return &PassageRepositoryImpl{
		db:     db,
		mapper: mapper.NewPassageMapper(),
	}
}

func (r *PassageRepositoryImpl) CreateBulk(ctx context.Context, passages []*entity.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	models := make([]*model.Passage, len(passages))
	for i, p := range passages {
		models[i] = r.mapper.ToModel(p)
	}
	return r.db.WithContext(ctx).Create(models).Error
}

func (r *PassageRepositoryImpl) DeleteBySource(ctx context.Context, source string) error {
	return r.db.WithContext(ctx).Where("source = ?", source).Delete(&model.Passage{}).Error
}

func (r *PassageRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*entity.Passage, error) {
	if limit <= 0 {
		limit = 5
	}
	var models []*model.Passage

	// pgvector cosine distance: embedding <=> vector
	err := r.db.WithContext(ctx).
		Order(gorm.Expr("embedding <=> ?", pgvector.NewVector(embedding))).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entities := make([]*entity.Passage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *PassageRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Passage{}).Count(&count).Error
	return count, err
}
