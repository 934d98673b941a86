package implementation

import (
	"context"

	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/mapper"
	"ai-talkcoach-be/internal/model"
	"ai-talkcoach-be/internal/repository/contract"
	"ai-talkcoach-be/internal/repository/specification"

	"gorm.io/gorm"
)

type FeedbackRecordRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AuditMapper
}

func NewFeedbackRecordRepository(db *gorm.DB) contract.FeedbackRecordRepository {
	return &FeedbackRecordRepositoryImpl{
		db:     db,
		mapper: mapper.NewAuditMapper(),
	}
}

func (r *FeedbackRecordRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *FeedbackRecordRepositoryImpl) Append(ctx context.Context, sessionId string, entry entity.FeedbackEntry) error {
	m := r.mapper.FeedbackToModel(sessionId, entry)
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *FeedbackRecordRepositoryImpl) FindBySessionId(ctx context.Context, sessionId string) ([]entity.FeedbackEntry, error) {
	var models []*model.FeedbackRecord
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "judged_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]entity.FeedbackEntry, len(models))
	for i, m := range models {
		entries[i] = r.mapper.FeedbackToEntity(m)
	}
	return entries, nil
}

func (r *FeedbackRecordRepositoryImpl) ListSessionIds(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.FeedbackRecord{}).
		Distinct("session_id").
		Order("session_id").
		Pluck("session_id", &ids).Error
	return ids, err
}

func (r *FeedbackRecordRepositoryImpl) CountByVerdict(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Verdict string
		Total   int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.FeedbackRecord{}).
		Select("verdict, count(*) as total").
		Group("verdict").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Verdict] = r.Total
	}
	return counts, nil
}
