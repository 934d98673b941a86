package implementation

import (
	"context"
	"encoding/json"
	"errors"

	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/mapper"
	"ai-talkcoach-be/internal/model"
	"ai-talkcoach-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRecordRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AuditMapper
}

func NewConversationRecordRepository(db *gorm.DB) contract.ConversationRecordRepository {
	return &ConversationRecordRepositoryImpl{
		db:     db,
		mapper: mapper.NewAuditMapper(),
	}
}

func (r *ConversationRecordRepositoryImpl) Upsert(ctx context.Context, sessionId string, turns []entity.Turn) error {
	raw, err := r.mapper.TurnsToJSON(turns)
	if err != nil {
		return err
	}
	record := &model.ConversationRecord{
		SessionId: sessionId,
		Turns:     raw,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"turns", "updated_at"}),
		}).
		Create(record).Error
}

func (r *ConversationRecordRepositoryImpl) FindBySessionId(ctx context.Context, sessionId string) ([]entity.Turn, error) {
	var m model.ConversationRecord
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.TurnsFromJSON(m.Turns)
}

func (r *ConversationRecordRepositoryImpl) ListSessions(ctx context.Context, limit, offset int) ([]contract.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []model.ConversationRecord
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]contract.SessionSummary, 0, len(models))
	for _, m := range models {
		var turns []json.RawMessage
		_ = json.Unmarshal(m.Turns, &turns)
		summaries = append(summaries, contract.SessionSummary{
			SessionId: m.SessionId,
			TurnCount: len(turns),
			UpdatedAt: m.UpdatedAt,
		})
	}
	return summaries, nil
}

func (r *ConversationRecordRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ConversationRecord{}).Count(&count).Error
	return count, err
}
