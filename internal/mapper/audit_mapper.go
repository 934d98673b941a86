package mapper

import (
	"encoding/json"

	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditMapper converts between audit entities and their persisted models.
type AuditMapper struct{}

func NewAuditMapper() *AuditMapper {
	return &AuditMapper{}
}

func (m *AuditMapper) TurnsToJSON(turns []entity.Turn) (datatypes.JSON, error) {
	raw, err := json.Marshal(turns)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func (m *AuditMapper) TurnsFromJSON(raw datatypes.JSON) ([]entity.Turn, error) {
	var turns []entity.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (m *AuditMapper) FeedbackToModel(sessionId string, e entity.FeedbackEntry) *model.FeedbackRecord {
	return &model.FeedbackRecord{
		Id:                   uuid.New(),
		SessionId:            sessionId,
		TurnId:               e.TurnId,
		Verdict:              e.Verdict,
		JudgedMessageExcerpt: e.JudgedMessageExcerpt,
		JudgedAt:             e.Timestamp,
	}
}

func (m *AuditMapper) FeedbackToEntity(r *model.FeedbackRecord) entity.FeedbackEntry {
	return entity.FeedbackEntry{
		TurnId:               r.TurnId,
		Verdict:              r.Verdict,
		JudgedMessageExcerpt: r.JudgedMessageExcerpt,
		Timestamp:            r.JudgedAt,
	}
}
