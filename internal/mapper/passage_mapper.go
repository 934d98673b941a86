package mapper

import (
	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type PassageMapper struct{}

func NewPassageMapper() *PassageMapper {
	return &PassageMapper{}
}

func (m *PassageMapper) ToModel(e *entity.Passage) *model.Passage {
	if e == nil {
		return nil
	}
	return &model.Passage{
		Id:         e.Id,
		Source:     e.Source,
		Content:    e.Content,
		Embedding:  pgvector.NewVector(e.Embedding),
		ChunkIndex: e.ChunkIndex,
		CreatedAt:  e.CreatedAt,
	}
}

func (m *PassageMapper) ToEntity(p *model.Passage) *entity.Passage {
	if p == nil {
		return nil
	}
	return &entity.Passage{
		Id:         p.Id,
		Source:     p.Source,
		Content:    p.Content,
		Embedding:  p.Embedding.Slice(),
		ChunkIndex: p.ChunkIndex,
		CreatedAt:  p.CreatedAt,
	}
}
