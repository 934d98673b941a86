package entity

import (
	"time"

	"github.com/google/uuid"
)

// Passage is one embedded chunk of knowledge-base content.
type Passage struct {
	Id         uuid.UUID
	Source     string
	Content    string
	Embedding  []float32
	ChunkIndex int
	CreatedAt  time.Time
}
