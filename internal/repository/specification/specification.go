package specification

import (
	"gorm.io/gorm"
)

// Specification composes query predicates onto a gorm query.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByVerdict struct {
	Verdict string
}

func (s ByVerdict) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("verdict = ?", s.Verdict)
}

type BySource struct {
	Source string
}

func (s BySource) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source = ?", s.Source)
}

type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(s.Field + " " + direction)
}

type Limit struct {
	Count int
}

func (s Limit) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Count)
}
