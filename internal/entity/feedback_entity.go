package entity

import (
	"time"
)

// FeedbackEntry records a user judgment on one assistant turn. TurnId is a
// non-owning back-reference: the judged turn may already have been rolled
// back, so the excerpt keeps a copy of the content at judgment time.
type FeedbackEntry struct {
	TurnId               string    `json:"turnId"`
	Verdict              string    `json:"verdict"`
	JudgedMessageExcerpt string    `json:"judgedMessageExcerpt"`
	Timestamp            time.Time `json:"timestamp"`
}
