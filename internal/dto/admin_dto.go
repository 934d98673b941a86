package dto

import (
	"time"

	"ai-talkcoach-be/internal/entity"
)

type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FeedbackSummaryResponse aggregates verdict counts across all sessions.
type FeedbackSummaryResponse struct {
	Good    int64 `json:"good"`
	Neutral int64 `json:"neutral"`
	Bad     int64 `json:"bad"`
	Total   int64 `json:"total"`
}

type SessionFeedbackResponse struct {
	SessionId string                 `json:"session_id"`
	Entries   []entity.FeedbackEntry `json:"entries"`
}

type ConversationListItem struct {
	SessionId string    `json:"session_id"`
	TurnCount int       `json:"turn_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConversationDetailResponse struct {
	SessionId string        `json:"session_id"`
	Turns     []entity.Turn `json:"turns"`
}

type KnowledgeStatsResponse struct {
	PassageCount   int64 `json:"passage_count"`
	ActiveSessions int   `json:"active_sessions"`
}

type BroadcastRequest struct {
	Message string `json:"message" validate:"required"`
}

type IngestRequest struct {
	Source  string `json:"source" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

// Type is a bump keyword (major, minor, patch) or an explicit semver.
type BumpVersionRequest struct {
	Type string `json:"type" validate:"required"`
}
