// FILE: internal/service/admin_service.go
package service

import (
	"context"
	"fmt"

	"ai-talkcoach-be/internal/constant"
	"ai-talkcoach-be/internal/dto"
	"ai-talkcoach-be/internal/pkg/logger"
	"ai-talkcoach-be/internal/repository/contract"
)

// Broadcaster is the hub surface the admin service needs: operator notices
// out, connected session count in.
type Broadcaster interface {
	Broadcast(content string)
	SessionCount() int
}

type IAdminService interface {
	GetFeedbackSummary(ctx context.Context) (*dto.FeedbackSummaryResponse, error)
	GetFeedbackSessions(ctx context.Context) ([]string, error)
	GetSessionFeedback(ctx context.Context, sessionId string) (*dto.SessionFeedbackResponse, error)

	GetConversations(ctx context.Context, page, limit int) ([]dto.ConversationListItem, int64, error)
	GetConversation(ctx context.Context, sessionId string) (*dto.ConversationDetailResponse, error)

	GetKnowledgeStats(ctx context.Context) (*dto.KnowledgeStatsResponse, error)
	GetSystemLogs(level string, page, limit int) ([]logger.LogEntry, error)
	Broadcast(message string)
}

type adminService struct {
	conversations contract.ConversationRecordRepository
	feedback      contract.FeedbackRecordRepository
	passages      contract.PassageRepository
	logReader     logger.LogReader
	broadcaster   Broadcaster
	logger        logger.ILogger
}

func NewAdminService(
	conversations contract.ConversationRecordRepository,
	feedback contract.FeedbackRecordRepository,
	passages contract.PassageRepository,
	logReader logger.LogReader,
	broadcaster Broadcaster,
	log logger.ILogger,
) IAdminService {
	return &adminService{
		conversations: conversations,
		feedback:      feedback,
		passages:      passages,
		logReader:     logReader,
		broadcaster:   broadcaster,
		logger:        log,
	}
}

func (s *adminService) GetFeedbackSummary(ctx context.Context) (*dto.FeedbackSummaryResponse, error) {
	counts, err := s.feedback.CountByVerdict(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}

	summary := &dto.FeedbackSummaryResponse{
		Good:    counts[constant.FeedbackVerdictGood],
		Neutral: counts[constant.FeedbackVerdictNeutral],
		Bad:     counts[constant.FeedbackVerdictBad],
	}
	summary.Total = summary.Good + summary.Neutral + summary.Bad
	return summary, nil
}

func (s *adminService) GetFeedbackSessions(ctx context.Context) ([]string, error) {
	return s.feedback.ListSessionIds(ctx)
}

func (s *adminService) GetSessionFeedback(ctx context.Context, sessionId string) (*dto.SessionFeedbackResponse, error) {
	entries, err := s.feedback.FindBySessionId(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	return &dto.SessionFeedbackResponse{SessionId: sessionId, Entries: entries}, nil
}

func (s *adminService) GetConversations(ctx context.Context, page, limit int) ([]dto.ConversationListItem, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	summaries, err := s.conversations.ListSessions(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.conversations.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.ConversationListItem, len(summaries))
	for i, sm := range summaries {
		items[i] = dto.ConversationListItem{
			SessionId: sm.SessionId,
			TurnCount: sm.TurnCount,
			UpdatedAt: sm.UpdatedAt,
		}
	}
	return items, total, nil
}

func (s *adminService) GetConversation(ctx context.Context, sessionId string) (*dto.ConversationDetailResponse, error) {
	turns, err := s.conversations.FindBySessionId(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if turns == nil {
		return nil, nil
	}
	return &dto.ConversationDetailResponse{SessionId: sessionId, Turns: turns}, nil
}

func (s *adminService) GetKnowledgeStats(ctx context.Context) (*dto.KnowledgeStatsResponse, error) {
	count, err := s.passages.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.KnowledgeStatsResponse{
		PassageCount:   count,
		ActiveSessions: s.broadcaster.SessionCount(),
	}, nil
}

func (s *adminService) GetSystemLogs(level string, page, limit int) ([]logger.LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return s.logReader.GetLogs(level, limit, (page-1)*limit)
}

func (s *adminService) Broadcast(message string) {
	s.logger.Info("Admin", "Operator broadcast", map[string]interface{}{"length": len(message)})
	s.broadcaster.Broadcast(message)
}
