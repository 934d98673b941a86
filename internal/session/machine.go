// FILE: internal/session/machine.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai-talkcoach-be/internal/constant"
	"ai-talkcoach-be/internal/dto"
	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/pkg/logger"
	"ai-talkcoach-be/internal/pkg/metrics"
	"ai-talkcoach-be/pkg/conversation"

	"github.com/google/uuid"
)

// Emitter delivers outbound events to the connected client. The websocket
// client implements it; tests substitute a recorder.
type Emitter interface {
	Emit(event string, data interface{})
}

// Retriever augments a raw message with retrieved context.
type Retriever interface {
	Augment(ctx context.Context, text string) (passages []string, prompt string)
}

// Completer produces the next assistant reply from the full turn history.
type Completer interface {
	Complete(ctx context.Context, turns []entity.Turn) (string, error)
}

// Machine drives one conversation session. The mutex is held for an entire
// message or regeneration cycle: a cycle observes and mutates the turn log as
// one atomic unit, and concurrent triggers are rejected instead of queued.
type Machine struct {
	id         string
	log        *conversation.Log
	retrieval  Retriever
	completion Completer
	sink       Sink
	emitter    Emitter
	logger     logger.ILogger
	chatLogger logger.ILogger
	metrics    *metrics.Metrics
	version    string

	mu sync.Mutex

	// stateMu orders log writes against the final disconnect flush. It is
	// held only around check-and-append sections and the flush itself,
	// never across a provider call.
	stateMu   sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// Sink mirrors audit.Sink so the machine does not depend on the queue
// implementation.
type Sink interface {
	RecordSnapshot(sessionId string, turns []entity.Turn, final bool)
	RecordFeedback(sessionId string, entry entity.FeedbackEntry)
}

func NewMachine(
	id string,
	systemPrompt string,
	version string,
	gateway Retriever,
	orchestrator Completer,
	sink Sink,
	emitter Emitter,
	log logger.ILogger,
	chatLog logger.ILogger,
	m *metrics.Metrics,
) *Machine {
	return &Machine{
		id:         id,
		log:        conversation.NewLog(systemPrompt),
		retrieval:  gateway,
		completion: orchestrator,
		sink:       sink,
		emitter:    emitter,
		logger:     log,
		chatLogger: chatLog,
		metrics:    m,
		version:    version,
	}
}

func (m *Machine) ID() string {
	return m.id
}

func (m *Machine) isClosed() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.closed
}

// OnConnect greets the client. The greeting is presentation only and is not
// part of the turn log, so it can never be judged or rolled back.
func (m *Machine) OnConnect() {
	m.metrics.ActiveSessions.Inc()
	m.logger.Info("Session", "Client connected", map[string]interface{}{"session_id": m.id})

	m.emitter.Emit(dto.EventGreeting, dto.GreetingData{
		Content: fmt.Sprintf(constant.GreetingTemplate, m.version),
	})
}

// OnMessage runs one full turn cycle: retrieve, append the augmented user
// turn, generate, append the assistant turn. A second message while a cycle
// is running is rejected with a busy event rather than queued.
func (m *Machine) OnMessage(ctx context.Context, content string) {
	if !m.mu.TryLock() {
		m.emitter.Emit(dto.EventBusy, dto.BusyData{Reason: "a response is already being generated"})
		return
	}
	defer m.mu.Unlock()

	if m.isClosed() {
		return
	}

	m.chatLogger.Info("Chat", "Received message", map[string]interface{}{"session_id": m.id})
	turnStart := time.Now()

	m.emitter.Emit(dto.EventRetrieving, true)
	_, prompt := m.retrieval.Augment(ctx, content)
	m.emitter.Emit(dto.EventThinking, true)

	// The user turn is committed before generation. A failed cycle leaves it
	// in place so the learner's input survives into the next exchange.
	m.stateMu.Lock()
	if m.closed {
		m.stateMu.Unlock()
		return
	}
	m.log.Append(entity.Turn{
		Role:      constant.TurnRoleUser,
		Content:   prompt,
		CreatedAt: time.Now(),
	})
	m.sink.RecordSnapshot(m.id, m.log.Snapshot(), false)
	m.stateMu.Unlock()

	reply, err := m.completion.Complete(ctx, m.log.Snapshot())
	m.emitter.Emit(dto.EventThinking, false)

	if err != nil {
		if m.isClosed() {
			return
		}
		m.chatLogger.Error("Chat", "Turn cycle failed", map[string]interface{}{
			"session_id": m.id,
			"error":      err.Error(),
		})
		m.emitter.Emit(dto.EventChatResponse, dto.ChatResponseData{
			TurnId:  uuid.NewString(),
			Content: constant.ApologyMessage,
		})
		return
	}

	turnId := uuid.NewString()
	// The discard decision and the append are atomic with respect to the
	// final flush: a result arriving after disconnect can never be written.
	m.stateMu.Lock()
	if m.closed {
		m.stateMu.Unlock()
		return
	}
	m.log.Append(entity.Turn{
		Role:      constant.TurnRoleAssistant,
		Content:   reply,
		TurnId:    turnId,
		CreatedAt: time.Now(),
	})
	m.sink.RecordSnapshot(m.id, m.log.Snapshot(), false)
	m.stateMu.Unlock()
	m.metrics.TurnDuration.Observe(time.Since(turnStart).Seconds())

	m.chatLogger.Info("Chat", "Response generated", map[string]interface{}{
		"session_id": m.id,
		"turn_id":    turnId,
	})
	m.emitter.Emit(dto.EventChatResponse, dto.ChatResponseData{
		TurnId:  turnId,
		Content: reply,
	})
}

// OnFeedback records the judgment unconditionally, then regenerates when the
// verdict is bad and the judged turn is still the rollback candidate.
func (m *Machine) OnFeedback(ctx context.Context, turnId, verdict string) {
	m.metrics.FeedbackTotal.WithLabelValues(verdict).Inc()

	// Recording happens outside the cycle lock: the log is safe for
	// concurrent reads and a busy session must not delay the audit trail.
	excerpt, _ := m.log.AssistantContent(turnId)
	m.sink.RecordFeedback(m.id, entity.FeedbackEntry{
		TurnId:               turnId,
		Verdict:              verdict,
		JudgedMessageExcerpt: excerpt,
		Timestamp:            time.Now(),
	})
	m.chatLogger.Info("Chat", "Feedback received", map[string]interface{}{
		"session_id": m.id,
		"turn_id":    turnId,
		"verdict":    verdict,
	})

	if verdict != constant.FeedbackVerdictBad {
		return
	}

	// Regeneration is gated on an idle session. A bad verdict arriving while
	// a cycle runs is skipped without a signal: the entry above still stands.
	if !m.mu.TryLock() {
		return
	}
	defer m.mu.Unlock()

	if m.isClosed() {
		return
	}

	// Stale feedback: the judged turn is no longer the last assistant turn.
	if m.log.LastAssistantId() != turnId {
		return
	}

	m.emitter.Emit(dto.EventThinking, true)

	m.stateMu.Lock()
	if m.closed {
		m.stateMu.Unlock()
		m.emitter.Emit(dto.EventThinking, false)
		return
	}
	if _, err := m.log.RollbackLastAssistant(); err != nil {
		m.stateMu.Unlock()
		m.emitter.Emit(dto.EventThinking, false)
		return
	}
	m.sink.RecordSnapshot(m.id, m.log.Snapshot(), false)
	m.stateMu.Unlock()

	reply, err := m.completion.Complete(ctx, m.log.Snapshot())
	m.emitter.Emit(dto.EventThinking, false)

	if m.isClosed() {
		return
	}

	if err != nil {
		// The rollback stands: a judged-bad answer is not restored just
		// because its replacement failed to arrive.
		m.chatLogger.Error("Chat", "Regeneration failed", map[string]interface{}{
			"session_id": m.id,
			"turn_id":    turnId,
			"error":      err.Error(),
		})
		m.emitter.Emit(dto.EventChatResponse, dto.ChatResponseData{
			TurnId:  uuid.NewString(),
			Content: constant.RegenerateApologyMessage,
		})
		return
	}

	newTurnId := uuid.NewString()
	// The log stores the raw reply; the retry prefix is presentation only.
	m.stateMu.Lock()
	if m.closed {
		m.stateMu.Unlock()
		return
	}
	m.log.Append(entity.Turn{
		Role:      constant.TurnRoleAssistant,
		Content:   reply,
		TurnId:    newTurnId,
		CreatedAt: time.Now(),
	})
	m.sink.RecordSnapshot(m.id, m.log.Snapshot(), false)
	m.stateMu.Unlock()

	m.emitter.Emit(dto.EventRegenerateResponse, dto.RegenerateResponseData{
		OldTurnId: turnId,
		NewResponse: dto.ChatResponseData{
			TurnId:  newTurnId,
			Content: constant.RetryPrefix + reply,
		},
	})
}

// OnDisconnect flushes the final snapshot exactly once. It intentionally does
// not take the cycle lock: a generation in flight observes the closed flag
// under stateMu and discards its result, so this flush is the session's last
// write.
func (m *Machine) OnDisconnect() {
	m.closeOnce.Do(func() {
		m.stateMu.Lock()
		m.closed = true
		m.sink.RecordSnapshot(m.id, m.log.Snapshot(), true)
		m.stateMu.Unlock()
		m.metrics.ActiveSessions.Dec()
		m.logger.Info("Session", "Client disconnected", map[string]interface{}{
			"session_id": m.id,
			"turn_count": m.log.Len(),
		})
	})
}
