package conversation

import (
	"errors"
	"sync"
	"time"

	"ai-talkcoach-be/internal/constant"
	"ai-talkcoach-be/internal/entity"
)

// ErrNothingToRollback is returned when the most recent turn is not a
// removable assistant turn.
var ErrNothingToRollback = errors.New("nothing to rollback")

// Log is the ordered record of one session's turns. The first entry is always
// the system turn seeded at construction; it is never removed. The only
// permitted removal is the single most-recent turn, and only when it is an
// assistant turn.
//
// Log is internally synchronized: the session state machine serializes
// mutations, but feedback recording reads the log concurrently.
type Log struct {
	mu    sync.Mutex
	turns []entity.Turn
}

// NewLog seeds the log with the fixed system turn.
func NewLog(systemPrompt string) *Log {
	return &Log{
		turns: []entity.Turn{{
			Role:      constant.TurnRoleSystem,
			Content:   systemPrompt,
			CreatedAt: time.Now(),
		}},
	}
}

func (l *Log) Append(turn entity.Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turn)
}

// RollbackLastAssistant removes and returns the most recent turn if it is an
// assistant turn. The seeded system turn can never be removed since an
// assistant turn is never at index 0.
func (l *Log) RollbackLastAssistant() (entity.Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	last := len(l.turns) - 1
	if last < 1 || l.turns[last].Role != constant.TurnRoleAssistant {
		return entity.Turn{}, ErrNothingToRollback
	}
	removed := l.turns[last]
	l.turns = l.turns[:last]
	return removed, nil
}

// Snapshot returns a copy of the ordered turn sequence.
func (l *Log) Snapshot() []entity.Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entity.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// LastAssistantId returns the id of the most recent turn when that turn is an
// assistant turn, and "" otherwise. A dangling user turn from a failed cycle
// therefore blocks rollback of the assistant turn before it.
func (l *Log) LastAssistantId() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	last := len(l.turns) - 1
	if last < 1 || l.turns[last].Role != constant.TurnRoleAssistant {
		return ""
	}
	return l.turns[last].TurnId
}

// AssistantContent looks up the content of an assistant turn by id. Returns
// "" when the turn was already rolled back, mirroring how feedback excerpts
// degrade when the judged turn is gone.
func (l *Log) AssistantContent(turnId string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].Role == constant.TurnRoleAssistant && l.turns[i].TurnId == turnId {
			return l.turns[i].Content, true
		}
	}
	return "", false
}
