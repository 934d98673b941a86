package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/pkg/logger"
	"ai-talkcoach-be/internal/pkg/metrics"
	"ai-talkcoach-be/pkg/llm"
)

// ErrGenerationFailed wraps any provider failure so callers can branch on
// "the model did not answer" without caring which backend was at fault.
var ErrGenerationFailed = errors.New("completion generation failed")

// Orchestrator turns a conversation history into the next assistant reply.
type Orchestrator struct {
	provider llm.LLMProvider
	timeout  time.Duration
	logger   logger.ILogger
	metrics  *metrics.Metrics
}

func NewOrchestrator(provider llm.LLMProvider, timeout time.Duration, log logger.ILogger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		timeout:  timeout,
		logger:   log,
		metrics:  m,
	}
}

// Complete sends the full ordered history to the provider and returns the
// reply text. The history must already contain the system turn and the
// augmented user turn; Complete does not mutate it.
func (o *Orchestrator) Complete(ctx context.Context, turns []entity.Turn) (string, error) {
	history := make([]llm.Message, len(turns))
	for i, t := range turns {
		history[i] = llm.Message{Role: t.Role, Content: t.Content}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	reply, err := o.provider.Chat(ctx, history)
	elapsed := time.Since(start)
	o.metrics.GenerationDuration.Observe(elapsed.Seconds())

	if err != nil {
		o.metrics.GenerationCalls.WithLabelValues("error").Inc()
		o.logger.Error("Completion", "Provider call failed", map[string]interface{}{
			"error":       err.Error(),
			"turn_count":  len(turns),
			"duration_ms": elapsed.Milliseconds(),
		})
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		o.metrics.GenerationCalls.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: provider returned empty reply", ErrGenerationFailed)
	}

	o.metrics.GenerationCalls.WithLabelValues("success").Inc()
	o.logger.Debug("Completion", "Reply generated", map[string]interface{}{
		"turn_count":  len(turns),
		"duration_ms": elapsed.Milliseconds(),
	})
	return reply, nil
}
