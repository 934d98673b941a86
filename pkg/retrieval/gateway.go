package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-talkcoach-be/internal/pkg/logger"
	"ai-talkcoach-be/internal/pkg/metrics"
	"ai-talkcoach-be/internal/repository/contract"
	"ai-talkcoach-be/pkg/embedding"

	"github.com/patrickmn/go-cache"
)

// Config encapsulates retrieval parameters.
type Config struct {
	TopK     int
	Timeout  time.Duration
	CacheTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		TopK:     5,
		Timeout:  15 * time.Second,
		CacheTTL: 5 * time.Minute,
	}
}

// Gateway wraps the semantic search collaborators (embedder + passage store).
// Retrieval is best-effort: any failure degrades to an empty passage list so
// a missing knowledge base never aborts a conversation.
type Gateway struct {
	embedder embedding.EmbeddingProvider
	passages contract.PassageRepository
	cache    *cache.Cache
	config   Config
	logger   logger.ILogger
	metrics  *metrics.Metrics
}

func NewGateway(
	embedder embedding.EmbeddingProvider,
	passages contract.PassageRepository,
	config Config,
	log logger.ILogger,
	m *metrics.Metrics,
) *Gateway {
	return &Gateway{
		embedder: embedder,
		passages: passages,
		cache:    cache.New(config.CacheTTL, 10*time.Minute),
		config:   config,
		logger:   log,
		metrics:  m,
	}
}

// Augment retrieves up to TopK passages for the query and folds them into the
// augmented prompt that is actually sent for completion.
func (g *Gateway) Augment(ctx context.Context, text string) ([]string, string) {
	passages := g.retrieve(ctx, text)
	return passages, AugmentPrompt(passages, text)
}

func (g *Gateway) retrieve(ctx context.Context, query string) []string {
	if cached, found := g.cache.Get(query); found {
		return cached.([]string)
	}

	start := time.Now()
	defer func() {
		g.metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	res, err := g.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		g.logger.Warn("Retrieval", "Embedding failed, degrading to empty context", map[string]interface{}{"error": err.Error()})
		return nil
	}

	found, err := g.passages.SearchSimilar(ctx, res.Embedding.Values, g.config.TopK)
	if err != nil {
		g.logger.Warn("Retrieval", "Similarity search failed, degrading to empty context", map[string]interface{}{"error": err.Error()})
		return nil
	}

	passages := make([]string, len(found))
	for i, p := range found {
		passages[i] = p.Content
	}

	g.cache.Set(query, passages, cache.DefaultExpiration)
	return passages
}

// AugmentPrompt builds the prompt string stored in the user turn. The format
// is part of the audit contract: the log captures what was actually sent.
func AugmentPrompt(passages []string, message string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, p := range passages {
		sb.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, p))
	}
	sb.WriteString("\nMessage:\n")
	sb.WriteString(message)
	sb.WriteString("\n")
	return sb.String()
}
