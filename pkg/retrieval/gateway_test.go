package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/pkg/metrics"
	"ai-talkcoach-be/pkg/embedding"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

// hangingEmbedder blocks until its context expires, like a wedged endpoint.
type hangingEmbedder struct{}

func (hangingEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakePassageRepo struct {
	passages []*entity.Passage
	err      error
	calls    int
}

func (f *fakePassageRepo) CreateBulk(ctx context.Context, passages []*entity.Passage) error {
	return nil
}

func (f *fakePassageRepo) DeleteBySource(ctx context.Context, source string) error {
	return nil
}

func (f *fakePassageRepo) SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]*entity.Passage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

func (f *fakePassageRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.passages)), nil
}

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error { return nil }

func newTestGateway(e *fakeEmbedder, r *fakePassageRepo) *Gateway {
	m := metrics.New(prometheus.NewRegistry())
	return NewGateway(e, r, DefaultConfig(), noopLogger{}, m)
}

func TestAugmentIncludesRetrievedPassages(t *testing.T) {
	repo := &fakePassageRepo{passages: []*entity.Passage{
		{Content: "first passage"},
		{Content: "second passage"},
	}}
	gw := newTestGateway(&fakeEmbedder{}, repo)

	passages, prompt := gw.Augment(context.Background(), "how do I open a talk?")

	require.Len(t, passages, 2)
	assert.Contains(t, prompt, "Context:\n")
	assert.Contains(t, prompt, "\n1. first passage\n")
	assert.Contains(t, prompt, "\n2. second passage\n")
	assert.Contains(t, prompt, "\nMessage:\nhow do I open a talk?\n")
}

func TestAugmentDegradesOnEmbeddingFailure(t *testing.T) {
	gw := newTestGateway(&fakeEmbedder{err: errors.New("connection refused")}, &fakePassageRepo{})

	passages, prompt := gw.Augment(context.Background(), "hello")

	assert.Empty(t, passages)
	assert.Equal(t, "Context:\n\nMessage:\nhello\n", prompt)
}

func TestAugmentDegradesOnSearchFailure(t *testing.T) {
	repo := &fakePassageRepo{err: errors.New("relation does not exist")}
	gw := newTestGateway(&fakeEmbedder{}, repo)

	passages, _ := gw.Augment(context.Background(), "hello")

	assert.Empty(t, passages)
}

func TestRetrieveCachesByQuery(t *testing.T) {
	emb := &fakeEmbedder{}
	repo := &fakePassageRepo{passages: []*entity.Passage{{Content: "cached"}}}
	gw := newTestGateway(emb, repo)

	first, _ := gw.Augment(context.Background(), "same question")
	second, _ := gw.Augment(context.Background(), "same question")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 1, repo.calls)
}

func TestAugmentBoundedByConfiguredTimeout(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	gw := NewGateway(hangingEmbedder{}, &fakePassageRepo{}, cfg, noopLogger{}, m)

	done := make(chan struct{})
	var passages []string
	var prompt string
	go func() {
		passages, prompt = gw.Augment(context.Background(), "hello")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Augment did not return after the retrieval timeout expired")
	}

	assert.Empty(t, passages)
	assert.Equal(t, "Context:\n\nMessage:\nhello\n", prompt)
}

func TestAugmentPromptOrderStable(t *testing.T) {
	prompt := AugmentPrompt([]string{"a", "b", "c"}, "q")
	assert.Equal(t, "Context:\n\n1. a\n\n2. b\n\n3. c\n\nMessage:\nq\n", prompt)
}
