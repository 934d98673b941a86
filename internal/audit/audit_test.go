package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-talkcoach-be/internal/constant"
	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/repository/contract"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConversationRepo struct {
	mu      sync.Mutex
	upserts []int // turn counts, in apply order
	latest  map[string][]entity.Turn
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{latest: make(map[string][]entity.Turn)}
}

func (f *fakeConversationRepo) Upsert(ctx context.Context, sessionId string, turns []entity.Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, len(turns))
	f.latest[sessionId] = turns
	return nil
}

func (f *fakeConversationRepo) FindBySessionId(ctx context.Context, sessionId string) ([]entity.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest[sessionId], nil
}

func (f *fakeConversationRepo) ListSessions(ctx context.Context, limit, offset int) ([]contract.SessionSummary, error) {
	return nil, nil
}

func (f *fakeConversationRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.latest)), nil
}

type fakeFeedbackRepo struct {
	mu      sync.Mutex
	entries []entity.FeedbackEntry
}

func (f *fakeFeedbackRepo) Append(ctx context.Context, sessionId string, entry entity.FeedbackEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeFeedbackRepo) FindBySessionId(ctx context.Context, sessionId string) ([]entity.FeedbackEntry, error) {
	return nil, nil
}

func (f *fakeFeedbackRepo) ListSessionIds(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeFeedbackRepo) CountByVerdict(ctx context.Context) (map[string]int64, error) {
	return nil, nil
}

type testLogger struct{}

func (testLogger) Debug(module, message string, details map[string]interface{}) {}
func (testLogger) Info(module, message string, details map[string]interface{})  {}
func (testLogger) Warn(module, message string, details map[string]interface{})  {}
func (testLogger) Error(module, message string, details map[string]interface{}) {}
func (testLogger) Sync() error { return nil }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func newPipeline(t *testing.T) (*QueueSink, *fakeConversationRepo, *fakeFeedbackRepo) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	)
	conversations := newFakeConversationRepo()
	feedback := &fakeFeedbackRepo{}

	c := NewConsumer(pubSub, "AUDIT_EVENTS", conversations, feedback, nil)
	require.NoError(t, c.Consume(context.Background()))

	sink := NewQueueSink(pubSub, "AUDIT_EVENTS", testLogger{})
	return sink, conversations, feedback
}

func TestSnapshotsAppliedInPublishOrder(t *testing.T) {
	sink, conversations, _ := newPipeline(t)

	base := []entity.Turn{{Role: constant.TurnRoleSystem, Content: "prompt"}}
	for i := 1; i <= 5; i++ {
		turns := base
		for j := 0; j < i; j++ {
			turns = append(turns, entity.Turn{Role: constant.TurnRoleUser, Content: "m"})
		}
		sink.RecordSnapshot("s1", turns, false)
	}

	waitFor(t, func() bool {
		conversations.mu.Lock()
		defer conversations.mu.Unlock()
		return len(conversations.upserts) == 5
	})

	conversations.mu.Lock()
	defer conversations.mu.Unlock()
	assert.Equal(t, []int{2, 3, 4, 5, 6}, conversations.upserts)
}

func TestLatestSnapshotWins(t *testing.T) {
	sink, conversations, _ := newPipeline(t)

	sink.RecordSnapshot("s2", []entity.Turn{
		{Role: constant.TurnRoleSystem, Content: "prompt"},
		{Role: constant.TurnRoleUser, Content: "first"},
	}, false)
	sink.RecordSnapshot("s2", []entity.Turn{
		{Role: constant.TurnRoleSystem, Content: "prompt"},
	}, true)

	waitFor(t, func() bool {
		conversations.mu.Lock()
		defer conversations.mu.Unlock()
		return len(conversations.upserts) == 2
	})

	turns, err := conversations.FindBySessionId(context.Background(), "s2")
	require.NoError(t, err)
	// The rollback snapshot replaced the longer one.
	assert.Len(t, turns, 1)
}

func TestFeedbackEnvelopeAppended(t *testing.T) {
	sink, _, feedback := newPipeline(t)

	sink.RecordFeedback("s3", entity.FeedbackEntry{
		TurnId:               "t-1",
		Verdict:              constant.FeedbackVerdictBad,
		JudgedMessageExcerpt: "judged text",
		Timestamp:            time.Now(),
	})

	waitFor(t, func() bool {
		feedback.mu.Lock()
		defer feedback.mu.Unlock()
		return len(feedback.entries) == 1
	})

	feedback.mu.Lock()
	defer feedback.mu.Unlock()
	assert.Equal(t, "t-1", feedback.entries[0].TurnId)
	assert.Equal(t, constant.FeedbackVerdictBad, feedback.entries[0].Verdict)
}
