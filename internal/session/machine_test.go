package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-talkcoach-be/internal/constant"
	"ai-talkcoach-be/internal/dto"
	"ai-talkcoach-be/internal/entity"
	"ai-talkcoach-be/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emittedEvent struct {
	event string
	data  interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (r *recordingEmitter) Emit(event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emittedEvent{event: event, data: data})
}

func (r *recordingEmitter) all() []emittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]emittedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingEmitter) byName(event string) []emittedEvent {
	var out []emittedEvent
	for _, e := range r.all() {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type stubRetriever struct {
	passages []string
}

func (s *stubRetriever) Augment(ctx context.Context, text string) ([]string, string) {
	return s.passages, "Context:\n\nMessage:\n" + text + "\n"
}

type stubCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	started chan struct{} // closed-once signal that a call began
	release chan struct{} // blocks the call until closed
	calls   int
}

func (s *stubCompleter) Complete(ctx context.Context, turns []entity.Turn) (string, error) {
	s.mu.Lock()
	s.calls++
	started := s.started
	s.started = nil
	reply, err := s.reply, s.err
	release := s.release
	s.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	return reply, err
}

type recordedSnapshot struct {
	turns []entity.Turn
	final bool
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []recordedSnapshot
	feedback  []entity.FeedbackEntry
}

func (r *recordingSink) RecordSnapshot(sessionId string, turns []entity.Turn, final bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, recordedSnapshot{turns: turns, final: final})
}

func (r *recordingSink) RecordFeedback(sessionId string, entry entity.FeedbackEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback = append(r.feedback, entry)
}

func (r *recordingSink) finalSnapshots() []recordedSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedSnapshot
	for _, s := range r.snapshots {
		if s.final {
			out = append(out, s)
		}
	}
	return out
}

type nullLogger struct{}

func (nullLogger) Debug(module, message string, details map[string]interface{}) {}
func (nullLogger) Info(module, message string, details map[string]interface{})  {}
func (nullLogger) Warn(module, message string, details map[string]interface{})  {}
func (nullLogger) Error(module, message string, details map[string]interface{}) {}
func (nullLogger) Sync() error { return nil }

func newTestMachine(completer *stubCompleter) (*Machine, *recordingEmitter, *recordingSink) {
	emitter := &recordingEmitter{}
	sink := &recordingSink{}
	m := NewMachine(
		"sess-1",
		"coach system prompt",
		"1.2.3",
		&stubRetriever{},
		completer,
		sink,
		emitter,
		nullLogger{},
		nullLogger{},
		metrics.New(prometheus.NewRegistry()),
	)
	return m, emitter, sink
}

func lastChatResponse(t *testing.T, emitter *recordingEmitter) dto.ChatResponseData {
	t.Helper()
	responses := emitter.byName(dto.EventChatResponse)
	require.NotEmpty(t, responses)
	return responses[len(responses)-1].data.(dto.ChatResponseData)
}

func TestConnectEmitsGreetingOutsideLog(t *testing.T) {
	m, emitter, _ := newTestMachine(&stubCompleter{})

	m.OnConnect()

	greetings := emitter.byName(dto.EventGreeting)
	require.Len(t, greetings, 1)
	greeting := greetings[0].data.(dto.GreetingData)
	assert.Contains(t, greeting.Content, "(v1.2.3)")
	// The greeting is its own event, not a chat_response, and is not a turn:
	// it can never be judged or rolled back.
	assert.Empty(t, emitter.byName(dto.EventChatResponse))
	assert.Equal(t, 1, m.log.Len())
}

func TestMessageCycleAppendsUserAndAssistant(t *testing.T) {
	m, emitter, sink := newTestMachine(&stubCompleter{reply: "slow down your delivery"})

	m.OnMessage(context.Background(), "I talk too fast")

	turns := m.log.Snapshot()
	require.Len(t, turns, 3)
	assert.Equal(t, constant.TurnRoleUser, turns[1].Role)
	assert.Contains(t, turns[1].Content, "Message:\nI talk too fast\n")
	assert.Equal(t, constant.TurnRoleAssistant, turns[2].Role)
	assert.Equal(t, "slow down your delivery", turns[2].Content)
	assert.NotEmpty(t, turns[2].TurnId)
	assert.Empty(t, turns[1].TurnId)

	resp := lastChatResponse(t, emitter)
	assert.Equal(t, turns[2].TurnId, resp.TurnId)
	assert.Equal(t, "slow down your delivery", resp.Content)

	// One snapshot after the user turn, one after the assistant turn.
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.snapshots, 2)
	assert.Len(t, sink.snapshots[0].turns, 2)
	assert.Len(t, sink.snapshots[1].turns, 3)
}

func TestMessageCycleSignalsPhases(t *testing.T) {
	m, emitter, _ := newTestMachine(&stubCompleter{reply: "ok"})

	m.OnMessage(context.Background(), "hello")

	var names []string
	for _, e := range emitter.all() {
		names = append(names, e.event)
	}
	assert.Equal(t, []string{
		dto.EventRetrieving,
		dto.EventThinking,
		dto.EventThinking,
		dto.EventChatResponse,
	}, names)
	thinking := emitter.byName(dto.EventThinking)
	assert.Equal(t, true, thinking[0].data)
	assert.Equal(t, false, thinking[1].data)
}

func TestFailedCycleKeepsUserTurn(t *testing.T) {
	m, emitter, _ := newTestMachine(&stubCompleter{err: errors.New("model unavailable")})

	m.OnMessage(context.Background(), "hello")

	turns := m.log.Snapshot()
	require.Len(t, turns, 2)
	assert.Equal(t, constant.TurnRoleUser, turns[1].Role)

	resp := lastChatResponse(t, emitter)
	assert.Equal(t, constant.ApologyMessage, resp.Content)
}

func TestBadFeedbackRollsBackAndRegenerates(t *testing.T) {
	completer := &stubCompleter{reply: "first answer"}
	m, emitter, sink := newTestMachine(completer)

	m.OnMessage(context.Background(), "hello")
	judged := lastChatResponse(t, emitter)

	completer.mu.Lock()
	completer.reply = "second answer"
	completer.mu.Unlock()

	m.OnFeedback(context.Background(), judged.TurnId, constant.FeedbackVerdictBad)

	regens := emitter.byName(dto.EventRegenerateResponse)
	require.Len(t, regens, 1)
	regen := regens[0].data.(dto.RegenerateResponseData)
	assert.Equal(t, judged.TurnId, regen.OldTurnId)
	assert.Equal(t, constant.RetryPrefix+"second answer", regen.NewResponse.Content)
	assert.NotEqual(t, judged.TurnId, regen.NewResponse.TurnId)

	// The log keeps the raw reply, the retry prefix is wire-level only.
	turns := m.log.Snapshot()
	require.Len(t, turns, 3)
	assert.Equal(t, "second answer", turns[2].Content)
	assert.Equal(t, regen.NewResponse.TurnId, turns[2].TurnId)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.feedback, 1)
	assert.Equal(t, judged.TurnId, sink.feedback[0].TurnId)
	assert.Equal(t, "first answer", sink.feedback[0].JudgedMessageExcerpt)
}

func TestGoodFeedbackRecordsWithoutRegenerating(t *testing.T) {
	completer := &stubCompleter{reply: "answer"}
	m, emitter, sink := newTestMachine(completer)

	m.OnMessage(context.Background(), "hello")
	judged := lastChatResponse(t, emitter)

	m.OnFeedback(context.Background(), judged.TurnId, constant.FeedbackVerdictGood)

	assert.Empty(t, emitter.byName(dto.EventRegenerateResponse))
	assert.Equal(t, 3, m.log.Len())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.feedback, 1)
	assert.Equal(t, constant.FeedbackVerdictGood, sink.feedback[0].Verdict)
}

func TestStaleFeedbackSkipsRegeneration(t *testing.T) {
	completer := &stubCompleter{reply: "answer one"}
	m, emitter, sink := newTestMachine(completer)

	m.OnMessage(context.Background(), "first")
	stale := lastChatResponse(t, emitter)

	completer.mu.Lock()
	completer.reply = "answer two"
	completer.mu.Unlock()
	m.OnMessage(context.Background(), "second")

	before := m.log.Len()
	m.OnFeedback(context.Background(), stale.TurnId, constant.FeedbackVerdictBad)

	assert.Empty(t, emitter.byName(dto.EventRegenerateResponse))
	assert.Equal(t, before, m.log.Len())

	// The judgment itself is still on record.
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.feedback, 1)
	assert.Equal(t, stale.TurnId, sink.feedback[0].TurnId)
	assert.Equal(t, "answer one", sink.feedback[0].JudgedMessageExcerpt)
}

func TestFeedbackAfterFailedCycleSkipsRegeneration(t *testing.T) {
	completer := &stubCompleter{reply: "answer"}
	m, emitter, _ := newTestMachine(completer)

	m.OnMessage(context.Background(), "first")
	judged := lastChatResponse(t, emitter)

	// The next cycle fails, leaving a dangling user turn after the judged
	// assistant turn. Rolling back would now remove the wrong turn.
	completer.mu.Lock()
	completer.err = errors.New("model unavailable")
	completer.mu.Unlock()
	m.OnMessage(context.Background(), "second")

	before := m.log.Len()
	m.OnFeedback(context.Background(), judged.TurnId, constant.FeedbackVerdictBad)

	assert.Empty(t, emitter.byName(dto.EventRegenerateResponse))
	assert.Equal(t, before, m.log.Len())
}

func TestRegenerationFailureKeepsRollback(t *testing.T) {
	completer := &stubCompleter{reply: "bad answer"}
	m, emitter, _ := newTestMachine(completer)

	m.OnMessage(context.Background(), "hello")
	judged := lastChatResponse(t, emitter)

	completer.mu.Lock()
	completer.err = errors.New("model unavailable")
	completer.mu.Unlock()

	m.OnFeedback(context.Background(), judged.TurnId, constant.FeedbackVerdictBad)

	// The judged-bad turn stays removed even though no replacement arrived.
	turns := m.log.Snapshot()
	require.Len(t, turns, 2)
	assert.Equal(t, constant.TurnRoleUser, turns[1].Role)

	resp := lastChatResponse(t, emitter)
	assert.Equal(t, constant.RegenerateApologyMessage, resp.Content)
}

func TestMessageWhileGeneratingIsRejectedBusy(t *testing.T) {
	completer := &stubCompleter{
		reply:   "late answer",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	started := completer.started
	m, emitter, _ := newTestMachine(completer)

	done := make(chan struct{})
	go func() {
		m.OnMessage(context.Background(), "first")
		close(done)
	}()
	<-started

	m.OnMessage(context.Background(), "second")

	busy := emitter.byName(dto.EventBusy)
	require.Len(t, busy, 1)

	close(completer.release)
	<-done

	// Only the first message produced turns.
	assert.Equal(t, 3, m.log.Len())
	completer.mu.Lock()
	defer completer.mu.Unlock()
	assert.Equal(t, 1, completer.calls)
}

func TestFeedbackWhileGeneratingRecordsWithoutRegen(t *testing.T) {
	completer := &stubCompleter{
		reply:   "answer",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	started := completer.started
	m, emitter, sink := newTestMachine(completer)

	done := make(chan struct{})
	go func() {
		m.OnMessage(context.Background(), "hello")
		close(done)
	}()
	<-started

	m.OnFeedback(context.Background(), "some-turn", constant.FeedbackVerdictBad)

	// The entry is recorded but the regeneration is skipped silently: no
	// busy signal, no regenerate_response.
	sink.mu.Lock()
	feedbackCount := len(sink.feedback)
	sink.mu.Unlock()
	assert.Equal(t, 1, feedbackCount)
	assert.Empty(t, emitter.byName(dto.EventBusy))
	assert.Empty(t, emitter.byName(dto.EventRegenerateResponse))

	close(completer.release)
	<-done
}

func TestDisconnectDiscardsInFlightResult(t *testing.T) {
	completer := &stubCompleter{
		reply:   "orphaned answer",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	started := completer.started
	m, emitter, sink := newTestMachine(completer)

	done := make(chan struct{})
	go func() {
		m.OnMessage(context.Background(), "hello")
		close(done)
	}()
	<-started

	m.OnDisconnect()
	close(completer.release)
	<-done

	// The in-flight reply was discarded, never appended or emitted.
	assert.Equal(t, 2, m.log.Len())
	assert.Empty(t, emitter.byName(dto.EventChatResponse))

	finals := sink.finalSnapshots()
	require.Len(t, finals, 1)
	assert.Len(t, finals[0].turns, 2)

	// The final flush is the session's last write: nothing follows it.
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.True(t, sink.snapshots[len(sink.snapshots)-1].final)
}

func TestFinalSnapshotIsLastWrite(t *testing.T) {
	// A disconnect racing the end of a generation must never let the
	// assistant append land after the final flush: the persisted record
	// would then end with a turn the user never saw.
	for i := 0; i < 100; i++ {
		completer := &stubCompleter{reply: "answer"}
		m, _, sink := newTestMachine(completer)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.OnMessage(context.Background(), "hello")
		}()
		go func() {
			defer wg.Done()
			m.OnDisconnect()
		}()
		wg.Wait()

		sink.mu.Lock()
		sawFinal := false
		for _, s := range sink.snapshots {
			if sawFinal {
				t.Fatalf("iteration %d: snapshot submitted after the final flush", i)
			}
			if s.final {
				sawFinal = true
				assert.Len(t, s.turns, m.log.Len())
			}
		}
		sink.mu.Unlock()
		require.True(t, sawFinal)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	m, _, sink := newTestMachine(&stubCompleter{})

	m.OnDisconnect()
	m.OnDisconnect()

	require.Len(t, sink.finalSnapshots(), 1)
}

func TestMessageAfterDisconnectIsIgnored(t *testing.T) {
	m, emitter, _ := newTestMachine(&stubCompleter{reply: "answer"})

	m.OnDisconnect()
	m.OnMessage(context.Background(), "hello")

	assert.Equal(t, 1, m.log.Len())
	assert.Empty(t, emitter.byName(dto.EventChatResponse))
}

func TestDisconnectWaitsForNothing(t *testing.T) {
	// Regression guard: OnDisconnect must return promptly even while a
	// generation holds the cycle lock.
	completer := &stubCompleter{
		reply:   "answer",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	started := completer.started
	m, _, _ := newTestMachine(completer)

	done := make(chan struct{})
	go func() {
		m.OnMessage(context.Background(), "hello")
		close(done)
	}()
	<-started

	finished := make(chan struct{})
	go func() {
		m.OnDisconnect()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("OnDisconnect blocked behind an in-flight generation")
	}

	close(completer.release)
	<-done
}
