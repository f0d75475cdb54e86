package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/ward_desk/internal/entities"
	"github.com/lewisedginton/ward_desk/internal/intent"
	"github.com/lewisedginton/ward_desk/internal/knowledge_base"
	"github.com/lewisedginton/ward_desk/internal/models"
	"github.com/lewisedginton/ward_desk/internal/session_store"
	"github.com/lewisedginton/ward_desk/pkg/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// classifierFunc adapts a function to Classifier.
type classifierFunc func(string) (intent.Intent, float64)

func (f classifierFunc) Classify(text string) (intent.Intent, float64) { return f(text) }

func fixed(in intent.Intent, confidence float64) Classifier {
	return classifierFunc(func(string) (intent.Intent, float64) { return in, confidence })
}

type fakeKnowledge struct {
	results []knowledge_base.Result
	answers map[string]string
}

func (k *fakeKnowledge) Search(string) []knowledge_base.Result { return k.results }

func (k *fakeKnowledge) Answer(q string) (string, bool) {
	a, ok := k.answers[q]
	return a, ok
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls []models.Request
	fn    func(ctx context.Context, req models.Request) (string, error)
}

func (g *fakeGenerator) Provider() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, req models.Request) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	return g.fn(ctx, req)
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func replying(text string) *fakeGenerator {
	return &fakeGenerator{fn: func(context.Context, models.Request) (string, error) { return text, nil }}
}

type fixture struct {
	assistant *Assistant
	store     *session_store.Store
	clock     *fakeClock
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 11, 22, 10, 30, 0, 0, time.UTC)}
	backend, err := session_store.NewMemoryBackend(100, nil)
	require.NoError(t, err)
	store := session_store.NewStore(backend, session_store.Config{Channel: session_store.ChannelChat, Now: clock.Now})
	m := metrics.NewMetrics(false, true, nil)
	cfg.Store = store
	cfg.Metrics = m
	return fixture{assistant: New(cfg), store: store, clock: clock, metrics: m}
}

func TestHandleRejectsMalformedTurns(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	tests := []struct {
		name string
		turn Turn
	}{
		{"missing user id", Turn{Message: "hello"}},
		{"blank user id", Turn{UserID: "  ", Message: "hello"}},
		{"empty message", Turn{UserID: "u1"}},
		{"whitespace message", Turn{UserID: "u1", Message: " \t "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.assistant.Handle(ctx, tt.turn)
			assert.ErrorIs(t, err, ErrMalformedTurn)
		})
	}

	_, err := f.store.Get(ctx, "u1")
	assert.ErrorIs(t, err, session_store.ErrNotFound)
}

func TestHandleWithDefaultClassifier(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "I want to report a broken water pipe"})
	require.NoError(t, err)
	assert.Equal(t, intent.IssueReporting, reply.Intent)
	assert.Greater(t, reply.Confidence, 0.2)
	assert.Equal(t, DefaultTemplates[intent.IssueReporting]["en"], reply.Response)
	assert.Equal(t, []string{ActionCollectLocation, ActionCreateIssueReport}, reply.NextActions)
	assert.False(t, reply.RequiresHuman)
	assert.Equal(t, "en", reply.Language)

	reply, err = f.assistant.Handle(ctx, Turn{UserID: "u2", Message: "asdlkj qwer"})
	require.NoError(t, err)
	assert.Equal(t, intent.Unknown, reply.Intent)
	assert.Zero(t, reply.Confidence)
	assert.True(t, reply.RequiresHuman)
	assert.Equal(t, DefaultTemplates[intent.Unknown]["en"], reply.Response)
	assert.Empty(t, reply.NextActions)
	assert.NotNil(t, reply.NextActions)
}

func TestRequiresHuman(t *testing.T) {
	all := []intent.Intent{
		intent.BursaryApplication, intent.IssueReporting, intent.StatusCheck,
		intent.InformationRequest, intent.AreaInquiry, intent.ContactInfo,
		intent.Emergency, intent.Greeting, intent.Goodbye, intent.Complaint, intent.Unknown,
	}
	for _, in := range all {
		for _, c := range []float64{0, 0.1, 0.29} {
			assert.True(t, RequiresHuman(in, c), "%s at %.2f", in, c)
		}
	}

	tests := []struct {
		in         intent.Intent
		confidence float64
		want       bool
	}{
		{intent.Emergency, 1.0, true},
		{intent.Emergency, 0.3, true},
		{intent.Complaint, 0.5, true},
		{intent.Complaint, 0.69, true},
		{intent.Complaint, 0.7, false},
		{intent.IssueReporting, 0.3, false},
		{intent.Greeting, 1.0, false},
		{intent.Unknown, 0.3, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RequiresHuman(tt.in, tt.confidence), "%s at %.2f", tt.in, tt.confidence)
	}
}

func TestNextActions(t *testing.T) {
	withID := entities.Set{entities.IDNumber: {"9001015009087"}}
	withArea := entities.Set{entities.AreaCode: {"KY204"}}

	tests := []struct {
		name  string
		in    intent.Intent
		found entities.Set
		want  []string
	}{
		{"bursary without id", intent.BursaryApplication, entities.Set{}, []string{ActionCollectIDNumber}},
		{"bursary with id", intent.BursaryApplication, withID, []string{ActionStartBursary}},
		{"issue without area", intent.IssueReporting, entities.Set{}, []string{ActionCollectLocation, ActionCreateIssueReport}},
		{"issue with area", intent.IssueReporting, withArea, []string{ActionCreateIssueReport}},
		{"status without id", intent.StatusCheck, nil, []string{ActionCollectReference}},
		{"status with id", intent.StatusCheck, withID, []string{ActionCheckApplicationStatus}},
		{"emergency", intent.Emergency, withID, []string{ActionEscalateToEmergency, ActionNotifyWardOffice}},
		{"greeting", intent.Greeting, withID, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextActions(tt.in, tt.found))
		})
	}
}

func TestHandleInformationRequest(t *testing.T) {
	ctx := context.Background()
	kb := &fakeKnowledge{
		results: []knowledge_base.Result{{Question: "How do I apply for a bursary?", Category: "bursary_info", Score: 0.8}},
		answers: map[string]string{"How do I apply for a bursary?": "Dial *120*8001# and follow the prompts."},
	}

	t.Run("confident match returns stored answer", func(t *testing.T) {
		gen := replying("generated")
		f := newFixture(t, Config{Classifier: fixed(intent.InformationRequest, 0.9), Knowledge: kb, Generator: gen})
		reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "how do I apply for a bursary"})
		require.NoError(t, err)
		assert.Equal(t, "Dial *120*8001# and follow the prompts.", reply.Response)
		assert.Zero(t, gen.Calls())
	})

	t.Run("match at threshold is not used", func(t *testing.T) {
		weak := &fakeKnowledge{
			results: []knowledge_base.Result{{Question: "How do I apply for a bursary?", Score: 0.5}},
			answers: kb.answers,
		}
		f := newFixture(t, Config{Classifier: fixed(intent.InformationRequest, 0.9), Knowledge: weak})
		reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "bursary things"})
		require.NoError(t, err)
		assert.Equal(t, DefaultTemplates[intent.InformationRequest]["en"], reply.Response)
	})

	t.Run("empty retrieval falls back to generation", func(t *testing.T) {
		gen := replying("  The ward office opens at 8AM.  ")
		f := newFixture(t, Config{Classifier: fixed(intent.InformationRequest, 0.9), Knowledge: &fakeKnowledge{}, Generator: gen})
		reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "when does the office open"})
		require.NoError(t, err)
		assert.Equal(t, "The ward office opens at 8AM.", reply.Response)
		require.Equal(t, 1, gen.Calls())
		req := gen.calls[0]
		assert.Equal(t, SystemPrompt, req.System)
		assert.Equal(t, "when does the office open", req.Prompt)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		assert.InDelta(t, DefaultTemperature, req.Temperature, 1e-9)
		assert.Empty(t, req.History)
	})

	t.Run("no knowledge and no generator uses template", func(t *testing.T) {
		f := newFixture(t, Config{Classifier: fixed(intent.InformationRequest, 0.9)})
		reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "tell me something"})
		require.NoError(t, err)
		assert.Equal(t, DefaultTemplates[intent.InformationRequest]["en"], reply.Response)
	})
}

func TestHandleGenerationFailureFallsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("error", func(t *testing.T) {
		gen := &fakeGenerator{fn: func(context.Context, models.Request) (string, error) {
			return "", errors.New("provider down")
		}}
		f := newFixture(t, Config{Classifier: fixed(intent.Unknown, 0), Generator: gen})
		reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "zzz"})
		require.NoError(t, err)
		assert.Equal(t, DefaultTemplates[intent.Unknown]["en"], reply.Response)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GenerationFailures.WithLabelValues("fake")))
	})

	t.Run("timeout", func(t *testing.T) {
		gen := &fakeGenerator{fn: func(ctx context.Context, _ models.Request) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}}
		f := newFixture(t, Config{Classifier: fixed(intent.Unknown, 0), Generator: gen, GenerationTimeout: 20 * time.Millisecond})

		start := time.Now()
		reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "zzz"})
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Equal(t, DefaultTemplates[intent.Unknown]["en"], reply.Response)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GenerationFailures.WithLabelValues("fake")))
	})

	t.Run("generator ignores deadline", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		gen := &fakeGenerator{fn: func(context.Context, models.Request) (string, error) {
			<-release
			return "late", nil
		}}
		f := newFixture(t, Config{Classifier: fixed(intent.Unknown, 0), Generator: gen, GenerationTimeout: 20 * time.Millisecond})

		start := time.Now()
		reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "zzz"})
		require.NoError(t, err)
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, DefaultTemplates[intent.Unknown]["en"], reply.Response)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GenerationFailures.WithLabelValues("fake")))
	})

	t.Run("blank completion", func(t *testing.T) {
		f := newFixture(t, Config{Classifier: fixed(intent.Unknown, 0), Generator: replying("   ")})
		reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "zzz"})
		require.NoError(t, err)
		assert.Equal(t, DefaultTemplates[intent.Unknown]["en"], reply.Response)
	})
}

func TestHandleGenerationOnlyForOpenEndedIntents(t *testing.T) {
	gen := replying("generated")
	f := newFixture(t, Config{Classifier: fixed(intent.Greeting, 0.8), Generator: gen})

	reply, err := f.assistant.Handle(context.Background(), Turn{UserID: "u1", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplates[intent.Greeting]["en"], reply.Response)
	assert.Zero(t, gen.Calls())
}

func TestHandleGenerationHistory(t *testing.T) {
	gen := replying("generated")
	f := newFixture(t, Config{Classifier: fixed(intent.Unknown, 0), Generator: gen})
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three", "four"} {
		_, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: msg})
		require.NoError(t, err)
	}

	require.Equal(t, 4, gen.Calls())
	last := gen.calls[3]
	require.Len(t, last.History, DefaultHistoryTurns)
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Text: "generated"}, last.History[0])
	assert.Equal(t, models.Message{Role: models.RoleUser, Text: "two"}, last.History[1])
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Text: "generated"}, last.History[4])
	assert.Equal(t, "four", last.Prompt)
}

func TestHandleEntityMergeAcrossTurns(t *testing.T) {
	f := newFixture(t, Config{Classifier: fixed(intent.StatusCheck, 0.9)})
	ctx := context.Background()

	first, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "my number is 0821234567 and ID 9001015009087"})
	require.NoError(t, err)
	assert.Equal(t, []string{ActionCheckApplicationStatus}, first.NextActions)

	second, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "new number 0731234567"})
	require.NoError(t, err)

	if diff := cmp.Diff(entities.Set{entities.PhoneNumber: {"0731234567"}}, second.Entities); diff != "" {
		t.Errorf("reply entities mismatch (-want +got):\n%s", diff)
	}
	// The ID from the first turn still drives the next action.
	assert.Equal(t, []string{ActionCheckApplicationStatus}, second.NextActions)

	sess, err := f.store.Get(ctx, "u1")
	require.NoError(t, err)
	want := entities.Set{
		entities.PhoneNumber: {"0731234567"},
		entities.IDNumber:    {"9001015009087"},
	}
	if diff := cmp.Diff(want, sess.Entities); diff != "" {
		t.Errorf("session entities mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlePersistsHistory(t *testing.T) {
	f := newFixture(t, Config{Classifier: fixed(intent.Complaint, 0.5)})
	ctx := context.Background()

	reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "the service was terrible", PhoneNumber: "0821234567"})
	require.NoError(t, err)
	assert.True(t, reply.RequiresHuman)

	sess, err := f.store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sess.History, 2)
	assert.Equal(t, session_store.RoleUser, sess.History[0].Role)
	assert.Equal(t, "the service was terrible", sess.History[0].Text)
	assert.Equal(t, session_store.RoleAssistant, sess.History[1].Role)
	assert.Equal(t, intent.Complaint, sess.History[1].Intent)
	assert.InDelta(t, 0.5, sess.History[1].Confidence, 1e-9)
	assert.Equal(t, intent.Complaint, sess.CurrentIntent)
	assert.Equal(t, "0821234567", sess.PhoneNumber)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.IntentCounter.WithLabelValues("complaint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EscalationsCounter))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TurnsCounter.WithLabelValues("chat", "escalated")))
}

func TestHandleExpiredSessionStartsFresh(t *testing.T) {
	f := newFixture(t, Config{Classifier: fixed(intent.Greeting, 0.8)})
	ctx := context.Background()

	_, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "hello", Language: "af"})
	require.NoError(t, err)

	f.clock.Advance(session_store.ChatWindow + time.Minute)
	reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "en", reply.Language)

	sess, err := f.store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sess.History, 2)
}

func TestHandleLanguage(t *testing.T) {
	in := intent.Greeting
	f := newFixture(t, Config{Classifier: classifierFunc(func(string) (intent.Intent, float64) { return in, 0.8 })})
	ctx := context.Background()

	reply, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "sawubona", Language: "ZU"})
	require.NoError(t, err)
	assert.Equal(t, "zu", reply.Language)
	assert.Equal(t, DefaultTemplates[intent.Greeting]["zu"], reply.Response)

	// Sticky for the rest of the session, even when another code arrives.
	for _, lang := range []string{"fr", "af"} {
		reply, err = f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "hi", Language: lang})
		require.NoError(t, err)
		assert.Equal(t, "zu", reply.Language, lang)
	}

	// Intents without a translation fall back to English.
	in = intent.ContactInfo
	reply, err = f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "office"})
	require.NoError(t, err)
	assert.Equal(t, "zu", reply.Language)
	assert.Equal(t, DefaultTemplates[intent.ContactInfo]["en"], reply.Response)
}

func TestTemplatesRender(t *testing.T) {
	tpl := Templates{
		intent.Unknown:  {"en": "unknown"},
		intent.Greeting: {"en": "hello", "af": "hallo"},
	}
	assert.Equal(t, "hallo", tpl.Render(intent.Greeting, "af"))
	assert.Equal(t, "hello", tpl.Render(intent.Greeting, "xh"))
	assert.Equal(t, "unknown", tpl.Render(intent.Emergency, "af"))

	for _, in := range []intent.Intent{
		intent.BursaryApplication, intent.IssueReporting, intent.StatusCheck,
		intent.InformationRequest, intent.AreaInquiry, intent.ContactInfo,
		intent.Emergency, intent.Greeting, intent.Goodbye, intent.Complaint, intent.Unknown,
	} {
		for _, lang := range SupportedLanguages {
			assert.NotEmpty(t, DefaultTemplates.Render(in, lang), "%s/%s", in, lang)
		}
	}
}

func TestInspect(t *testing.T) {
	f := newFixture(t, Config{Classifier: fixed(intent.BursaryApplication, 0.9)})
	ctx := context.Background()

	_, err := f.assistant.Inspect(ctx, "nobody")
	assert.ErrorIs(t, err, session_store.ErrNotFound)

	_, err = f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "bursary for ID 9001015009087"})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)
	_, err = f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "bursary please"})
	require.NoError(t, err)

	view, err := f.assistant.Inspect(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", view.UserID)
	assert.Equal(t, intent.BursaryApplication, view.CurrentIntent)
	assert.Equal(t, "en", view.Language)
	assert.Equal(t, 4, view.InteractionCount)
	assert.Equal(t, "2m0s", view.SessionDuration)
	assert.Equal(t, "9001015009087", view.Entities.First(entities.IDNumber))
}

func TestStatelessWithoutStore(t *testing.T) {
	a := New(Config{Classifier: fixed(intent.Greeting, 0.8)})
	reply, err := a.Handle(context.Background(), Turn{UserID: "u1", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplates[intent.Greeting]["en"], reply.Response)

	_, err = a.Inspect(context.Background(), "u1")
	assert.ErrorIs(t, err, session_store.ErrNotFound)
}

func TestReplyRender(t *testing.T) {
	assert.Equal(t, "hi", Reply{Response: "hi"}.Render())
	assert.Equal(t, "call 10111\n\n"+EscalationNotice, Reply{Response: "call 10111", RequiresHuman: true}.Render())
}

func TestReset(t *testing.T) {
	f := newFixture(t, Config{Classifier: fixed(intent.Greeting, 0.8)})
	ctx := context.Background()

	_, err := f.assistant.Handle(ctx, Turn{UserID: "u1", Message: "hello"})
	require.NoError(t, err)
	require.NoError(t, f.assistant.Reset(ctx, "u1"))

	_, err = f.assistant.Inspect(ctx, "u1")
	assert.ErrorIs(t, err, session_store.ErrNotFound)
}
