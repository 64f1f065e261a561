// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
	"github.com/EfeTurkel/LocalMind-sub000/internal/provider"
	"github.com/EfeTurkel/LocalMind-sub000/internal/session"
	"github.com/EfeTurkel/LocalMind-sub000/internal/storage"
	"github.com/EfeTurkel/LocalMind-sub000/internal/telemetry"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeGateway returns a scripted response or error.
type fakeGateway struct {
	name     string
	response string
	err      error

	mu          sync.Mutex
	gotMessage  string
	gotHistory  []model.Turn
	gotSysCtx   provider.SystemContext
	callCount   int
	delay       time.Duration
	deliverHook func()
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) Send(ctx context.Context, message string, history []model.Turn, sysCtx provider.SystemContext) (string, error) {
	f.mu.Lock()
	f.gotMessage = message
	f.gotHistory = history
	f.gotSysCtx = sysCtx
	f.callCount++
	hook := f.deliverHook
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if hook != nil {
		hook()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// memTranscriptStore records saved transcripts.
type memTranscriptStore struct {
	mu    sync.Mutex
	saved []model.Transcript
}

func (m *memTranscriptStore) SaveTranscript(t model.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, t)
	return nil
}

func (m *memTranscriptStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func (m *memTranscriptStore) last() model.Transcript {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[len(m.saved)-1]
}

// memBanner records banner notifications.
type memBanner struct {
	mu        sync.Mutex
	exchanges []PendingExchange
	support   int
}

func (b *memBanner) ExchangeReady(ex PendingExchange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exchanges = append(b.exchanges, ex)
}

func (b *memBanner) SupportPromptDue() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.support++
}

// dueGate always reports the support action as due.
type dueGate struct{}

func (dueGate) LoadSupportGate() (storage.SupportGateState, error) {
	return storage.SupportGateState{}, nil
}

// =============================================================================
// FIXTURE
// =============================================================================

type fixture struct {
	sess    *session.Session
	store   *memTranscriptStore
	banner  *memBanner
	gateway *fakeGateway
	orch    *Orchestrator
	tracker *telemetry.Tracker
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		sess:    session.New(provider.ModeGeneral, "grok-4"),
		store:   &memTranscriptStore{},
		banner:  &memBanner{},
		gateway: &fakeGateway{name: "grok", response: "canned answer"},
	}
	f.tracker = telemetry.NewTracker(nil)

	opts := Options{
		Session:     f.sess,
		Store:       f.store,
		Tracker:     f.tracker,
		Banner:      f.banner,
		Credentials: provider.Credentials{Grok: "key"},
		Dial:        func(provider.Route) provider.Gateway { return f.gateway },
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.orch = New(opts)
	return f
}

func (f *fixture) send(t *testing.T, text string) {
	t.Helper()
	done, err := f.orch.Send(context.Background(), text, SourceUser)
	require.NoError(t, err)
	<-done
}

// =============================================================================
// TESTS
// =============================================================================

func TestSend_SuccessfulExchange(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, "Hello")

	turns := f.sess.Turns()
	require.Len(t, turns, 2)
	assert.True(t, turns[0].FromUser)
	assert.Equal(t, "Hello", turns[0].Content)
	assert.Equal(t, "canned answer", turns[1].Content)
	assert.Equal(t, "grok-4", turns[1].ModelTag)
	assert.False(t, f.sess.HasPlaceholder())
	assert.False(t, f.sess.IsAwaiting())

	require.Equal(t, 1, f.store.count(), "2-turn transcript persisted")
	assert.Len(t, f.store.last().Turns, 2)

	assert.Equal(t, StateIdle, f.orch.State())
	assert.Equal(t, 1, f.tracker.Profile().PromptCount)
}

func TestSend_DemoFallbackScenario(t *testing.T) {
	// No credentials and a default-family model: resolver degrades to the
	// demo gateway rather than erroring.
	sess := session.New(provider.ModeGeneral, "grok-4")
	store := &memTranscriptStore{}
	orch := New(Options{
		Session: sess,
		Store:   store,
		Tracker: telemetry.NewTracker(nil),
	})

	done, err := orch.Send(context.Background(), "Hello", SourceUser)
	require.NoError(t, err)

	// Placeholder is visible while the demo gateway is in flight.
	assert.True(t, sess.IsAwaiting())

	<-done

	turns := sess.Turns()
	require.Len(t, turns, 2)
	assert.True(t, turns[0].FromUser)
	assert.False(t, turns[1].FromUser)
	assert.NotEmpty(t, turns[1].Content)
	assert.False(t, sess.HasPlaceholder())
	require.Equal(t, 1, store.count())
}

func TestSend_EmptyInputRejected(t *testing.T) {
	f := newFixture(t, nil)

	done, err := f.orch.Send(context.Background(), "   \n ", SourceUser)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, done)
	assert.True(t, f.sess.IsEmpty(), "no turn emitted for empty input")
	assert.Equal(t, StateIdle, f.orch.State())
}

func TestSend_MissingCredentialScenario(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Credentials = provider.Credentials{} // no keys at all
	})
	f.sess.SetModel("claude-sonnet-4")

	done, err := f.orch.Send(context.Background(), "Hi", SourceUser)
	assert.Nil(t, done)

	var missing *provider.MissingCredentialError
	require.ErrorAs(t, err, &missing)

	// No user turn for "Hi", no placeholder: only the error notice.
	turns := f.sess.Turns()
	require.Len(t, turns, 1)
	assert.True(t, turns[0].IsNotice())
	assert.Contains(t, turns[0].Content, "Claude")
	assert.False(t, f.sess.HasPlaceholder())
	assert.Equal(t, 0, f.store.count(), "nothing persisted")
	assert.Equal(t, StateIdle, f.orch.State())
}

func TestSend_GatewayFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.err = errors.New("connection reset")

	f.send(t, "Hello")

	turns := f.sess.Turns()
	require.Len(t, turns, 2, "user turn plus error notice")
	assert.True(t, turns[0].FromUser)
	assert.True(t, turns[1].IsNotice())
	assert.False(t, f.sess.HasPlaceholder(), "stale placeholder must never survive a failure")
	assert.False(t, f.sess.IsAwaiting())
	assert.Equal(t, 0, f.store.count(), "failed exchange is not persisted")
	assert.Equal(t, StateIdle, f.orch.State())
}

func TestSend_FailureUsesProviderMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.err = &provider.Failure{
		Provider: "grok",
		Kind:     provider.FailureServer,
		Status:   429,
		Message:  "Rate limit exceeded, slow down.",
	}

	f.send(t, "Hello")

	turns := f.sess.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "Rate limit exceeded, slow down.", turns[1].Content)
}

func TestSend_TipSourceSkipsUserTurn(t *testing.T) {
	f := newFixture(t, nil)

	done, err := f.orch.Send(context.Background(), "daily tip request", SourceTip)
	require.NoError(t, err)
	<-done

	turns := f.sess.Turns()
	require.Len(t, turns, 1, "tip sends only produce the assistant turn")
	assert.False(t, turns[0].FromUser)
	assert.Equal(t, "canned answer", turns[0].Content)
	assert.Equal(t, "daily tip request", f.gateway.gotMessage, "tip text still reaches the provider")
}

func TestSend_HistoryExcludesOutgoingMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.sess.Restore([]model.Turn{
		model.NewUserTurn("earlier question"),
		model.NewAssistantTurn("earlier answer", "grok-4"),
	})

	f.send(t, "follow-up")

	require.Len(t, f.gateway.gotHistory, 2, "history is the prior exchange only")
	assert.Equal(t, "earlier question", f.gateway.gotHistory[0].Content)
	assert.Equal(t, "follow-up", f.gateway.gotMessage)
}

func TestSend_SupportGateBlocks(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.GateEnabled = true
		o.Gate = dueGate{}
	})

	done, err := f.orch.Send(context.Background(), "Hello", SourceUser)
	assert.ErrorIs(t, err, ErrSupportGateBlocked)
	assert.Nil(t, done)

	turns := f.sess.Turns()
	require.Len(t, turns, 1, "gate appends a notice and nothing else")
	assert.True(t, turns[0].IsNotice())
	assert.Equal(t, 1, f.banner.support)
	assert.Equal(t, 0, f.gateway.callCount, "gate runs before provider resolution")
}

func TestSend_RejectsWhileInFlight(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.delay = 200 * time.Millisecond

	done, err := f.orch.Send(context.Background(), "first", SourceUser)
	require.NoError(t, err)

	_, err = f.orch.Send(context.Background(), "second", SourceUser)
	assert.ErrorIs(t, err, ErrSendInFlight)

	<-done
	assert.Equal(t, 1, f.gateway.callCount)
}

func TestSend_NavigateAwayMidFlight(t *testing.T) {
	f := newFixture(t, nil)
	// Clear the session while the provider call is in flight, as a user
	// returning home would.
	f.gateway.deliverHook = func() { f.sess.Clear() }

	f.send(t, "Hello")

	assert.True(t, f.sess.IsEmpty(), "exchange must not be forced back on screen")

	f.banner.mu.Lock()
	exchanges := f.banner.exchanges
	f.banner.mu.Unlock()
	require.Len(t, exchanges, 1, "exchange routed to the banner sink")
	turns := exchanges[0].Turns
	require.Len(t, turns, 2)
	assert.Equal(t, "Hello", turns[0].Content)
	assert.Equal(t, "canned answer", turns[1].Content)

	require.Equal(t, 1, f.store.count(), "pending exchange is still persisted")
}

func TestSend_IncognitoSkipsPersistence(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Incognito = true })

	f.send(t, "Hello")

	assert.Equal(t, 0, f.store.count(), "incognito skips persistence")
	assert.Equal(t, 1, f.tracker.Profile().PromptCount, "analytics still update")
	require.Len(t, f.sess.Turns(), 2, "session behaves normally")
}

func TestSend_AnalyticsRecorded(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, "Hello")

	p := f.tracker.Profile()
	assert.Equal(t, 1, p.PromptCount)
	assert.Equal(t, int64(len("Hello")), p.CharsSent)
	assert.Equal(t, int64(len("canned answer")), p.CharsReceived)
	assert.Equal(t, 1, p.ModelCounts["grok-4"])
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateGating, "gating"},
		{StateAwaitingProvider, "awaiting_provider"},
		{StateFinalizing, "finalizing"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
