// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator drives the send state machine: gating checks, provider
// resolution, the async gateway call, and transcript finalization.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
	"github.com/EfeTurkel/LocalMind-sub000/internal/provider"
	"github.com/EfeTurkel/LocalMind-sub000/internal/session"
	"github.com/EfeTurkel/LocalMind-sub000/internal/storage"
	"github.com/EfeTurkel/LocalMind-sub000/internal/telemetry"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput rejects a send whose text trims to nothing.
	ErrEmptyInput = errors.New("empty input")
	// ErrSupportGateBlocked rejects a send while the daily support action is due.
	ErrSupportGateBlocked = errors.New("support gate blocked")
	// ErrSendInFlight rejects a send while another is awaiting a response.
	ErrSendInFlight = errors.New("send already in flight")
)

// =============================================================================
// STATES
// =============================================================================

// State is the orchestrator's position in the send lifecycle.
type State int

const (
	StateIdle State = iota
	StateGating
	StateAwaitingProvider
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateGating:
		return "gating"
	case StateAwaitingProvider:
		return "awaiting_provider"
	case StateFinalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

// Source distinguishes user-typed sends from programmatic tips. Tip sends do
// not append a user turn; the text is provider input only.
type Source int

const (
	SourceUser Source = iota
	SourceTip
)

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// TranscriptStore persists finalized transcripts.
type TranscriptStore interface {
	SaveTranscript(model.Transcript) error
}

// SupportGate reports and records the daily support action.
type SupportGate interface {
	LoadSupportGate() (storage.SupportGateState, error)
}

// PendingExchange is a completed exchange whose session went away mid-flight;
// it is delivered out-of-band instead of being forced onto screen.
type PendingExchange struct {
	Turns     []model.Turn
	ModelTag  string
	Completed time.Time
}

// BannerSink receives non-intrusive notifications.
type BannerSink interface {
	ExchangeReady(PendingExchange)
	SupportPromptDue()
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Options wires the orchestrator's collaborators.
type Options struct {
	Session *session.Session
	Store   TranscriptStore
	Tracker *telemetry.Tracker
	Gate    SupportGate
	Banner  BannerSink
	Logger  *slog.Logger

	Credentials provider.Credentials
	Persona     PersonaOptions

	// GateEnabled turns the daily support gate on.
	GateEnabled bool
	// Incognito skips transcript persistence; analytics still update.
	Incognito bool

	// Dial overrides gateway construction (tests inject fakes here).
	Dial func(provider.Route) provider.Gateway
	// Visible reports whether a completed exchange can be applied to the
	// session. Defaults to "session is non-empty".
	Visible func() bool
}

// PersonaOptions feed the system prompt.
type PersonaOptions struct {
	Avatar             string
	Style              string
	CustomInstructions string
}

// Orchestrator coordinates one send at a time from input to persisted
// transcript. A single mutex serializes state transitions; the gateway call
// itself runs on its own goroutine.
type Orchestrator struct {
	mu    sync.Mutex
	state State

	session *session.Session
	store   TranscriptStore
	tracker *telemetry.Tracker
	gate    SupportGate
	banner  BannerSink
	logger  *slog.Logger

	creds   provider.Credentials
	persona PersonaOptions

	gateEnabled bool
	incognito   bool

	dial    func(provider.Route) provider.Gateway
	visible func() bool
	limiter *rate.Limiter
	now     func() time.Time
}

// New builds an orchestrator. Session is required; nil collaborators degrade
// to no-ops so partial wirings stay usable in tests.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		session:     opts.Session,
		store:       opts.Store,
		tracker:     opts.Tracker,
		gate:        opts.Gate,
		banner:      opts.Banner,
		logger:      opts.Logger,
		creds:       opts.Credentials,
		persona:     opts.Persona,
		gateEnabled: opts.GateEnabled,
		incognito:   opts.Incognito,
		dial:        opts.Dial,
		visible:     opts.Visible,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 3),
		now:         time.Now,
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.dial == nil {
		o.dial = provider.Dial
	}
	if o.visible == nil {
		o.visible = func() bool { return !o.session.IsEmpty() }
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SetCredentials swaps the credential set for subsequent sends.
func (o *Orchestrator) SetCredentials(creds provider.Credentials) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.creds = creds
}

// SetIncognito toggles persistence skipping.
func (o *Orchestrator) SetIncognito(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.incognito = v
}

// =============================================================================
// SEND
// =============================================================================

// Send runs the gating phase synchronously and, when it passes, launches the
// provider call on its own goroutine. The returned channel closes when the
// exchange has finalized; it is nil when the send was rejected or gated.
//
// Rejections surface both as the returned error and, where user-facing, as
// notice turns in the session — the conversation is the error channel.
func (o *Orchestrator) Send(ctx context.Context, text string, source Source) (<-chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return nil, ErrSendInFlight
	}
	o.state = StateGating

	message, ok := trimInput(text)
	if !ok {
		o.state = StateIdle
		return nil, ErrEmptyInput
	}

	if o.gateEnabled && o.gate != nil {
		gateState, err := o.gate.LoadSupportGate()
		if err != nil {
			o.logger.Warn("support gate load failed, letting send through", "error", err)
		} else if gateState.Due(o.now()) {
			o.session.AppendNotice("Daily support check is due. Please visit the support screen to continue.")
			if o.banner != nil {
				o.banner.SupportPromptDue()
			}
			o.state = StateIdle
			return nil, ErrSupportGateBlocked
		}
	}

	route, err := provider.Resolve(o.session.Model(), o.creds)
	if err != nil {
		var missing *provider.MissingCredentialError
		if errors.As(err, &missing) {
			// No user turn and no placeholder were created on this path.
			o.session.AppendNotice(missing.UserMessage())
			o.state = StateIdle
			return nil, err
		}
		o.state = StateIdle
		return nil, err
	}

	if source != SourceTip {
		o.session.AppendUserTurn(message)
	}
	o.session.BeginPlaceholder(route.Model)
	o.session.SetAwaiting(true)
	o.state = StateAwaitingProvider

	// History excludes the outgoing message: trimming drops a trailing
	// unanswered user turn, which is exactly the turn just appended.
	history := model.HistoryForProvider(o.session.Turns())
	sysCtx := provider.NewSystemContext(o.session.Mode(), o.persona.Avatar, o.persona.Style, o.persona.CustomInstructions)
	gateway := o.dial(route)

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.deliver(ctx, gateway, route, message, history, sysCtx)
	}()
	return done, nil
}

// deliver performs the network call and applies the outcome. Placeholder
// removal is unconditional on every exit from the awaiting state.
func (o *Orchestrator) deliver(ctx context.Context, gateway provider.Gateway, route provider.Route,
	message string, history []model.Turn, sysCtx provider.SystemContext) {

	if err := o.limiter.Wait(ctx); err != nil {
		o.recoverError(err)
		return
	}

	start := o.now()
	response, err := gateway.Send(ctx, message, history, sysCtx)
	latency := o.now().Sub(start)

	if err != nil {
		o.recoverError(err)
		return
	}
	o.finalize(route, message, response, history, latency)
}

// recoverError is the AwaitingProvider failure exit: drop the placeholder,
// surface the failure as a notice turn, return to idle. No automatic retry.
func (o *Orchestrator) recoverError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.session.RemovePlaceholder()
	o.session.SetAwaiting(false)
	o.session.AppendNotice(failureMessage(err))
	o.state = StateIdle

	o.logger.Warn("send failed", "error", err)
}

// finalize is the success exit: resolve the placeholder (or route the
// exchange to the banner sink when the session went away), persist, update
// analytics.
func (o *Orchestrator) finalize(route provider.Route, message, response string, history []model.Turn, latency time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = StateFinalizing
	o.session.SetAwaiting(false)

	var transcript model.Transcript
	if !o.visible() {
		// User navigated home mid-flight. Do not force the exchange back
		// onto screen; stash it and raise a banner instead.
		o.session.RemovePlaceholder()
		turns := append(append([]model.Turn{}, history...),
			model.NewUserTurn(message),
			model.NewAssistantTurn(response, route.Model))
		transcript = model.Transcript{Turns: turns}
		if o.banner != nil {
			o.banner.ExchangeReady(PendingExchange{
				Turns:     turns,
				ModelTag:  route.Model,
				Completed: o.now(),
			})
		}
	} else {
		if _, err := o.session.ResolvePlaceholder(response, route.Model); err != nil {
			// Invariant breach: nothing to resolve. Logged no-op.
			o.logger.Warn("resolve without placeholder", "model", route.Model)
		}
		transcript = model.Transcript{Turns: o.session.Turns()}
	}

	if !o.incognito && o.store != nil && !transcript.IsEmpty() {
		if err := o.store.SaveTranscript(transcript); err != nil {
			o.logger.Error("transcript persistence failed", "error", err)
		}
	}

	if o.tracker != nil {
		o.tracker.RecordSend(route.Model, len(message), len(response), latency)
	}

	o.state = StateIdle
}

// =============================================================================
// HELPERS
// =============================================================================

func trimInput(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	return trimmed, trimmed != ""
}

// failureMessage prefers the gateway's human-readable message.
func failureMessage(err error) string {
	var failure *provider.Failure
	if errors.As(err, &failure) {
		return failure.UserMessage()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "The request was cancelled before a response arrived."
	}
	return "Something went wrong sending your message. Please try again."
}
