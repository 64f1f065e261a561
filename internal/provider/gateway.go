// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
)

// DefaultTimeout bounds every provider request. Provider unavailability
// surfaces as a transport failure, distinct from a malformed response.
const DefaultTimeout = 60 * time.Second

// MaxResponseSize is the maximum allowed response body size for hand-rolled
// HTTP gateways. Larger responses are rejected rather than buffered.
const MaxResponseSize = 10 * 1024 * 1024

// =============================================================================
// SYSTEM CONTEXT
// =============================================================================

// SystemContext carries the persona and mode settings threaded explicitly
// into every gateway call, instead of gateways reading ambient globals.
type SystemContext struct {
	ModePrompt         string
	PersonaAvatar      string
	PersonaStyle       string
	CustomInstructions string
}

// NewSystemContext builds a SystemContext for the given mode and persona.
func NewSystemContext(mode Mode, avatar, style, custom string) SystemContext {
	return SystemContext{
		ModePrompt:         mode.Prompt(),
		PersonaAvatar:      avatar,
		PersonaStyle:       style,
		CustomInstructions: custom,
	}
}

// SystemPrompt assembles the single system instruction sent with every
// request: avatar name, persona style, custom instructions, then the active
// mode's fixed prompt, in that order.
func (sc SystemContext) SystemPrompt() string {
	var parts []string
	if sc.PersonaAvatar != "" {
		parts = append(parts, "Your name is "+sc.PersonaAvatar+".")
	}
	if sc.PersonaStyle != "" {
		parts = append(parts, "Your personality is "+sc.PersonaStyle+".")
	}
	if sc.CustomInstructions != "" {
		parts = append(parts, sc.CustomInstructions)
	}
	if sc.ModePrompt != "" {
		parts = append(parts, sc.ModePrompt)
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// GATEWAY CONTRACT
// =============================================================================

// Gateway sends one turn plus trimmed history to an LLM backend and returns
// normalized response text or a typed failure.
//
// History is already trimmed by the caller: at most model.MaxHistoryTurns
// turns, no placeholders, no notices. The outgoing message is always passed
// separately from history.
type Gateway interface {
	// Name returns the provider name ("grok", "openai", "anthropic",
	// "gemini", "demo").
	Name() string

	// Send performs the provider call and returns the assistant text.
	// Errors are *Failure values wrapping the underlying cause.
	Send(ctx context.Context, message string, history []model.Turn, sysCtx SystemContext) (string, error)
}

// =============================================================================
// FAILURE TAXONOMY
// =============================================================================

// FailureKind classifies a gateway failure.
type FailureKind int

const (
	// FailureTransport covers timeouts, connectivity loss, and undecodable
	// error bodies.
	FailureTransport FailureKind = iota
	// FailureServer carries a structured error message decoded from the
	// provider's response body.
	FailureServer
	// FailureDecode marks a 2xx response whose body could not be parsed.
	FailureDecode
)

// Failure is a typed gateway error with a human-readable message suitable
// for an in-conversation notice turn.
type Failure struct {
	Provider string
	Kind     FailureKind
	Message  string
	Status   int
	Err      error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", f.Provider, f.Status, f.Message)
	}
	return fmt.Sprintf("%s error: %s", f.Provider, f.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}

// UserMessage returns the text to show in the conversation.
func (f *Failure) UserMessage() string {
	return f.Message
}

// transportFailure wraps a connectivity/timeout error.
func transportFailure(provider string, err error) *Failure {
	msg := "The request could not be completed. Check your connection and try again."
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "The request timed out. Please try again."
	}
	return &Failure{Provider: provider, Kind: FailureTransport, Message: msg, Err: err}
}

// serverFailure wraps a structured provider error message.
func serverFailure(provider string, status int, message string) *Failure {
	return &Failure{Provider: provider, Kind: FailureServer, Status: status, Message: message}
}

// decodeFailure wraps an unparseable success response.
func decodeFailure(provider string, err error) *Failure {
	return &Failure{
		Provider: provider,
		Kind:     FailureDecode,
		Message:  "The provider returned an unexpected response.",
		Err:      err,
	}
}
