// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the in-memory state of the conversation currently
// on screen: its ordered turns, the composing input, and the mode/model
// selection. Exactly one session is active at a time.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
	"github.com/EfeTurkel/LocalMind-sub000/internal/provider"
)

// ErrNoPlaceholder is returned when ResolvePlaceholder is called while no
// placeholder turn exists. Callers treat it as a logged no-op, never a crash.
var ErrNoPlaceholder = errors.New("no placeholder turn in session")

// =============================================================================
// SESSION
// =============================================================================

// Session is the mutable state behind the active chat screen.
//
// All methods are safe for concurrent use; provider results arrive from a
// goroutine while the UI thread reads and appends.
type Session struct {
	mu sync.Mutex

	turns        []model.Turn
	pendingInput string
	awaiting     bool

	selectedMode  provider.Mode
	selectedModel string
}

// New creates an empty session with the given defaults.
func New(mode provider.Mode, modelName string) *Session {
	return &Session{
		selectedMode:  mode,
		selectedModel: modelName,
	}
}

// =============================================================================
// TURN MANAGEMENT
// =============================================================================

// AppendUserTurn appends a finalized user turn. Input is trimmed; empty
// input is a no-op. Returns the appended turn and whether one was appended.
func (s *Session) AppendUserTurn(text string) (model.Turn, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Turn{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	turn := model.NewUserTurn(text)
	s.turns = append(s.turns, turn)
	return turn, true
}

// AppendNotice appends a system/error notice turn.
func (s *Session) AppendNotice(text string) model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turn := model.NewNoticeTurn(text)
	s.turns = append(s.turns, turn)
	return turn
}

// BeginPlaceholder appends a placeholder turn unless one already exists.
// Idempotent: at most one placeholder lives in the session at any time,
// which is the safety net against overlapping sends.
func (s *Session) BeginPlaceholder(modelTag string) model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.placeholderIndexLocked(); idx >= 0 {
		return s.turns[idx]
	}

	turn := model.NewPlaceholderTurn(modelTag)
	s.turns = append(s.turns, turn)
	return turn
}

// ResolvePlaceholder replaces the placeholder with a finalized assistant
// turn carrying responseText. The placeholder is replaced, not mutated, so
// ordering stays unambiguous. Returns ErrNoPlaceholder if none exists.
func (s *Session) ResolvePlaceholder(responseText, modelTag string) (model.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.placeholderIndexLocked()
	if idx < 0 {
		return model.Turn{}, ErrNoPlaceholder
	}

	turn := model.NewAssistantTurn(responseText, modelTag)
	s.turns[idx] = turn
	return turn, nil
}

// RemovePlaceholder deletes the placeholder turn if present. Mandatory on
// every failure path so a stale placeholder never survives.
func (s *Session) RemovePlaceholder() {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.placeholderIndexLocked()
	if idx < 0 {
		return
	}
	s.turns = append(s.turns[:idx], s.turns[idx+1:]...)
}

// HasPlaceholder reports whether a placeholder turn exists.
func (s *Session) HasPlaceholder() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeholderIndexLocked() >= 0
}

// placeholderIndexLocked returns the placeholder's index or -1.
// Caller must hold s.mu.
func (s *Session) placeholderIndexLocked() int {
	for i, t := range s.turns {
		if t.Placeholder {
			return i
		}
	}
	return -1
}

// Clear empties the session. Used when the user returns home.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.pendingInput = ""
	s.awaiting = false
}

// Restore replaces the session content with a stored transcript's turns,
// all marked non-placeholder.
func (s *Session) Restore(turns []model.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = make([]model.Turn, len(turns))
	copy(s.turns, turns)
	for i := range s.turns {
		s.turns[i].Placeholder = false
	}
	s.pendingInput = ""
	s.awaiting = false
}

// Turns returns a copy of the session's turns in order.
func (s *Session) Turns() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// IsEmpty reports whether the session has no turns.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns) == 0
}

// TurnCount returns the number of turns in the session.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// =============================================================================
// COMPOSING STATE
// =============================================================================

// SetPendingInput stores the text currently being composed.
func (s *Session) SetPendingInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingInput = text
}

// PendingInput returns the text currently being composed.
func (s *Session) PendingInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingInput
}

// SetAwaiting marks whether a provider call is in flight.
func (s *Session) SetAwaiting(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaiting = v
}

// IsAwaiting reports whether a provider call is in flight. The UI layer is
// expected to disable further sends while true.
func (s *Session) IsAwaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// =============================================================================
// SELECTION
// =============================================================================

// SetMode selects the conversation mode.
func (s *Session) SetMode(m provider.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedMode = m
}

// Mode returns the selected conversation mode.
func (s *Session) Mode() provider.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedMode
}

// SetModel selects the provider-qualified model name.
func (s *Session) SetModel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedModel = name
}

// Model returns the selected model name.
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedModel
}
