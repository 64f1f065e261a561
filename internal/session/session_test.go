// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
	"github.com/EfeTurkel/LocalMind-sub000/internal/provider"
)

func newTestSession() *Session {
	return New(provider.ModeGeneral, "grok-4")
}

func TestAppendUserTurn(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantAdded   bool
		wantContent string
	}{
		{"plain text", "hello", true, "hello"},
		{"trims whitespace", "  hello  ", true, "hello"},
		{"empty", "", false, ""},
		{"whitespace only", "   \n\t", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession()
			turn, added := s.AppendUserTurn(tt.input)
			if added != tt.wantAdded {
				t.Fatalf("added = %v, want %v", added, tt.wantAdded)
			}
			if !added {
				if !s.IsEmpty() {
					t.Error("rejected input should leave session empty")
				}
				return
			}
			if turn.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", turn.Content, tt.wantContent)
			}
			if !turn.FromUser {
				t.Error("user turn should have FromUser set")
			}
		})
	}
}

func TestBeginPlaceholder_Idempotent(t *testing.T) {
	s := newTestSession()

	first := s.BeginPlaceholder("grok-4")
	second := s.BeginPlaceholder("grok-4")

	if first.ID != second.ID {
		t.Error("second BeginPlaceholder should return the existing placeholder")
	}

	count := 0
	for _, turn := range s.Turns() {
		if turn.Placeholder {
			count++
		}
	}
	if count != 1 {
		t.Errorf("placeholder count = %d, want 1", count)
	}
}

func TestBeginPlaceholder_ConcurrentSends(t *testing.T) {
	s := newTestSession()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.BeginPlaceholder("grok-4")
		}()
	}
	wg.Wait()

	count := 0
	for _, turn := range s.Turns() {
		if turn.Placeholder {
			count++
		}
	}
	if count != 1 {
		t.Errorf("placeholder count = %d, want 1", count)
	}
}

func TestResolvePlaceholder(t *testing.T) {
	s := newTestSession()
	s.AppendUserTurn("question")
	s.BeginPlaceholder("grok-4")

	turn, err := s.ResolvePlaceholder("answer", "grok-4")
	if err != nil {
		t.Fatalf("ResolvePlaceholder: %v", err)
	}
	if turn.Content != "answer" || turn.ModelTag != "grok-4" {
		t.Errorf("resolved turn = %+v", turn)
	}

	turns := s.Turns()
	if len(turns) != 2 {
		t.Fatalf("turn count = %d, want 2", len(turns))
	}
	if turns[1].Placeholder {
		t.Error("placeholder survived resolution")
	}
	if s.HasPlaceholder() {
		t.Error("HasPlaceholder should be false after resolve")
	}
}

func TestResolvePlaceholder_NoPlaceholder(t *testing.T) {
	s := newTestSession()
	s.AppendUserTurn("question")

	_, err := s.ResolvePlaceholder("answer", "grok-4")
	if !errors.Is(err, ErrNoPlaceholder) {
		t.Errorf("err = %v, want ErrNoPlaceholder", err)
	}
	if got := s.TurnCount(); got != 1 {
		t.Errorf("turn count = %d, want 1 (nothing appended)", got)
	}
}

func TestRemovePlaceholder(t *testing.T) {
	s := newTestSession()
	s.AppendUserTurn("question")
	s.BeginPlaceholder("grok-4")

	s.RemovePlaceholder()
	if s.HasPlaceholder() {
		t.Error("placeholder should be removed")
	}
	if got := s.TurnCount(); got != 1 {
		t.Errorf("turn count = %d, want 1", got)
	}

	// Removing again is a no-op.
	s.RemovePlaceholder()
	if got := s.TurnCount(); got != 1 {
		t.Errorf("turn count after second remove = %d, want 1", got)
	}
}

func TestClear(t *testing.T) {
	s := newTestSession()
	s.AppendUserTurn("question")
	s.SetPendingInput("draft")
	s.SetAwaiting(true)

	s.Clear()

	if !s.IsEmpty() {
		t.Error("session should be empty after Clear")
	}
	if s.PendingInput() != "" {
		t.Error("pending input should be cleared")
	}
	if s.IsAwaiting() {
		t.Error("awaiting should be cleared")
	}
}

func TestRestore(t *testing.T) {
	s := newTestSession()
	s.AppendUserTurn("old content")

	stored := []model.Turn{
		model.NewUserTurn("restored question"),
		model.NewAssistantTurn("restored answer", "claude-sonnet"),
		model.NewPlaceholderTurn("claude-sonnet"), // stale flag in stored data
	}
	s.Restore(stored)

	turns := s.Turns()
	if len(turns) != 3 {
		t.Fatalf("turn count = %d, want 3", len(turns))
	}
	for i, turn := range turns {
		if turn.Placeholder {
			t.Errorf("turns[%d] still marked placeholder after restore", i)
		}
	}
	if turns[0].Content != "restored question" {
		t.Errorf("turns[0].Content = %q", turns[0].Content)
	}

	// Restore takes a copy; mutating the source must not reach the session.
	stored[0].Content = "mutated"
	if s.Turns()[0].Content == "mutated" {
		t.Error("Restore aliased the caller's slice")
	}
}

func TestSelection(t *testing.T) {
	s := newTestSession()

	s.SetMode(provider.ModeCoding)
	if s.Mode() != provider.ModeCoding {
		t.Errorf("mode = %q", s.Mode())
	}

	s.SetModel("claude-sonnet")
	if s.Model() != "claude-sonnet" {
		t.Errorf("model = %q", s.Model())
	}
}
