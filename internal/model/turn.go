// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for turns and transcripts.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn represents a single message in a conversation.
//
// A turn is immutable once finalized. The only lifecycle transition is a
// placeholder turn being replaced (not mutated) by a finalized assistant
// turn when the provider responds.
type Turn struct {
	// Identity
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content  string `json:"content"`
	FromUser bool   `json:"from_user"`

	// Placeholder marks the "thinking" turn shown while a provider call is
	// in flight. Never persisted, never sent as history.
	Placeholder bool `json:"placeholder,omitempty"`

	// ModelTag names the model that produced an assistant turn.
	// Empty for user turns and for system/error notices.
	ModelTag string `json:"model_tag,omitempty"`
}

// NewUserTurn creates a finalized user turn.
func NewUserTurn(content string) Turn {
	return Turn{
		ID:        generateTurnID(),
		Timestamp: time.Now(),
		Content:   content,
		FromUser:  true,
	}
}

// NewAssistantTurn creates a finalized assistant turn tagged with the model
// that produced it.
func NewAssistantTurn(content, modelTag string) Turn {
	return Turn{
		ID:        generateTurnID(),
		Timestamp: time.Now(),
		Content:   content,
		ModelTag:  modelTag,
	}
}

// NewNoticeTurn creates a system/error notice turn. Notices occupy the
// assistant slot visually but carry no model tag, which is what excludes
// them from provider history.
func NewNoticeTurn(content string) Turn {
	return Turn{
		ID:        generateTurnID(),
		Timestamp: time.Now(),
		Content:   content,
	}
}

// NewPlaceholderTurn creates the transient "awaiting response" turn.
func NewPlaceholderTurn(modelTag string) Turn {
	return Turn{
		ID:          generateTurnID(),
		Timestamp:   time.Now(),
		Placeholder: true,
		ModelTag:    modelTag,
	}
}

// =============================================================================
// TURN METHODS
// =============================================================================

// IsNotice reports whether the turn is a system/error notice: not from the
// user and carrying no model tag.
func (t Turn) IsNotice() bool {
	return !t.FromUser && !t.Placeholder && t.ModelTag == ""
}

// IsChat reports whether the turn is real conversation content eligible for
// provider history.
func (t Turn) IsChat() bool {
	return !t.Placeholder && !t.IsNotice()
}

// Preview returns a truncated single-line preview of the turn content.
// Uses rune-based truncation to handle Unicode correctly.
func (t Turn) Preview(maxLen int) string {
	content := strings.ReplaceAll(t.Content, "\n", " ")
	content = strings.ReplaceAll(content, "\r", "")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateTurnID creates a unique turn ID.
func generateTurnID() string {
	return "turn_" + uuid.New().String()
}
