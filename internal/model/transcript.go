// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is an ordered sequence of finalized turns. A persisted
// transcript is never empty; its identity is the timestamp of its first
// turn, which is stable because transcripts are created atomically and
// never merged.
type Transcript struct {
	Turns []Turn `json:"turns"`
}

// NoIdentity is returned by Identity for an empty transcript.
const NoIdentity int64 = 0

// Identity returns the transcript's natural key: the first turn's timestamp
// in Unix milliseconds, or NoIdentity for an empty transcript.
func (tr Transcript) Identity() int64 {
	if len(tr.Turns) == 0 {
		return NoIdentity
	}
	return tr.Turns[0].Timestamp.UnixMilli()
}

// IsEmpty reports whether the transcript has no turns.
func (tr Transcript) IsEmpty() bool {
	return len(tr.Turns) == 0
}

// Title returns a short title derived from the first user turn.
func (tr Transcript) Title() string {
	for _, t := range tr.Turns {
		if t.FromUser && t.Content != "" {
			return t.Preview(50)
		}
	}
	return "New conversation"
}

// Preview returns a longer preview line for listing.
func (tr Transcript) Preview() string {
	for _, t := range tr.Turns {
		if t.FromUser && t.Content != "" {
			return t.Preview(80)
		}
	}
	return ""
}

// CreatedAt returns the first turn's timestamp, or the zero time for an
// empty transcript.
func (tr Transcript) CreatedAt() time.Time {
	if len(tr.Turns) == 0 {
		return time.Time{}
	}
	return tr.Turns[0].Timestamp
}

// ExportMarkdown renders the transcript as a Markdown document with role
// labels and timestamps.
func (tr Transcript) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + tr.Title() + "\n\n")
	if !tr.IsEmpty() {
		sb.WriteString("Created: " + tr.CreatedAt().Format(time.RFC3339) + "\n\n")
	}
	sb.WriteString("---\n\n")

	for _, t := range tr.Turns {
		label := "**Assistant**"
		if t.FromUser {
			label = "**User**"
		} else if t.IsNotice() {
			label = "**Notice**"
		}
		sb.WriteString(label + " (" + t.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(t.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}
