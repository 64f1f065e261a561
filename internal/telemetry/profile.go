// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tracks usage analytics for the active user profile.
package telemetry

import (
	"sync"
	"time"
)

// =============================================================================
// USAGE PROFILE
// =============================================================================

// UsageProfile is the single persisted analytics record.
type UsageProfile struct {
	PromptCount   int            `json:"prompt_count"`
	CharsSent     int64          `json:"chars_sent"`
	CharsReceived int64          `json:"chars_received"`
	AvgLatencyMs  float64        `json:"avg_latency_ms"`
	ModelCounts   map[string]int `json:"model_counts"`
	LastActive    time.Time      `json:"last_active"`
}

// MostUsedModel returns the model with the highest frequency, or "" when
// nothing has been recorded yet. Ties break on lexicographic order so the
// answer is stable.
func (p *UsageProfile) MostUsedModel() string {
	best := ""
	bestCount := 0
	for name, count := range p.ModelCounts {
		if count > bestCount || (count == bestCount && best != "" && name < best) {
			best = name
			bestCount = count
		}
	}
	return best
}

// =============================================================================
// TRACKER
// =============================================================================

// ProfileStore persists the usage profile.
type ProfileStore interface {
	LoadUsageProfile() (UsageProfile, error)
	SaveUsageProfile(UsageProfile) error
}

// Tracker accumulates per-send analytics into the usage profile and writes
// it through to the store after every update.
type Tracker struct {
	mu      sync.Mutex
	profile UsageProfile
	store   ProfileStore
}

// NewTracker loads the persisted profile. A load error starts from a zero
// profile rather than failing, since analytics must never block a send.
func NewTracker(store ProfileStore) *Tracker {
	t := &Tracker{store: store}
	if store != nil {
		if p, err := store.LoadUsageProfile(); err == nil {
			t.profile = p
		}
	}
	if t.profile.ModelCounts == nil {
		t.profile.ModelCounts = make(map[string]int)
	}
	return t
}

// RecordSend folds one completed exchange into the profile. The latency
// average is a rolling mean over all prompts: (old*(n-1) + this) / n.
func (t *Tracker) RecordSend(modelName string, sentChars, receivedChars int, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.profile.PromptCount++
	t.profile.CharsSent += int64(sentChars)
	t.profile.CharsReceived += int64(receivedChars)

	n := float64(t.profile.PromptCount)
	thisMs := float64(latency.Milliseconds())
	t.profile.AvgLatencyMs = (t.profile.AvgLatencyMs*(n-1) + thisMs) / n

	t.profile.ModelCounts[modelName]++
	t.profile.LastActive = time.Now()

	if t.store != nil {
		// Persistence failures are swallowed; the in-memory profile stays
		// authoritative for this run.
		_ = t.store.SaveUsageProfile(t.profile)
	}
}

// Profile returns a copy of the current profile.
func (t *Tracker) Profile() UsageProfile {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.profile
	p.ModelCounts = make(map[string]int, len(t.profile.ModelCounts))
	for k, v := range t.profile.ModelCounts {
		p.ModelCounts[k] = v
	}
	return p
}
