// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/EfeTurkel/LocalMind-sub000/internal/telemetry"
)

// =============================================================================
// USAGE PROFILE ROW
// =============================================================================

// LoadUsageProfile returns the persisted analytics record. A missing row
// yields a zero profile, not an error.
func (s *Store) LoadUsageProfile() (telemetry.UsageProfile, error) {
	var (
		p          telemetry.UsageProfile
		countsJSON string
		lastActive int64
	)
	err := s.db.QueryRow(`
		SELECT prompt_count, chars_sent, chars_received, avg_latency_ms, model_counts, last_active
		FROM profile WHERE id = 1`).
		Scan(&p.PromptCount, &p.CharsSent, &p.CharsReceived, &p.AvgLatencyMs, &countsJSON, &lastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return telemetry.UsageProfile{ModelCounts: map[string]int{}}, nil
	}
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if err := json.Unmarshal([]byte(countsJSON), &p.ModelCounts); err != nil {
		p.ModelCounts = map[string]int{}
	}
	if lastActive > 0 {
		p.LastActive = time.UnixMilli(lastActive)
	}
	return p, nil
}

// SaveUsageProfile upserts the single analytics row.
func (s *Store) SaveUsageProfile(p telemetry.UsageProfile) error {
	countsJSON, err := json.Marshal(p.ModelCounts)
	if err != nil {
		return fmt.Errorf("failed to encode model counts: %w", err)
	}
	var lastActive int64
	if !p.LastActive.IsZero() {
		lastActive = p.LastActive.UnixMilli()
	}

	_, err = s.db.Exec(`
		INSERT INTO profile (id, prompt_count, chars_sent, chars_received, avg_latency_ms, model_counts, last_active)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			prompt_count   = excluded.prompt_count,
			chars_sent     = excluded.chars_sent,
			chars_received = excluded.chars_received,
			avg_latency_ms = excluded.avg_latency_ms,
			model_counts   = excluded.model_counts,
			last_active    = excluded.last_active`,
		p.PromptCount, p.CharsSent, p.CharsReceived, p.AvgLatencyMs, string(countsJSON), lastActive)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}
