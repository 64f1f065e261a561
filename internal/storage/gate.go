// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SupportGateState is the persisted daily support gate record.
type SupportGateState struct {
	LastPerformed time.Time
	Count         int
}

// Due reports whether the gate blocks sends at the given instant: the gate
// is due when the last performed instant falls on an earlier calendar day.
func (g SupportGateState) Due(now time.Time) bool {
	if g.LastPerformed.IsZero() {
		return true
	}
	ly, lm, ld := g.LastPerformed.Date()
	ny, nm, nd := now.Date()
	return ly != ny || lm != nm || ld != nd
}

// LoadSupportGate returns the persisted gate state; a missing row yields a
// zero state (gate due).
func (s *Store) LoadSupportGate() (SupportGateState, error) {
	var (
		state         SupportGateState
		lastPerformed int64
	)
	err := s.db.QueryRow(`SELECT last_performed, count FROM support_gate WHERE id = 1`).
		Scan(&lastPerformed, &state.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return SupportGateState{}, nil
	}
	if err != nil {
		return SupportGateState{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if lastPerformed > 0 {
		state.LastPerformed = time.UnixMilli(lastPerformed)
	}
	return state, nil
}

// PerformSupportGate marks the gate performed now and increments the running
// count, returning the updated state.
func (s *Store) PerformSupportGate() (SupportGateState, error) {
	state, err := s.LoadSupportGate()
	if err != nil {
		return SupportGateState{}, err
	}
	state.LastPerformed = time.Now()
	state.Count++

	_, err = s.db.Exec(`
		INSERT INTO support_gate (id, last_performed, count) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_performed = excluded.last_performed, count = excluded.count`,
		state.LastPerformed.UnixMilli(), state.Count)
	if err != nil {
		return SupportGateState{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return state, nil
}
