// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
)

// =============================================================================
// TRANSCRIPT CRUD
// =============================================================================

// SaveTranscript upserts a transcript keyed by its identity (the first turn's
// UnixMilli timestamp). When the identity already exists, turns are replaced
// positionally and index-aligned positions keep their originally stored
// timestamps; new trailing turns keep their own.
func (s *Store) SaveTranscript(t model.Transcript) error {
	if t.IsEmpty() {
		return ErrEmptyTranscript
	}
	identity := t.Identity()
	now := time.Now().UnixMilli()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	var existingJSON string
	err = tx.QueryRow(`SELECT turns FROM transcripts WHERE identity = ?`, identity).Scan(&existingJSON)
	switch {
	case err == nil:
		var existing []model.Turn
		if jsonErr := json.Unmarshal([]byte(existingJSON), &existing); jsonErr == nil {
			for i := range t.Turns {
				if i < len(existing) {
					t.Turns[i].Timestamp = existing[i].Timestamp
				}
			}
		}
		data, jsonErr := json.Marshal(t.Turns)
		if jsonErr != nil {
			return fmt.Errorf("failed to encode turns: %w", jsonErr)
		}
		if _, err := tx.Exec(`UPDATE transcripts SET turns = ?, updated_at = ? WHERE identity = ?`,
			string(data), now, identity); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		data, jsonErr := json.Marshal(t.Turns)
		if jsonErr != nil {
			return fmt.Errorf("failed to encode turns: %w", jsonErr)
		}
		if _, err := tx.Exec(`INSERT INTO transcripts (identity, created_at, updated_at, turns) VALUES (?, ?, ?, ?)`,
			identity, identity, now, string(data)); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	default:
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return tx.Commit()
}

// LoadAll returns every stored transcript ordered by descending identity,
// most recent first.
func (s *Store) LoadAll() ([]model.Transcript, error) {
	rows, err := s.db.Query(`SELECT turns FROM transcripts ORDER BY identity DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []model.Transcript
	for rows.Next() {
		var turnsJSON string
		if err := rows.Scan(&turnsJSON); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		var turns []model.Turn
		if err := json.Unmarshal([]byte(turnsJSON), &turns); err != nil {
			return nil, fmt.Errorf("failed to decode turns: %w", err)
		}
		out = append(out, model.Transcript{Turns: turns})
	}
	return out, rows.Err()
}

// DeleteAt removes the transcript at the given position in the descending
// listing, along with its pin entry and cached title. Out-of-range indexes
// are a silent no-op.
func (s *Store) DeleteAt(index int) error {
	if index < 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	var identity int64
	err = tx.QueryRow(`SELECT identity FROM transcripts ORDER BY identity DESC LIMIT 1 OFFSET ?`, index).Scan(&identity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for _, stmt := range []string{
		`DELETE FROM transcripts WHERE identity = ?`,
		`DELETE FROM pins WHERE identity = ?`,
		`DELETE FROM titles WHERE identity = ?`,
	} {
		if _, err := tx.Exec(stmt, identity); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	return tx.Commit()
}

// SearchTranscripts returns transcripts containing the query in any turn's
// content, case-insensitive, most recent first. An empty query matches
// nothing.
func (s *Store) SearchTranscripts(query string) ([]model.Transcript, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	needle := strings.ToLower(query)

	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}

	var out []model.Transcript
	for _, t := range all {
		for _, turn := range t.Turns {
			if strings.Contains(strings.ToLower(turn.Content), needle) {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

// =============================================================================
// PIN SET
// =============================================================================

// SetPinned adds or removes a pin entry for the identity.
func (s *Store) SetPinned(identity int64, pinned bool) error {
	var err error
	if pinned {
		_, err = s.db.Exec(`INSERT OR IGNORE INTO pins (identity) VALUES (?)`, identity)
	} else {
		_, err = s.db.Exec(`DELETE FROM pins WHERE identity = ?`, identity)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// LoadPinnedIdentities returns the pin set.
func (s *Store) LoadPinnedIdentities() (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT identity FROM pins`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	pinned := make(map[int64]bool)
	for rows.Next() {
		var identity int64
		if err := rows.Scan(&identity); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		pinned[identity] = true
	}
	return pinned, rows.Err()
}
