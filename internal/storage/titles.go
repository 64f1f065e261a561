// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// TitleCache is a cached AI-generated title and description for a transcript.
type TitleCache struct {
	Title       string
	Description string
}

// SaveTitleCache upserts the cached title/description for an identity.
func (s *Store) SaveTitleCache(identity int64, cache TitleCache) error {
	_, err := s.db.Exec(`
		INSERT INTO titles (identity, title, description) VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET title = excluded.title, description = excluded.description`,
		identity, cache.Title, cache.Description)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// LoadTitleCache returns the cached title for an identity. The second return
// is false when no cache entry exists.
func (s *Store) LoadTitleCache(identity int64) (TitleCache, bool, error) {
	var cache TitleCache
	err := s.db.QueryRow(`SELECT title, description FROM titles WHERE identity = ?`, identity).
		Scan(&cache.Title, &cache.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return TitleCache{}, false, nil
	}
	if err != nil {
		return TitleCache{}, false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return cache, true, nil
}
