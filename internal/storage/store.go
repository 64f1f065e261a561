// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable transcript store backed by SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrEmptyTranscript = errors.New("transcript has no turns")
	ErrDatabaseError   = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transcripts (
    identity   INTEGER PRIMARY KEY,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    turns      TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS pins (
    identity INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS titles (
    identity    INTEGER PRIMARY KEY,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS profile (
    id             INTEGER PRIMARY KEY CHECK (id = 1),
    prompt_count   INTEGER NOT NULL DEFAULT 0,
    chars_sent     INTEGER NOT NULL DEFAULT 0,
    chars_received INTEGER NOT NULL DEFAULT 0,
    avg_latency_ms REAL    NOT NULL DEFAULT 0,
    model_counts   TEXT    NOT NULL DEFAULT '{}',
    last_active    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS support_gate (
    id             INTEGER PRIMARY KEY CHECK (id = 1),
    last_performed INTEGER NOT NULL DEFAULT 0,
    count          INTEGER NOT NULL DEFAULT 0
);
`

// =============================================================================
// STORE
// =============================================================================

// Store is the durable message store. All writes run inside transactions and
// are durable before the call returns.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at the given path. The parent directory
// is created if missing.
func Open(path string) (*Store, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
