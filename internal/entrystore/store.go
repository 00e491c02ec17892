// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package entrystore keeps dictionary entries in SQLite and streams their
// sections and senses to the extraction pipeline. The pipeline only reads;
// entries arrive through Import.
package entrystore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/etymgraph/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "entries.db"
)

// pageSize is the number of rows fetched per query while streaming.
var pageSize = 500

// Store manages the entry store SQLite database.
type Store struct {
	db        *sql.DB
	path      string
	timeout   time.Duration
	batchSize int
}

// Open opens or creates the entry store at dataDir/index/entries.db and
// creates the schema if it does not exist.
func Open(cfg types.EntryStoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.DataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:        db,
		path:      dbPath,
		timeout:   cfg.QueryTimeout,
		batchSize: cfg.BatchSize,
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	if s.batchSize <= 0 {
		s.batchSize = 500
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			language TEXT NOT NULL,
			checksum TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS senses (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
			etymology INTEGER NOT NULL DEFAULT 0,
			pos TEXT,
			glosses TEXT,
			ids TEXT,
			pronunciation TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
			ordinal INTEGER NOT NULL,
			category TEXT NOT NULL,
			path TEXT,
			text TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_senses_entry_id ON senses(entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_entry_id ON sections(entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_category ON sections(category)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Counts reports how many rows each table holds.
type Counts struct {
	Entries  int `json:"entries" yaml:"entries"`
	Senses   int `json:"senses" yaml:"senses"`
	Sections int `json:"sections" yaml:"sections"`
}

// Counts returns the table sizes.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var c Counts
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT count(*) FROM entries), (SELECT count(*) FROM senses), (SELECT count(*) FROM sections)`,
	).Scan(&c.Entries, &c.Senses, &c.Sections)
	if err != nil {
		return Counts{}, fmt.Errorf("counting rows: %w", err)
	}
	return c, nil
}
