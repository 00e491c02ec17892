// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/etymgraph/pkg/types"
)

// SQLiteWriter persists documents in a SQLite database. Each Write replaces
// the previous graph.
type SQLiteWriter struct {
	db *sql.DB
}

// OpenSQLite opens or creates the graph database at path.
func OpenSQLite(path string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	w := &SQLiteWriter{db: db}
	if err := w.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return w, nil
}

// Close releases the database connection.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

func (w *SQLiteWriter) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS graph_nodes (
			key TEXT PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			term TEXT NOT NULL,
			language TEXT NOT NULL,
			sense INTEGER NOT NULL,
			kind TEXT NOT NULL,
			pos TEXT,
			gloss TEXT,
			pronunciation TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edges (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL REFERENCES graph_nodes(key),
			target TEXT NOT NULL REFERENCES graph_nodes(key),
			type TEXT NOT NULL,
			category TEXT NOT NULL,
			specificity INTEGER NOT NULL,
			uncertain INTEGER NOT NULL DEFAULT 0,
			provenance TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_source ON graph_edges(source)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges(target)`,
		`CREATE TABLE IF NOT EXISTS reduction_events (
			kind TEXT NOT NULL,
			types TEXT NOT NULL DEFAULT '',
			count INTEGER NOT NULL,
			PRIMARY KEY (kind, types)
		)`,
	}
	for _, stmt := range statements {
		if _, err := w.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Write replaces the stored graph with doc in one transaction.
func (w *SQLiteWriter) Write(ctx context.Context, doc *Document) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"graph_edges", "graph_nodes", "reduction_events"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO graph_nodes (key, id, term, language, sense, kind, pos, gloss, pronunciation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()
	for _, n := range doc.Nodes {
		posJSON, _ := json.Marshal(n.POS)
		if _, err := nodeStmt.ExecContext(ctx, n.Key, n.ID, n.Term, n.Language, n.Sense,
			string(n.Kind), string(posJSON), n.Gloss, n.Pronunciation); err != nil {
			return fmt.Errorf("inserting node %s: %w", n.Key, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO graph_edges (id, source, target, type, category, specificity, uncertain, provenance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for _, e := range doc.Edges {
		provJSON, _ := json.Marshal(e.Provenance)
		if _, err := edgeStmt.ExecContext(ctx, e.ID, e.Source, e.Target, string(e.Type),
			string(e.Category), e.Specificity, e.Uncertain, string(provJSON)); err != nil {
			return fmt.Errorf("inserting edge %s -> %s: %w", e.Source, e.Target, err)
		}
	}

	for kind, n := range doc.Events.ByKind {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reduction_events (kind, types, count) VALUES (?, '', ?)`, string(kind), n); err != nil {
			return fmt.Errorf("inserting event %s: %w", kind, err)
		}
	}
	for key, n := range doc.Events.ByType {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reduction_events (kind, types, count) VALUES (?, ?, ?)`, kindOf(key), key, n); err != nil {
			return fmt.Errorf("inserting event %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// kindOf returns the event kind prefix of a "KIND/TYPE..." key.
func kindOf(key string) string {
	kind, _, _ := strings.Cut(key, "/")
	return kind
}

// Read loads the stored graph back into a document.
func (w *SQLiteWriter) Read(ctx context.Context) (*Document, error) {
	doc := &Document{Nodes: []NodeRecord{}, Edges: []EdgeRecord{}, Events: types.NewEventCounts()}

	rows, err := w.db.QueryContext(ctx,
		`SELECT key, id, term, language, sense, kind, pos, gloss, pronunciation FROM graph_nodes ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	for rows.Next() {
		var (
			n       NodeRecord
			kind    string
			posJSON sql.NullString
		)
		if err := rows.Scan(&n.Key, &n.ID, &n.Term, &n.Language, &n.Sense, &kind, &posJSON, &n.Gloss, &n.Pronunciation); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.Kind = types.NodeKind(kind)
		if posJSON.Valid {
			json.Unmarshal([]byte(posJSON.String), &n.POS)
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = w.db.QueryContext(ctx,
		`SELECT id, source, target, type, category, specificity, uncertain, provenance FROM graph_edges ORDER BY source, target, type`)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	for rows.Next() {
		var (
			e             EdgeRecord
			typ, category string
			provJSON      sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &typ, &category, &e.Specificity, &e.Uncertain, &provJSON); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		e.Type, e.Category = types.RelationType(typ), types.RelationType(category)
		if provJSON.Valid {
			json.Unmarshal([]byte(provJSON.String), &e.Provenance)
		}
		doc.Edges = append(doc.Edges, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = w.db.QueryContext(ctx, `SELECT kind, types, count FROM reduction_events`)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, key string
		var n int
		if err := rows.Scan(&kind, &key, &n); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if key == "" {
			doc.Events.ByKind[types.EventKind(kind)] = n
		} else {
			doc.Events.ByType[key] = n
		}
	}
	return doc, rows.Err()
}
