// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entrystore

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdiddy/etymgraph/pkg/types"
)

// Record is one line of a JSONL entry dump.
type Record struct {
	Title    string          `json:"title"`
	Language string          `json:"language"`
	Senses   []SenseRecord   `json:"senses,omitempty"`
	Sections []SectionRecord `json:"sections,omitempty"`
}

// SenseRecord describes one word sense of an entry.
type SenseRecord struct {
	// Etymology is the etymology number the sense belongs to (0 when the
	// entry has a single etymology).
	Etymology     int      `json:"etymology,omitempty"`
	POS           string   `json:"pos,omitempty"`
	Glosses       []string `json:"glosses,omitempty"`
	IDs           []string `json:"ids,omitempty"`
	Pronunciation string   `json:"pronunciation,omitempty"`
}

// SectionRecord is the raw markup of one section. Category defaults to the
// lower-cased last path element without its number.
type SectionRecord struct {
	Path     []string `json:"path"`
	Category string   `json:"category,omitempty"`
	Text     string   `json:"text"`
}

// EntryID returns the store key for an entry: "lang:title" after
// normalization.
func EntryID(title, language string) string {
	return types.NormalizeLanguage(language) + ":" + types.NormalizeTerm(title)
}

func (r *Record) validate() error {
	if types.NormalizeTerm(r.Title) == "" {
		return errors.New("missing title")
	}
	if types.NormalizeLanguage(r.Language) == "" {
		return errors.New("missing language")
	}
	for i, sec := range r.Sections {
		if sec.category() == "" {
			return fmt.Errorf("section %d: missing category and path", i)
		}
	}
	return nil
}

// numberedHeading matches headings such as "Etymology 2".
var numberedHeading = regexp.MustCompile(`^(.*\S)\s+\d+$`)

func (s SectionRecord) category() string {
	c := strings.ToLower(strings.TrimSpace(s.Category))
	if c == "" && len(s.Path) > 0 {
		c = strings.ToLower(strings.TrimSpace(s.Path[len(s.Path)-1]))
	}
	return numberedHeading.ReplaceAllString(c, "$1")
}

// ImportSummary holds counts from an import run.
type ImportSummary struct {
	Imported int
	Updated  int
	Skipped  int
	Failed   int
}

// Total returns the number of records processed.
func (s ImportSummary) Total() int {
	return s.Imported + s.Updated + s.Skipped + s.Failed
}

// HasFailures reports whether any record was rejected.
func (s ImportSummary) HasFailures() bool {
	return s.Failed > 0
}

// Import reads JSONL records from r and stores them. Importing the same
// (title, language) again replaces the entry; an unchanged record is
// skipped. Malformed lines are reported to w and counted as failed; database
// errors abort the import. Gzip input is detected and decompressed.
func (s *Store) Import(ctx context.Context, r io.Reader, w io.Writer) (ImportSummary, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return ImportSummary{}, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		br = bufio.NewReaderSize(zr, 1<<20)
	}

	var (
		summary ImportSummary
		batch   []pending
		lineNo  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.writeBatch(ctx, batch, w, &summary); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for {
		line, readErr := br.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return summary, fmt.Errorf("reading records: %w", readErr)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			lineNo++
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			default:
			}

			var rec Record
			if err := json.Unmarshal(trimmed, &rec); err != nil {
				fmt.Fprintf(w, "failed  line %d: parse error: %v\n", lineNo, err)
				summary.Failed++
			} else if err := rec.validate(); err != nil {
				fmt.Fprintf(w, "failed  line %d: %v\n", lineNo, err)
				summary.Failed++
			} else {
				sum := sha256.Sum256(trimmed)
				batch = append(batch, pending{rec: rec, checksum: hex.EncodeToString(sum[:])})
				if len(batch) >= s.batchSize {
					if err := flush(); err != nil {
						return summary, err
					}
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	fmt.Fprintf(w, "\nimported: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Imported, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

type pending struct {
	rec      Record
	checksum string
}

func (s *Store) writeBatch(ctx context.Context, batch []pending, w io.Writer, summary *ImportSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var counts ImportSummary
	var lines []string
	for _, p := range batch {
		id := EntryID(p.rec.Title, p.rec.Language)

		var stored string
		err := tx.QueryRowContext(ctx, `SELECT checksum FROM entries WHERE id = ?`, id).Scan(&stored)
		switch {
		case err == nil && stored == p.checksum:
			counts.Skipped++
			continue
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("looking up entry %s: %w", id, err)
		}
		isUpdate := err == nil

		if isUpdate {
			if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
				return fmt.Errorf("deleting old entry %s: %w", id, err)
			}
		}
		if err := insertEntry(ctx, tx, id, p); err != nil {
			return err
		}

		if isUpdate {
			counts.Updated++
			lines = append(lines, fmt.Sprintf("updated %s (%d sections)", id, len(p.rec.Sections)))
		} else {
			counts.Imported++
			lines = append(lines, fmt.Sprintf("imported %s (%d sections)", id, len(p.rec.Sections)))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	summary.Imported += counts.Imported
	summary.Updated += counts.Updated
	summary.Skipped += counts.Skipped
	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, id string, p pending) error {
	rec := p.rec
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries (id, title, language, checksum) VALUES (?, ?, ?, ?)`,
		id, types.NormalizeTerm(rec.Title), types.NormalizeLanguage(rec.Language), p.checksum,
	); err != nil {
		return fmt.Errorf("inserting entry %s: %w", id, err)
	}

	for _, sense := range rec.Senses {
		glossesJSON, _ := json.Marshal(sense.Glosses)
		idsJSON, _ := json.Marshal(sense.IDs)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO senses (entry_id, etymology, pos, glosses, ids, pronunciation) VALUES (?, ?, ?, ?, ?, ?)`,
			id, max(sense.Etymology, 0), sense.POS, string(glossesJSON), string(idsJSON), sense.Pronunciation,
		); err != nil {
			return fmt.Errorf("inserting sense of %s: %w", id, err)
		}
	}

	for i, sec := range rec.Sections {
		pathJSON, _ := json.Marshal(sec.Path)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sections (entry_id, ordinal, category, path, text) VALUES (?, ?, ?, ?, ?)`,
			id, i, sec.category(), string(pathJSON), sec.Text,
		); err != nil {
			return fmt.Errorf("inserting section %d of %s: %w", i, id, err)
		}
	}
	return nil
}
