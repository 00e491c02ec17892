// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entrystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/pdiddy/etymgraph/internal/lexicon"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// Sections yields the sections of the given categories (all categories when
// none are given) in import order. The sequence is lazy: rows are fetched a
// page at a time, each page under the query timeout. Every call starts from
// the beginning.
func (s *Store) Sections(ctx context.Context, categories ...string) iter.Seq2[types.Section, error] {
	var (
		filter string
		args   []any
	)
	if len(categories) > 0 {
		filter = ` AND s.category IN (?` + strings.Repeat(`, ?`, len(categories)-1) + `)`
		for _, c := range categories {
			args = append(args, strings.ToLower(c))
		}
	}
	query := `SELECT s.rowid, e.id, e.title, e.language, s.category, s.path, s.text
		FROM sections s
		JOIN entries e ON e.id = s.entry_id
		WHERE s.rowid > ?` + filter + `
		ORDER BY s.rowid
		LIMIT ?`

	return func(yield func(types.Section, error) bool) {
		var after int64
		for {
			page, last, err := s.sectionPage(ctx, query, after, args)
			if err != nil {
				yield(types.Section{}, err)
				return
			}
			for _, sec := range page {
				if !yield(sec, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			after = last
		}
	}
}

func (s *Store) sectionPage(ctx context.Context, query string, after int64, filterArgs []any) ([]types.Section, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := append([]any{after}, filterArgs...)
	args = append(args, pageSize)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying sections: %w", err)
	}
	defer rows.Close()

	var (
		page []types.Section
		last int64
	)
	for rows.Next() {
		var (
			sec      types.Section
			pathJSON sql.NullString
		)
		if err := rows.Scan(&last, &sec.EntryID, &sec.Context.Title, &sec.Context.Language,
			&sec.Category, &pathJSON, &sec.Text); err != nil {
			return nil, 0, fmt.Errorf("scanning section: %w", err)
		}
		if pathJSON.Valid {
			if err := json.Unmarshal([]byte(pathJSON.String), &sec.Context.Path); err != nil {
				return nil, 0, fmt.Errorf("decoding path of section %d in %s: %w", last, sec.EntryID, err)
			}
		}
		page = append(page, sec)
	}
	return page, last, rows.Err()
}

// Lexemes yields every recorded sense as a lexicon entry, paged like
// Sections.
func (s *Store) Lexemes(ctx context.Context) iter.Seq2[lexicon.Lexeme, error] {
	return func(yield func(lexicon.Lexeme, error) bool) {
		var after int64
		for {
			page, last, err := s.lexemePage(ctx, after)
			if err != nil {
				yield(lexicon.Lexeme{}, err)
				return
			}
			for _, lx := range page {
				if !yield(lx, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			after = last
		}
	}
}

func (s *Store) lexemePage(ctx context.Context, after int64) ([]lexicon.Lexeme, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT se.rowid, e.title, e.language, se.etymology, se.pos, se.glosses, se.ids, se.pronunciation
		FROM senses se
		JOIN entries e ON e.id = se.entry_id
		WHERE se.rowid > ?
		ORDER BY se.rowid
		LIMIT ?`, after, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("querying senses: %w", err)
	}
	defer rows.Close()

	var (
		page []lexicon.Lexeme
		last int64
	)
	for rows.Next() {
		var (
			title, lang                string
			etymology                  int
			pos, glosses, ids, pronunc sql.NullString
		)
		if err := rows.Scan(&last, &title, &lang, &etymology, &pos, &glosses, &ids, &pronunc); err != nil {
			return nil, 0, fmt.Errorf("scanning sense: %w", err)
		}
		lx := lexicon.Lexeme{
			ID:            types.NewNodeID(title, lang, etymology),
			Pronunciation: pronunc.String,
		}
		if pos.String != "" {
			lx.POS = []string{pos.String}
		}
		if glosses.Valid {
			if err := json.Unmarshal([]byte(glosses.String), &lx.Glosses); err != nil {
				return nil, 0, fmt.Errorf("decoding glosses of sense %d (%s): %w", last, lx.ID, err)
			}
		}
		if ids.Valid {
			if err := json.Unmarshal([]byte(ids.String), &lx.SenseIDs); err != nil {
				return nil, 0, fmt.Errorf("decoding sense ids of sense %d (%s): %w", last, lx.ID, err)
			}
		}
		page = append(page, lx)
	}
	return page, last, rows.Err()
}
