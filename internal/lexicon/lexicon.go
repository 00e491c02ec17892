// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lexicon maps (term, language) pairs to the lexical nodes recorded
// in the entry store. The index is built once per corpus snapshot and is
// read-only afterwards.
package lexicon

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sort"
	"sync"

	"github.com/pdiddy/etymgraph/pkg/types"
)

// ErrFrozen is returned when adding to an index after Freeze.
var ErrFrozen = errors.New("lexicon is frozen")

// Lexeme is one recorded word sense with the attributes used for
// disambiguation and export.
type Lexeme struct {
	ID            types.NodeID `json:"id" yaml:"id"`
	POS           []string     `json:"pos,omitempty" yaml:"pos,omitempty"`
	Glosses       []string     `json:"glosses,omitempty" yaml:"glosses,omitempty"`
	SenseIDs      []string     `json:"sense_ids,omitempty" yaml:"sense_ids,omitempty"`
	Pronunciation string       `json:"pronunciation,omitempty" yaml:"pronunciation,omitempty"`
}

// Hint narrows a multi-sense lookup.
type Hint struct {
	// Sense selects an etymology number directly.
	Sense int
	// SenseID matches a sense id recorded on the entry.
	SenseID string
	// POS matches a part of speech.
	POS string
}

// IsZero reports whether the hint carries no information.
func (h Hint) IsZero() bool {
	return h.Sense == 0 && h.SenseID == "" && h.POS == ""
}

type termKey struct {
	term, lang string
}

// Index is the Lexicon Index. Build it with Add, then call Freeze; Resolve
// and the accessors are safe for concurrent use once frozen.
type Index struct {
	mu     sync.RWMutex
	frozen bool
	byTerm map[termKey][]*Lexeme
	byID   map[types.NodeID]*Lexeme
	canon  func(string) string
}

// Option configures an Index.
type Option func(*Index)

// WithCanonicalLanguage sets the function that maps language codes to their
// canonical form before lookup (e.g. languages.Tree.Canonical).
func WithCanonicalLanguage(fn func(string) string) Option {
	return func(ix *Index) { ix.canon = fn }
}

// New returns an empty, mutable index.
func New(opts ...Option) *Index {
	ix := &Index{
		byTerm: map[termKey][]*Lexeme{},
		byID:   map[types.NodeID]*Lexeme{},
		canon:  types.NormalizeLanguage,
	}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

func (ix *Index) key(term, lang string) termKey {
	return termKey{term: types.NormalizeTerm(term), lang: ix.canon(lang)}
}

// Add records a lexeme. Adding the same identity twice merges attributes.
func (ix *Index) Add(lx Lexeme) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.frozen {
		return ErrFrozen
	}
	lx.ID = types.NewNodeID(lx.ID.Term, ix.canon(lx.ID.Language), lx.ID.Sense)
	if lx.ID.Term == "" || lx.ID.Language == "" {
		return fmt.Errorf("lexeme %q: term and language are required", lx.ID.Key())
	}
	if existing, ok := ix.byID[lx.ID]; ok {
		existing.POS = appendUnique(existing.POS, lx.POS...)
		existing.Glosses = appendUnique(existing.Glosses, lx.Glosses...)
		existing.SenseIDs = appendUnique(existing.SenseIDs, lx.SenseIDs...)
		if existing.Pronunciation == "" {
			existing.Pronunciation = lx.Pronunciation
		}
		return nil
	}
	stored := lx
	ix.byID[lx.ID] = &stored
	k := termKey{term: lx.ID.Term, lang: lx.ID.Language}
	ix.byTerm[k] = append(ix.byTerm[k], &stored)
	return nil
}

// Freeze sorts the senses of every term and makes the index read-only.
func (ix *Index) Freeze() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, senses := range ix.byTerm {
		sort.Slice(senses, func(i, j int) bool { return senses[i].ID.Sense < senses[j].ID.Sense })
	}
	ix.frozen = true
}

// Frozen reports whether Freeze has been called.
func (ix *Index) Frozen() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.frozen
}

// Resolve returns the candidate nodes for term in language. A single-sense
// term yields exactly one node whatever the hint says. A multi-sense term
// yields every sense, narrowed by the hint where the hint matches. An
// unknown pair yields nil; that is not an error.
func (ix *Index) Resolve(term, lang string, hint Hint) []types.NodeID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	senses := ix.byTerm[ix.key(term, lang)]
	switch len(senses) {
	case 0:
		return nil
	case 1:
		return []types.NodeID{senses[0].ID}
	}

	narrowed := senses
	if hint.Sense > 0 {
		narrowed = narrow(narrowed, func(lx *Lexeme) bool { return lx.ID.Sense == hint.Sense })
	}
	if hint.SenseID != "" {
		narrowed = narrow(narrowed, func(lx *Lexeme) bool { return slices.Contains(lx.SenseIDs, hint.SenseID) })
	}
	if hint.POS != "" {
		narrowed = narrow(narrowed, func(lx *Lexeme) bool { return slices.Contains(lx.POS, hint.POS) })
	}

	out := make([]types.NodeID, len(narrowed))
	for i, lx := range narrowed {
		out[i] = lx.ID
	}
	return out
}

// narrow keeps the lexemes matching keep unless none do.
func narrow(senses []*Lexeme, keep func(*Lexeme) bool) []*Lexeme {
	var out []*Lexeme
	for _, lx := range senses {
		if keep(lx) {
			out = append(out, lx)
		}
	}
	if len(out) == 0 {
		return senses
	}
	return out
}

// Lexeme returns the recorded attributes of id.
func (ix *Index) Lexeme(id types.NodeID) (Lexeme, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	lx, ok := ix.byID[id]
	if !ok {
		return Lexeme{}, false
	}
	return *lx, true
}

// Glosses returns the definitions recorded for id.
func (ix *Index) Glosses(id types.NodeID) []string {
	lx, _ := ix.Lexeme(id)
	return lx.Glosses
}

// IsMultiSense reports whether the term has more than one recorded sense.
func (ix *Index) IsMultiSense(term, lang string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byTerm[ix.key(term, lang)]) > 1
}

// CanonicalLanguage applies the index's language mapping.
func (ix *Index) CanonicalLanguage(lang string) string {
	return ix.canon(lang)
}

// Len returns the number of recorded lexemes.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byID)
}

// Source yields lexemes, typically from the entry store.
type Source interface {
	Lexemes(ctx context.Context) iter.Seq2[Lexeme, error]
}

// Build reads every lexeme from src into a new frozen index.
func Build(ctx context.Context, src Source, opts ...Option) (*Index, error) {
	ix := New(opts...)
	for lx, err := range src.Lexemes(ctx) {
		if err != nil {
			return nil, fmt.Errorf("reading lexemes: %w", err)
		}
		if err := ix.Add(lx); err != nil {
			return nil, err
		}
	}
	ix.Freeze()
	return ix, nil
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v != "" && !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
