// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relstore accumulates candidate relations from every extractor and
// reduces them to one canonical graph. Ingest is concurrent and
// order-insensitive; Finalize is deterministic for a given candidate
// multiset.
package relstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pdiddy/etymgraph/internal/gloss"
	"github.com/pdiddy/etymgraph/internal/languages"
	"github.com/pdiddy/etymgraph/internal/lexicon"
	"github.com/pdiddy/etymgraph/internal/logger"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// ErrFinalized is returned by Add and Finalize once Finalize has run.
var ErrFinalized = errors.New("relation store is finalized")

// Lexicon is the read-only view of the lexicon index used during ingest.
type Lexicon interface {
	Resolve(term, lang string, hint lexicon.Hint) []types.NodeID
	Glosses(id types.NodeID) []string
	CanonicalLanguage(lang string) string
}

// GlossSelector picks one sense for a gloss, or reports that it cannot.
type GlossSelector interface {
	Select(gloss string, options []gloss.Option) (types.NodeID, bool)
}

// Options configures a Store.
type Options struct {
	// LinkUnlisted creates sense-0 nodes for terms the lexicon does not know
	// instead of dropping the candidate.
	LinkUnlisted bool
	// HistoricalSwap reverses historical relations whose source language is
	// an ancestor of the target language. Requires Languages.
	HistoricalSwap bool
	Languages      *languages.Tree
	// Workers bounds how many components are reduced in parallel.
	Workers int
	Logger  *logger.Logger
}

// OptionsFrom builds store options from the reduction config.
func OptionsFrom(cfg types.ReductionConfig, langs *languages.Tree, log *logger.Logger) Options {
	return Options{
		LinkUnlisted:   cfg.LinkUnlisted,
		HistoricalSwap: cfg.HistoricalSwap,
		Languages:      langs,
		Workers:        cfg.Workers,
		Logger:         log,
	}
}

// FinalizeOptions controls one Finalize call.
type FinalizeOptions struct {
	// BreakCycles removes the weakest edge of every ORIGIN cycle. Without it
	// cycles are kept and reported as CYCLE_DETECTED.
	BreakCycles bool
}

type state int

const (
	accepting state = iota
	finalized
)

// record is a candidate whose endpoints are resolved to node identities.
type record struct {
	src, tgt  types.NodeID
	typ       types.RelationType
	spec      int
	prov      []types.Provenance
	uncertain bool
}

// Store is the Relation Store. Add may be called from any number of
// goroutines until Finalize.
type Store struct {
	lex     Lexicon
	matcher GlossSelector
	opts    Options
	log     *logger.Logger

	mu      sync.Mutex
	state   state
	records []record
	events  types.EventCounts
}

// New returns an accepting store. matcher may be nil, in which case
// ambiguous references are always dropped.
func New(lex Lexicon, matcher GlossSelector, opts Options) *Store {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		lex:     lex,
		matcher: matcher,
		opts:    opts,
		log:     log,
		events:  types.NewEventCounts(),
	}
}

// Add resolves and records one candidate. Unresolvable or ambiguous
// references drop the candidate with a recorded event; that is not an error.
func (s *Store) Add(ctx context.Context, c types.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return fmt.Errorf("adding candidate %s -> %s: unknown relation type %q", c.Source, c.Target, c.Type)
	}
	if s.isFinalized() {
		return ErrFinalized
	}

	src, srcKind := s.resolve(c.Source)
	tgt, tgtKind := s.resolve(c.Target)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == finalized {
		return ErrFinalized
	}
	if srcKind != "" || tgtKind != "" {
		kind := srcKind
		if kind == "" || tgtKind == types.EventAmbiguous {
			kind = tgtKind
		}
		s.events.Record(kind, c.Type)
		s.log.Debug("dropped candidate", "reason", string(kind), "source", c.Source.String(), "target", c.Target.String(), "type", string(c.Type))
		return nil
	}
	s.records = append(s.records, record{
		src:       src,
		tgt:       tgt,
		typ:       c.Type,
		spec:      c.Specificity,
		prov:      append([]types.Provenance(nil), c.Provenance...),
		uncertain: c.Uncertain,
	})
	return nil
}

func (s *Store) isFinalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == finalized
}

// resolve maps a ref to a node. On failure it returns the event kind that
// explains the drop.
func (s *Store) resolve(ref types.Ref) (types.NodeID, types.EventKind) {
	if ref.Node != nil {
		n := *ref.Node
		lang := n.Language
		if lang != types.EntityLanguage {
			lang = s.lex.CanonicalLanguage(lang)
		}
		return types.NewNodeID(n.Term, lang, n.Sense), ""
	}

	term := types.NormalizeTerm(ref.Term)
	if term == "" || term == "-" {
		return types.NodeID{}, types.EventUnresolved
	}
	if ref.Entity || types.NormalizeLanguage(ref.Language) == types.EntityLanguage {
		return types.NewNodeID(term, types.EntityLanguage, 0), ""
	}
	lang := s.lex.CanonicalLanguage(ref.Language)
	if lang == "" {
		return types.NodeID{}, types.EventUnresolved
	}

	ids := s.lex.Resolve(term, lang, lexicon.Hint{SenseID: ref.SenseID, POS: ref.POS})
	switch {
	case len(ids) == 1:
		return ids[0], ""
	case len(ids) > 1:
		if ref.Gloss == "" || s.matcher == nil {
			return types.NodeID{}, types.EventAmbiguous
		}
		options := make([]gloss.Option, len(ids))
		for i, id := range ids {
			options[i] = gloss.Option{ID: id, Glosses: s.lex.Glosses(id)}
		}
		if id, ok := s.matcher.Select(ref.Gloss, options); ok {
			return id, ""
		}
		return types.NodeID{}, types.EventAmbiguous
	case types.IsAffix(term) || s.opts.LinkUnlisted:
		return types.NewNodeID(term, lang, 0), ""
	}
	return types.NodeID{}, types.EventUnresolved
}

// Len returns the number of recorded candidates.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Events returns a copy of the event counts. After Finalize they include the
// reduction events.
func (s *Store) Events() types.EventCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Clone()
}

// Finalize reduces the recorded candidates to the canonical graph. The store
// stops accepting candidates as soon as Finalize starts; a cancelled
// Finalize produces no graph.
func (s *Store) Finalize(ctx context.Context, opts FinalizeOptions) (*Graph, error) {
	s.mu.Lock()
	if s.state == finalized {
		s.mu.Unlock()
		return nil, ErrFinalized
	}
	s.state = finalized
	records := s.records
	s.mu.Unlock()

	r := &reducer{
		breakCycles: opts.BreakCycles,
		swap:        s.opts.HistoricalSwap && s.opts.Languages != nil,
		langs:       s.opts.Languages,
		workers:     s.opts.Workers,
		events:      types.NewEventCounts(),
	}
	edges, err := r.run(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("finalizing relation store: %w", err)
	}

	s.mu.Lock()
	s.events.Merge(r.events)
	all := s.events.Clone()
	s.mu.Unlock()

	g := newGraph(edges, all)
	s.log.Info("finalized relation store",
		"candidates", len(records),
		"nodes", len(g.Nodes),
		"edges", len(g.Edges))
	return g, nil
}
