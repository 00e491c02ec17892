// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns raw entry sections into candidate relations. Each
// extractor is independent and stateless apart from the shared Stats
// counters; conflicts between extractors are settled by the relation store.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/pdiddy/etymgraph/internal/markup"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// ErrMalformedSection is returned for a section an extractor cannot parse.
// Callers log it and continue with the next section.
var ErrMalformedSection = errors.New("malformed section")

// Extractor emits candidate relations for one section.
type Extractor interface {
	Name() string
	// Categories lists the section categories the extractor consumes.
	Categories() []string
	Extract(ctx context.Context, sec types.Section) ([]types.Candidate, error)
}

// Stats counts diagnostics across all extractors of one run. It is safe for
// concurrent use.
type Stats struct {
	unhandled atomic.Int64
	chained   atomic.Int64
	fallback  atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	// Unhandled counts templates missing from the registry.
	Unhandled int64 `json:"unhandled" yaml:"unhandled"`
	// Chained counts etymology links attached to a previous link in the
	// same section.
	Chained int64 `json:"chained" yaml:"chained"`
	// Fallback counts etymology links attached to the containing lexeme.
	Fallback int64 `json:"fallback" yaml:"fallback"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Unhandled: s.unhandled.Load(),
		Chained:   s.chained.Load(),
		Fallback:  s.fallback.Load(),
	}
}

// Options configures the extractor family.
type Options struct {
	ChainResolution   bool
	OnlyFirstSentence bool
	MaxChainHops      int
	InvertLineages    bool
	InvertLanguages   []string
}

// OptionsFrom copies the extractor settings out of cfg.
func OptionsFrom(cfg types.ExtractionConfig) Options {
	return Options{
		ChainResolution:   cfg.ChainResolution,
		OnlyFirstSentence: cfg.OnlyFirstSentence,
		MaxChainHops:      cfg.MaxChainHops,
		InvertLineages:    cfg.InvertLineages,
		InvertLanguages:   cfg.InvertLanguages,
	}
}

// New builds the named extractors in the given order.
func New(names []string, res *Resolver, opts Options) ([]Extractor, error) {
	out := make([]Extractor, 0, len(names))
	for _, name := range names {
		switch name {
		case types.ExtractorEtymology:
			out = append(out, NewEtymology(res, opts))
		case types.ExtractorDescendants:
			out = append(out, NewDescendants(res, opts))
		case types.ExtractorBaseline:
			out = append(out, NewBaseline(res))
		case types.ExtractorDerived:
			out = append(out, NewDerivedTerms(res))
		case types.ExtractorRelated:
			out = append(out, NewRelatedTerms(res))
		default:
			return nil, fmt.Errorf("unknown extractor %q", name)
		}
	}
	return out, nil
}

type base struct {
	name       string
	categories []string
	res        *Resolver
}

func (b base) Name() string         { return b.name }
func (b base) Categories() []string { return b.categories }

func (b base) candidate(sec types.Section, src, tgt types.Ref, typ types.RelationType, spec int, uncertain bool) types.Candidate {
	return types.Candidate{
		Source:      src,
		Target:      tgt,
		Type:        typ,
		Specificity: spec,
		Provenance: []types.Provenance{{
			Extractor: b.name,
			Section:   sec.Heading(),
			EntryID:   sec.EntryID,
		}},
		Uncertain: uncertain,
	}
}

func parseSection(sec types.Section) ([]markup.Node, error) {
	nodes, err := markup.Parse(sec.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrMalformedSection, sec.EntryID, sec.Heading(), err)
	}
	return nodes, nil
}

func lexemeRef(sec types.Section) types.Ref {
	return types.NodeRef(sec.Context.Lexeme())
}
