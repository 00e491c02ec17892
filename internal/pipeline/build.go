// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/pdiddy/etymgraph/internal/extract"
	"github.com/pdiddy/etymgraph/internal/gloss"
	"github.com/pdiddy/etymgraph/internal/languages"
	"github.com/pdiddy/etymgraph/internal/lexicon"
	"github.com/pdiddy/etymgraph/internal/logger"
	"github.com/pdiddy/etymgraph/internal/registry"
	"github.com/pdiddy/etymgraph/internal/relstore"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// EntrySource is what Build needs from the entry store.
type EntrySource interface {
	SectionSource
	Lexemes(ctx context.Context) iter.Seq2[lexicon.Lexeme, error]
}

// Result is the outcome of Build.
type Result struct {
	Graph   *relstore.Graph
	Lexicon *lexicon.Index
	Summary Summary
}

// Resources are the read-only tables shared by every stage. Load them once
// with LoadResources.
type Resources struct {
	Registry  *registry.Registry
	Languages *languages.Tree
	Model     *gloss.Model
}

// LoadResources reads the registry, language tree and gloss model, using the
// embedded defaults where cfg names no file.
func LoadResources(cfg types.PipelineConfig) (Resources, error) {
	res := Resources{
		Registry:  registry.Default(),
		Languages: languages.Default(),
		Model:     gloss.DefaultModel(),
	}
	var err error
	if p := cfg.Extraction.RegistryPath; p != "" {
		if res.Registry, err = registry.LoadFile(p); err != nil {
			return Resources{}, err
		}
	}
	if p := cfg.Extraction.LanguagesPath; p != "" {
		if res.Languages, err = languages.LoadFile(p); err != nil {
			return Resources{}, err
		}
	}
	if p := cfg.Gloss.ModelPath; p != "" {
		if res.Model, err = gloss.LoadModel(p); err != nil {
			return Resources{}, err
		}
	}
	return res, nil
}

// Build runs the whole extraction: it builds the lexicon index from src,
// runs every enabled extractor over the sections, and finalizes the
// relation store into the canonical graph.
func Build(ctx context.Context, cfg types.PipelineConfig, res Resources, src EntrySource, log *logger.Logger, w io.Writer) (*Result, error) {
	if log == nil {
		log = logger.Nop()
	}

	lex, err := lexicon.Build(ctx, src, lexicon.WithCanonicalLanguage(res.Languages.Canonical))
	if err != nil {
		return nil, fmt.Errorf("building lexicon index: %w", err)
	}
	log.Info("built lexicon index", "lexemes", lex.Len())

	stats := &extract.Stats{}
	resolver := extract.NewResolver(res.Registry, res.Languages, stats)
	extractors, err := extract.New(cfg.Extraction.Extractors, resolver, extract.OptionsFrom(cfg.Extraction))
	if err != nil {
		return nil, fmt.Errorf("configuring extractors: %w", err)
	}

	store := relstore.New(lex, gloss.New(res.Model, cfg.Gloss),
		relstore.OptionsFrom(cfg.Reduction, res.Languages, log))

	summary, err := Run(ctx, cfg.Extraction, Deps{
		Sections:   src,
		Extractors: extractors,
		Sink:       store,
		Stats:      stats,
		Resolver:   resolver,
		Logger:     log,
	}, w)
	if err != nil {
		return nil, err
	}

	g, err := store.Finalize(ctx, relstore.FinalizeOptions{BreakCycles: cfg.Reduction.BreakCycles})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "graph: %d nodes, %d edges\n", len(g.Nodes), len(g.Edges))
	return &Result{Graph: g, Lexicon: lex, Summary: summary}, nil
}
