// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives extraction: it streams sections from the entry
// store through the enabled extractors on a bounded worker pool and feeds
// every candidate into the relation store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/etymgraph/internal/extract"
	"github.com/pdiddy/etymgraph/internal/logger"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// progressEvery controls how often a progress line is written.
var progressEvery int64 = 1000

// SectionSource streams sections of the given categories.
type SectionSource interface {
	Sections(ctx context.Context, categories ...string) iter.Seq2[types.Section, error]
}

// CandidateSink accepts candidates from concurrent workers.
type CandidateSink interface {
	Add(ctx context.Context, c types.Candidate) error
}

// Deps are the collaborators of one run.
type Deps struct {
	Sections   SectionSource
	Extractors []extract.Extractor
	Sink       CandidateSink
	// Stats is the counter set shared by Extractors; it may be nil.
	Stats *extract.Stats
	// Resolver counts unhandled templates once per section; it may be nil.
	Resolver *extract.Resolver
	Logger   *logger.Logger
}

// Summary holds counts from a pipeline run.
type Summary struct {
	Sections   int `json:"sections" yaml:"sections"`
	Candidates int `json:"candidates" yaml:"candidates"`
	Failed     int `json:"failed" yaml:"failed"`
	Unhandled  int `json:"unhandled" yaml:"unhandled"`
	Chained    int `json:"chained" yaml:"chained"`
	Fallback   int `json:"fallback" yaml:"fallback"`
}

// Total returns the number of sections processed.
func (s Summary) Total() int {
	return s.Sections
}

// HasFailures reports whether any section was rejected by an extractor.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

var etymologyHeading = regexp.MustCompile(`(?i)^etymology\s+(\d+)$`)

// SenseFromPath returns the etymology number of a section path: n for a
// path under "Etymology n", otherwise 0.
func SenseFromPath(path []string) int {
	for _, p := range path {
		if m := etymologyHeading.FindStringSubmatch(p); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n
		}
	}
	return 0
}

// Run extracts candidates from every section the extractors consume. A
// section an extractor rejects is counted as failed and logged; the run
// continues. Source and sink errors, and cancellation, end the run.
func Run(ctx context.Context, cfg types.ExtractionConfig, deps Deps, w io.Writer) (Summary, error) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	byCategory := map[string][]extract.Extractor{}
	var categories []string
	for _, ex := range deps.Extractors {
		for _, c := range ex.Categories() {
			if _, ok := byCategory[c]; !ok {
				categories = append(categories, c)
			}
			byCategory[c] = append(byCategory[c], ex)
		}
	}
	slices.Sort(categories)
	if len(categories) == 0 {
		return Summary{}, errors.New("running pipeline: no extractors enabled")
	}

	var (
		sections   atomic.Int64
		candidates atomic.Int64
		failed     atomic.Int64
		progressMu sync.Mutex
	)

	process := func(ctx context.Context, sec types.Section) error {
		if deps.Resolver != nil {
			deps.Resolver.CountUnhandled(sec)
		}
		for _, ex := range byCategory[sec.Category] {
			cands, err := ex.Extract(ctx, sec)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed.Add(1)
				level := log.Warn
				if errors.Is(err, extract.ErrMalformedSection) {
					level = log.Debug
				}
				level("extractor rejected section", "extractor", ex.Name(), "entry", sec.EntryID, "section", sec.Heading(), "error", err)
				continue
			}
			for _, c := range cands {
				if err := deps.Sink.Add(ctx, c); err != nil {
					return fmt.Errorf("adding candidate from %s: %w", sec.EntryID, err)
				}
			}
			candidates.Add(int64(len(cands)))
		}
		if n := sections.Add(1); n%progressEvery == 0 {
			progressMu.Lock()
			fmt.Fprintf(w, "processed %d sections (%d candidates)\n", n, candidates.Load())
			progressMu.Unlock()
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var sourceErr error
	for sec, err := range deps.Sections.Sections(gctx, categories...) {
		if err != nil {
			sourceErr = fmt.Errorf("reading sections: %w", err)
			break
		}
		if gctx.Err() != nil {
			break
		}
		sec.Context.Sense = SenseFromPath(sec.Context.Path)
		g.Go(func() error { return process(gctx, sec) })
	}
	werr := g.Wait()

	summary := Summary{
		Sections:   int(sections.Load()),
		Candidates: int(candidates.Load()),
		Failed:     int(failed.Load()),
	}
	if deps.Stats != nil {
		snap := deps.Stats.Snapshot()
		summary.Unhandled = int(snap.Unhandled)
		summary.Chained = int(snap.Chained)
		summary.Fallback = int(snap.Fallback)
	}

	switch {
	case werr != nil:
		return summary, werr
	case ctx.Err() != nil:
		return summary, ctx.Err()
	case sourceErr != nil:
		return summary, sourceErr
	}

	fmt.Fprintf(w, "\nsections: %d, candidates: %d, failed: %d, unhandled templates: %d, chained: %d, fallback: %d\n",
		summary.Sections, summary.Candidates, summary.Failed, summary.Unhandled, summary.Chained, summary.Fallback)
	return summary, nil
}
