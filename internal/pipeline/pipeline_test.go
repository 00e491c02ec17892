// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/etymgraph/internal/extract"
	"github.com/pdiddy/etymgraph/internal/lexicon"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// --- fakes ---

type sliceSource struct {
	sections []types.Section
	lexemes  []lexicon.Lexeme
	err      error
}

func (s sliceSource) Sections(ctx context.Context, categories ...string) iter.Seq2[types.Section, error] {
	return func(yield func(types.Section, error) bool) {
		for _, sec := range s.sections {
			if len(categories) > 0 && !slices.Contains(categories, sec.Category) {
				continue
			}
			if !yield(sec, nil) {
				return
			}
		}
		if s.err != nil {
			yield(types.Section{}, s.err)
		}
	}
}

func (s sliceSource) Lexemes(ctx context.Context) iter.Seq2[lexicon.Lexeme, error] {
	return func(yield func(lexicon.Lexeme, error) bool) {
		for _, lx := range s.lexemes {
			if !yield(lx, nil) {
				return
			}
		}
	}
}

// fakeExtractor emits one RELATED candidate per section and fails on the
// entries listed in reject.
type fakeExtractor struct {
	name       string
	categories []string
	reject     map[string]error

	mu     sync.Mutex
	senses map[string]int
}

func (f *fakeExtractor) Name() string         { return f.name }
func (f *fakeExtractor) Categories() []string { return f.categories }

func (f *fakeExtractor) Extract(ctx context.Context, sec types.Section) ([]types.Candidate, error) {
	if err := f.reject[sec.EntryID]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.senses == nil {
		f.senses = map[string]int{}
	}
	f.senses[sec.EntryID] = sec.Context.Sense
	f.mu.Unlock()
	return []types.Candidate{{
		Source: types.NodeRef(sec.Context.Lexeme()),
		Target: types.TextRef("x", "en"),
		Type:   types.Related,
	}}, nil
}

type recordingSink struct {
	mu    sync.Mutex
	cands []types.Candidate
	err   error
}

func (r *recordingSink) Add(ctx context.Context, c types.Candidate) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cands = append(r.cands, c)
	return nil
}

func sec(id, category string, path ...string) types.Section {
	return types.Section{
		EntryID:  id,
		Category: category,
		Text:     "text",
		Context:  types.SectionContext{Title: strings.TrimPrefix(id, "en:"), Language: "en", Path: path},
	}
}

func testSections() []types.Section {
	return []types.Section{
		sec("en:run", types.CategoryEtymology, "Etymology"),
		sec("en:ray", types.CategoryEtymology, "Etymology 2"),
		sec("en:bad", types.CategoryEtymology, "Etymology"),
		sec("en:run", types.CategoryDescendants, "Verb", "Descendants"),
		sec("en:run", "pronunciation", "Pronunciation"),
	}
}

func testConfig() types.ExtractionConfig {
	cfg := types.DefaultPipelineConfig().Extraction
	cfg.Workers = 4
	return cfg
}

// --- tests ---

func TestSenseFromPath(t *testing.T) {
	tests := []struct {
		path []string
		want int
	}{
		{nil, 0},
		{[]string{"Etymology"}, 0},
		{[]string{"Etymology 2"}, 2},
		{[]string{"Etymology 3", "Noun", "Derived terms"}, 3},
		{[]string{"etymology 12"}, 12},
		{[]string{"Noun", "Descendants"}, 0},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.path, "/"), func(t *testing.T) {
			assert.Equal(t, tt.want, SenseFromPath(tt.path))
		})
	}
}

func TestRun(t *testing.T) {
	etym := &fakeExtractor{
		name:       "etym",
		categories: []string{types.CategoryEtymology},
		reject:     map[string]error{"en:bad": fmt.Errorf("%w: unbalanced", extract.ErrMalformedSection)},
	}
	desc := &fakeExtractor{name: "desc", categories: []string{types.CategoryDescendants}}
	sink := &recordingSink{}

	var out strings.Builder
	summary, err := Run(context.Background(), testConfig(), Deps{
		Sections:   sliceSource{sections: testSections()},
		Extractors: []extract.Extractor{etym, desc},
		Sink:       sink,
		Stats:      &extract.Stats{},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, Summary{Sections: 4, Candidates: 3, Failed: 1}, summary)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, 4, summary.Total())
	assert.Len(t, sink.cands, 3)
	assert.Contains(t, out.String(), "sections: 4, candidates: 3, failed: 1")

	assert.Equal(t, map[string]int{"en:run": 0, "en:ray": 2}, etym.senses)
	i := slices.IndexFunc(sink.cands, func(c types.Candidate) bool { return c.Source.Node.Term == "ray" })
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, types.NewNodeID("ray", "en", 2), *sink.cands[i].Source.Node)
}

func TestRun_Progress(t *testing.T) {
	old := progressEvery
	progressEvery = 1
	defer func() { progressEvery = old }()

	var out strings.Builder
	_, err := Run(context.Background(), testConfig(), Deps{
		Sections:   sliceSource{sections: testSections()[:2]},
		Extractors: []extract.Extractor{&fakeExtractor{name: "etym", categories: []string{types.CategoryEtymology}}},
		Sink:       &recordingSink{},
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "processed 1 sections")
	assert.Contains(t, out.String(), "processed 2 sections")
}

func TestRun_Errors(t *testing.T) {
	etym := func() extract.Extractor {
		return &fakeExtractor{name: "etym", categories: []string{types.CategoryEtymology}}
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		deps    Deps
		wantErr error
		msg     string
	}{
		{
			name: "source error",
			ctx:  context.Background(),
			deps: Deps{Sections: sliceSource{err: errors.New("disk gone")}, Extractors: []extract.Extractor{etym()}, Sink: &recordingSink{}},
			msg:  "reading sections: disk gone",
		},
		{
			name:    "sink error",
			ctx:     context.Background(),
			deps:    Deps{Sections: sliceSource{sections: testSections()}, Extractors: []extract.Extractor{etym()}, Sink: &recordingSink{err: errFinalized}},
			wantErr: errFinalized,
		},
		{
			name:    "cancelled",
			ctx:     cancelled,
			deps:    Deps{Sections: sliceSource{sections: testSections()}, Extractors: []extract.Extractor{etym()}, Sink: &recordingSink{}},
			wantErr: context.Canceled,
		},
		{
			name: "no extractors",
			ctx:  context.Background(),
			deps: Deps{Sections: sliceSource{}, Sink: &recordingSink{}},
			msg:  "no extractors enabled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.ctx, testConfig(), tt.deps, &strings.Builder{})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.msg != "" {
				assert.ErrorContains(t, err, tt.msg)
			}
		})
	}
}

var errFinalized = errors.New("finalized")

const rinnenChain = "From {{inh|en|enm|rinnen}}, from {{inh|en|ang|rinnan||to flow}}, " +
	"from {{inh|en|gem-pro|*rinnaną}}. Cognate with {{cog|de|rinnen}}."

func TestBuild(t *testing.T) {
	src := sliceSource{
		sections: []types.Section{{
			EntryID:  "en:run",
			Category: types.CategoryEtymology,
			Text:     rinnenChain,
			Context:  types.SectionContext{Title: "run", Language: "en", Path: []string{"Etymology"}},
		}},
		lexemes: []lexicon.Lexeme{{ID: types.NewNodeID("run", "en", 0), Glosses: []string{"to move swiftly"}}},
	}
	cfg := types.DefaultPipelineConfig()
	res, err := LoadResources(cfg)
	require.NoError(t, err)

	var out strings.Builder
	result, err := Build(context.Background(), cfg, res, src, nil, &out)
	require.NoError(t, err)

	var got []string
	for _, e := range result.Graph.Edges {
		got = append(got, fmt.Sprintf("%s -%s-> %s", e.Source, e.Type, e.Target))
	}
	assert.ElementsMatch(t, []string{
		"en:run#0 -INHERITANCE-> enm:rinnen#0",
		"enm:rinnen#0 -INHERITANCE-> ang:rinnan#0",
		"ang:rinnan#0 -INHERITANCE-> gem-pro:*rinnaną#0",
		"de:rinnen#0 -COGNATE-> en:run#0",
	}, got)

	assert.Equal(t, 1, result.Summary.Sections)
	assert.Equal(t, 1, result.Lexicon.Len())
	assert.Positive(t, result.Graph.Events.Count(types.EventTransitive))
	assert.Contains(t, out.String(), "graph: 5 nodes, 4 edges")
}

func TestBuild_UnhandledCountedOnce(t *testing.T) {
	src := sliceSource{
		sections: []types.Section{{
			EntryID:  "en:run",
			Category: types.CategoryEtymology,
			Text:     "From {{zzz-unknown|en|foo}}, from {{inh|en|enm|rinnen}}.",
			Context:  types.SectionContext{Title: "run", Language: "en", Path: []string{"Etymology"}},
		}},
		lexemes: []lexicon.Lexeme{{ID: types.NewNodeID("run", "en", 0)}},
	}
	cfg := types.DefaultPipelineConfig()
	require.Equal(t, types.AllExtractors, cfg.Extraction.Extractors)
	res, err := LoadResources(cfg)
	require.NoError(t, err)

	var out strings.Builder
	result, err := Build(context.Background(), cfg, res, src, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Unhandled)
	assert.Contains(t, out.String(), "unhandled templates: 1,")
}

func TestLoadResources_BadPath(t *testing.T) {
	cfg := types.DefaultPipelineConfig()
	cfg.Extraction.RegistryPath = "/does/not/exist.toml"
	_, err := LoadResources(cfg)
	assert.Error(t, err)
}
