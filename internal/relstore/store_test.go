// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relstore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/etymgraph/internal/gloss"
	"github.com/pdiddy/etymgraph/internal/languages"
	"github.com/pdiddy/etymgraph/internal/lexicon"
	"github.com/pdiddy/etymgraph/pkg/types"
)

func node(term, lang string) types.NodeID {
	return types.NewNodeID(term, lang, 0)
}

func cand(src, tgt types.NodeID, typ types.RelationType, spec int, extractor string) types.Candidate {
	return types.Candidate{
		Source:      types.NodeRef(src),
		Target:      types.NodeRef(tgt),
		Type:        typ,
		Specificity: spec,
		Provenance:  []types.Provenance{{Extractor: extractor, Section: "Etymology", EntryID: src.Term}},
	}
}

func testLexicon(t *testing.T, lexemes ...lexicon.Lexeme) *lexicon.Index {
	t.Helper()
	ix := lexicon.New(lexicon.WithCanonicalLanguage(languages.Default().Canonical))
	for _, lx := range lexemes {
		require.NoError(t, ix.Add(lx))
	}
	ix.Freeze()
	return ix
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	return New(testLexicon(t), nil, opts)
}

// finalize adds every candidate to a fresh store and returns the graph.
func finalize(t *testing.T, cands []types.Candidate, fo FinalizeOptions) *Graph {
	t.Helper()
	s := newTestStore(t, Options{Workers: 4})
	ctx := context.Background()
	for _, c := range cands {
		require.NoError(t, s.Add(ctx, c))
	}
	g, err := s.Finalize(ctx, fo)
	require.NoError(t, err)
	return g
}

// edgeStrings renders edges as "src -TYPE-> tgt" for compact assertions.
func edgeStrings(g *Graph) []string {
	out := make([]string, len(g.Edges))
	for i, e := range g.Edges {
		out[i] = fmt.Sprintf("%s -%s-> %s", e.Source, e.Type, e.Target)
	}
	return out
}

func TestFinalize_MergesDuplicateAcrossExtractors(t *testing.T) {
	run, rin, rinnen := node("run", "en"), node("rin", "ang"), node("rinnen", "de")
	g := finalize(t, []types.Candidate{
		cand(run, rin, types.Origin, types.SpecHigh, types.ExtractorEtymology),
		cand(run, rinnen, types.Sibling, types.SpecHigh, types.ExtractorEtymology),
		cand(run, rin, types.Origin, types.SpecMedium, types.ExtractorBaseline),
	}, FinalizeOptions{BreakCycles: true})

	require.Len(t, g.Edges, 2)
	assert.Equal(t, []string{
		"de:rinnen#0 -SIBLING-> en:run#0",
		"en:run#0 -ORIGIN-> ang:rin#0",
	}, edgeStrings(g))

	origin := g.Edges[1]
	assert.Equal(t, types.SpecHigh, origin.Specificity)
	var extractors []string
	for _, p := range origin.Provenance {
		extractors = append(extractors, p.Extractor)
	}
	assert.ElementsMatch(t, []string{types.ExtractorEtymology, types.ExtractorBaseline}, extractors)

	assert.Equal(t, 1, g.Events.Count(types.EventMergeEqual))
	assert.Equal(t, 2, g.Events.Count(types.EventKept))
	assert.Len(t, g.Nodes, 3)
}

// conflictCandidates exercises merging, conflicts, transitive reduction,
// RELATED pruning and a cycle in one input.
func conflictCandidates() []types.Candidate {
	a, b, c, d, e := node("a", "en"), node("b", "en"), node("c", "en"), node("d", "en"), node("e", "en")
	x, y := node("x", "fr"), node("y", "fr")
	return []types.Candidate{
		cand(a, b, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
		cand(b, c, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
		cand(a, c, types.Origin, types.SpecMedium, types.ExtractorBaseline),
		cand(a, b, types.Related, types.SpecLow, types.ExtractorRelated),
		cand(a, d, types.Borrowing, types.SpecMedium, types.ExtractorBaseline),
		cand(a, d, types.Historical, types.SpecMedium, types.ExtractorDerived),
		cand(c, e, types.Cognate, types.SpecMedium, types.ExtractorEtymology),
		cand(a, e, types.Related, types.SpecLow, types.ExtractorRelated),
		cand(d, d, types.Compound, types.SpecMedium, types.ExtractorEtymology),
		cand(x, y, types.Origin, types.SpecHigh, types.ExtractorEtymology),
		cand(y, x, types.Origin, types.SpecMedium, types.ExtractorDerived),
		cand(y, a, types.Origin, types.SpecHigh, types.ExtractorEtymology),
		cand(a, x, types.Origin, types.SpecLow, types.ExtractorDerived),
	}
}

func TestFinalize_PermutationInvariant(t *testing.T) {
	base := conflictCandidates()
	want := finalize(t, base, FinalizeOptions{BreakCycles: true})

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := append([]types.Candidate(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := finalize(t, shuffled, FinalizeOptions{BreakCycles: true})
		assert.Equal(t, want.Edges, got.Edges, "permutation %d", i)
		assert.Equal(t, want.Nodes, got.Nodes, "permutation %d", i)
		assert.Equal(t, want.Events, got.Events, "permutation %d", i)
	}
}

func TestFinalize_Idempotent(t *testing.T) {
	first := finalize(t, conflictCandidates(), FinalizeOptions{BreakCycles: true})
	second := finalize(t, first.Candidates(), FinalizeOptions{BreakCycles: true})
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, first.Nodes, second.Nodes)
}

func TestFinalize_TransitiveReduction(t *testing.T) {
	a, b, c := node("a", "en"), node("b", "en"), node("c", "en")
	tests := []struct {
		name    string
		cands   []types.Candidate
		want    []string
		reduced int
	}{
		{
			name: "implied shortcut removed",
			cands: []types.Candidate{
				cand(a, b, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
				cand(b, c, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
				cand(a, c, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
			},
			want:    []string{"en:a#0 -INHERITANCE-> en:b#0", "en:b#0 -INHERITANCE-> en:c#0"},
			reduced: 1,
		},
		{
			name: "more specific shortcut kept",
			cands: []types.Candidate{
				cand(a, b, types.Inheritance, types.SpecMedium, types.ExtractorBaseline),
				cand(b, c, types.Inheritance, types.SpecMedium, types.ExtractorBaseline),
				cand(a, c, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
			},
			want: []string{
				"en:a#0 -INHERITANCE-> en:b#0",
				"en:a#0 -INHERITANCE-> en:c#0",
				"en:b#0 -INHERITANCE-> en:c#0",
			},
		},
		{
			name: "implied through a different start",
			cands: []types.Candidate{
				cand(b, a, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
				cand(b, c, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
				cand(a, c, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
			},
			want: []string{
				"en:a#0 -INHERITANCE-> en:c#0",
				"en:b#0 -INHERITANCE-> en:a#0",
			},
			reduced: 1,
		},
		{
			name: "sibling triangle",
			cands: []types.Candidate{
				cand(a, b, types.Cognate, types.SpecMedium, types.ExtractorEtymology),
				cand(b, c, types.Cognate, types.SpecMedium, types.ExtractorEtymology),
				cand(c, a, types.Cognate, types.SpecMedium, types.ExtractorEtymology),
			},
			want:    []string{"en:a#0 -COGNATE-> en:b#0", "en:b#0 -COGNATE-> en:c#0"},
			reduced: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := finalize(t, tt.cands, FinalizeOptions{BreakCycles: true})
			assert.Equal(t, tt.want, edgeStrings(g))
			assert.Equal(t, tt.reduced, g.Events.Count(types.EventTransitive))
		})
	}
}

func TestFinalize_MoreSpecificWins(t *testing.T) {
	a, b := node("a", "en"), node("b", "ang")
	g := finalize(t, []types.Candidate{
		cand(a, b, types.Related, types.SpecLow, types.ExtractorRelated),
		cand(a, b, types.Inheritance, types.SpecHigh, types.ExtractorDescendants),
	}, FinalizeOptions{})

	assert.Equal(t, []string{"en:a#0 -INHERITANCE-> ang:b#0"}, edgeStrings(g))
	assert.Len(t, g.Edges[0].Provenance, 2)
	assert.Equal(t, 1, g.Events.Count(types.EventMergeMoreSpecific))
	assert.Equal(t, 1, g.Events.ByType["MERGE_MORE_SPECIFIC/INHERITANCE/RELATED"])
}

func TestFinalize_IncompatibleTieBreak(t *testing.T) {
	a, b := node("a", "en"), node("b", "en")
	tests := []struct {
		name  string
		cands []types.Candidate
		want  types.RelationType
	}{
		{
			name: "extractor priority decides",
			cands: []types.Candidate{
				cand(a, b, types.Borrowing, types.SpecMedium, types.ExtractorEtymology),
				cand(a, b, types.Historical, types.SpecMedium, types.ExtractorBaseline),
			},
			want: types.Borrowing,
		},
		{
			name: "extractor priority reversed",
			cands: []types.Candidate{
				cand(a, b, types.Borrowing, types.SpecMedium, types.ExtractorBaseline),
				cand(a, b, types.Historical, types.SpecMedium, types.ExtractorEtymology),
			},
			want: types.Historical,
		},
		{
			name: "specificity beats depth",
			cands: []types.Candidate{
				cand(a, b, types.Origin, types.SpecHigh, types.ExtractorBaseline),
				cand(a, b, types.Cognate, types.SpecMedium, types.ExtractorEtymology),
			},
			want: types.Origin,
		},
		{
			name: "depth decides at equal specificity",
			cands: []types.Candidate{
				cand(a, b, types.Borrowing, types.SpecMedium, types.ExtractorEtymology),
				cand(a, b, types.Inheritance, types.SpecMedium, types.ExtractorBaseline),
			},
			want: types.Inheritance,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := finalize(t, tt.cands, FinalizeOptions{})
			require.Len(t, g.Edges, 1)
			assert.Equal(t, tt.want, g.Edges[0].Type)
			assert.Equal(t, 1, g.Events.Count(types.EventIncompatible))
		})
	}
}

func TestFinalize_OppositeDirections(t *testing.T) {
	a, b := node("a", "en"), node("b", "en")
	g := finalize(t, []types.Candidate{
		cand(b, a, types.Origin, types.SpecMedium, types.ExtractorEtymology),
		cand(a, b, types.Origin, types.SpecMedium, types.ExtractorEtymology),
	}, FinalizeOptions{})
	assert.Equal(t, []string{"en:a#0 -ORIGIN-> en:b#0"}, edgeStrings(g))
	assert.Equal(t, 1, g.Events.Count(types.EventIncompatible))
}

func TestFinalize_Cycles(t *testing.T) {
	a, b, c := node("a", "en"), node("b", "en"), node("c", "en")
	cycle := []types.Candidate{
		cand(a, b, types.Origin, types.SpecHigh, types.ExtractorEtymology),
		cand(b, c, types.Origin, types.SpecHigh, types.ExtractorEtymology),
		cand(c, a, types.Origin, types.SpecMedium, types.ExtractorBaseline),
	}

	t.Run("broken", func(t *testing.T) {
		g := finalize(t, cycle, FinalizeOptions{BreakCycles: true})
		assert.Equal(t, []string{"en:a#0 -ORIGIN-> en:b#0", "en:b#0 -ORIGIN-> en:c#0"}, edgeStrings(g))
		assert.Equal(t, 1, g.Events.Count(types.EventCycleBroken))
		assert.Zero(t, g.Events.Count(types.EventCycleDetected))
	})

	t.Run("detected", func(t *testing.T) {
		g := finalize(t, cycle, FinalizeOptions{})
		assert.Len(t, g.Edges, 3)
		assert.Equal(t, 1, g.Events.Count(types.EventCycleDetected))
		assert.Zero(t, g.Events.Count(types.EventCycleBroken))
	})
}

func TestFinalize_BreakCyclesLeavesNoOriginCycle(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	var cands []types.Candidate
	for i := 0; i < 60; i++ {
		src := node(fmt.Sprintf("w%d", rng.IntN(10)), "en")
		tgt := node(fmt.Sprintf("w%d", rng.IntN(10)), "en")
		cands = append(cands, cand(src, tgt, types.Origin, rng.IntN(3), types.ExtractorEtymology))
	}
	g := finalize(t, cands, FinalizeOptions{BreakCycles: true})
	assert.False(t, hasOriginCycle(g), "graph still has an ORIGIN cycle: %v", edgeStrings(g))
	assert.Positive(t, g.Events.Count(types.EventCycleBroken))

	var before, after [][2]types.NodeID
	for _, c := range cands {
		if *c.Source.Node != *c.Target.Node {
			before = append(before, [2]types.NodeID{*c.Source.Node, *c.Target.Node})
		}
	}
	for _, e := range g.Edges {
		after = append(after, [2]types.NodeID{e.Source, e.Target})
	}
	assert.Equal(t, weakComponents(before), weakComponents(after), "cycle breaking split a component")
}

// weakComponents maps every node to the smallest node key of its weakly
// connected component.
func weakComponents(edges [][2]types.NodeID) map[types.NodeID]string {
	parent := map[types.NodeID]types.NodeID{}
	var find func(types.NodeID) types.NodeID
	find = func(n types.NodeID) types.NodeID {
		if p, ok := parent[n]; ok && p != n {
			root := find(p)
			parent[n] = root
			return root
		}
		parent[n] = n
		return n
	}
	for _, e := range edges {
		a, b := find(e[0]), find(e[1])
		if a != b {
			parent[a] = b
		}
	}
	smallest := map[types.NodeID]string{}
	for n := range parent {
		r := find(n)
		if k, ok := smallest[r]; !ok || n.Key() < k {
			smallest[r] = n.Key()
		}
	}
	out := map[types.NodeID]string{}
	for n := range parent {
		out[n] = smallest[find(n)]
	}
	return out
}

func hasOriginCycle(g *Graph) bool {
	succ := map[types.NodeID][]types.NodeID{}
	for _, e := range g.Edges {
		if e.Type.Category() == types.Origin {
			succ[e.Source] = append(succ[e.Source], e.Target)
		}
	}
	state := map[types.NodeID]int{}
	var visit func(types.NodeID) bool
	visit = func(n types.NodeID) bool {
		state[n] = 1
		for _, m := range succ[n] {
			if state[m] == 1 || (state[m] == 0 && visit(m)) {
				return true
			}
		}
		state[n] = 2
		return false
	}
	for n := range succ {
		if state[n] == 0 && visit(n) {
			return true
		}
	}
	return false
}

func TestFinalize_RelatedPruning(t *testing.T) {
	a, b, c := node("a", "en"), node("b", "en"), node("c", "en")

	t.Run("linked by origin", func(t *testing.T) {
		g := finalize(t, []types.Candidate{
			cand(a, b, types.Inheritance, types.SpecHigh, types.ExtractorEtymology),
			cand(b, c, types.Cognate, types.SpecMedium, types.ExtractorEtymology),
			cand(a, c, types.Related, types.SpecLow, types.ExtractorRelated),
		}, FinalizeOptions{})
		assert.Len(t, g.Edges, 2)
		assert.Equal(t, 1, g.Events.Count(types.EventIntraComponent))
	})

	t.Run("related triangle", func(t *testing.T) {
		g := finalize(t, []types.Candidate{
			cand(a, b, types.Related, types.SpecLow, types.ExtractorRelated),
			cand(b, c, types.Related, types.SpecLow, types.ExtractorRelated),
			cand(a, c, types.Related, types.SpecLow, types.ExtractorRelated),
		}, FinalizeOptions{})
		assert.Len(t, g.Edges, 2)
		assert.Equal(t, 1, g.Events.Count(types.EventTransitive))
	})

	t.Run("isolated related kept", func(t *testing.T) {
		g := finalize(t, []types.Candidate{
			cand(a, b, types.Related, types.SpecLow, types.ExtractorRelated),
		}, FinalizeOptions{})
		assert.Equal(t, []string{"en:a#0 -RELATED-> en:b#0"}, edgeStrings(g))
	})
}

func TestFinalize_SelfLoop(t *testing.T) {
	a := node("a", "en")
	g := finalize(t, []types.Candidate{cand(a, a, types.Origin, types.SpecHigh, types.ExtractorEtymology)}, FinalizeOptions{})
	assert.Empty(t, g.Edges)
	assert.Empty(t, g.Nodes)
	assert.Equal(t, 1, g.Events.Count(types.EventSelfLoop))
}

func TestFinalize_HistoricalSwap(t *testing.T) {
	run, rinnan := node("run", "en"), node("rinnan", "ang")
	backwards := []types.Candidate{cand(rinnan, run, types.Inheritance, types.SpecHigh, types.ExtractorDescendants)}

	s := New(testLexicon(t), nil, Options{HistoricalSwap: true, Languages: languages.Default()})
	require.NoError(t, s.Add(context.Background(), backwards[0]))
	g, err := s.Finalize(context.Background(), FinalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"en:run#0 -INHERITANCE-> ang:rinnan#0"}, edgeStrings(g))
	assert.Equal(t, 1, g.Events.Count(types.EventHistLanguageSwap))

	g = finalize(t, backwards, FinalizeOptions{})
	assert.Equal(t, []string{"ang:rinnan#0 -INHERITANCE-> en:run#0"}, edgeStrings(g))
}

func TestAdd_Resolution(t *testing.T) {
	lex := testLexicon(t,
		lexicon.Lexeme{ID: types.NewNodeID("ray", "en", 1), Glosses: []string{"a large aquatic mammal"}},
		lexicon.Lexeme{ID: types.NewNodeID("ray", "en", 2), Glosses: []string{"a flat cartilaginous fish"}},
		lexicon.Lexeme{ID: types.NewNodeID("scriptorium", "la", 0)},
	)
	stingray := node("stingray", "en")
	ref := func(term, lang, gl string) types.Ref {
		return types.Ref{Term: term, Language: lang, Gloss: gl}
	}

	tests := []struct {
		name     string
		target   types.Ref
		unlisted bool
		want     types.NodeID
		event    types.EventKind
	}{
		{"gloss picks sense", ref("ray", "en", "flat fish with a long tail"), false, types.NewNodeID("ray", "en", 2), ""},
		{"multi sense without gloss", ref("ray", "en", ""), false, types.NodeID{}, types.EventAmbiguous},
		{"inconclusive gloss", ref("ray", "en", "edge of a river"), false, types.NodeID{}, types.EventAmbiguous},
		{"single sense", ref("scriptorium", "la-med", ""), false, node("scriptorium", "la"), ""},
		{"unknown term", ref("walk", "en", ""), false, types.NodeID{}, types.EventUnresolved},
		{"unknown term linked", ref("walk", "en", ""), true, node("walk", "en"), ""},
		{"affix always linked", ref("-ness", "en", ""), false, node("-ness", "en"), ""},
		{"placeholder term", ref("-", "en", ""), true, types.NodeID{}, types.EventUnresolved},
		{"entity", types.Ref{Term: "Ray Charles", Entity: true}, false, node("Ray Charles", types.EntityLanguage), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(lex, gloss.New(nil, types.GlossConfig{}), Options{LinkUnlisted: tt.unlisted})
			c := types.Candidate{Source: types.NodeRef(stingray), Target: tt.target, Type: types.Compound, Specificity: types.SpecMedium}
			require.NoError(t, s.Add(context.Background(), c))

			g, err := s.Finalize(context.Background(), FinalizeOptions{})
			require.NoError(t, err)
			if tt.event != "" {
				assert.Empty(t, g.Edges)
				assert.Equal(t, 1, g.Events.Count(tt.event))
				return
			}
			require.Len(t, g.Edges, 1)
			assert.Equal(t, tt.want, g.Edges[0].Target)
		})
	}
}

func TestAdd_Errors(t *testing.T) {
	s := newTestStore(t, Options{})
	a, b := node("a", "en"), node("b", "en")

	err := s.Add(context.Background(), cand(a, b, types.RelationType("NOPE"), 0, types.ExtractorRelated))
	assert.ErrorContains(t, err, "unknown relation type")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Add(ctx, cand(a, b, types.Origin, 0, types.ExtractorRelated)), context.Canceled)
	assert.Zero(t, s.Len())

	_, err = s.Finalize(context.Background(), FinalizeOptions{})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Add(context.Background(), cand(a, b, types.Origin, 0, types.ExtractorRelated)), ErrFinalized)
	_, err = s.Finalize(context.Background(), FinalizeOptions{})
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestFinalize_Cancelled(t *testing.T) {
	s := newTestStore(t, Options{})
	require.NoError(t, s.Add(context.Background(), cand(node("a", "en"), node("b", "en"), types.Origin, 1, types.ExtractorBaseline)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, err := s.Finalize(ctx, FinalizeOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, g)

	_, err = s.Finalize(context.Background(), FinalizeOptions{})
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestAdd_Concurrent(t *testing.T) {
	s := newTestStore(t, Options{Workers: 4})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				src := node(fmt.Sprintf("w%d-%d", i, j), "en")
				assert.NoError(t, s.Add(context.Background(), cand(src, node("root", "ang"), types.Inheritance, types.SpecHigh, types.ExtractorEtymology)))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, s.Len())

	g, err := s.Finalize(context.Background(), FinalizeOptions{BreakCycles: true})
	require.NoError(t, err)
	assert.Len(t, g.Edges, 400)
	assert.Len(t, g.Nodes, 401)
}

func TestGraph_Accessors(t *testing.T) {
	a, suffix := node("darkness", "en"), node("-ness", "en")
	g := finalize(t, []types.Candidate{
		cand(a, suffix, types.Suffix, types.SpecMedium, types.ExtractorEtymology),
		cand(a, node("dark", "en"), types.Suffix, types.SpecMedium, types.ExtractorEtymology),
	}, FinalizeOptions{})

	assert.Equal(t, map[types.RelationType]int{types.Suffix: 2}, g.CountByType())
	kinds := map[string]types.NodeKind{}
	for _, n := range g.Nodes {
		kinds[n.ID.Term] = n.Kind
	}
	assert.Equal(t, types.KindEntity, kinds["-ness"])
	assert.Equal(t, types.KindLexeme, kinds["dark"])

	cands := g.Candidates()
	require.Len(t, cands, 2)
	assert.True(t, cands[0].Source.Resolved())
}
