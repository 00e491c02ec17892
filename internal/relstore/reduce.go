// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/etymgraph/internal/languages"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// orientation of a directed relation relative to its node pair, whose
// first node is the smaller identity.
type orientation int

const (
	backward orientation = iota - 1
	undirected
	forward
)

func compatible(a, b orientation) bool {
	return a == undirected || b == undirected || a == b
}

// edge is a merged relation while reduction runs.
type edge struct {
	src, tgt  types.NodeID
	typ       types.RelationType
	orient    orientation
	spec      int
	seq       int
	priority  int
	prov      []types.Provenance
	uncertain bool
	removed   bool
}

func (e *edge) merge(o *edge) {
	e.prov = unionProvenance(e.prov, o.prov)
	e.spec = max(e.spec, o.spec)
	e.seq = min(e.seq, o.seq)
	e.priority = max(e.priority, o.priority)
	e.uncertain = e.uncertain && o.uncertain
}

// weaker orders edges weakest first: lower specificity, then later in the
// canonical candidate order.
func weaker(a, b *edge) bool {
	if a.spec != b.spec {
		return a.spec < b.spec
	}
	return a.seq > b.seq
}

type reducer struct {
	breakCycles bool
	swap        bool
	langs       *languages.Tree
	workers     int

	mu     sync.Mutex
	events types.EventCounts
}

func (r *reducer) record(kind types.EventKind, n int, ts ...types.RelationType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events.RecordN(kind, n, ts...)
}

func (r *reducer) run(ctx context.Context, records []record) ([]Edge, error) {
	records = canonicalOrder(records)
	pairs := r.groupPairs(records)

	var edges []*edge
	for _, key := range sortedPairKeys(pairs) {
		if e := r.resolvePair(pairs[key]); e != nil {
			edges = append(edges, e)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	comps := components(edges)
	results := make([][]*edge, len(comps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, comp := range comps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.reduceComponent(comp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Edge
	for _, kept := range results {
		for _, e := range kept {
			r.record(types.EventKept, 1, e.typ)
			out = append(out, Edge{
				Source:      e.src,
				Target:      e.tgt,
				Type:        e.typ,
				Specificity: e.spec,
				Provenance:  e.prov,
				Uncertain:   e.uncertain,
			})
		}
	}
	return out, nil
}

// canonicalOrder sorts records by content so that every later step sees the
// same sequence whatever the arrival order was.
func canonicalOrder(records []record) []record {
	out := make([]record, len(records))
	copy(out, records)
	for i := range out {
		out[i].prov = unionProvenance(nil, out[i].prov)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.src != b.src:
			return a.src.Less(b.src)
		case a.tgt != b.tgt:
			return a.tgt.Less(b.tgt)
		case a.typ != b.typ:
			return a.typ < b.typ
		case a.spec != b.spec:
			return a.spec < b.spec
		case a.uncertain != b.uncertain:
			return !a.uncertain
		}
		return provenanceKey(a.prov) < provenanceKey(b.prov)
	})
	return out
}

type pairKey struct {
	a, b types.NodeID
}

type typeKey struct {
	typ    types.RelationType
	orient orientation
}

// groupPairs drops self-loops, applies the historical swap, and merges
// candidates that assert the same type in the same orientation.
func (r *reducer) groupPairs(records []record) map[pairKey]map[typeKey]*edge {
	pairs := map[pairKey]map[typeKey]*edge{}
	for seq, rec := range records {
		if rec.src == rec.tgt {
			r.events.Record(types.EventSelfLoop, rec.typ)
			continue
		}
		if r.swap && rec.typ.IsA(types.Historical) && r.langs.IsAncestor(rec.src.Language, rec.tgt.Language) {
			rec.src, rec.tgt = rec.tgt, rec.src
			r.events.Record(types.EventHistLanguageSwap, rec.typ)
		}

		pk := pairKey{a: rec.src, b: rec.tgt}
		orient := forward
		if rec.tgt.Less(rec.src) {
			pk = pairKey{a: rec.tgt, b: rec.src}
			orient = backward
		}
		if !rec.typ.Directed() {
			orient = undirected
		}

		e := &edge{
			src:       rec.src,
			tgt:       rec.tgt,
			typ:       rec.typ,
			orient:    orient,
			spec:      rec.spec,
			seq:       seq,
			priority:  bestPriority(rec.prov),
			prov:      rec.prov,
			uncertain: rec.uncertain,
		}
		if orient == undirected {
			e.src, e.tgt = pk.a, pk.b
		}

		groups := pairs[pk]
		if groups == nil {
			groups = map[typeKey]*edge{}
			pairs[pk] = groups
		}
		tk := typeKey{typ: rec.typ, orient: orient}
		if existing, ok := groups[tk]; ok {
			existing.merge(e)
			r.events.Record(types.EventMergeEqual, rec.typ)
			continue
		}
		groups[tk] = e
	}
	return pairs
}

func sortedPairKeys(pairs map[pairKey]map[typeKey]*edge) []pairKey {
	keys := make([]pairKey, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a.Less(keys[j].a)
		}
		return keys[i].b.Less(keys[j].b)
	})
	return keys
}

// subsumes reports whether a is a strictly more specific, compatible
// version of b.
func subsumes(a, b *edge) bool {
	return a.typ != b.typ && a.typ.IsA(b.typ) && compatible(a.orient, b.orient)
}

// resolvePair reduces all groups of one node pair to a single edge. The
// winner is chosen among the groups no other group subsumes; groups the
// winner subsumes are merged into it and the rest are discarded as
// incompatible.
func (r *reducer) resolvePair(groups map[typeKey]*edge) *edge {
	all := make([]*edge, 0, len(groups))
	for _, e := range groups {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	var winner *edge
	for _, g := range all {
		maximal := true
		for _, h := range all {
			if subsumes(h, g) {
				maximal = false
				break
			}
		}
		if maximal && (winner == nil || outranks(g, winner)) {
			winner = g
		}
	}

	for _, g := range all {
		if g == winner {
			continue
		}
		if subsumes(winner, g) {
			r.events.Record(types.EventMergeMoreSpecific, winner.typ, g.typ)
			winner.merge(g)
			continue
		}
		r.events.Record(types.EventIncompatible, winner.typ, g.typ)
	}
	return winner
}

// outranks is the conflict precedence between two groups of the same pair:
// specificity, type depth, category (ORIGIN, SIBLING, RELATED), extractor
// priority, forward orientation, type name, canonical order.
func outranks(a, b *edge) bool {
	if a.spec != b.spec {
		return a.spec > b.spec
	}
	if a.typ.Depth() != b.typ.Depth() || a.typ.Category() != b.typ.Category() {
		return a.typ.Outranks(b.typ)
	}
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	if a.orient != b.orient {
		return a.orient > b.orient
	}
	if a.typ != b.typ {
		return a.typ < b.typ
	}
	return a.seq < b.seq
}

// components splits edges into weakly connected components. Components and
// the edges inside them keep a deterministic order.
func components(edges []*edge) [][]*edge {
	parent := map[types.NodeID]types.NodeID{}
	var find func(types.NodeID) types.NodeID
	find = func(n types.NodeID) types.NodeID {
		p, ok := parent[n]
		if !ok || p == n {
			parent[n] = n
			return n
		}
		root := find(p)
		parent[n] = root
		return root
	}
	union := func(a, b types.NodeID) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if rb.Less(ra) {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}
	for _, e := range edges {
		union(e.src, e.tgt)
	}

	byRoot := map[types.NodeID][]*edge{}
	var roots []types.NodeID
	for _, e := range edges {
		root := find(e.src)
		if _, ok := byRoot[root]; !ok {
			roots = append(roots, root)
		}
		byRoot[root] = append(byRoot[root], e)
	}
	out := make([][]*edge, len(roots))
	for i, root := range roots {
		out[i] = byRoot[root]
	}
	return out
}

func bestPriority(prov []types.Provenance) int {
	best := 0
	for _, p := range prov {
		best = max(best, types.ExtractorPriority(p.Extractor))
	}
	return best
}

func unionProvenance(a, b []types.Provenance) []types.Provenance {
	seen := make(map[types.Provenance]bool, len(a)+len(b))
	out := make([]types.Provenance, 0, len(a)+len(b))
	for _, list := range [][]types.Provenance{a, b} {
		for _, p := range list {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func provenanceKey(prov []types.Provenance) string {
	parts := make([]string, len(prov))
	for i, p := range prov {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}
