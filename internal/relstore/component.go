// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relstore

import (
	"sort"

	"github.com/pdiddy/etymgraph/pkg/types"
)

// component is one weakly connected part of the merged graph. Edges are
// flagged as removed rather than deleted so adjacency stays valid.
type component struct {
	edges []*edge
	out   map[types.NodeID][]*edge
	in    map[types.NodeID][]*edge
	nodes []types.NodeID
}

func newComponent(edges []*edge) *component {
	c := &component{
		edges: edges,
		out:   map[types.NodeID][]*edge{},
		in:    map[types.NodeID][]*edge{},
	}
	seen := map[types.NodeID]bool{}
	for _, e := range edges {
		c.out[e.src] = append(c.out[e.src], e)
		c.in[e.tgt] = append(c.in[e.tgt], e)
		for _, n := range []types.NodeID{e.src, e.tgt} {
			if !seen[n] {
				seen[n] = true
				c.nodes = append(c.nodes, n)
			}
		}
	}
	sort.Slice(c.nodes, func(i, j int) bool { return c.nodes[i].Less(c.nodes[j]) })
	for _, list := range []map[types.NodeID][]*edge{c.out, c.in} {
		for _, es := range list {
			sort.Slice(es, func(i, j int) bool {
				if es[i].tgt != es[j].tgt {
					return es[i].tgt.Less(es[j].tgt)
				}
				return es[i].src.Less(es[j].src)
			})
		}
	}
	return c
}

// reduceComponent runs cycle handling, transitive reduction and RELATED
// pruning, and returns the surviving edges.
func (r *reducer) reduceComponent(edges []*edge) []*edge {
	c := newComponent(edges)
	if r.breakCycles {
		for {
			cycle := c.findCycle()
			if cycle == nil {
				break
			}
			weakest := cycle[0]
			for _, e := range cycle[1:] {
				if weaker(e, weakest) {
					weakest = e
				}
			}
			weakest.removed = true
			r.record(types.EventCycleBroken, 1, weakest.typ)
		}
	} else {
		for range c.cycleSCCs() {
			r.record(types.EventCycleDetected, 1)
		}
	}

	c.transitiveReduction(r)
	c.pruneRelated(r)

	var kept []*edge
	for _, e := range c.edges {
		if !e.removed {
			kept = append(kept, e)
		}
	}
	return kept
}

func isOrigin(e *edge) bool { return e.typ.Category() == types.Origin }

// originSuccessors returns the live ORIGIN edges leaving n, in target order.
func (c *component) originSuccessors(n types.NodeID) []*edge {
	var out []*edge
	for _, e := range c.out[n] {
		if !e.removed && isOrigin(e) {
			out = append(out, e)
		}
	}
	return out
}

// findCycle returns the edges of the first ORIGIN cycle met by a depth-first
// search that starts from the smallest node and follows successors in order.
func (c *component) findCycle() []*edge {
	const (
		white = iota
		grey
		black
	)
	color := map[types.NodeID]int{}
	var path []*edge
	var found []*edge

	var visit func(n types.NodeID) bool
	visit = func(n types.NodeID) bool {
		color[n] = grey
		for _, e := range c.originSuccessors(n) {
			switch color[e.tgt] {
			case grey:
				// Walk back along the path to where the cycle starts.
				found = []*edge{e}
				for i := len(path) - 1; i >= 0; i-- {
					found = append(found, path[i])
					if path[i].src == e.tgt {
						break
					}
				}
				return true
			case white:
				path = append(path, e)
				if visit(e.tgt) {
					return true
				}
				path = path[:len(path)-1]
			}
		}
		color[n] = black
		return false
	}

	for _, n := range c.nodes {
		if color[n] == white && visit(n) {
			return found
		}
	}
	return nil
}

// cycleSCCs returns the strongly connected components of the ORIGIN edges
// that contain a cycle (Tarjan).
func (c *component) cycleSCCs() [][]types.NodeID {
	index := map[types.NodeID]int{}
	low := map[types.NodeID]int{}
	onStack := map[types.NodeID]bool{}
	var stack []types.NodeID
	var out [][]types.NodeID
	next := 0

	var strong func(n types.NodeID)
	strong = func(n types.NodeID) {
		index[n], low[n] = next, next
		next++
		stack = append(stack, n)
		onStack[n] = true
		for _, e := range c.originSuccessors(n) {
			if _, ok := index[e.tgt]; !ok {
				strong(e.tgt)
				low[n] = min(low[n], low[e.tgt])
			} else if onStack[e.tgt] {
				low[n] = min(low[n], index[e.tgt])
			}
		}
		if low[n] != index[n] {
			return
		}
		var scc []types.NodeID
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			scc = append(scc, top)
			if top == n {
				break
			}
		}
		if len(scc) > 1 {
			out = append(out, scc)
		}
	}
	for _, n := range c.nodes {
		if _, ok := index[n]; !ok {
			strong(n)
		}
	}
	return out
}

// reachable reports whether to can be reached from from without using skip,
// over live edges accepted by use. Directed walks follow source to target.
func (c *component) reachable(from, to types.NodeID, skip *edge, directed bool, use func(*edge) bool) bool {
	seen := map[types.NodeID]bool{from: true}
	queue := []types.NodeID{from}
	step := func(e *edge, next types.NodeID) bool {
		if e == skip || e.removed || !use(e) || seen[next] {
			return false
		}
		if next == to {
			return true
		}
		seen[next] = true
		queue = append(queue, next)
		return false
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range c.out[n] {
			if step(e, e.tgt) {
				return true
			}
		}
		if directed {
			continue
		}
		for _, e := range c.in[n] {
			if step(e, e.src) {
				return true
			}
		}
	}
	return false
}

// byStrength returns the live edges accepted by use, weakest first.
func (c *component) byStrength(use func(*edge) bool) []*edge {
	var out []*edge
	for _, e := range c.edges {
		if !e.removed && use(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return weaker(out[i], out[j]) })
	return out
}

// transitiveReduction removes ORIGIN and SIBLING edges implied by another
// path of the same category whose edges are at least as specific. ORIGIN
// paths are directed; SIBLING paths are not. Repeats until nothing changes.
func (c *component) transitiveReduction(r *reducer) {
	for changed := true; changed; {
		changed = false
		for _, e := range c.byStrength(func(e *edge) bool { return e.typ.Category() != types.Related }) {
			cat := e.typ.Category()
			use := func(f *edge) bool { return f.typ.Category() == cat && f.spec >= e.spec }
			if c.reachable(e.src, e.tgt, e, cat == types.Origin, use) {
				e.removed = true
				changed = true
				r.record(types.EventTransitive, 1, e.typ)
			}
		}
	}
}

// pruneRelated removes RELATED edges whose endpoints are already linked by
// ORIGIN or SIBLING edges, or by any other path of no lower specificity.
func (c *component) pruneRelated(r *reducer) {
	structural := func(f *edge) bool { return f.typ.Category() != types.Related }
	for changed := true; changed; {
		changed = false
		for _, e := range c.byStrength(func(e *edge) bool { return e.typ.Category() == types.Related }) {
			switch {
			case c.reachable(e.src, e.tgt, e, false, structural):
				e.removed = true
				r.record(types.EventIntraComponent, 1, e.typ)
			case c.reachable(e.src, e.tgt, e, false, func(f *edge) bool { return f.spec >= e.spec }):
				e.removed = true
				r.record(types.EventTransitive, 1, e.typ)
			default:
				continue
			}
			changed = true
		}
	}
}
