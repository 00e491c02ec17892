// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relstore

import (
	"sort"

	"github.com/pdiddy/etymgraph/pkg/types"
)

// Edge is one accepted relation of the canonical graph. For directed types
// Source derives from Target; for undirected types Source sorts first.
type Edge struct {
	Source      types.NodeID       `json:"source" yaml:"source"`
	Target      types.NodeID       `json:"target" yaml:"target"`
	Type        types.RelationType `json:"type" yaml:"type"`
	Specificity int                `json:"specificity" yaml:"specificity"`
	Provenance  []types.Provenance `json:"provenance" yaml:"provenance"`
	Uncertain   bool               `json:"uncertain,omitempty" yaml:"uncertain,omitempty"`
}

// Graph is the canonical graph produced by Finalize. It is immutable by
// convention.
type Graph struct {
	Nodes  []types.Node      `json:"nodes" yaml:"nodes"`
	Edges  []Edge            `json:"edges" yaml:"edges"`
	Events types.EventCounts `json:"events" yaml:"events"`
}

func newGraph(edges []Edge, events types.EventCounts) *Graph {
	sortEdges(edges)
	seen := map[types.NodeID]bool{}
	var ids []types.NodeID
	for _, e := range edges {
		for _, id := range []types.NodeID{e.Source, e.Target} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	nodes := make([]types.Node, len(ids))
	for i, id := range ids {
		nodes[i] = types.Node{ID: id, Kind: id.Kind()}
	}
	if edges == nil {
		edges = []Edge{}
	}
	return &Graph{Nodes: nodes, Edges: edges, Events: events}
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source.Less(b.Source)
		}
		if a.Target != b.Target {
			return a.Target.Less(b.Target)
		}
		return a.Type < b.Type
	})
}

// Candidates returns the graph's edges as resolved candidates, so a graph
// can be fed back into a new store.
func (g *Graph) Candidates() []types.Candidate {
	out := make([]types.Candidate, len(g.Edges))
	for i, e := range g.Edges {
		out[i] = types.Candidate{
			Source:      types.NodeRef(e.Source),
			Target:      types.NodeRef(e.Target),
			Type:        e.Type,
			Specificity: e.Specificity,
			Provenance:  append([]types.Provenance(nil), e.Provenance...),
			Uncertain:   e.Uncertain,
		}
	}
	return out
}

// CountByType tallies edges per relation type.
func (g *Graph) CountByType() map[types.RelationType]int {
	out := map[types.RelationType]int{}
	for _, e := range g.Edges {
		out[e.Type]++
	}
	return out
}
