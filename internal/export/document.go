// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes the canonical graph to files and databases. Every
// writer consumes the same Document, so node and edge ids agree across
// formats.
package export

import (
	"github.com/google/uuid"

	"github.com/pdiddy/etymgraph/internal/lexicon"
	"github.com/pdiddy/etymgraph/internal/relstore"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// namespace seeds the name-based ids of exported nodes and edges.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/pdiddy/etymgraph"))

// NodeID returns the stable external id of a node.
func NodeID(id types.NodeID) string {
	return uuid.NewSHA1(namespace, []byte(id.Key())).String()
}

// EdgeID returns the stable external id of an edge.
func EdgeID(e relstore.Edge) string {
	return uuid.NewSHA1(namespace, []byte(e.Source.Key()+"|"+string(e.Type)+"|"+e.Target.Key())).String()
}

// AttributeSource supplies node attributes at export time.
type AttributeSource interface {
	Lexeme(id types.NodeID) (lexicon.Lexeme, bool)
}

// NodeRecord is one exported node.
type NodeRecord struct {
	ID            string         `json:"id" yaml:"id"`
	Key           string         `json:"key" yaml:"key"`
	Term          string         `json:"term" yaml:"term"`
	Language      string         `json:"language" yaml:"language"`
	Sense         int            `json:"sense" yaml:"sense"`
	Kind          types.NodeKind `json:"kind" yaml:"kind"`
	POS           []string       `json:"pos,omitempty" yaml:"pos,omitempty"`
	Gloss         string         `json:"gloss,omitempty" yaml:"gloss,omitempty"`
	Pronunciation string         `json:"pronunciation,omitempty" yaml:"pronunciation,omitempty"`
}

// EdgeRecord is one exported edge. Source and Target are node keys.
type EdgeRecord struct {
	ID          string             `json:"id" yaml:"id"`
	Source      string             `json:"source" yaml:"source"`
	Target      string             `json:"target" yaml:"target"`
	Type        types.RelationType `json:"type" yaml:"type"`
	Category    types.RelationType `json:"category" yaml:"category"`
	Specificity int                `json:"specificity" yaml:"specificity"`
	Uncertain   bool               `json:"uncertain,omitempty" yaml:"uncertain,omitempty"`
	Provenance  []types.Provenance `json:"provenance" yaml:"provenance"`
}

// Document is the export schema of a canonical graph.
type Document struct {
	Nodes  []NodeRecord      `json:"nodes" yaml:"nodes"`
	Edges  []EdgeRecord      `json:"edges" yaml:"edges"`
	Events types.EventCounts `json:"events" yaml:"events"`
}

// NewDocument converts g, attaching POS, first gloss and pronunciation from
// attrs where it knows the node. attrs may be nil.
func NewDocument(g *relstore.Graph, attrs AttributeSource) *Document {
	doc := &Document{
		Nodes:  make([]NodeRecord, len(g.Nodes)),
		Edges:  make([]EdgeRecord, len(g.Edges)),
		Events: g.Events.Clone(),
	}
	for i, n := range g.Nodes {
		rec := NodeRecord{
			ID:       NodeID(n.ID),
			Key:      n.ID.Key(),
			Term:     n.ID.Term,
			Language: n.ID.Language,
			Sense:    n.ID.Sense,
			Kind:     n.Kind,
		}
		if attrs != nil {
			if lx, ok := attrs.Lexeme(n.ID); ok {
				rec.POS = lx.POS
				rec.Pronunciation = lx.Pronunciation
				if len(lx.Glosses) > 0 {
					rec.Gloss = lx.Glosses[0]
				}
			}
		}
		doc.Nodes[i] = rec
	}
	for i, e := range g.Edges {
		doc.Edges[i] = EdgeRecord{
			ID:          EdgeID(e),
			Source:      e.Source.Key(),
			Target:      e.Target.Key(),
			Type:        e.Type,
			Category:    e.Type.Category(),
			Specificity: e.Specificity,
			Uncertain:   e.Uncertain,
			Provenance:  e.Provenance,
		}
	}
	return doc
}

// Stats summarizes a document.
type Stats struct {
	Nodes       int                        `json:"nodes" yaml:"nodes"`
	Edges       int                        `json:"edges" yaml:"edges"`
	NodesByKind map[types.NodeKind]int     `json:"nodes_by_kind" yaml:"nodes_by_kind"`
	EdgesByType map[types.RelationType]int `json:"edges_by_type" yaml:"edges_by_type"`
	Events      map[types.EventKind]int    `json:"events" yaml:"events"`
}

// Stats counts nodes by kind, edges by type, and reduction events.
func (d *Document) Stats() Stats {
	s := Stats{
		Nodes:       len(d.Nodes),
		Edges:       len(d.Edges),
		NodesByKind: map[types.NodeKind]int{},
		EdgesByType: map[types.RelationType]int{},
		Events:      map[types.EventKind]int{},
	}
	for _, n := range d.Nodes {
		s.NodesByKind[n.Kind]++
	}
	for _, e := range d.Edges {
		s.EdgesByType[e.Type]++
	}
	for k, v := range d.Events.ByKind {
		s.Events[k] = v
	}
	return s
}
