// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Specificity ranks how precisely a candidate describes a connection.
// Higher values win conflicts in the relation store.
const (
	SpecLow    = 0
	SpecMedium = 1
	SpecHigh   = 2
)

// Extractor names used in provenance.
const (
	ExtractorEtymology   = "etymology"
	ExtractorDescendants = "descendants"
	ExtractorBaseline    = "baseline"
	ExtractorDerived     = "derived"
	ExtractorRelated     = "related"
)

// extractorPriority is the fixed precedence used when two incompatible
// candidates tie on specificity and type rank.
var extractorPriority = map[string]int{
	ExtractorEtymology:   5,
	ExtractorDescendants: 4,
	ExtractorBaseline:    3,
	ExtractorDerived:     2,
	ExtractorRelated:     1,
}

// ExtractorPriority returns the precedence of an extractor name; unknown
// names rank lowest.
func ExtractorPriority(name string) int {
	return extractorPriority[name]
}

// Section categories as stored in the entry store.
const (
	CategoryEtymology    = "etymology"
	CategoryDescendants  = "descendants"
	CategoryRelatedTerms = "related terms"
	CategoryDerivedTerms = "derived terms"
)

// Ref points at a node. A resolved ref carries Node; a textual ref carries
// the surface form and disambiguation hints and is resolved by the store.
type Ref struct {
	Node *NodeID `json:"node,omitempty" yaml:"node,omitempty"`

	Term     string `json:"term,omitempty" yaml:"term,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	SenseID  string `json:"sense_id,omitempty" yaml:"sense_id,omitempty"`
	POS      string `json:"pos,omitempty" yaml:"pos,omitempty"`
	Gloss    string `json:"gloss,omitempty" yaml:"gloss,omitempty"`

	// Entity marks a named entity (e.g. the person a word is named after).
	Entity bool `json:"entity,omitempty" yaml:"entity,omitempty"`
}

// NodeRef returns a resolved ref.
func NodeRef(id NodeID) Ref {
	return Ref{Node: &id}
}

// TextRef returns an unresolved ref for term in language.
func TextRef(term, language string) Ref {
	return Ref{Term: term, Language: language}
}

// Resolved reports whether the ref already names a node.
func (r Ref) Resolved() bool {
	return r.Node != nil
}

func (r Ref) String() string {
	if r.Node != nil {
		return r.Node.Key()
	}
	return fmt.Sprintf("%s:%s?", r.Language, r.Term)
}

// Key is a stable string form of the ref including its hints.
func (r Ref) Key() string {
	if r.Node != nil {
		return r.Node.Key()
	}
	var b strings.Builder
	b.WriteString(NormalizeLanguage(r.Language))
	b.WriteByte(':')
	b.WriteString(NormalizeTerm(r.Term))
	b.WriteByte('?')
	b.WriteString(r.SenseID)
	b.WriteByte('|')
	b.WriteString(r.POS)
	b.WriteByte('|')
	b.WriteString(r.Gloss)
	return b.String()
}

// Provenance records which extractor and section contributed a relation.
type Provenance struct {
	Extractor string `json:"extractor" yaml:"extractor"`
	Section   string `json:"section" yaml:"section"`
	EntryID   string `json:"entry_id" yaml:"entry_id"`
}

func (p Provenance) String() string {
	return p.Extractor + "@" + p.EntryID + "/" + p.Section
}

// Candidate is an unvalidated relation proposal emitted by an extractor.
// For directed types Source derives from Target.
type Candidate struct {
	Source      Ref          `json:"source" yaml:"source"`
	Target      Ref          `json:"target" yaml:"target"`
	Type        RelationType `json:"type" yaml:"type"`
	Specificity int          `json:"specificity" yaml:"specificity"`
	Provenance  []Provenance `json:"provenance" yaml:"provenance"`
	Uncertain   bool         `json:"uncertain,omitempty" yaml:"uncertain,omitempty"`
}

// SectionContext carries what an extractor knows about the entry a section
// belongs to.
type SectionContext struct {
	Title    string `json:"title" yaml:"title"`
	Language string `json:"language" yaml:"language"`

	// Path is the heading path inside the language section, e.g.
	// ["Etymology 2", "Noun", "Derived terms"].
	Path []string `json:"path" yaml:"path"`

	// Sense is the etymology number the section belongs to (0 when the
	// entry has a single etymology).
	Sense int `json:"sense" yaml:"sense"`
}

// Lexeme returns the node the section describes.
func (c SectionContext) Lexeme() NodeID {
	return NewNodeID(c.Title, c.Language, c.Sense)
}

// Section is one raw section handed to the extractors.
type Section struct {
	EntryID  string         `json:"entry_id" yaml:"entry_id"`
	Category string         `json:"category" yaml:"category"`
	Text     string         `json:"text" yaml:"text"`
	Context  SectionContext `json:"context" yaml:"context"`
}

// Heading returns the last path element, or the category.
func (s Section) Heading() string {
	if len(s.Context.Path) > 0 {
		return s.Context.Path[len(s.Context.Path)-1]
	}
	return s.Category
}
