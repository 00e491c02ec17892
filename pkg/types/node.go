// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EntityLanguage is the reserved language code for named entities (people,
// places) that appear as relation targets but are not words.
const EntityLanguage = "entity"

// NodeKind distinguishes word senses from non-lexeme nodes.
type NodeKind string

const (
	KindLexeme NodeKind = "lexeme"
	KindEntity NodeKind = "entity"
)

// NodeID identifies a lexical node. Two NodeIDs with equal fields denote the
// same node; construct them with NewNodeID so normalization happens once.
type NodeID struct {
	Term     string `json:"term" yaml:"term"`
	Language string `json:"language" yaml:"language"`

	// Sense is 0 for terms with a single etymology (or no entry at all) and
	// the 1-based etymology number otherwise.
	Sense int `json:"sense" yaml:"sense"`
}

// NewNodeID normalizes term and language and returns the node identity.
func NewNodeID(term, language string, sense int) NodeID {
	if sense < 0 {
		sense = 0
	}
	return NodeID{
		Term:     NormalizeTerm(term),
		Language: NormalizeLanguage(language),
		Sense:    sense,
	}
}

// NormalizeTerm applies NFC, trims, and collapses internal whitespace runs.
func NormalizeTerm(term string) string {
	return strings.Join(strings.Fields(norm.NFC.String(term)), " ")
}

// NormalizeLanguage lower-cases and trims a language code.
func NormalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Key renders the identity as "lang:term#sense".
func (n NodeID) Key() string {
	return n.Language + ":" + n.Term + "#" + strconv.Itoa(n.Sense)
}

func (n NodeID) String() string {
	return n.Key()
}

// IsZero reports whether n is the empty identity.
func (n NodeID) IsZero() bool {
	return n.Term == "" && n.Language == ""
}

// Kind derives the node kind from identity alone: entities and affixes are
// non-lexeme nodes.
func (n NodeID) Kind() NodeKind {
	if n.Language == EntityLanguage {
		return KindEntity
	}
	if IsAffix(n.Term) {
		return KindEntity
	}
	return KindLexeme
}

// Less orders nodes by language, term, then sense.
func (n NodeID) Less(o NodeID) bool {
	if n.Language != o.Language {
		return n.Language < o.Language
	}
	if n.Term != o.Term {
		return n.Term < o.Term
	}
	return n.Sense < o.Sense
}

// ParseNodeKey is the inverse of Key.
func ParseNodeKey(key string) (NodeID, error) {
	lang, rest, ok := strings.Cut(key, ":")
	if !ok {
		return NodeID{}, fmt.Errorf("node key %q: missing language separator", key)
	}
	i := strings.LastIndex(rest, "#")
	if i < 0 {
		return NodeID{}, fmt.Errorf("node key %q: missing sense separator", key)
	}
	sense, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return NodeID{}, fmt.Errorf("node key %q: parsing sense: %w", key, err)
	}
	return NodeID{Term: rest[:i], Language: lang, Sense: sense}, nil
}

// IsAffix reports whether term is written as a bound morpheme ("-ness", "un-").
func IsAffix(term string) bool {
	return len(term) > 1 && (strings.HasPrefix(term, "-") || strings.HasSuffix(term, "-"))
}

// Node is a node of the canonical graph with its optional export attributes.
type Node struct {
	ID   NodeID   `json:"id" yaml:"id"`
	Kind NodeKind `json:"kind" yaml:"kind"`

	// Attributes are populated lazily at export time.
	POS           []string `json:"pos,omitempty" yaml:"pos,omitempty"`
	Gloss         string   `json:"gloss,omitempty" yaml:"gloss,omitempty"`
	Pronunciation string   `json:"pronunciation,omitempty" yaml:"pronunciation,omitempty"`
}
