// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"sort"
	"strings"
)

// RelationType is a node in the closed relation taxonomy. RELATED is the
// root; every other type descends from exactly one top-level category.
type RelationType string

const (
	Related RelationType = "RELATED"

	Sibling    RelationType = "SIBLING"
	Cognate    RelationType = "COGNATE"
	Noncognate RelationType = "NONCOGNATE"
	Doublet    RelationType = "DOUBLET"
	AltForm    RelationType = "ALTFORM"

	Origin RelationType = "ORIGIN"

	Historical  RelationType = "HISTORICAL"
	Inheritance RelationType = "INHERITANCE"
	Derivation  RelationType = "DERIVATION"
	Root        RelationType = "ROOT"

	Borrowing            RelationType = "BORROWING"
	LearnedBorrowing     RelationType = "LEARNED_BORROWING"
	SemiLearnedBorrowing RelationType = "SEMI_LEARNED_BORROWING"
	OrthographicBorrow   RelationType = "ORTHOGRAPHIC_BORROWING"
	UnadaptedBorrowing   RelationType = "UNADAPTED_BORROWING"
	Calque               RelationType = "CALQUE"
	PartialCalque        RelationType = "PARTIAL_CALQUE"
	SemanticLoan         RelationType = "SEMANTIC_LOAN"
	PhonoSemantic        RelationType = "PSM"

	Morphological RelationType = "MORPHOLOGICAL"
	Affix         RelationType = "AFFIX"
	Prefix        RelationType = "PREFIX"
	Infix         RelationType = "INFIX"
	Suffix        RelationType = "SUFFIX"
	Confix        RelationType = "CONFIX"
	Circumfix     RelationType = "CIRCUMFIX"
	Compound      RelationType = "COMPOUND"
	Univerbation  RelationType = "UNIVERBATION"
	Blending      RelationType = "BLENDING"
	Clipping      RelationType = "CLIPPING"
	BackForm      RelationType = "BACKFORM"
	Abbrev        RelationType = "ABBREV"
	Shortening    RelationType = "SHORTENING"

	OtherOrigin  RelationType = "OTHER"
	Unknown      RelationType = "UNKNOWN"
	Eponym       RelationType = "EPONYM"
	Onomatopoeia RelationType = "ONOM"
)

// relationParent encodes the taxonomy as child -> parent.
var relationParent = map[RelationType]RelationType{
	Sibling:    Related,
	Cognate:    Sibling,
	Noncognate: Sibling,
	Doublet:    Sibling,
	AltForm:    Sibling,

	Origin: Related,

	Historical:  Origin,
	Inheritance: Historical,
	Derivation:  Historical,
	Root:        Historical,

	Borrowing:            Origin,
	LearnedBorrowing:     Borrowing,
	SemiLearnedBorrowing: Borrowing,
	OrthographicBorrow:   Borrowing,
	UnadaptedBorrowing:   Borrowing,
	Calque:               Borrowing,
	PartialCalque:        Borrowing,
	SemanticLoan:         Borrowing,
	PhonoSemantic:        Borrowing,

	Morphological: Origin,
	Affix:         Morphological,
	Prefix:        Affix,
	Infix:         Affix,
	Suffix:        Affix,
	Confix:        Affix,
	Circumfix:     Affix,
	Compound:      Morphological,
	Univerbation:  Morphological,
	Blending:      Morphological,
	Clipping:      Morphological,
	BackForm:      Morphological,
	Abbrev:        Morphological,
	Shortening:    Morphological,

	OtherOrigin:  Origin,
	Unknown:      OtherOrigin,
	Eponym:       OtherOrigin,
	Onomatopoeia: OtherOrigin,
}

// ancestors is precomputed from relationParent; each entry starts with the
// type itself and ends with Related.
var ancestors = func() map[RelationType][]RelationType {
	m := map[RelationType][]RelationType{Related: {Related}}
	for t := range relationParent {
		chain := []RelationType{t}
		for p, ok := relationParent[t]; ok; p, ok = relationParent[p] {
			chain = append(chain, p)
		}
		m[t] = chain
	}
	return m
}()

// Valid reports whether t is part of the taxonomy.
func (t RelationType) Valid() bool {
	_, ok := ancestors[t]
	return ok
}

// Parent returns the direct supertype, or "" for RELATED.
func (t RelationType) Parent() RelationType {
	return relationParent[t]
}

// IsA reports whether t equals other or descends from it.
func (t RelationType) IsA(other RelationType) bool {
	for _, a := range ancestors[t] {
		if a == other {
			return true
		}
	}
	return false
}

// Depth is the distance from RELATED; deeper types are more specific.
func (t RelationType) Depth() int {
	return len(ancestors[t]) - 1
}

// Category returns ORIGIN, SIBLING, or RELATED.
func (t RelationType) Category() RelationType {
	switch {
	case t.IsA(Origin):
		return Origin
	case t.IsA(Sibling):
		return Sibling
	default:
		return Related
	}
}

// Directed reports whether the type has a source and a target. Only the
// ORIGIN subtree is directed.
func (t RelationType) Directed() bool {
	return t.IsA(Origin)
}

// categoryRank orders categories for conflict tie-breaks.
func (t RelationType) categoryRank() int {
	switch t.Category() {
	case Origin:
		return 2
	case Sibling:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether t beats other when both candidates carry the same
// specificity: deeper type first, then category precedence, then name.
func (t RelationType) Outranks(other RelationType) bool {
	if t.Depth() != other.Depth() {
		return t.Depth() > other.Depth()
	}
	if t.categoryRank() != other.categoryRank() {
		return t.categoryRank() > other.categoryRank()
	}
	return t < other
}

// ParseRelationType accepts canonical names ("LEARNED_BORROWING") as well as
// template-style names ("learned borrowing", "back-formation").
func ParseRelationType(name string) (RelationType, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	if alias, ok := relationAliases[n]; ok {
		n = string(alias)
	}
	t := RelationType(n)
	if !t.Valid() {
		return "", fmt.Errorf("unknown relation type %q", name)
	}
	return t, nil
}

var relationAliases = map[string]RelationType{
	"INHERITED":               Inheritance,
	"DERIVED":                 Derivation,
	"BORROWED":                Borrowing,
	"PHONO_SEMANTIC_MATCHING": PhonoSemantic,
	"BACK_FORMATION":          BackForm,
	"ONOMATOPOEIC":            Onomatopoeia,
	"SHORT_FOR":               Shortening,
	"ALTERNATIVE_FORM_OF":     AltForm,
	"ALT_FORM":                AltForm,
	"NAMED_AFTER":             Eponym,
	"BLEND":                   Blending,
}

// RelationTypes lists the whole taxonomy in name order.
func RelationTypes() []RelationType {
	out := make([]RelationType, 0, len(ancestors))
	for t := range ancestors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
