// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"

	"github.com/pdiddy/etymgraph/internal/markup"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// termList extracts every template and plain link of a term list section.
type termList struct {
	base
	// listedIsSource makes the listed term the source of the relation.
	listedIsSource bool
	typ            types.RelationType
}

// NewRelatedTerms returns the extractor for "Related terms" sections. Every
// listed term becomes a RELATED neighbour of the lexeme.
func NewRelatedTerms(res *Resolver) Extractor {
	return &termList{
		base: base{name: types.ExtractorRelated, categories: []string{types.CategoryRelatedTerms}, res: res},
		typ:  types.Related,
	}
}

// NewDerivedTerms returns the extractor for "Derived terms" sections. Every
// listed term derives from the lexeme.
func NewDerivedTerms(res *Resolver) Extractor {
	return &termList{
		base:           base{name: types.ExtractorDerived, categories: []string{types.CategoryDerivedTerms}, res: res},
		listedIsSource: true,
		typ:            types.Origin,
	}
}

func (e *termList) Extract(ctx context.Context, sec types.Section) ([]types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes, err := parseSection(sec)
	if err != nil {
		return nil, err
	}

	var refs []types.Ref
	for _, n := range nodes {
		switch n.Kind {
		case markup.KindTemplate:
			links, _ := e.res.Links(n.Template)
			for _, l := range links {
				if l.Target.Entity {
					continue
				}
				refs = append(refs, l.Target)
			}
		case markup.KindLink:
			if ref, ok := wikiLinkRef(n.Link, sec.Context.Language); ok {
				refs = append(refs, ref)
			}
		}
	}

	lex := lexemeRef(sec)
	out := make([]types.Candidate, 0, len(refs))
	for _, ref := range refs {
		src, tgt := lex, ref
		if e.listedIsSource {
			src, tgt = ref, lex
		}
		out = append(out, e.candidate(sec, src, tgt, e.typ, types.SpecLow, false))
	}
	return out, nil
}
