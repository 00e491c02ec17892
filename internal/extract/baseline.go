// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"

	"github.com/pdiddy/etymgraph/internal/markup"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// Baseline relates every registry template in an etymology section to the
// containing lexeme. It ignores the surrounding text.
type Baseline struct {
	base
}

// NewBaseline returns the baseline extractor.
func NewBaseline(res *Resolver) *Baseline {
	return &Baseline{base{
		name:       types.ExtractorBaseline,
		categories: []string{types.CategoryEtymology},
		res:        res,
	}}
}

// Extract implements Extractor.
func (b *Baseline) Extract(ctx context.Context, sec types.Section) ([]types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes, err := parseSection(sec)
	if err != nil {
		return nil, err
	}
	src := lexemeRef(sec)
	var out []types.Candidate
	for _, n := range nodes {
		if n.Kind != markup.KindTemplate {
			continue
		}
		links, _ := b.res.Links(n.Template)
		for _, l := range links {
			spec := types.SpecMedium
			if l.Type == types.Related {
				spec = types.SpecLow
			}
			out = append(out, b.candidate(sec, src, l.Target, l.Type, spec, l.Uncertain))
		}
	}
	return out, nil
}
