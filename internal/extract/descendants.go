// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"

	"github.com/pdiddy/etymgraph/internal/markup"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// Descendants reads nested descendant lists. An item at depth d derives from
// the nearest item at depth d-1 above it; items at depth 1 derive from the
// containing lexeme.
type Descendants struct {
	base
	invertAll bool
	invert    map[string]bool
}

// NewDescendants returns the descendants extractor.
func NewDescendants(res *Resolver, opts Options) *Descendants {
	d := &Descendants{
		base: base{
			name:       types.ExtractorDescendants,
			categories: []string{types.CategoryDescendants},
			res:        res,
		},
		invertAll: opts.InvertLineages,
		invert:    map[string]bool{},
	}
	for _, lang := range opts.InvertLanguages {
		d.invert[d.canonical(lang)] = true
	}
	return d
}

func (d *Descendants) canonical(lang string) string {
	return d.res.langs.Canonical(lang)
}

// Extract implements Extractor.
func (d *Descendants) Extract(ctx context.Context, sec types.Section) ([]types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := parseSection(sec); err != nil {
		return nil, err
	}
	items := markup.List(sec.Text)
	if len(items) == 0 {
		return nil, nil
	}
	if items[0].Depth != 1 {
		return nil, fmt.Errorf("%w: %s: list starts at depth %d", ErrMalformedSection, sec.EntryID, items[0].Depth)
	}

	invert := d.invertAll || d.invert[d.canonical(sec.Context.Language)]

	// parents[k] is the ref items at depth k+1 derive from.
	parents := []types.Ref{lexemeRef(sec)}
	prev := 0
	var out []types.Candidate
	for _, it := range items {
		if it.Depth > prev+1 {
			return nil, fmt.Errorf("%w: %s line %d: depth jumps from %d to %d",
				ErrMalformedSection, sec.EntryID, it.Line, prev, it.Depth)
		}
		parents = parents[:it.Depth]
		parent := parents[it.Depth-1]

		links, err := d.itemLinks(it)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedSection, sec.EntryID, it.Line, err)
		}
		for _, l := range links {
			src, tgt := l.Target, parent
			if invert {
				src, tgt = tgt, src
			}
			out = append(out, d.candidate(sec, src, tgt, l.Type, types.SpecHigh, l.Uncertain))
		}

		next := parent
		if len(links) == 1 {
			next = links[0].Target
		}
		parents = append(parents, next)
		prev = it.Depth
	}
	return out, nil
}

// itemLinks returns the descendants named by one list item. Plain link
// templates count as inheritance unless they carry a more specific origin.
func (d *Descendants) itemLinks(it markup.Item) ([]Link, error) {
	nodes, err := markup.Parse(it.Text)
	if err != nil {
		return nil, err
	}
	var out []Link
	for _, n := range nodes {
		if n.Kind != markup.KindTemplate {
			continue
		}
		links, _ := d.res.Links(n.Template)
		for _, l := range links {
			if l.Target.Entity {
				continue
			}
			if !l.Type.IsA(types.Origin) {
				l.Type = types.Inheritance
			}
			out = append(out, l)
		}
	}
	return out, nil
}
