// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/pdiddy/etymgraph/internal/markup"
	"github.com/pdiddy/etymgraph/internal/registry"
	"github.com/pdiddy/etymgraph/pkg/types"
)

const defaultMaxChainHops = 16

var (
	fromRE       = regexp.MustCompile(`(?i)\bfrom\b`)
	itselfFromRE = regexp.MustCompile(`(?i)\bitself\s+(?:\w+\s+)?from\b`)
	uncertainRE  = regexp.MustCompile(`(?i)\b(maybe|possibly|probably|perhaps)\b`)
)

// mentionKeywords retype plain mentions by the words right before them.
// Checked in order.
var mentionKeywords = []struct {
	re  *regexp.Regexp
	typ types.RelationType
}{
	{regexp.MustCompile(`(?i)\bnamed (after|for)\b`), types.Eponym},
	{regexp.MustCompile(`(?i)\bcognates?\b`), types.Cognate},
	{regexp.MustCompile(`(?i)\bdoublets?\b`), types.Doublet},
	{regexp.MustCompile(`(?i)\bcalque`), types.Calque},
	{regexp.MustCompile(`(?i)\bborrow`), types.Borrowing},
	{regexp.MustCompile(`(?i)\binherit`), types.Inheritance},
	{regexp.MustCompile(`(?i)\babbreviation\b`), types.Abbrev},
	{regexp.MustCompile(`(?i)\bshorten(ed|ing)\b`), types.Shortening},
	{regexp.MustCompile(`(?i)\b(compare|see|related to)\b`), types.Related},
}

// Etymology reads etymology sections. Besides template dispatch it follows
// "from X, from Y" chains so that Y is attached to X rather than to the
// containing lexeme.
type Etymology struct {
	base
	opts Options
}

// NewEtymology returns the etymology extractor.
func NewEtymology(res *Resolver, opts Options) *Etymology {
	if opts.MaxChainHops <= 0 {
		opts.MaxChainHops = defaultMaxChainHops
	}
	return &Etymology{
		base: base{
			name:       types.ExtractorEtymology,
			categories: []string{types.CategoryEtymology},
			res:        res,
		},
		opts: opts,
	}
}

// etymToken is one relational template, or a group of mentions joined by
// "+", with the text that precedes it in its sentence.
type etymToken struct {
	links     []Link
	connector string
	sentence  int
	mention   bool
	morph     bool
	typ       types.RelationType
	spec      int
	uncertain bool
}

func (t *etymToken) linkType(i int) types.RelationType {
	if t.typ != "" {
		return t.typ
	}
	return t.links[i].Type
}

// Extract implements Extractor.
func (e *Etymology) Extract(ctx context.Context, sec types.Section) ([]types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes, err := parseSection(sec)
	if err != nil {
		return nil, err
	}
	toks := e.tokenize(nodes)
	for _, tok := range toks {
		classify(tok)
	}
	return e.resolve(sec, toks, e.parents(toks)), nil
}

func (e *Etymology) tokenize(nodes []markup.Node) []*etymToken {
	var toks []*etymToken
	var text strings.Builder
	sentence := 0
	for _, n := range nodes {
		switch n.Kind {
		case markup.KindText:
			for i, part := range strings.Split(n.Text, ".") {
				if i > 0 {
					sentence++
					text.Reset()
				}
				text.WriteString(part)
			}
		case markup.KindLink:
			text.WriteString(n.Link.Text())
		case markup.KindTemplate:
			links, _ := e.res.Links(n.Template)
			if len(links) == 0 {
				continue
			}
			tok := &etymToken{
				links:     links,
				connector: strings.ToLower(text.String()),
				sentence:  sentence,
				mention:   links[0].Template.Kind == registry.KindSingle && links[0].Type == types.Related,
			}
			text.Reset()
			if tok.mention && strings.TrimSpace(tok.connector) == "+" && len(toks) > 0 {
				prev := toks[len(toks)-1]
				if prev.sentence == sentence && (prev.mention || prev.morph) {
					prev.links = append(prev.links, links...)
					prev.mention, prev.morph = false, true
					continue
				}
			}
			toks = append(toks, tok)
		}
	}
	return toks
}

func classify(tok *etymToken) {
	tok.uncertain = uncertainRE.MatchString(tok.connector)
	switch {
	case tok.morph:
		tok.typ, tok.spec = types.Morphological, types.SpecMedium
	case tok.mention:
		tok.typ, tok.spec = types.Related, types.SpecLow
		if typ, ok := mentionType(tok.connector); ok && typ != types.Related {
			tok.typ, tok.spec = typ, types.SpecMedium
		}
	default:
		tok.spec = types.SpecHigh
	}
}

func mentionType(connector string) (types.RelationType, bool) {
	for _, kw := range mentionKeywords {
		if kw.re.MatchString(connector) {
			return kw.typ, true
		}
	}
	if fromRE.MatchString(connector) {
		return types.Origin, true
	}
	return "", false
}

// parents returns, per token, the index of the token it chains to, or -1
// for the containing lexeme. "itself from" chains to the previous single
// target of any type; "from" chains to the previous single origin target.
func (e *Etymology) parents(toks []*etymToken) []int {
	parent := make([]int, len(toks))
	for i := range parent {
		parent[i] = -1
	}
	if !e.opts.ChainResolution {
		return parent
	}
	lastOrigin, lastAny, sentence := -1, -1, 0
	for i, tok := range toks {
		if tok.sentence != sentence {
			sentence = tok.sentence
			lastOrigin, lastAny = -1, -1
		}
		if tok.sentence == 0 || !e.opts.OnlyFirstSentence {
			switch {
			case itselfFromRE.MatchString(tok.connector) && lastAny >= 0:
				parent[i] = lastAny
			case fromRE.MatchString(tok.connector) && lastOrigin >= 0:
				parent[i] = lastOrigin
			}
		}
		if len(tok.links) == 1 {
			lastAny = i
			if t := tok.linkType(0); t.IsA(types.Origin) && !t.IsA(types.Root) {
				lastOrigin = i
			}
		}
	}
	return parent
}

// resolve walks the chain forest breadth-first from the lexeme. A token
// whose target was already visited, or that lies deeper than MaxChainHops,
// falls back to the lexeme.
func (e *Etymology) resolve(sec types.Section, toks []*etymToken, parent []int) []types.Candidate {
	lex := lexemeRef(sec)
	children := map[int][]int{}
	for i, p := range parent {
		children[p] = append(children[p], i)
	}

	type hop struct{ idx, depth int }
	queue := []hop{{idx: -1}}
	visited := map[string]bool{chainKey(lex): true}
	var out []types.Candidate
	var chained, fallback int64

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		for _, c := range children[h.idx] {
			tok := toks[c]
			from, depth := h.idx, h.depth+1
			key := ""
			if len(tok.links) == 1 {
				key = chainKey(tok.links[0].Target)
			}
			if from >= 0 && (depth > e.opts.MaxChainHops || visited[key]) {
				from, depth = -1, 1
			}
			if key != "" {
				visited[key] = true
			}

			src := lex
			if from >= 0 {
				src = toks[from].links[0].Target
				chained += int64(len(tok.links))
			} else {
				fallback += int64(len(tok.links))
			}
			for i, l := range tok.links {
				out = append(out, e.candidate(sec, src, l.Target, tok.linkType(i), tok.spec, tok.uncertain || l.Uncertain))
			}
			queue = append(queue, hop{idx: c, depth: depth})
		}
	}
	e.res.stats.chained.Add(chained)
	e.res.stats.fallback.Add(fallback)
	return out
}

func chainKey(r types.Ref) string {
	if r.Node != nil {
		return r.Node.Language + ":" + r.Node.Term
	}
	return types.NormalizeLanguage(r.Language) + ":" + types.NormalizeTerm(r.Term)
}
