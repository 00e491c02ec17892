// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/etymgraph/internal/languages"
	"github.com/pdiddy/etymgraph/internal/markup"
	"github.com/pdiddy/etymgraph/internal/registry"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// Link is one relation target read from a template.
type Link struct {
	Target    types.Ref
	Type      types.RelationType
	Template  registry.Template
	Uncertain bool
}

// Resolver normalizes template arguments into links using the template
// registry and the language tree.
type Resolver struct {
	reg   *registry.Registry
	langs *languages.Tree
	stats *Stats
}

// NewResolver returns a resolver that records diagnostics in stats. A nil
// tree selects the embedded language tree.
func NewResolver(reg *registry.Registry, langs *languages.Tree, stats *Stats) *Resolver {
	if langs == nil {
		langs = languages.Default()
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Resolver{reg: reg, langs: langs, stats: stats}
}

// Stats returns the shared counters.
func (r *Resolver) Stats() *Stats { return r.stats }

// CountUnhandled adds every template of sec missing from the registry to
// the unhandled counter and returns how many it found. Several extractors
// may read the same section, so it runs once per section rather than from
// Links. A section that does not parse counts nothing.
func (r *Resolver) CountUnhandled(sec types.Section) int {
	nodes, err := markup.Parse(sec.Text)
	if err != nil {
		return 0
	}
	n := 0
	for _, node := range nodes {
		if node.Kind != markup.KindTemplate {
			continue
		}
		if _, ok := r.reg.Lookup(node.Template.Name); !ok {
			n++
		}
	}
	r.stats.unhandled.Add(int64(n))
	return n
}

// descFlags are checked in order; the first set flag selects the type.
var descFlags = []struct {
	names []string
	typ   types.RelationType
}{
	{[]string{"bor"}, types.Borrowing},
	{[]string{"lbor"}, types.LearnedBorrowing},
	{[]string{"slb"}, types.SemiLearnedBorrowing},
	{[]string{"cal", "calq", "clq", "calque"}, types.Calque},
	{[]string{"pclq"}, types.PartialCalque},
	{[]string{"sml"}, types.SemanticLoan},
	{[]string{"der"}, types.Derivation},
}

// Links reads the relation targets of tpl. The second result is false when
// the template is missing from the registry. Known templates without
// relation semantics return no links.
func (r *Resolver) Links(tpl *markup.Template) ([]Link, bool) {
	t, ok := r.reg.Lookup(tpl.Name)
	if !ok {
		return nil, false
	}

	switch t.Kind {
	case registry.KindTwoLang:
		return r.single(t, tpl, tpl.Arg(2), 3, 5), true
	case registry.KindSingle:
		return r.single(t, tpl, tpl.Arg(1), 2, 4), true
	case registry.KindDesc:
		links := r.single(t, tpl, tpl.Arg(1), 2, 4)
		typ := t.Type
	flags:
		for _, f := range descFlags {
			for _, name := range f.names {
				if tpl.Flag(name) {
					typ = f.typ
					break flags
				}
			}
		}
		for i := range links {
			links[i].Type = typ
			links[i].Uncertain = tpl.Flag("unc")
		}
		return links, true
	case registry.KindMulti:
		return r.multi(t, tpl, 1), true
	case registry.KindMultiLang:
		return r.multi(t, tpl, 2), true
	case registry.KindJoined:
		parts := make([]string, 0, len(tpl.Positional))
		for i := range tpl.Positional {
			if p := markup.PlainText(tpl.Arg(i + 1)); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			return nil, true
		}
		return []Link{{Target: types.TextRef(strings.Join(parts, " "), t.Language), Type: t.Type, Template: t}}, true
	case registry.KindPlainLinks:
		return r.plainLinks(t, tpl), true
	case registry.KindEntity:
		name := markup.PlainText(tpl.Arg(2))
		if name == "" {
			return nil, true
		}
		ref := types.Ref{Term: name, Language: types.EntityLanguage, Entity: true}
		return []Link{{Target: ref, Type: t.Type, Template: t}}, true
	}
	return nil, true
}

func (r *Resolver) single(t registry.Template, tpl *markup.Template, lang string, termArg, glossArg int) []Link {
	ref, ok := textRef(lang, tpl.Arg(termArg),
		firstNonEmpty(tpl.Arg(glossArg), tpl.Param("t"), tpl.Param("gloss")),
		tpl.Param("pos"), tpl.Param("id"))
	if !ok {
		return nil
	}
	return []Link{{Target: ref, Type: t.Type, Template: t}}
}

// multi reads numbered parts starting after the language argument at
// offset. Per-part parameters are suffixed with the part number (t2, lang2).
func (r *Resolver) multi(t registry.Template, tpl *markup.Template, offset int) []Link {
	lang := tpl.Arg(offset)
	var links []Link
	for i := offset + 1; i <= len(tpl.Positional); i++ {
		n := strconv.Itoa(i - offset)
		partLang := firstNonEmpty(tpl.Param("lang"+n), lang)
		ref, ok := textRef(partLang, tpl.Arg(i),
			firstNonEmpty(tpl.Param("t"+n), tpl.Param("gloss"+n)),
			tpl.Param("pos"+n), tpl.Param("id"+n))
		if !ok {
			continue
		}
		links = append(links, Link{Target: ref, Type: t.Type, Template: t})
	}
	return links
}

// plainLinks reads list templates. The language is the first positional
// when it is a known code, otherwise the lang parameter.
func (r *Resolver) plainLinks(t registry.Template, tpl *markup.Template) []Link {
	args := tpl.Positional
	lang := tpl.Param("lang")
	if len(args) > 0 && r.langs.Known(strings.TrimSpace(args[0])) {
		lang = strings.TrimSpace(args[0])
		args = args[1:]
	}
	if lang == "" {
		return nil
	}
	var links []Link
	for _, a := range args {
		ref, ok := textRef(lang, a, "", "", "")
		if !ok || strings.Contains(ref.Term, ":") {
			continue
		}
		links = append(links, Link{Target: ref, Type: t.Type, Template: t})
	}
	return links
}

var inlineModRE = regexp.MustCompile(`<(\w+):([^<>]*)>`)

// textRef builds a textual ref. Inline modifiers such as "term<t:gloss>"
// override the separate arguments.
func textRef(lang, term, gloss, pos, id string) (types.Ref, bool) {
	for _, m := range inlineModRE.FindAllStringSubmatch(term, -1) {
		switch m[1] {
		case "t", "gloss":
			gloss = m[2]
		case "pos":
			pos = m[2]
		case "id":
			id = m[2]
		}
	}
	term = markup.PlainText(inlineModRE.ReplaceAllString(term, ""))
	lang = strings.TrimSpace(lang)
	if term == "" || lang == "" {
		return types.Ref{}, false
	}
	return types.Ref{
		Term:     term,
		Language: lang,
		Gloss:    markup.PlainText(gloss),
		POS:      strings.TrimSpace(pos),
		SenseID:  strings.TrimSpace(id),
	}, true
}

// wikiLinkRef turns a plain [[link]] into a ref in lang. Namespaced links
// (Category:, w:, Thesaurus:) are skipped.
func wikiLinkRef(l *markup.Link, lang string) (types.Ref, bool) {
	if l.Target == "" || strings.Contains(l.Target, ":") {
		return types.Ref{}, false
	}
	return textRef(lang, l.Target, "", "", "")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
