// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry maps markup template names to relation semantics. The
// table is static configuration: loaded once, read concurrently, never
// mutated during a run.
package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/pdiddy/etymgraph/pkg/types"
)

//go:embed templates.toml
var defaultRegistry []byte

// ErrUnknownRelation is returned when the registry names a relation type
// outside the taxonomy.
var ErrUnknownRelation = errors.New("unknown relation type")

// Kind selects how a template's arguments are read.
type Kind string

const (
	KindTwoLang    Kind = "two-lang"
	KindSingle     Kind = "single"
	KindMulti      Kind = "multi"
	KindMultiLang  Kind = "multi-lang"
	KindJoined     Kind = "joined"
	KindDesc       Kind = "desc"
	KindPlainLinks Kind = "plain-links"
	KindEntity     Kind = "entity"
	KindNoTarget   Kind = "no-target"
	KindPlain      Kind = "plain"
)

var knownKinds = map[Kind]bool{
	KindTwoLang: true, KindSingle: true, KindMulti: true, KindMultiLang: true,
	KindJoined: true, KindDesc: true, KindPlainLinks: true, KindEntity: true,
	KindNoTarget: true, KindPlain: true,
}

// Template is the resolved registry entry for one representative name.
type Template struct {
	Name string
	Kind Kind
	// Type is empty for plain templates.
	Type types.RelationType
	// Language fixes the target language of joined templates.
	Language string
}

// Relational reports whether the template can produce a candidate.
func (t Template) Relational() bool {
	return t.Kind != KindPlain && t.Kind != KindNoTarget
}

type templateDef struct {
	Kind     string   `toml:"kind"`
	Type     string   `toml:"type"`
	Language string   `toml:"language"`
	Aliases  []string `toml:"aliases"`
}

type fallbackDef struct {
	Pattern  string `toml:"pattern"`
	Template string `toml:"template"`
}

type registryFile struct {
	Templates map[string]templateDef `toml:"templates"`
	Fallbacks []fallbackDef          `toml:"fallbacks"`
}

type fallback struct {
	re  *regexp.Regexp
	rep string
}

// Registry holds the name and representative tables.
type Registry struct {
	templates map[string]Template
	aliases   map[string]string
	fallbacks []fallback
}

// Default returns the embedded registry.
func Default() *Registry {
	r, err := Load(bytes.NewReader(defaultRegistry))
	if err != nil {
		panic(fmt.Sprintf("embedded template registry: %v", err))
	}
	return r
}

// LoadFile reads a registry from a TOML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening template registry: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a TOML registry.
func Load(r io.Reader) (*Registry, error) {
	var file registryFile
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding template registry: %w", err)
	}

	reg := &Registry{
		templates: make(map[string]Template, len(file.Templates)),
		aliases:   map[string]string{},
	}
	for name, def := range file.Templates {
		rep := normalize(name)
		tpl := Template{Name: rep, Kind: Kind(def.Kind), Language: def.Language}
		if !knownKinds[tpl.Kind] {
			return nil, fmt.Errorf("template %q: unknown kind %q", name, def.Kind)
		}
		if def.Type != "" {
			t, err := types.ParseRelationType(def.Type)
			if err != nil {
				return nil, fmt.Errorf("template %q: %w: %s", name, ErrUnknownRelation, def.Type)
			}
			tpl.Type = t
		} else if tpl.Kind != KindPlain {
			return nil, fmt.Errorf("template %q: kind %s requires a type", name, tpl.Kind)
		}
		if tpl.Kind == KindJoined && tpl.Language == "" {
			return nil, fmt.Errorf("template %q: joined templates require a language", name)
		}
		reg.templates[rep] = tpl
		for _, a := range def.Aliases {
			a = normalize(a)
			if prev, ok := reg.aliases[a]; ok && prev != rep {
				return nil, fmt.Errorf("alias %q maps to both %q and %q", a, prev, rep)
			}
			reg.aliases[a] = rep
		}
	}
	for alias, rep := range reg.aliases {
		if _, ok := reg.templates[alias]; ok && alias != rep {
			return nil, fmt.Errorf("alias %q shadows template of the same name", alias)
		}
	}
	for _, fb := range file.Fallbacks {
		re, err := regexp.Compile(fb.Pattern)
		if err != nil {
			return nil, fmt.Errorf("fallback %q: %w", fb.Pattern, err)
		}
		rep := normalize(fb.Template)
		if _, ok := reg.templates[rep]; !ok {
			return nil, fmt.Errorf("fallback %q: unknown template %q", fb.Pattern, fb.Template)
		}
		reg.fallbacks = append(reg.fallbacks, fallback{re: re, rep: rep})
	}
	return reg, nil
}

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Representative maps a template name as written in markup to its
// representative: direct names first, then aliases, then fallback patterns
// in order.
func (r *Registry) Representative(name string) (string, bool) {
	n := normalize(name)
	if _, ok := r.templates[n]; ok {
		return n, true
	}
	if rep, ok := r.aliases[n]; ok {
		return rep, true
	}
	for _, fb := range r.fallbacks {
		if fb.re.MatchString(n) {
			return fb.rep, true
		}
	}
	return "", false
}

// Type maps a representative to its relation type. Plain templates have no
// type.
func (r *Registry) Type(rep string) (types.RelationType, bool) {
	tpl, ok := r.templates[rep]
	if !ok || tpl.Type == "" {
		return "", false
	}
	return tpl.Type, true
}

// Lookup resolves a template name to its registry entry.
func (r *Registry) Lookup(name string) (Template, bool) {
	rep, ok := r.Representative(name)
	if !ok {
		return Template{}, false
	}
	return r.templates[rep], true
}

// Representatives lists every representative in name order.
func (r *Registry) Representatives() []string {
	out := make([]string, 0, len(r.templates))
	for rep := range r.templates {
		out = append(out, rep)
	}
	sort.Strings(out)
	return out
}
