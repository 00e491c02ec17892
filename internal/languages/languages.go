// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package languages maps language codes to names and to their historical
// predecessors. The tree canonicalizes etymology-only variety codes and
// tells the relation store which of two languages is older.
package languages

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

//go:embed languages.yaml
var defaultTree []byte

// Language is one entry of the tree file.
type Language struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Parent   string `yaml:"parent,omitempty"`
	EtymOnly bool   `yaml:"etym_only,omitempty"`
}

type treeFile struct {
	Languages []Language `yaml:"languages"`
}

// Tree is read-only after construction and safe for concurrent use.
type Tree struct {
	byCode map[string]Language
}

// Default returns the embedded tree.
func Default() *Tree {
	t, err := Parse(bytes.NewReader(defaultTree))
	if err != nil {
		panic(fmt.Sprintf("embedded language tree: %v", err))
	}
	return t
}

// LoadFile reads a tree from a YAML file.
func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening language tree %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a tree from YAML. Parents must refer to codes in the same file
// and the parent relation must not loop.
func Parse(r io.Reader) (*Tree, error) {
	var tf treeFile
	if err := yaml.NewDecoder(r).Decode(&tf); err != nil {
		return nil, fmt.Errorf("decoding language tree: %w", err)
	}
	t := &Tree{byCode: make(map[string]Language, len(tf.Languages))}
	for _, l := range tf.Languages {
		code := strings.ToLower(strings.TrimSpace(l.Code))
		if code == "" {
			return nil, fmt.Errorf("language without code (name %q)", l.Name)
		}
		l.Code = code
		l.Parent = strings.ToLower(strings.TrimSpace(l.Parent))
		t.byCode[code] = l
	}
	for code, l := range t.byCode {
		if l.Parent != "" {
			if _, ok := t.byCode[l.Parent]; !ok {
				return nil, fmt.Errorf("language %s: unknown parent %s", code, l.Parent)
			}
		}
		if l.EtymOnly && l.Parent == "" {
			return nil, fmt.Errorf("language %s: etymology-only code needs a parent", code)
		}
		seen := map[string]bool{code: true}
		for p := l.Parent; p != ""; p = t.byCode[p].Parent {
			if seen[p] {
				return nil, fmt.Errorf("language %s: parent cycle through %s", code, p)
			}
			seen[p] = true
		}
	}
	return t, nil
}

// Known reports whether code is in the tree.
func (t *Tree) Known(code string) bool {
	_, ok := t.byCode[normalize(code)]
	return ok
}

// Name returns the display name, or the code itself when unknown.
func (t *Tree) Name(code string) string {
	if l, ok := t.byCode[normalize(code)]; ok {
		return l.Name
	}
	return code
}

// Canonical maps etymology-only variety codes to the language they belong
// to. Unknown codes are returned normalized but otherwise unchanged.
func (t *Tree) Canonical(code string) string {
	c := normalize(code)
	for {
		l, ok := t.byCode[c]
		if !ok || !l.EtymOnly {
			return c
		}
		c = l.Parent
	}
}

// IsAncestor reports whether older is a strict historical predecessor of
// newer. Both codes are canonicalized first.
func (t *Tree) IsAncestor(older, newer string) bool {
	o, n := t.Canonical(older), t.Canonical(newer)
	if o == n {
		return false
	}
	for p := t.byCode[n].Parent; p != ""; p = t.byCode[p].Parent {
		if p == o {
			return true
		}
	}
	return false
}

// Len returns the number of codes in the tree.
func (t *Tree) Len() int {
	return len(t.byCode)
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
