// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markup tokenizes the wikitext found in entry sections into text,
// templates and links. It understands only as much syntax as the extractors
// need: nested {{templates}}, [[links]], comments, references and
// indentation-encoded lists.
package markup

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnbalanced reports an opening {{ or [[ without its closer.
var ErrUnbalanced = errors.New("unbalanced markup")

// Kind discriminates parsed nodes.
type Kind int

const (
	KindText Kind = iota
	KindTemplate
	KindLink
)

// Node is one piece of parsed text. Exactly one of Text, Template or Link is
// meaningful, as selected by Kind.
type Node struct {
	Kind     Kind
	Text     string
	Template *Template
	Link     *Link
}

// Template is a {{name|positional|key=value}} invocation. Argument values
// keep their raw markup; use PlainText to strip it.
type Template struct {
	Name       string
	Positional []string
	Named      map[string]string
	Raw        string
}

// Arg returns the i-th positional argument, counting from 1, or "".
func (t *Template) Arg(i int) string {
	if i < 1 || i > len(t.Positional) {
		return ""
	}
	return strings.TrimSpace(t.Positional[i-1])
}

// Param returns the named argument, or "".
func (t *Template) Param(name string) string {
	return strings.TrimSpace(t.Named[name])
}

// Flag reports whether a named argument is set to a truthy value.
func (t *Template) Flag(name string) bool {
	v, ok := t.Named[name]
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "no", "false":
		return false
	}
	return true
}

// Link is a [[target#section|label]] wikilink.
type Link struct {
	Target  string
	Section string
	Label   string
}

// Text returns the label, falling back to the target.
func (l *Link) Text() string {
	if l.Label != "" {
		return l.Label
	}
	return l.Target
}

var (
	commentRE = regexp.MustCompile(`(?s)<!--.*?-->`)
	refRE     = regexp.MustCompile(`(?is)<ref[^>]*/>|<ref[^>]*>.*?</ref>`)
)

// Strip removes comments and references.
func Strip(text string) string {
	text = commentRE.ReplaceAllString(text, "")
	return refRE.ReplaceAllString(text, "")
}

// Parse tokenizes text. Comments and references are removed first.
func Parse(text string) ([]Node, error) {
	return parse(Strip(text))
}

func parse(s string) ([]Node, error) {
	var nodes []Node
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			nodes = append(nodes, Node{Kind: KindText, Text: buf.String()})
			buf.Reset()
		}
	}
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			end, err := closing(s, i)
			if err != nil {
				return nil, err
			}
			flush()
			nodes = append(nodes, Node{Kind: KindTemplate, Template: parseTemplate(s[i:end])})
			i = end
		case strings.HasPrefix(s[i:], "[["):
			end, err := closing(s, i)
			if err != nil {
				return nil, err
			}
			flush()
			nodes = append(nodes, Node{Kind: KindLink, Link: parseLink(s[i:end])})
			i = end
		default:
			buf.WriteByte(s[i])
			i++
		}
	}
	flush()
	return nodes, nil
}

// closing returns the index just past the closer matching the opener at
// start. Braces and brackets nest independently.
func closing(s string, start int) (int, error) {
	var stack []byte
	for i := start; i < len(s); {
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, "{{"):
			stack = append(stack, '{')
			i += 2
		case strings.HasPrefix(rest, "[["):
			stack = append(stack, '[')
			i += 2
		case strings.HasPrefix(rest, "}}") && len(stack) > 0 && stack[len(stack)-1] == '{',
			strings.HasPrefix(rest, "]]") && len(stack) > 0 && stack[len(stack)-1] == '[':
			stack = stack[:len(stack)-1]
			i += 2
			if len(stack) == 0 {
				return i, nil
			}
		default:
			i++
		}
	}
	return 0, fmt.Errorf("%w: %q at offset %d", ErrUnbalanced, s[start:start+2], start)
}

// splitTop splits s on sep outside nested markup.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case i+1 < len(s) && (s[i:i+2] == "{{" || s[i:i+2] == "[["):
			depth++
			i++
		case i+1 < len(s) && (s[i:i+2] == "}}" || s[i:i+2] == "]]") && depth > 0:
			depth--
			i++
		case s[i] == sep && depth == 0:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

func parseTemplate(raw string) *Template {
	inner := raw[2 : len(raw)-2]
	parts := splitTop(inner, '|')
	t := &Template{
		Name:  strings.TrimSpace(parts[0]),
		Named: map[string]string{},
		Raw:   raw,
	}
	for _, p := range parts[1:] {
		if k, v, ok := namedArg(p); ok {
			t.Named[k] = v
			continue
		}
		t.Positional = append(t.Positional, p)
	}
	return t
}

// namedArg splits "key=value" when the key is a plain identifier outside
// nested markup. Explicit numeric keys fill positional slots elsewhere and
// are kept named here.
func namedArg(p string) (string, string, bool) {
	eq := splitTop(p, '=')
	if len(eq) < 2 {
		return "", "", false
	}
	key := strings.TrimSpace(eq[0])
	if key == "" || strings.ContainsAny(key, "{}[]<> ") {
		return "", "", false
	}
	return key, strings.Join(eq[1:], "="), true
}

func parseLink(raw string) *Link {
	inner := raw[2 : len(raw)-2]
	parts := splitTop(inner, '|')
	target := strings.TrimSpace(parts[0])
	l := &Link{}
	l.Target, l.Section, _ = strings.Cut(target, "#")
	l.Target = strings.TrimSpace(l.Target)
	if len(parts) > 1 {
		l.Label = strings.TrimSpace(PlainText(strings.Join(parts[1:], "|")))
	}
	return l
}

var emphasisRE = regexp.MustCompile(`'{2,}`)

// PlainText renders markup as readable text: links become their label,
// templates are dropped and emphasis quotes are removed. Unbalanced input is
// returned with only comments and emphasis stripped.
func PlainText(s string) string {
	nodes, err := Parse(s)
	if err != nil {
		return strings.TrimSpace(emphasisRE.ReplaceAllString(Strip(s), ""))
	}
	var b strings.Builder
	for _, n := range nodes {
		switch n.Kind {
		case KindText:
			b.WriteString(n.Text)
		case KindLink:
			b.WriteString(n.Link.Text())
		}
	}
	return strings.Join(strings.Fields(emphasisRE.ReplaceAllString(b.String(), "")), " ")
}
