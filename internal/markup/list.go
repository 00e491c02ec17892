// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markup

import "strings"

// Item is one line of an indentation-encoded list.
type Item struct {
	// Depth is the number of leading list markers (* # :).
	Depth int
	// Line is the 1-based line number in the section text.
	Line int
	Text string
}

// List returns the list items of text in order. Lines that do not start
// with a list marker are skipped.
func List(text string) []Item {
	var items []Item
	for i, line := range strings.Split(Strip(text), "\n") {
		line = strings.TrimRight(line, " \t\r")
		depth := 0
		for depth < len(line) && strings.IndexByte("*#:", line[depth]) >= 0 {
			depth++
		}
		if depth == 0 {
			continue
		}
		body := strings.TrimSpace(line[depth:])
		if body == "" {
			continue
		}
		items = append(items, Item{Depth: depth, Line: i + 1, Text: body})
	}
	return items
}
