// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/etymgraph/internal/entrystore"
	"github.com/pdiddy/etymgraph/internal/export"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the entry store and the exported graph",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "output graph statistics as JSON")
	statsCmd.Flags().String("output-dir", "", "directory holding the exported graph (default data/export)")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.Export.OutputDir = v
	}

	store, err := entrystore.Open(cfg.EntryStore)
	if err != nil {
		return err
	}
	counts, err := store.Counts(ctx)
	store.Close()
	if err != nil {
		return err
	}

	doc, err := export.Load(ctx, cfg.Export.OutputDir)
	if err != nil {
		return err
	}
	s := doc.Stats()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Entries entrystore.Counts `json:"entries"`
			Graph   export.Stats      `json:"graph"`
		}{counts, s})
	}
	printStats(os.Stdout, counts, s)
	return nil
}

func printStats(w io.Writer, counts entrystore.Counts, s export.Stats) {
	fmt.Fprintf(w, "Entries:  %d (%d senses, %d sections)\n", counts.Entries, counts.Senses, counts.Sections)
	fmt.Fprintf(w, "Nodes:    %d\n", s.Nodes)
	for _, k := range sortedKeys(s.NodesByKind) {
		fmt.Fprintf(w, "  %-24s %d\n", k, s.NodesByKind[k])
	}
	fmt.Fprintf(w, "Edges:    %d\n", s.Edges)
	for _, k := range sortedKeys(s.EdgesByType) {
		fmt.Fprintf(w, "  %-24s %d\n", k, s.EdgesByType[k])
	}
	fmt.Fprintln(w, "Events:")
	for _, k := range sortedKeys(s.Events) {
		fmt.Fprintf(w, "  %-24s %d\n", k, s.Events[k])
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
