// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/etymgraph/internal/entrystore"
	"github.com/pdiddy/etymgraph/internal/export"
	"github.com/pdiddy/etymgraph/internal/pipeline"
	"github.com/pdiddy/etymgraph/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract relations from the entry store and export the canonical graph",
	Long: `Extract builds the lexicon index from the entry store, runs the enabled
extractors over every etymology, descendants, derived terms, and related
terms section, reduces the candidates to a canonical graph, and writes it
with each configured export format.`,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringSlice("extractors", nil, "extractors to enable (default: all)")
	f.Int("workers", 0, "sections processed concurrently (default 8)")
	f.Bool("no-chains", false, "disable multi-hop chain resolution")
	f.Bool("detect-cycles", false, "report ORIGIN cycles instead of breaking them")
	f.StringSlice("format", nil, "export formats: yaml, json, sqlite, neo4j (default yaml)")
	f.String("output-dir", "", "directory for file exports (default data/export)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	if v, _ := f.GetStringSlice("extractors"); len(v) > 0 {
		cfg.Extraction.Extractors = v
	}
	if v, _ := f.GetInt("workers"); v > 0 {
		cfg.Extraction.Workers = v
	}
	if v, _ := f.GetBool("no-chains"); v {
		cfg.Extraction.ChainResolution = false
	}
	if v, _ := f.GetBool("detect-cycles"); v {
		cfg.Reduction.BreakCycles = false
	}
	applyExportFlags(cmd)
	if err := validateConfig(cfg); err != nil {
		return err
	}

	res, err := pipeline.LoadResources(cfg)
	if err != nil {
		return err
	}
	store, err := entrystore.Open(cfg.EntryStore)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := pipeline.Build(ctx, cfg, res, store, log, os.Stdout)
	if err != nil {
		return err
	}
	doc := export.NewDocument(result.Graph, result.Lexicon)
	if err := export.Export(ctx, cfg.Export, doc, log, os.Stdout); err != nil {
		return err
	}
	if result.Summary.HasFailures() {
		return fmt.Errorf("%d section(s) failed extraction", result.Summary.Failed)
	}
	return nil
}

// applyExportFlags copies --format and --output-dir into cfg.Export.
func applyExportFlags(cmd *cobra.Command) {
	if v, _ := cmd.Flags().GetStringSlice("format"); len(v) > 0 {
		cfg.Export.Formats = cfg.Export.Formats[:0]
		for _, name := range v {
			cfg.Export.Formats = append(cfg.Export.Formats, types.ExportFormat(name))
		}
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.Export.OutputDir = v
	}
}
