// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/etymgraph/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-export a previously extracted graph",
	Long: `Export loads the graph written by the last extract run from the output
directory (graph.db, graph.json, or graph.yaml, in that order) and writes it
with the requested formats. Use it to load an existing graph into Neo4j
without re-running extraction.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringSlice("format", nil, "export formats: yaml, json, sqlite, neo4j")
	exportCmd.Flags().String("output-dir", "", "directory holding the exported graph (default data/export)")
	exportCmd.Flags().String("from", "", "directory to load the graph from (default: the output directory)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	applyExportFlags(cmd)
	if err := validateConfig(cfg); err != nil {
		return err
	}
	from, _ := cmd.Flags().GetString("from")
	if from == "" {
		from = cfg.Export.OutputDir
	}
	doc, err := export.Load(ctx, from)
	if err != nil {
		return err
	}
	return export.Export(ctx, cfg.Export, doc, log, os.Stdout)
}
