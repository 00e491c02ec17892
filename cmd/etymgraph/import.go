// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/etymgraph/internal/entrystore"
)

const defaultUserAgent = "etymgraph/0.1"

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Load a JSONL entry dump into the entry store",
	Long: `Import reads a JSON-lines entry dump (optionally gzip-compressed) and
stores each entry with its senses and sections. Unchanged entries are
skipped on subsequent runs; changed entries are replaced.

With --url the dump is downloaded into <data-dir>/dumps/ first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("url", "", "download the dump from this URL before importing")
	importCmd.Flags().Int("batch-size", 0, "entries per transaction (default 500)")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	url, _ := cmd.Flags().GetString("url")
	if batch, _ := cmd.Flags().GetInt("batch-size"); batch > 0 {
		cfg.EntryStore.BatchSize = batch
	}

	var file string
	switch {
	case len(args) == 1 && url != "":
		return fmt.Errorf("provide either a file or --url, not both")
	case len(args) == 1:
		file = args[0]
	case url != "":
		file = filepath.Join(cfg.EntryStore.DataDir, "dumps", path.Base(url))
		if cfg.HTTP.UserAgent == "" {
			cfg.HTTP.UserAgent = defaultUserAgent
		}
		n, err := entrystore.FetchDump(ctx, cfg.HTTP, url, file)
		if err != nil {
			return err
		}
		log.Info("downloaded dump", "url", url, "path", file, "bytes", n)
	default:
		return fmt.Errorf("provide a dump file or --url")
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	store, err := entrystore.Open(cfg.EntryStore)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Import(ctx, f, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d line(s) failed import", summary.Failed)
	}
	return nil
}
