// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pdiddy/etymgraph/internal/logger"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// File names written under ExportConfig.OutputDir.
const (
	YAMLFile   = "graph.yaml"
	JSONFile   = "graph.json"
	SQLiteFile = "graph.db"
)

// dialNeo4j is replaced in tests.
var dialNeo4j = DialNeo4j

// Export runs every writer in cfg.Formats and reports each on w.
func Export(ctx context.Context, cfg types.ExportConfig, doc *Document, log *logger.Logger, w io.Writer) error {
	if len(cfg.Formats) == 0 {
		return fmt.Errorf("no export formats configured")
	}
	if log == nil {
		log = logger.Nop()
	}
	for _, format := range cfg.Formats {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := exportOne(ctx, cfg, format, doc, log)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", format, err)
			return fmt.Errorf("exporting %s: %w", format, err)
		}
		fmt.Fprintf(w, "exported %s -> %s\n", format, target)
	}
	return nil
}

func exportOne(ctx context.Context, cfg types.ExportConfig, format types.ExportFormat, doc *Document, log *logger.Logger) (string, error) {
	switch format {
	case types.ExportYAML:
		path := filepath.Join(cfg.OutputDir, YAMLFile)
		return path, WriteYAML(path, doc)
	case types.ExportJSON:
		path := filepath.Join(cfg.OutputDir, JSONFile)
		return path, WriteJSON(path, doc)
	case types.ExportSQLite:
		path := filepath.Join(cfg.OutputDir, SQLiteFile)
		sw, err := OpenSQLite(path)
		if err != nil {
			return path, err
		}
		defer sw.Close()
		return path, sw.Write(ctx, doc)
	case types.ExportNeo4j:
		gw, err := dialNeo4j(ctx, cfg.Neo4j)
		if err != nil {
			return cfg.Neo4j.URI, err
		}
		defer gw.Close(ctx)
		_, err = NewNeo4jLoader(gw, cfg.Neo4j.BatchSize, log).Load(ctx, doc)
		return cfg.Neo4j.URI, err
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

// Load reads a previously exported document from dir, preferring the
// SQLite database, then JSON, then YAML.
func Load(ctx context.Context, dir string) (*Document, error) {
	if path := filepath.Join(dir, SQLiteFile); fileExists(path) {
		sw, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		defer sw.Close()
		return sw.Read(ctx)
	}
	for _, name := range []string{JSONFile, YAMLFile} {
		if path := filepath.Join(dir, name); fileExists(path) {
			return ReadFile(path)
		}
	}
	return nil, fmt.Errorf("no exported graph in %s", dir)
}
