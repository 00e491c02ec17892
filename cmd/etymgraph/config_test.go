package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/etymgraph/internal/entrystore"
	"github.com/pdiddy/etymgraph/internal/export"
	"github.com/pdiddy/etymgraph/pkg/types"
)

func withConfigFile(t *testing.T, body string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "etymgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())
}

func TestLoadPipelineConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	got, err := loadPipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPipelineConfig(), got)
}

func TestLoadPipelineConfig_File(t *testing.T) {
	withConfigFile(t, `
entry_store:
  data_dir: /srv/etym
  query_timeout: 45s
extraction:
  extractors: [etymology, descendants]
  workers: 2
reduction:
  break_cycles: false
export:
  formats: [json, neo4j]
  neo4j:
    uri: bolt://graph:7687
`)

	got, err := loadPipelineConfig()
	require.NoError(t, err)

	def := types.DefaultPipelineConfig()
	assert.Equal(t, "/srv/etym", got.EntryStore.DataDir)
	assert.Equal(t, 45*time.Second, got.EntryStore.QueryTimeout)
	assert.Equal(t, def.EntryStore.BatchSize, got.EntryStore.BatchSize)
	assert.Equal(t, []string{"etymology", "descendants"}, got.Extraction.Extractors)
	assert.Equal(t, 2, got.Extraction.Workers)
	assert.True(t, got.Extraction.ChainResolution)
	assert.False(t, got.Reduction.BreakCycles)
	assert.True(t, got.Reduction.LinkUnlisted)
	assert.Equal(t, []types.ExportFormat{types.ExportJSON, types.ExportNeo4j}, got.Export.Formats)
	assert.Equal(t, "bolt://graph:7687", got.Export.Neo4j.URI)
	assert.Equal(t, "neo4j", got.Export.Neo4j.User)
}

func TestLoadPipelineConfig_Environment(t *testing.T) {
	withConfigFile(t, "extraction:\n  workers: 2\nentry_store:\n  data_dir: /srv/etym\n")
	t.Setenv("ETYMGRAPH_EXTRACTION_WORKERS", "7")
	t.Setenv("ETYMGRAPH_REDUCTION_BREAK_CYCLES", "false")
	t.Setenv("ETYMGRAPH_ENTRY_STORE_QUERY_TIMEOUT", "2m")
	t.Setenv("ETYMGRAPH_EXPORT_FORMATS", "json,sqlite")
	t.Setenv("ETYMGRAPH_EXPORT_NEO4J_PASSWORD", "hunter2")

	got, err := loadPipelineConfig()
	require.NoError(t, err)

	assert.Equal(t, 7, got.Extraction.Workers)
	assert.False(t, got.Reduction.BreakCycles)
	assert.Equal(t, 2*time.Minute, got.EntryStore.QueryTimeout)
	assert.Equal(t, []types.ExportFormat{types.ExportJSON, types.ExportSQLite}, got.Export.Formats)
	assert.Equal(t, "hunter2", got.Export.Neo4j.Password)
	// Keys without an environment override keep the file value.
	assert.Equal(t, "/srv/etym", got.EntryStore.DataDir)
	assert.True(t, got.Reduction.LinkUnlisted)
}

func TestConfigKeys(t *testing.T) {
	names := map[string]bool{}
	for _, k := range configKeys() {
		names[k.name] = true
	}
	for _, want := range []string{
		"entry_store.data_dir",
		"extraction.invert_languages",
		"reduction.break_cycles",
		"export.neo4j.password",
		"logging.mode",
	} {
		assert.True(t, names[want], want)
	}
	assert.False(t, names["export.neo4j"])
}

func TestLoadPipelineConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"extractor", "extraction:\n  extractors: [wordplay]\n", `unknown extractor "wordplay"`},
		{"format", "export:\n  formats: [csv]\n", `unknown export format "csv"`},
		{"probability", "gloss:\n  min_probability: 1.5\n", "min_probability"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withConfigFile(t, tt.body)
			_, err := loadPipelineConfig()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, entrystore.Counts{Entries: 2, Senses: 3, Sections: 5}, export.Stats{
		Nodes:       3,
		Edges:       2,
		NodesByKind: map[types.NodeKind]int{types.KindLexeme: 3},
		EdgesByType: map[types.RelationType]int{types.Inheritance: 1, types.Cognate: 1},
		Events:      map[types.EventKind]int{types.EventKept: 2},
	})

	out := buf.String()
	assert.Contains(t, out, "Entries:  2 (3 senses, 5 sections)")
	assert.Contains(t, out, "Nodes:    3")
	assert.Contains(t, out, "Edges:    2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("COGNATE")), bytes.Index(buf.Bytes(), []byte("INHERITANCE")))
	assert.Contains(t, out, "KEPT")
}
