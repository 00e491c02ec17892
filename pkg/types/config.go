package types

import "time"

// EntryStoreConfig holds settings for the SQLite entry store.
type EntryStoreConfig struct {
	// DataDir is the base directory for data (contains index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// QueryTimeout bounds each entry store query (default 30s).
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`

	// BatchSize is the number of entries committed per import transaction (default 500).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// HTTPConfig holds settings for fetching remote entry dumps.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "etymgraph/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retries on 429/503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// GlossConfig holds settings for the gloss similarity matcher.
type GlossConfig struct {
	// ModelPath optionally overrides the embedded classifier parameters.
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty"`

	// MinProbability is the lowest match probability accepted (default 0.5).
	MinProbability float64 `json:"min_probability" yaml:"min_probability"`

	// MinMargin is the lowest gap between the best and second-best option
	// for a selection to be conclusive (default 0.1).
	MinMargin float64 `json:"min_margin" yaml:"min_margin"`
}

// ExtractionConfig holds settings for the extractor family.
type ExtractionConfig struct {
	// Extractors lists the enabled extractors by name (default: all).
	Extractors []string `json:"extractors" yaml:"extractors"`

	// Workers is the number of sections processed concurrently (default 8).
	Workers int `json:"workers" yaml:"workers"`

	// ChainResolution enables multi-hop linking in etymology sections.
	ChainResolution bool `json:"chain_resolution" yaml:"chain_resolution"`

	// OnlyFirstSentence restricts chain following to the first sentence.
	OnlyFirstSentence bool `json:"only_first_sentence" yaml:"only_first_sentence"`

	// MaxChainHops bounds the chain resolution work queue (default 16).
	MaxChainHops int `json:"max_chain_hops" yaml:"max_chain_hops"`

	// InvertLineages reverses parent/child direction in all descendants sections.
	InvertLineages bool `json:"invert_lineages" yaml:"invert_lineages"`

	// InvertLanguages reverses direction only for entries in these languages.
	InvertLanguages []string `json:"invert_languages,omitempty" yaml:"invert_languages,omitempty"`

	// RegistryPath optionally overrides the embedded template registry.
	RegistryPath string `json:"registry_path,omitempty" yaml:"registry_path,omitempty"`

	// LanguagesPath optionally overrides the embedded language tree.
	LanguagesPath string `json:"languages_path,omitempty" yaml:"languages_path,omitempty"`
}

// ReductionConfig holds settings for the relation store.
type ReductionConfig struct {
	// BreakCycles removes the weakest edge of every ORIGIN cycle on finalize.
	BreakCycles bool `json:"break_cycles" yaml:"break_cycles"`

	// LinkUnlisted creates sense-0 nodes for terms without an entry instead
	// of dropping the candidate.
	LinkUnlisted bool `json:"link_unlisted" yaml:"link_unlisted"`

	// HistoricalSwap reorders historical relations whose languages contradict
	// the language tree.
	HistoricalSwap bool `json:"historical_swap" yaml:"historical_swap"`

	// Workers bounds the number of components reduced in parallel (default 4).
	Workers int `json:"workers" yaml:"workers"`
}

// ExportFormat selects a canonical graph writer.
type ExportFormat string

const (
	ExportYAML   ExportFormat = "yaml"
	ExportJSON   ExportFormat = "json"
	ExportSQLite ExportFormat = "sqlite"
	ExportNeo4j  ExportFormat = "neo4j"
)

// Neo4jConfig holds connection settings for the graph database loader.
type Neo4jConfig struct {
	URI      string `json:"uri" yaml:"uri"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`

	// BatchSize is the number of nodes or edges sent per UNWIND (default 1000).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Timeout bounds connection verification (default 10s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ExportConfig holds settings for writing the canonical graph.
type ExportConfig struct {
	// OutputDir is where file exports are written (default "data/export").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Formats lists the writers to run.
	Formats []ExportFormat `json:"formats" yaml:"formats"`

	Neo4j Neo4jConfig `json:"neo4j" yaml:"neo4j"`
}

// LoggingConfig selects the logger mode.
type LoggingConfig struct {
	// Mode is "dev" (console) or "prod" (JSON).
	Mode string `json:"mode" yaml:"mode"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	EntryStore EntryStoreConfig `json:"entry_store" yaml:"entry_store"`
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	Gloss      GlossConfig      `json:"gloss" yaml:"gloss"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Reduction  ReductionConfig  `json:"reduction" yaml:"reduction"`
	Export     ExportConfig     `json:"export" yaml:"export"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// AllExtractors lists every extractor name in priority order.
var AllExtractors = []string{
	ExtractorEtymology,
	ExtractorDescendants,
	ExtractorBaseline,
	ExtractorDerived,
	ExtractorRelated,
}

// DefaultPipelineConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		EntryStore: EntryStoreConfig{
			DataDir:      "data",
			QueryTimeout: 30 * time.Second,
			BatchSize:    500,
		},
		HTTP: HTTPConfig{
			Timeout:    60 * time.Second,
			UserAgent:  "etymgraph/0.1",
			MaxRetries: 5,
		},
		Gloss: GlossConfig{
			MinProbability: 0.5,
			MinMargin:      0.1,
		},
		Extraction: ExtractionConfig{
			Extractors:        append([]string(nil), AllExtractors...),
			Workers:           8,
			ChainResolution:   true,
			OnlyFirstSentence: true,
			MaxChainHops:      16,
		},
		Reduction: ReductionConfig{
			BreakCycles:    true,
			LinkUnlisted:   true,
			HistoricalSwap: true,
			Workers:        4,
		},
		Export: ExportConfig{
			OutputDir: "data/export",
			Formats:   []ExportFormat{ExportYAML},
			Neo4j: Neo4jConfig{
				User:      "neo4j",
				BatchSize: 1000,
				Timeout:   10 * time.Second,
			},
		},
		Logging: LoggingConfig{Mode: "dev"},
	}
}
