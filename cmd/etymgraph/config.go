package main

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/etymgraph/pkg/types"
)

// configKey is one leaf of the configuration tree, named by its dotted
// yaml path ("reduction.break_cycles").
type configKey struct {
	name string
	def  reflect.Value
}

// configKeys lists every leaf of the pipeline configuration with its default.
func configKeys() []configKey {
	var keys []configKey
	var walk func(prefix string, v reflect.Value)
	walk = func(prefix string, v reflect.Value) {
		t := v.Type()
		for i := range t.NumField() {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
			if name == "" || name == "-" {
				continue
			}
			if prefix != "" {
				name = prefix + "." + name
			}
			if f := v.Field(i); f.Kind() == reflect.Struct {
				walk(name, f)
			} else {
				keys = append(keys, configKey{name: name, def: f})
			}
		}
	}
	walk("", reflect.ValueOf(types.DefaultPipelineConfig()))
	return keys
}

// plain converts slices of named string types to []string so viper's
// casting understands them.
func plain(v reflect.Value) any {
	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.String {
		out := make([]string, v.Len())
		for i := range out {
			out[i] = v.Index(i).String()
		}
		return out
	}
	return v.Interface()
}

// bindEnvironment registers every config key as a viper default so that
// ETYMGRAPH_SECTION_KEY environment variables reach it.
func bindEnvironment() {
	for _, k := range configKeys() {
		viper.SetDefault(k.name, plain(k.def))
	}
	viper.SetEnvPrefix("ETYMGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setting reads key from viper with the type of its default.
func setting(k configKey) any {
	switch {
	case k.def.Type() == reflect.TypeOf(time.Duration(0)):
		return viper.GetDuration(k.name).String()
	case k.def.Kind() == reflect.Bool:
		return viper.GetBool(k.name)
	case k.def.Kind() == reflect.Int:
		return viper.GetInt(k.name)
	case k.def.Kind() == reflect.Float64:
		return viper.GetFloat64(k.name)
	case k.def.Kind() == reflect.Slice:
		var out []string
		for _, v := range viper.GetStringSlice(k.name) {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return viper.GetString(k.name)
	}
}

func setNested(m map[string]any, path []string, v any) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}

// loadPipelineConfig layers the viper settings (config file, environment,
// bound flags) over the defaults. Settings are re-encoded as YAML so the
// yaml tags on the config types are the single source of key names.
func loadPipelineConfig() (types.PipelineConfig, error) {
	bindEnvironment()
	settings := map[string]any{}
	for _, k := range configKeys() {
		setNested(settings, strings.Split(k.name, "."), setting(k))
	}

	cfg := types.DefaultPipelineConfig()
	data, err := yaml.Marshal(settings)
	if err != nil {
		return cfg, fmt.Errorf("encoding settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding settings: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg types.PipelineConfig) error {
	known := map[string]bool{}
	for _, name := range types.AllExtractors {
		known[name] = true
	}
	for _, name := range cfg.Extraction.Extractors {
		if !known[strings.ToLower(name)] {
			return fmt.Errorf("unknown extractor %q (known: %s)", name, strings.Join(types.AllExtractors, ", "))
		}
	}
	for _, f := range cfg.Export.Formats {
		switch f {
		case types.ExportYAML, types.ExportJSON, types.ExportSQLite, types.ExportNeo4j:
		default:
			return fmt.Errorf("unknown export format %q", f)
		}
	}
	if cfg.Gloss.MinProbability < 0 || cfg.Gloss.MinProbability > 1 {
		return fmt.Errorf("gloss.min_probability must be within [0, 1], got %v", cfg.Gloss.MinProbability)
	}
	return nil
}
