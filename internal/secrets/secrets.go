// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Supported key files: neo4j-password, neo4j-user.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/etymgraph/internal/logger"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// Key file names.
const (
	Neo4jPassword = "neo4j-password"
	Neo4jUser     = "neo4j-user"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log *logger.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", "key", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply fills credentials the configuration leaves empty. Values already set
// by flags or the config file win.
func Apply(cfg *types.PipelineConfig, secrets map[string]string) {
	if cfg.Export.Neo4j.Password == "" {
		cfg.Export.Neo4j.Password = secrets[Neo4jPassword]
	}
	if v := secrets[Neo4jUser]; v != "" && cfg.Export.Neo4j.User == "" {
		cfg.Export.Neo4j.User = v
	}
}
