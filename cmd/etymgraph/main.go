// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the etymgraph CLI. It imports entry
// dumps, extracts etymological relations, reduces them to a canonical
// graph, and exports the result.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/etymgraph/internal/logger"
	"github.com/pdiddy/etymgraph/internal/secrets"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved pipeline configuration for the running command.
	cfg types.PipelineConfig
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "etymgraph",
	Short: "Build a canonical etymology graph from dictionary entry dumps",
	Long: `etymgraph imports dictionary entry dumps into a local SQLite store,
extracts etymological relations from their sections, reduces them to a
canonical graph, and exports the graph as YAML, JSON, SQLite, or Neo4j.

A typical run is:

  etymgraph import entries.jsonl.gz
  etymgraph extract
  etymgraph stats`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = loadPipelineConfig(); err != nil {
			return err
		}
		if log, err = logger.New(cfg.Logging.Mode); err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, log)
		if err != nil {
			return err
		}
		secrets.Apply(&cfg, s)
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := types.DefaultPipelineConfig()
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./etymgraph.yaml or ~/.config/etymgraph/etymgraph.yaml)")
	flags.String("secrets-dir", ".secrets/", "directory of credential files")
	flags.String("data-dir", defaults.EntryStore.DataDir, "base directory for the entry store")
	flags.String("log-mode", defaults.Logging.Mode, "logger mode: dev or prod")

	viper.BindPFlag("entry_store.data_dir", flags.Lookup("data-dir"))
	viper.BindPFlag("logging.mode", flags.Lookup("log-mode"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("etymgraph")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "etymgraph"))
		}
	}

	bindEnvironment()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
