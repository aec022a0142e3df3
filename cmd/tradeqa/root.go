package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cfgPkg "github.com/xhad/tradeqa/pkg/config"
	"github.com/xhad/tradeqa/pkg/logger"
)

var (
	configPath string
	docsDir    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tradeqa",
	Short: "Anti-dumping duty assistant over Korean trade-law documents",
	Long: `tradeqa answers questions about anti-dumping duties on printing plates
using the statutes, rulings and notices in the document directory, web
lookups of supplier companies and a generation model.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&docsDir, "docs-dir", "", "directory holding the law documents")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads, overrides and validates the configuration. Any
// violation is fatal for the command.
func loadConfig() (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if docsDir != "" {
		cfg.Corpus.DocsDir = docsDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return cfg, nil
}
