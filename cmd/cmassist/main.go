// Package main is the cmassist CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/config"
	"github.com/hyperjump/cmassist/pkg/utils"
)

var version = "dev"

var (
	configPath string
	debugFlag  bool

	// Set by PersistentPreRunE for subcommands.
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cmassist",
	Short: "Change management knowledge base",
	Long: `cmassist ingests change management documents into a local vector index
and retrieves the most relevant passages for a question, over the command
line, an HTTP API or the Model Context Protocol.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML or TOML); defaults to ./config.yaml when present")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	loaded, resolved, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	if debugFlag {
		cfg.Debug = true
	}
	l, err := utils.NewLeveledLogger(cfg.Debug, cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = l
	logger.Debug("config loaded",
		zap.String("command", cmd.Name()),
		zap.String("config_path", resolved),
		zap.Bool("debug", cfg.Debug),
	)
	return nil
}

// loadConfig loads config from path. With no path it uses config.yaml or
// config.toml from the working directory when one exists, and otherwise the
// built-in defaults. Returns the path actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		c, err := config.Load(path)
		return c, path, err
	}
	if cwd, err := os.Getwd(); err == nil {
		for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
			candidate := filepath.Join(cwd, name)
			if _, statErr := os.Stat(candidate); statErr == nil {
				c, loadErr := config.Load(candidate)
				return c, candidate, loadErr
			}
		}
	}
	c, err := config.Default()
	return c, "", err
}
