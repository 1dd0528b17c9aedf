// Package cli provides the command-line interface for Helper Audit.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ferncroft/helper-audit/internal/infrastructure/config"
	"github.com/ferncroft/helper-audit/internal/infrastructure/logging"
)

// Version is set at build time via ldflags.
// Example: go build -ldflags "-X .../internal/cli.Version=1.0.0"
var Version = "dev"

// defaultConfigPath is used when neither the flag nor the environment
// variable names a config file.
const defaultConfigPath = "configs/config.yaml"

var (
	// Global flags
	configPath string

	// Loaded in PersistentPreRunE, shared by all commands.
	cfg *config.Config
	log *logging.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "helperaudit",
	Short: "Home Assistant helper dependency audit",
	Long: `Helper Audit scans a Home Assistant configuration for references to
helper entities (input_boolean, input_number, timers, counters and the
rest), classifies each helper as actively used, dashboard-only, or truly
orphaned, and writes reviewable reports.

Deletion of orphaned helpers is a separate, explicit step driven by an
editable action list, with a backup taken before anything is removed.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Commands that never touch the instance don't need config.
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.Load(resolveConfigPath())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		log = logging.New(cfg.Logging, Version)
		return nil
	},
}

// resolveConfigPath returns the configuration file path: flag, then the
// HELPERAUDIT_CONFIG environment variable, then the default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if path := os.Getenv("HELPERAUDIT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(serveCmd)
}
