// Package commands provides the CLI commands for guardian.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/guardian-coach/guardian/internal/logging"
)

var (
	// Version information set at build time.
	Version   = "0.1.0"
	BuildTime = "dev"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Guardian - task context and coaching hooks for AI coding assistants",
	Long: `Guardian instruments an AI coding assistant's session: it records task
prompts, user interventions, and per-file access provenance, and re-injects
that context after the assistant's conversation history is compacted.

Wire the 'guardian hook' subcommands into the assistant's hook configuration;
use 'guardian contexts' to inspect the recorded state.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Project-local .env may carry GUARDIAN_* toggles.
		_ = godotenv.Load()
		if logLevel != "" {
			logging.Init(logging.Config{Level: logging.ParseLevel(logLevel)})
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("guardian %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(contextsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
