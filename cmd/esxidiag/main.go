package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/steveyegge/esxidiag/internal/config"
	"github.com/steveyegge/esxidiag/internal/logging"
)

var (
	envFile   string
	logLevel  string
	logFormat string

	// settings is resolved once per invocation in PersistentPreRunE
	settings config.RunSettings
)

var rootCmd = &cobra.Command{
	Use:   "esxidiag",
	Short: "Offline diagnostics for ESXi host collections",
	Long: `esxidiag analyzes a collection directory of ESXi command dumps and logs.

It extracts facts from every artifact it recognizes, evaluates a fixed table
of health rules against them, and reports deduplicated findings. Absent
artifacts never fail a run; the rules that need them are skipped and listed
as diagnostics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadDotEnv(envFile); err != nil {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}

		s, err := config.RunSettingsFromEnv()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			s.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			s.LogFormat = logFormat
		}
		if err := s.Validate(); err != nil {
			return err
		}
		settings = s

		level, _ := logging.ParseLevel(s.LogLevel)
		return logging.Init(level, s.LogFormat, os.Stderr)
	},
}

// loadDotEnv loads path into the environment when it exists. Variables
// already set win over the file.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file with ESXIDIAG_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}
