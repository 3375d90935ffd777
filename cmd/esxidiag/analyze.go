package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/esxidiag/internal/config"
	"github.com/steveyegge/esxidiag/internal/engine"
	"github.com/steveyegge/esxidiag/internal/events"
	"github.com/steveyegge/esxidiag/internal/health"
	"github.com/steveyegge/esxidiag/internal/types"
)

// Exit codes of the analyze command.
const (
	exitOK       = 0
	exitError    = 1
	exitFindings = 2
	exitConfig   = 3
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <collection-dir>",
	Short: "Analyze a host collection and report findings",
	Long: `Analyze a collection directory and print the Finding List.

Examples:
  # Analyze with default thresholds
  esxidiag analyze ./esxi01-collection

  # Use the collector's config.yaml for thresholds
  esxidiag analyze ./esxi01-collection --thresholds config.yaml

  # Machine-readable output with a fixed reference time
  esxidiag analyze ./esxi01-collection --format json --now 2024-10-11T12:00:00Z

  # Exit non-zero when anything high or worse is found
  esxidiag analyze ./esxi01-collection --fail-on high`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		thresholdsPath, _ := cmd.Flags().GetString("thresholds")
		nowFlag, _ := cmd.Flags().GetString("now")
		format, _ := cmd.Flags().GetString("format")
		failOn, _ := cmd.Flags().GetString("fail-on")
		verbose, _ := cmd.Flags().GetBool("verbose")
		if cmd.Flags().Changed("workers") {
			settings.Workers, _ = cmd.Flags().GetInt("workers")
			if err := settings.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(exitError)
			}
		}

		if format != "text" && format != "json" {
			fmt.Fprintf(os.Stderr, "Error: --format must be text or json (got %q)\n", format)
			os.Exit(exitError)
		}
		var threshold types.Severity
		if failOn != "" {
			threshold = types.Severity(failOn)
			if !threshold.IsValid() {
				fmt.Fprintf(os.Stderr, "Error: invalid --fail-on severity %q\n", failOn)
				os.Exit(exitError)
			}
		}

		var now time.Time
		if nowFlag != "" {
			t, err := time.Parse(time.RFC3339, nowFlag)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: --now must be RFC 3339: %v\n", err)
				os.Exit(exitError)
			}
			now = t
		}

		th, warnings, err := loadThresholds(thresholdsPath)
		if err != nil {
			var cfgErr *config.ConfigError
			if errors.As(err, &cfgErr) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", cfgErr)
				os.Exit(exitConfig)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		analyzer := engine.NewAnalyzer(health.DefaultRegistry(), th, settings, now)
		analyzer.Warnings = warnings
		report, err := analyzer.Run(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}

		out := cmd.OutOrStdout()
		if format == "json" {
			err = writeJSON(out, report)
		} else {
			displayReport(out, report, verbose)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}

		os.Exit(exitCode(report.Findings, threshold))
	},
}

// loadThresholds reads the threshold document (or the defaults) and applies
// environment overrides.
func loadThresholds(path string) (config.Thresholds, []events.Diagnostic, error) {
	th, warnings, err := config.LoadThresholds(path)
	if err != nil {
		return config.Thresholds{}, nil, err
	}
	th, err = config.ThresholdsFromEnv(th)
	if err != nil {
		return config.Thresholds{}, nil, err
	}
	return th, warnings, nil
}

// exitCode returns exitFindings when some finding is at least as severe as
// failOn. An empty failOn never fails.
func exitCode(findings types.FindingList, failOn types.Severity) int {
	if failOn == "" {
		return exitOK
	}
	for _, f := range findings {
		if f.Severity.Rank() >= failOn.Rank() {
			return exitFindings
		}
	}
	return exitOK
}

func writeJSON(w io.Writer, report *engine.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringP("thresholds", "t", "", "Threshold document (YAML); defaults when empty")
	analyzeCmd.Flags().String("now", "", "Reference time for age rules (RFC 3339); defaults to the current time")
	analyzeCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	analyzeCmd.Flags().Int("workers", 0, "Parallel parse and rule workers (overrides ESXIDIAG_WORKERS)")
	analyzeCmd.Flags().String("fail-on", "", "Exit with status 2 when a finding is at least this severe (low, medium, high, critical)")
	analyzeCmd.Flags().BoolP("verbose", "v", false, "Show evidence, remediation and every diagnostic")

	rootCmd.AddCommand(analyzeCmd)
}
