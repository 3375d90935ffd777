package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/esxidiag/internal/config"
)

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Inspect and generate threshold documents",
}

var thresholdsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Print a threshold document holding every default",
	Long: `Print a YAML threshold document with every recognized key at its default.

Examples:
  esxidiag thresholds init > thresholds.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeDefaultDocument(cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}
	},
}

var thresholdsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective thresholds",
	Long: `Show the thresholds an analyze run would use: the document given with
--thresholds (or the defaults), then ESXIDIAG_* environment overrides.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("thresholds")
		th, warnings, err := loadThresholds(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitConfig)
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s:%d: %s\n", w.Source, w.Line, w.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderThresholds(th))
	},
}

// defaultDocument builds the "thresholds:" document as a YAML node so keys
// keep declaration order and carry their descriptions as comments.
func defaultDocument() *yaml.Node {
	section := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range config.Specs() {
		section.Content = append(section.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: s.Key, HeadComment: s.Description},
			&yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("%g", s.Default)},
		)
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "thresholds"},
			section,
		},
	}}}
}

func writeDefaultDocument(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(defaultDocument()); err != nil {
		return fmt.Errorf("encoding threshold document: %w", err)
	}
	return enc.Close()
}

func renderThresholds(th config.Thresholds) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"Key", "Value", "Default", "Env", "Description"})
	for _, s := range config.Specs() {
		v, _ := th.Get(s.Key)
		w.AppendRow(table.Row{s.Key, v, s.Default, config.EnvKey(s.Key), s.Description})
	}
	return w.Render()
}

func init() {
	thresholdsShowCmd.Flags().StringP("thresholds", "t", "", "Threshold document (YAML)")

	thresholdsCmd.AddCommand(thresholdsInitCmd)
	thresholdsCmd.AddCommand(thresholdsShowCmd)
	rootCmd.AddCommand(thresholdsCmd)
}
