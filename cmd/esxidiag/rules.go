package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/steveyegge/esxidiag/internal/health"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the built-in rule table",
	Long: `List every built-in rule with its condition kind, severity, and the fact
domains it needs. A rule whose domains are unknown for a collection is skipped
with an insufficient_data diagnostic.`,
	Run: func(cmd *cobra.Command, args []string) {
		markdown, _ := cmd.Flags().GetBool("markdown")
		fmt.Fprintln(cmd.OutOrStdout(), renderRules(health.DefaultRegistry().Rules(), markdown))
	},
}

// renderRules renders rules as a table, ordered as given.
func renderRules(rules []health.Rule, markdown bool) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"ID", "Kind", "Severity", "Category", "Requires", "Title"})
	for _, r := range rules {
		requires := make([]string, len(r.Requires))
		for i, d := range r.Requires {
			requires[i] = string(d)
		}
		w.AppendRow(table.Row{r.ID, r.Kind, r.Severity, r.Category, strings.Join(requires, ", "), r.Title})
	}
	w.AppendFooter(table.Row{fmt.Sprintf("%d rules", len(rules))})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 28},
		{Number: 6, WidthMax: 40, Align: text.AlignLeft},
	})
	if markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// writeRuleIDs prints one rule id per line, for scripting.
func writeRuleIDs(w io.Writer, reg *health.Registry) {
	for _, id := range reg.IDs() {
		fmt.Fprintln(w, id)
	}
}

func init() {
	rulesCmd.Flags().Bool("markdown", false, "Render as a Markdown table")
	rulesCmd.AddCommand(&cobra.Command{
		Use:   "ids",
		Short: "Print rule ids, one per line",
		Run: func(cmd *cobra.Command, args []string) {
			writeRuleIDs(cmd.OutOrStdout(), health.DefaultRegistry())
		},
	})
	rootCmd.AddCommand(rulesCmd)
}
