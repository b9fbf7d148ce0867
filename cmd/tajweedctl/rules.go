package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/escalopa/tajweed-bot/internal/tajweed"
)

func newRulesCmd(catalog *tajweed.Catalog) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the tajweed rule catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules := catalog.List()
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), rules)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tMATCHES\tEXAMPLE")
			for _, r := range rules {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", r.ID, r.Name, r.DisplayColor, r.HasPattern(), r.Example)
			}
			return tw.Flush()
		},
	}
}
