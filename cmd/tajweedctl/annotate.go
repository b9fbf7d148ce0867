package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/escalopa/tajweed-bot/internal/tajweed"
)

func newAnnotateCmd(catalog *tajweed.Catalog) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "annotate [text]",
		Short: "Split a verse into plain and rule-tagged spans",
		Long:  "Annotate prints the verse with every ruled span wrapped as [text]{rule}. Without arguments the verse is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			spans := catalog.Annotate(text, !off)
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), spans)
			}

			var sb strings.Builder
			for _, s := range spans {
				if s.Kind == tajweed.SpanRuled {
					fmt.Fprintf(&sb, "[%s]{%s}", s.Text, s.RuleID)
					continue
				}
				sb.WriteString(s.Text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sb.String())

			if ids := tajweed.RuleIDs(spans); len(ids) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "rules:", strings.Join(ids, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Disable highlighting")
	return cmd
}
