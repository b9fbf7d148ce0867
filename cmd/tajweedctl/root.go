package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/escalopa/tajweed-bot/internal/tajweed"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tajweedctl",
		Short:         "Offline tajweed tools",
		Long:          "tajweedctl runs the tajweed rule catalog, annotator and recitation scorer locally, without Telegram or any external service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Bool("json", false, "Print JSON instead of text")

	catalog := tajweed.Default()
	root.AddCommand(newRulesCmd(catalog))
	root.AddCommand(newAnnotateCmd(catalog))
	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newScoreCmd())

	return root
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// inputText joins the arguments, or reads stdin when there are none
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
