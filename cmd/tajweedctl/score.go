package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/escalopa/tajweed-bot/internal/recitation"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [text]",
		Short: "Strip diacritics and non-Arabic characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), recitation.Normalize(text))
			return nil
		},
	}
}

func newScoreCmd() *cobra.Command {
	var reference, transcript string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a transcript against a reference verse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reference == "" {
				return errors.New("--reference is required")
			}

			res := recitation.Score(reference, transcript)
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "score:      %d/100 (%s)\n", res.Score, res.Tier)
			fmt.Fprintf(out, "distance:   %d\n", res.EditDistance)
			fmt.Fprintf(out, "reference:  %s\n", res.NormalizedReference)
			fmt.Fprintf(out, "transcript: %s\n", res.NormalizedTranscript)
			fmt.Fprintln(out, res.Tier.Message())
			return nil
		},
	}

	cmd.Flags().StringVarP(&reference, "reference", "r", "", "Reference verse text")
	cmd.Flags().StringVarP(&transcript, "transcript", "t", "", "Transcribed recitation")
	return cmd
}
