package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/saberlens/internal/domain/scoring"
)

var maxScoreCmd = &cobra.Command{
	Use:   "maxscore <notes>",
	Short: "Print the maximum unmodified score for a note count",
	Args:  cobra.ExactArgs(1),
	RunE:  runMaxScore,
}

func init() {
	rootCmd.AddCommand(maxScoreCmd)
}

func runMaxScore(cmd *cobra.Command, args []string) error {
	notes, err := strconv.Atoi(args[0])
	if err != nil || notes < 0 {
		return fmt.Errorf("notes must be a non-negative integer, got %q", args[0])
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), scoring.MaxScoreFromNoteCount(notes))
	return err
}
