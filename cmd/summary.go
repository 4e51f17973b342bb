package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"xray-cbt/internal/report"
	"xray-cbt/internal/results"
	"xray-cbt/internal/scoring"
)

func newSummaryCmd(root *rootOptions) *cobra.Command {
	var (
		htmlOut string
		keep    bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the result of the last session",
		Long: `Prints the most recent session summary. The summary is shown once and then
cleared unless --keep is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			store := results.Open(cfg.Results.Dir)

			var sum scoring.Summary
			if keep {
				sum, err = store.Last()
			} else {
				sum, err = store.TakeLast()
			}
			if errors.Is(err, results.ErrNoResult) {
				fmt.Fprintln(cmd.OutOrStdout(), "No session result stored.")
				return nil
			}
			if err != nil {
				return err
			}

			if err := report.Text(cmd.OutOrStdout(), sum, nil); err != nil {
				return err
			}
			if htmlOut == "" {
				return nil
			}
			f, err := os.Create(htmlOut)
			if err != nil {
				return fmt.Errorf("failed to create chart file: %w", err)
			}
			defer f.Close()
			if err := report.Radar(f, sum, nil); err != nil {
				return err
			}
			slog.Info("Radar chart written", "out", htmlOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&htmlOut, "html", "", "Also write a radar chart of hit rate per category")
	cmd.Flags().BoolVar(&keep, "keep", false, "Do not clear the stored summary")

	return cmd
}
