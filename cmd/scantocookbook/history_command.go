package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scantocookbook/internal/history"
	"scantocookbook/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed images",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			summary, err := store.Summary(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No images recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderHistory(records, shouldColorize(out)))
			fmt.Fprintf(out, "%d processed, %d failed, %d total\n", summary.Processed, summary.Failed, summary.Total())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows to show")
	return cmd
}

func renderHistory(records []history.Record, color bool) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		recipe := r.RecipeName
		if recipe == "" {
			recipe = "-"
		}
		detail := r.Destination
		if r.Status == history.StatusFailed {
			detail = r.FailureStage + ": " + textutil.Title(r.FailureKind)
		}
		status := statusLabel(textutil.Title(r.Status), r.Status == history.StatusProcessed, color)
		rows = append(rows, []string{
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			textutil.Title(r.Mode),
			status,
			r.SourcePath,
			recipe,
			detail,
			r.Duration().Round(time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"Finished", "Mode", "Status", "Source", "Recipe", "Detail", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}
