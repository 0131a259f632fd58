package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shutterpost/internal/config"
	"shutterpost/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent upload outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *history.Store) error {
				records, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, records)
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No uploads recorded yet")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						formatTimestamp(rec.CreatedAt),
						rec.FileName,
						categoryLabel(rec.Category),
						rec.Outcome,
						historyDetail(rec),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Time", "File", "Category", "Outcome", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func historyDetail(rec history.Record) string {
	if rec.Outcome == history.OutcomePublished {
		if rec.PostID != "" {
			return "post " + rec.PostID
		}
		return "-"
	}
	if rec.ErrorKind != "" && rec.ErrorMessage != "" {
		return rec.ErrorKind + ": " + rec.ErrorMessage
	}
	if rec.ErrorKind != "" {
		return rec.ErrorKind
	}
	return orDash(rec.ErrorMessage)
}
