package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"flatsheet/internal/pipeline"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(true)
			if err != nil {
				return err
			}
			runs, err := db.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Run", "Identifier", "Status", "Errors", "Source", "Created"})
			table.SetAutoWrapText(false)
			for _, run := range runs {
				table.Append([]string{
					run.ID,
					run.Identifier,
					string(run.Status),
					strconv.Itoa(run.ErrorCount),
					run.Source,
					run.CreatedAt,
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var runID, out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the validation errors of a recorded run to a workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(runID) == "" || strings.TrimSpace(out) == "" {
				return fmt.Errorf("--run and --out are required")
			}
			db, err := a.openDB(true)
			if err != nil {
				return err
			}
			run, err := db.GetRun(runID)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", runID)
			}
			errs, err := db.GetRunErrors(run.ID)
			if err != nil {
				return err
			}
			if err := pipeline.ExportErrorsToXLSX(errs, out); err != nil {
				return fmt.Errorf("export report: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report for run %s written to %s (%d errors)\n", run.ID, out, len(errs))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id as listed by history")
	cmd.Flags().StringVar(&out, "out", "", "Output xlsx path")
	return cmd
}
