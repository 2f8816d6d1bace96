package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wsideid/internal/actions"
	"wsideid/internal/exporter"
	"wsideid/internal/ingest"
	"wsideid/internal/jobs"
)

type counter struct {
	Name  string
	Count int
}

func counterRows(counters []counter) [][]string {
	rows := make([][]string, 0, len(counters))
	for _, c := range counters {
		if c.Count > 0 {
			rows = append(rows, []string{c.Name, fmt.Sprintf("%d", c.Count)})
		}
	}
	return rows
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Reconcile the import location against its manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				outcome, err := svc.Ingest(runCtx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, outcome)
				}
				printImportOutcome(cmd, outcome)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the outcome as JSON")
	return cmd
}

func printImportOutcome(cmd *cobra.Command, outcome *ingest.Outcome) {
	out := cmd.OutOrStdout()
	rows := counterRows([]counter{
		{"added", outcome.Added},
		{"present", outcome.Present},
		{"replaced", outcome.Replaced},
		{"duplicate", outcome.Duplicate},
		{"missing", outcome.Missing},
		{"unlisted", outcome.Unlisted},
		{"badentry", outcome.BadEntry},
		{"unfiled", outcome.Unfiled},
		{"failed", outcome.Failed},
		{"parsed", outcome.Parsed},
		{"notexcel", outcome.NotExcel},
		{"badformat", outcome.BadFormat},
	})
	if len(rows) == 0 {
		fmt.Fprintln(out, "Nothing to import")
		return
	}
	fmt.Fprintln(out, renderTable([]string{"Category", "Count"}, rows,
		[]columnAlignment{alignLeft, alignRight}))
	if outcome.Report != "" {
		fmt.Fprintf(out, "Report: %s\n", outcome.Report)
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return newExportModeCommand(ctx, "export", "Export items finished since the last run", exporter.ModeRecent)
}

func newExportAllCommand(ctx *commandContext) *cobra.Command {
	return newExportModeCommand(ctx, "exportall", "Export every finished item", exporter.ModeAll)
}

func newExportModeCommand(ctx *commandContext, use, short string, mode exporter.Mode) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				outcome, err := svc.Export(runCtx, mode)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, outcome)
				}
				printExportOutcome(cmd, outcome)
				if !outcome.Clean() {
					return fmt.Errorf("export finished with %d transfer failures", outcome.Failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the outcome as JSON")
	return cmd
}

func printExportOutcome(cmd *cobra.Command, outcome *exporter.Outcome) {
	out := cmd.OutOrStdout()
	rows := counterRows([]counter{
		{"transferred", outcome.Transferred},
		{"present", outcome.Present},
		{"different", outcome.Different},
		{"quarantined", outcome.Quarantined},
		{"rejected", outcome.Rejected},
		{"failed", outcome.Failed},
	})
	if len(rows) == 0 {
		fmt.Fprintln(out, "Nothing to export")
		return
	}
	fmt.Fprintln(out, renderTable([]string{"Category", "Count"}, rows,
		[]columnAlignment{alignLeft, alignRight}))
	if outcome.Report != "" {
		fmt.Fprintf(out, "Report: %s\n", outcome.Report)
	}
}

func newOCRAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ocrall",
		Short: "Recognize label text on unfiled items and correlate them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				job, launched, err := svc.OCRAll(runCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !launched {
					fmt.Fprintln(out, "No unscanned unfiled items")
					return nil
				}
				svc.Jobs().Wait()

				snapshot, ok := svc.Jobs().Get(job.ID)
				if !ok {
					return fmt.Errorf("job %s vanished", job.ID)
				}
				if snapshot.Status != jobs.StatusSucceeded {
					return fmt.Errorf("label recognition failed: %s", snapshot.Error)
				}
				fmt.Fprintln(out, snapshot.Summary)
				return nil
			})
		},
	}
}

func newCorrelateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "correlate",
		Short: "Match scanned unfiled items to manifest rows by label text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				outcome, err := svc.Correlate(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), outcome.Summary())
				return nil
			})
		},
	}
}
