package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"wsideid/internal/actions"
	"wsideid/internal/preflight"
	"wsideid/internal/store"
	"wsideid/internal/workflow"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var listStates []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List managed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			states := make([]workflow.State, 0, len(listStates))
			for _, value := range listStates {
				state, ok := workflow.ParseState(value)
				if !ok {
					return fmt.Errorf("unknown state %q", value)
				}
				states = append(states, state)
			}

			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				items, err := svc.Items(runCtx, states...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No items under management")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Name,
						item.ImageID,
						item.TokenID,
						string(item.State),
						yesNo(item.ExportedAt != nil),
						item.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				table := renderTable(
					[]string{"ID", "Name", "Image ID", "Token", "State", "Exported", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStates, "state", "s", nil, "Filter by workflow state (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit items as JSON")
	return cmd
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the next item needing reviewer attention",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				item, err := svc.NextItem(runCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if item == nil {
					fmt.Fprintln(out, "Nothing needs attention")
					return nil
				}
				printItemDetail(cmd, item)
				return nil
			})
		},
	}
}

func printItemDetail(cmd *cobra.Command, item *store.Item) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Item %d: %s\n", item.ID, item.Name)
	fmt.Fprintf(out, "  State:    %s\n", item.State)
	fmt.Fprintf(out, "  Image ID: %s\n", item.ImageID)
	if item.TokenID != "" {
		fmt.Fprintf(out, "  Token:    %s\n", item.TokenID)
	}
	fmt.Fprintf(out, "  Format:   %s\n", item.Format)
	fmt.Fprintf(out, "  Size:     %d bytes\n", item.Size)
	if item.LabelText != nil {
		fmt.Fprintf(out, "  Label:    %q\n", *item.LabelText)
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show item counts per workflow state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				counts, err := svc.Counts(runCtx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, counts)
				}

				rows := [][]string{}
				total := 0
				for _, state := range workflow.AllStates() {
					count := counts[state]
					total += count
					if count > 0 {
						rows = append(rows, []string{string(state), strconv.Itoa(count)})
					}
				}
				if total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No items under management")
					return nil
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})
				table := renderTable([]string{"State", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit counts as JSON")
	return cmd
}

func newRefileListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refile-list",
		Short: "List manifest identities not yet attached to an item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				rows, err := svc.RefileList(runCtx)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No unattached manifest rows")
					return nil
				}

				display := make([][]string, 0, len(rows))
				for _, row := range rows {
					display = append(display, []string{row.ImageID, row.TokenID, row.Source})
				}
				table := renderTable([]string{"Image ID", "Token", "Source"}, display,
					[]columnAlignment{alignLeft, alignLeft, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks on paths, disk space, and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cfg)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			for _, status := range preflight.CheckSystemDeps(cfg) {
				kind := statusOK
				detail := status.Command
				if !status.Available {
					detail = status.Detail
					kind = statusError
					if status.Optional {
						kind = statusWarn
					}
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, detail, colorize))
			}

			if !preflight.Healthy(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}
}
