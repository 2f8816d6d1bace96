package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"wsideid/internal/actions"
	"wsideid/internal/ledger"
)

// transitionSpecs are the single-transition actions that need nothing beyond
// an item id.
var transitionSpecs = []struct {
	Name  string
	Short string
}{
	{"quarantine", "Flag an item for re-review"},
	{"unquarantine", "Return a rejected item to the review queue"},
	{"reject", "Reject a processed item"},
	{"finish", "Approve a processed item for export"},
	{"ocr", "Recognize the label text of an item"},
}

func newTransitionCommands(ctx *commandContext) []*cobra.Command {
	commands := make([]*cobra.Command, 0, len(transitionSpecs))
	for _, spec := range transitionSpecs {
		commands = append(commands, newItemActionCommand(ctx, spec.Name, spec.Short))
	}
	return commands
}

func newItemActionCommand(ctx *commandContext, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <itemID>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				item, err := svc.Apply(runCtx, action, actions.ItemRequest{ID: id, Actor: currentActor("")})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d (%s) is now %s\n", item.ID, item.Name, item.State)
				return nil
			})
		},
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var editsPath string
	var actor string

	cmd := &cobra.Command{
		Use:   "process <itemID>",
		Short: "Record redaction decisions and advance an item to processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}

			var edits *ledger.Ledger
			if editsPath != "" {
				data, err := os.ReadFile(editsPath)
				if err != nil {
					return fmt.Errorf("read edits file: %w", err)
				}
				edits = ledger.New()
				if err := json.Unmarshal(data, edits); err != nil {
					return fmt.Errorf("decode edits file: %w", err)
				}
			}

			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				item, err := svc.Apply(runCtx, "process", actions.ItemRequest{
					ID:    id,
					Edits: edits,
					Actor: currentActor(actor),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d (%s) is now %s\n", item.ID, item.Name, item.State)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&editsPath, "edits", "e", "", "JSON file with the full replacement redaction ledger")
	cmd.Flags().StringVar(&actor, "actor", "", "Reviewer recorded in the redaction provenance")
	return cmd
}

func newRefileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refile <itemID> <identifier>",
		Short: "Attach an unfiled item to a manifest identity or bare token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				item, err := svc.Apply(runCtx, "refile", actions.ItemRequest{
					ID:         id,
					Identifier: args[1],
					Actor:      currentActor(""),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d refiled as %s (token %s)\n",
					item.ID, item.ImageID, item.TokenID)
				return nil
			})
		},
	}
}

func newBulkCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "bulk <action> <itemID...>",
		Short: "Apply one action to several items; failures do not abort the batch",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			ids := make([]int64, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := parseItemID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			return ctx.withService(cmd, func(runCtx context.Context, svc *actions.Service) error {
				outcome := svc.BulkApply(runCtx, action, ids, currentActor(actor))
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Applied %s to %d of %d items\n", action, outcome.Succeeded, len(ids))

				failed := make([]int64, 0, len(outcome.Failed))
				for id := range outcome.Failed {
					failed = append(failed, id)
				}
				sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
				for _, id := range failed {
					fmt.Fprintf(out, "  item %d: %s\n", id, outcome.Failed[id])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Reviewer recorded in the redaction provenance")
	return cmd
}

func parseItemID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q", arg)
	}
	return id, nil
}

func currentActor(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("USER")
}
