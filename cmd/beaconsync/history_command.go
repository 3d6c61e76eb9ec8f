package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"beaconsync/internal/config"
	"beaconsync/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded alignment outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ledger.Filter{Limit: limit}
			switch s := ledger.Status(strings.ToLower(strings.TrimSpace(status))); s {
			case "":
			case ledger.StatusAligned, ledger.StatusFailed:
				filter.Status = s
			default:
				return fmt.Errorf("--status must be aligned or failed (got %q)", status)
			}

			return ctx.withLedger(cmd.Context(), func(store *ledger.Store) error {
				entries, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOutput {
					if entries == nil {
						entries = []*ledger.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No alignments recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					window, detail := "", e.ErrorMessage
					if e.Status == ledger.StatusAligned {
						window = fmt.Sprintf("%.3f-%.3f", e.StartSec, e.EndSec)
						detail = e.OutputPath
					} else if e.ErrorKind != "" {
						detail = e.ErrorKind + ": " + e.ErrorMessage
					}
					rows = append(rows, []string{
						formatTimestamp(e.UpdatedAt),
						string(e.Status),
						e.Method,
						window,
						e.SourcePath,
						detail,
					})
				}
				writeRows(out,
					[]string{"Updated", "Status", "Method", "Window (s)", "Source", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only show aligned or failed entries")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")

	cmd.AddCommand(newHistoryForgetCommand(ctx))
	return cmd
}

func newHistoryForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <recording>",
		Short: "Drop a recording from the ledger so batch runs align it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve recording path: %w", err)
			}
			return ctx.withLedger(cmd.Context(), func(store *ledger.Store) error {
				removed, err := store.Forget(cmd.Context(), source)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no ledger entry for %s", source)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", source)
				return nil
			})
		},
	}
}
