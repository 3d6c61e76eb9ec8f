package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"beaconsync/internal/align"
	"beaconsync/internal/batch"
	"beaconsync/internal/config"
	"beaconsync/internal/ledger"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var failFast bool
	var noSkip bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Align every recording under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve directory: %w", err)
			}

			opts := batch.OptionsFromConfig(cfg)
			if cmd.Flags().Changed("workers") {
				if workers < 1 {
					return fmt.Errorf("--workers must be at least 1 (got %d)", workers)
				}
				opts.Workers = workers
			}
			if failFast {
				opts.FailFast = true
			}
			if noSkip {
				opts.SkipExisting = false
			}

			var summary batch.Summary
			var runErr error
			err = ctx.withLedger(cmd.Context(), func(store *ledger.Store) error {
				aligner := align.NewFromConfig(cfg, store, logger)
				summary, runErr = batch.NewRunner(opts, aligner, store, logger).Run(cmd.Context(), root)
				return nil
			})
			if err != nil {
				return err
			}
			if summary.Results == nil && runErr != nil {
				return runErr
			}

			if jsonOutput {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
			} else {
				renderBatchSummary(cmd, summary)
			}
			if runErr != nil {
				return runErr
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d recordings failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Recordings processed in parallel (default: batch.workers)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failure")
	cmd.Flags().BoolVar(&noSkip, "no-skip", false, "Realign sources the ledger already marks as aligned")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func renderBatchSummary(cmd *cobra.Command, summary batch.Summary) {
	out := cmd.OutOrStdout()
	if summary.Total == 0 {
		fmt.Fprintf(out, "No recordings found under %s\n", summary.Root)
		return
	}
	rows := make([][]string, 0, len(summary.Results))
	for _, res := range summary.Results {
		window, detail := "", res.Reason
		if res.Window != nil {
			window = res.Window.String()
			detail = res.Output
		}
		rows = append(rows, []string{res.Source, string(res.Status), window, detail})
	}
	writeRows(out, []string{"Source", "Status", "Window", "Detail"}, rows, nil)
	fmt.Fprintf(out, "Run %s: %d aligned, %d skipped, %d failed in %s\n",
		summary.RunID, summary.Aligned, summary.Skipped, summary.Failed, formatElapsed(summary.Elapsed))
}
