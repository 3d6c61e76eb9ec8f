package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"beaconsync/internal/align"
	"beaconsync/internal/batch"
	"beaconsync/internal/config"
	"beaconsync/internal/ledger"
	"beaconsync/internal/services"
)

type alignOutput struct {
	RunID  string        `json:"run_id"`
	DryRun bool          `json:"dry_run"`
	Report *align.Report `json:"report"`
}

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var method string
	var prefer string
	var dryRun bool
	var keepAudio bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "align <recording>",
		Short: "Detect the sync window in a recording and trim it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			cfg := *base
			if cmd.Flags().Changed("method") {
				cfg.Align.Method = strings.ToLower(strings.TrimSpace(method))
			}
			if cmd.Flags().Changed("prefer") {
				cfg.Align.Prefer = strings.ToLower(strings.TrimSpace(prefer))
			}
			if keepAudio {
				cfg.Align.KeepAudio = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve recording path: %w", err)
			}
			output := strings.TrimSpace(outputPath)
			if output == "" {
				output, err = batch.PlanOutput(source, filepath.Dir(source), cfg.Paths.OutputDir, cfg.Batch.OutputSuffix)
				if err != nil {
					return err
				}
			} else if output, err = config.ExpandPath(output); err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}

			runID := uuid.NewString()
			runCtx := services.WithRunID(cmd.Context(), runID)
			result := alignOutput{RunID: runID, DryRun: dryRun}

			if dryRun {
				aligner := align.NewFromConfig(&cfg, nil, logger)
				analysis, err := aligner.Analyze(runCtx, source)
				if err != nil {
					return err
				}
				result.Report = &align.Report{Analysis: analysis, Output: output}
			} else {
				err := ctx.withLedger(runCtx, func(store *ledger.Store) error {
					aligner := align.NewFromConfig(&cfg, store, logger)
					report, err := aligner.Align(runCtx, source, output)
					if err != nil {
						return err
					}
					result.Report = &report
					return nil
				})
				if err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}
			renderAlignReport(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default: planned from paths.output_dir and batch.output_suffix)")
	cmd.Flags().StringVar(&method, "method", "", "Detector: beacon, chirp, or both")
	cmd.Flags().StringVar(&prefer, "prefer", "", "Detector whose window wins when method is both")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Detect the window without trimming or recording")
	cmd.Flags().BoolVar(&keepAudio, "keep-audio", false, "Keep the extracted capture WAV in the work directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func renderAlignReport(cmd *cobra.Command, result alignOutput) {
	out := cmd.OutOrStdout()
	report := result.Report
	det := report.Detection
	window := report.Window()

	fmt.Fprintf(out, "Source:   %s\n", report.Source)
	fmt.Fprintf(out, "Capture:  %s\n", formatSeconds(report.CaptureSec))
	if det.Beacon != nil {
		fmt.Fprintf(out, "Beacon:   %s\n", det.Beacon)
	}
	if det.Chirp != nil {
		fmt.Fprintf(out, "Chirp:    %s\n", det.Chirp)
	}
	if det.Beacon != nil && det.Chirp != nil {
		fmt.Fprintf(out, "Disagree: %s\n", formatSeconds(det.DisagreementSec))
	}
	fmt.Fprintf(out, "Window:   %s (%s)\n", window, formatSeconds(window.DurationSec()))
	if report.AudioPath != "" {
		fmt.Fprintf(out, "Audio:    %s\n", report.AudioPath)
	}
	if result.DryRun {
		fmt.Fprintf(out, "Dry run: would write %s\n", report.Output)
		return
	}
	fmt.Fprintf(out, "Output:   %s (%s, %s)\n", report.Output, formatFileSize(report.Output), formatElapsed(report.Elapsed))
}
