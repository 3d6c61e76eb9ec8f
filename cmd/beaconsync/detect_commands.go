package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"beaconsync/internal/config"
	"beaconsync/internal/detect"
	"beaconsync/internal/pcm"
)

type beaconOutput struct {
	Path     string                `json:"path"`
	Params   detect.BeaconParams   `json:"params"`
	Analysis detect.BeaconAnalysis `json:"analysis"`
	FirstSec float64               `json:"first_sec"`
	LastSec  float64               `json:"last_sec"`
	Window   *detect.Result        `json:"window,omitempty"`
	Error    string                `json:"error,omitempty"`
}

type chirpOutput struct {
	Path     string               `json:"path"`
	Params   detect.ChirpParams   `json:"params"`
	Analysis detect.ChirpAnalysis `json:"analysis"`
	Window   *detect.Result       `json:"window,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Run a single detector on a captured WAV and print diagnostics",
	}
	detectCmd.AddCommand(newDetectBeaconCommand(ctx))
	detectCmd.AddCommand(newDetectChirpsCommand(ctx))
	return detectCmd
}

func loadCaptureArg(cfg *config.Config, arg string) (string, []float64, error) {
	path, err := config.ExpandPath(arg)
	if err != nil {
		return "", nil, fmt.Errorf("resolve path: %w", err)
	}
	samples, _, err := pcm.LoadCapture(path, cfg.Protocol.SampleRate)
	if err != nil {
		return "", nil, err
	}
	return path, samples, nil
}

func newDetectBeaconCommand(ctx *commandContext) *cobra.Command {
	var strategy string
	var minDuration float64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "beacon <capture.wav>",
		Short: "Locate the start and end beacons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			params := cfg.BeaconParams()
			if cmd.Flags().Changed("strategy") {
				params.Strategy = strategy
			}
			if cmd.Flags().Changed("min-duration") {
				params.MinDurationSec = minDuration
			}
			rate := cfg.Protocol.SampleRate
			if err := params.Validate(rate); err != nil {
				return err
			}

			path, samples, err := loadCaptureArg(cfg, args[0])
			if err != nil {
				return err
			}
			analysis, err := detect.AnalyzeBeacon(samples, rate, params)
			if err != nil {
				return err
			}

			result := beaconOutput{Path: path, Params: params, Analysis: analysis}
			var windowErr error
			if analysis.FirstIndex >= 0 {
				result.FirstSec = analysis.FirstSec(rate)
				result.LastSec = analysis.LastSec(rate)
			}
			window, err := analysis.Window(rate, params.MinDurationSec)
			if err == nil {
				err = window.Validate()
			}
			if err != nil {
				windowErr = err
				result.Error = err.Error()
			} else {
				result.Window = &window
			}

			if jsonOutput {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				return windowErr
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"strategy", analysis.Strategy},
				{"reference", fmt.Sprintf("%.6f", analysis.Reference)},
				{"threshold", fmt.Sprintf("%.6f", analysis.Threshold)},
				{"samples above", formatCount(analysis.Above)},
				{"first index", fmt.Sprintf("%d", analysis.FirstIndex)},
				{"last index", fmt.Sprintf("%d", analysis.LastIndex)},
			}
			if analysis.FirstIndex >= 0 {
				rows = append(rows,
					[]string{"first crossing", formatSeconds(result.FirstSec)},
					[]string{"last crossing", formatSeconds(result.LastSec)},
				)
			}
			if result.Window != nil {
				rows = append(rows, []string{"window", result.Window.String()})
			}
			writeRows(out, []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
			return windowErr
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Threshold reference: peak or percentile")
	cmd.Flags().Float64Var(&minDuration, "min-duration", 0, "Seconds to move inward from each crossing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newDetectChirpsCommand(ctx *commandContext) *cobra.Command {
	var startIndex, endIndex int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "chirps <capture.wav>",
		Short: "Find chirp onsets from spectral flux",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			params := cfg.ChirpParams()
			if cmd.Flags().Changed("start-index") {
				params.StartIndex = startIndex
			}
			if cmd.Flags().Changed("end-index") {
				params.EndIndex = endIndex
			}
			rate := cfg.Protocol.SampleRate
			if err := params.Validate(rate); err != nil {
				return err
			}

			path, samples, err := loadCaptureArg(cfg, args[0])
			if err != nil {
				return err
			}
			analysis, err := detect.AnalyzeChirps(samples, rate, params)
			if err != nil {
				return err
			}

			result := chirpOutput{Path: path, Params: params, Analysis: analysis}
			var windowErr error
			if window, err := detect.SelectWindow(analysis.Timeline, params.StartIndex, params.EndIndex); err != nil {
				windowErr = err
				result.Error = err.Error()
			} else {
				result.Window = &window
			}

			if jsonOutput {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				return windowErr
			}

			rows := [][]string{
				{"frames", formatCount(analysis.Frames)},
				{"band bins", formatCount(analysis.Bins)},
				{"flux mean", fmt.Sprintf("%.6f", analysis.Mean)},
				{"flux stddev", fmt.Sprintf("%.6f", analysis.StdDev)},
				{"flux threshold", fmt.Sprintf("%.6f", analysis.Threshold)},
				{"chirps", formatCount(len(analysis.Timeline))},
			}
			if n := len(analysis.Timeline); n > 0 {
				rows = append(rows,
					[]string{"first chirp", formatSeconds(analysis.Timeline[0])},
					[]string{"last chirp", formatSeconds(analysis.Timeline[n-1])},
				)
			}
			if result.Window != nil {
				rows = append(rows, []string{"window", result.Window.String()})
			}
			writeRows(cmd.OutOrStdout(), []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
			if errors.Is(windowErr, detect.ErrInsufficientChirps) {
				return fmt.Errorf("select window with indices %d and %d: %w", params.StartIndex, params.EndIndex, windowErr)
			}
			return windowErr
		},
	}

	cmd.Flags().IntVar(&startIndex, "start-index", 0, "Timeline index of the window start (negative counts from the end)")
	cmd.Flags().IntVar(&endIndex, "end-index", 0, "Timeline index of the window end (negative counts from the end)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
