package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"beaconsync/internal/config"
	"beaconsync/internal/pcm"
	"beaconsync/internal/protocol"
)

type inspectOutput struct {
	Path       string              `json:"path"`
	Header     pcm.Header          `json:"header"`
	RateOK     bool                `json:"sample_rate_ok"`
	LengthOK   bool                `json:"length_ok"`
	Symmetric  bool                `json:"beacons_symmetric"`
	Tolerance  float64             `json:"tolerance"`
	Inspection protocol.Inspection `json:"inspection"`
}

func (o inspectOutput) passed() bool {
	return o.RateOK && o.LengthOK && o.Symmetric
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var tolerance float64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect <protocol.wav>",
		Short: "Verify a rendered protocol file against the configured layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			clip, err := pcm.ReadWAV(path)
			if err != nil {
				return err
			}
			synth, err := protocol.New(cfg.ProtocolConfig())
			if err != nil {
				return err
			}
			inspection, err := synth.Inspect(pcm.Decode(clip.Samples))
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}

			result := inspectOutput{
				Path:       path,
				Header:     clip.Header,
				RateOK:     clip.Header.SampleRate == cfg.Protocol.SampleRate,
				LengthOK:   inspection.LengthMatches(),
				Symmetric:  inspection.BeaconsSymmetric(tolerance),
				Tolerance:  tolerance,
				Inspection: inspection,
			}
			if jsonOutput {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				renderInspection(cmd, result, cfg.Protocol.SampleRate)
			}
			if !result.passed() {
				return errors.New("protocol file does not match the configured layout")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&tolerance, "tolerance", 1.0/32768, "Largest allowed sample difference between the two beacons")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func renderInspection(cmd *cobra.Command, r inspectOutput, wantRate int) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(r.Path, colorize) {
		fmt.Fprintln(out, line)
	}
	in := r.Inspection
	fmt.Fprintln(out, renderStatusLine("Sample rate", passKind(r.RateOK),
		fmt.Sprintf("%d Hz (expected %d Hz)", r.Header.SampleRate, wantRate), colorize))
	fmt.Fprintln(out, renderStatusLine("Length", passKind(r.LengthOK),
		fmt.Sprintf("%s samples (expected %s)", formatCount(in.ActualSamples), formatCount(in.ExpectedSamples)), colorize))
	fmt.Fprintln(out, renderStatusLine("Beacon symmetry", passKind(r.Symmetric),
		fmt.Sprintf("max abs difference %.6g (tolerance %.6g)", in.BeaconMaxDiff, r.Tolerance), colorize))
	fmt.Fprintln(out, renderStatusLine("RMS begin", statusInfo, fmt.Sprintf("%.6f", in.BeaconStartRMS), colorize))
	fmt.Fprintln(out, renderStatusLine("RMS end", statusInfo, fmt.Sprintf("%.6f", in.BeaconEndRMS), colorize))
}
