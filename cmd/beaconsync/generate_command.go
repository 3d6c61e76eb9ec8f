package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"beaconsync/internal/config"
	"beaconsync/internal/pcm"
	"beaconsync/internal/protocol"
)

type generateOutput struct {
	Path        string          `json:"path"`
	SampleRate  int             `json:"sample_rate"`
	Samples     int             `json:"samples"`
	DurationSec float64         `json:"duration_sec"`
	SizeBytes   int64           `json:"size_bytes"`
	Layout      protocol.Layout `json:"layout"`
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var showLayout bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate <output.wav>",
		Short: "Render the sync protocol to a mono 16-bit WAV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}

			synth, err := protocol.New(cfg.ProtocolConfig())
			if err != nil {
				return err
			}
			samples := synth.Waveform()
			if err := pcm.WriteWaveform(target, cfg.Protocol.SampleRate, samples); err != nil {
				return err
			}

			result := generateOutput{
				Path:        target,
				SampleRate:  cfg.Protocol.SampleRate,
				Samples:     len(samples),
				DurationSec: float64(len(samples)) / float64(cfg.Protocol.SampleRate),
				Layout:      synth.Layout(),
			}
			if size, err := statSize(target); err == nil {
				result.SizeBytes = size
			}
			if jsonOutput {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", target)
			fmt.Fprintf(out, "  %s samples at %d Hz (%.3fs, %s)\n",
				formatCount(result.Samples), result.SampleRate, result.DurationSec, formatFileSize(target))
			if showLayout {
				writeLayout(cmd, result.Layout)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showLayout, "layout", false, "Print the segment layout")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func writeLayout(cmd *cobra.Command, layout protocol.Layout) {
	rows := make([][]string, 0, len(layout.Segments))
	for _, seg := range layout.Segments {
		rows = append(rows, []string{
			seg.Name,
			strconv.Itoa(seg.Start),
			strconv.Itoa(seg.Length),
			formatSeconds(seg.StartSec(layout.SampleRate)),
		})
	}
	writeRows(cmd.OutOrStdout(),
		[]string{"Segment", "Start", "Length", "Start (s)"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Chirp onsets: %d\n", len(layout.ChirpOnsets))
}
