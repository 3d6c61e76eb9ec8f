package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Trim modes.
const (
	ModeCopy     = "copy"
	ModeReencode = "reencode"
)

// EncodeSettings configures the re-encode trim mode.
type EncodeSettings struct {
	VideoCodec  string
	Preset      string
	CRF         int
	PixelFormat string
}

// DefaultEncodeSettings returns the libx264 settings used for re-encoded cuts.
func DefaultEncodeSettings() EncodeSettings {
	return EncodeSettings{VideoCodec: "libx264", Preset: "ultrafast", CRF: 18, PixelFormat: "yuv420p"}
}

// Client is the ffmpeg surface used by the aligner.
type Client interface {
	ExtractAudio(ctx context.Context, inputPath, wavPath string, sampleRate int) error
	Trim(ctx context.Context, inputPath, outputPath string, startSec, endSec float64) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(binary) != "" {
			c.binary = strings.TrimSpace(binary)
		}
	}
}

// WithTrimMode selects copy or reencode trimming.
func WithTrimMode(mode string) Option {
	return func(c *CLI) {
		if mode = strings.ToLower(strings.TrimSpace(mode)); mode != "" {
			c.mode = mode
		}
	}
}

// WithEncodeSettings overrides the re-encode settings.
func WithEncodeSettings(settings EncodeSettings) Option {
	return func(c *CLI) {
		c.encode = settings
	}
}

// CLI runs the ffmpeg binary.
type CLI struct {
	binary string
	mode   string
	encode EncodeSettings
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", mode: ModeCopy, encode: DefaultEncodeSettings()}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Binary returns the configured executable.
func (c *CLI) Binary() string {
	return c.binary
}

// ExtractArgs returns the argument list for audio extraction.
func ExtractArgs(inputPath, wavPath string, sampleRate int) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		wavPath,
	}
}

// TrimArgs returns the argument list for trimming in the given mode.
func TrimArgs(inputPath, outputPath string, startSec, endSec float64, mode string, encode EncodeSettings) ([]string, error) {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startSec),
		"-to", formatSeconds(endSec),
		"-i", inputPath,
	}
	switch mode {
	case ModeCopy:
		args = append(args, "-c:v", "copy", "-c:a", "copy")
	case ModeReencode:
		args = append(args,
			"-c:v", encode.VideoCodec,
			"-preset", encode.Preset,
			"-crf", strconv.Itoa(encode.CRF),
			"-pix_fmt", encode.PixelFormat,
			"-c:a", "copy",
		)
	default:
		return nil, fmt.Errorf("unsupported trim mode %q", mode)
	}
	return append(args, outputPath), nil
}

// ExtractAudio writes the first audio stream of inputPath to wavPath as mono
// 16-bit PCM at sampleRate.
func (c *CLI) ExtractAudio(ctx context.Context, inputPath, wavPath string, sampleRate int) error {
	if strings.TrimSpace(inputPath) == "" {
		return errors.New("ffmpeg extract: input path required")
	}
	if strings.TrimSpace(wavPath) == "" {
		return errors.New("ffmpeg extract: output path required")
	}
	if sampleRate <= 0 {
		return fmt.Errorf("ffmpeg extract: invalid sample rate %d", sampleRate)
	}
	if err := c.run(ctx, ExtractArgs(inputPath, wavPath, sampleRate)); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return requireOutput(wavPath)
}

// Trim copies [startSec, endSec] of inputPath into outputPath.
func (c *CLI) Trim(ctx context.Context, inputPath, outputPath string, startSec, endSec float64) error {
	if strings.TrimSpace(inputPath) == "" || strings.TrimSpace(outputPath) == "" {
		return errors.New("ffmpeg trim: input and output paths required")
	}
	if startSec < 0 || endSec <= startSec {
		return fmt.Errorf("ffmpeg trim: invalid window [%s, %s]", formatSeconds(startSec), formatSeconds(endSec))
	}
	args, err := TrimArgs(inputPath, outputPath, startSec, endSec, c.mode, c.encode)
	if err != nil {
		return fmt.Errorf("ffmpeg trim: %w", err)
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg trim: %w", err)
	}
	return requireOutput(outputPath)
}

func (c *CLI) run(ctx context.Context, args []string) error {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, detail)
	}
	return nil
}

func requireOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("ffmpeg produced no output at %s: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced an empty file at %s", path)
	}
	return nil
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 6, 64)
}

var _ Client = (*CLI)(nil)
