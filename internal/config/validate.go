package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"beaconsync/internal/media/ffmpeg"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProtocol(); err != nil {
		return err
	}
	if err := c.validateDetectors(); err != nil {
		return err
	}
	if err := c.validateAlign(); err != nil {
		return err
	}
	if err := c.validateTrim(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateProtocol() error {
	if err := c.ProtocolConfig().Validate(); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	return nil
}

func (c *Config) validateDetectors() error {
	rate := c.Protocol.SampleRate
	if err := c.BeaconParams().Validate(rate); err != nil {
		return fmt.Errorf("beacon: %w", err)
	}
	if err := c.ChirpParams().Validate(rate); err != nil {
		return fmt.Errorf("chirp: %w", err)
	}
	return nil
}

func (c *Config) validateAlign() error {
	switch c.Align.Method {
	case MethodBeacon, MethodChirp, MethodBoth:
	default:
		return fmt.Errorf("align.method must be one of beacon, chirp, both (got %q)", c.Align.Method)
	}
	switch c.Align.Prefer {
	case MethodBeacon, MethodChirp:
	default:
		return fmt.Errorf("align.prefer must be beacon or chirp (got %q)", c.Align.Prefer)
	}
	if c.Align.DisagreementWarnSec < 0 {
		return errors.New("align.disagreement_warn_sec must not be negative")
	}
	return nil
}

func (c *Config) validateTrim() error {
	switch c.Trim.Mode {
	case ffmpeg.ModeCopy:
		return nil
	case ffmpeg.ModeReencode:
	default:
		return fmt.Errorf("trim.mode must be copy or reencode (got %q)", c.Trim.Mode)
	}
	if c.Trim.VideoCodec == "" || c.Trim.Preset == "" || c.Trim.PixelFormat == "" {
		return errors.New("trim.video_codec, trim.preset and trim.pixel_format are required for reencode")
	}
	if c.Trim.CRF < 0 || c.Trim.CRF > 51 {
		return fmt.Errorf("trim.crf must be between 0 and 51 (got %d)", c.Trim.CRF)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1 (got %d)", c.Batch.Workers)
	}
	if len(c.Batch.Extensions) == 0 {
		return errors.New("batch.extensions must list at least one extension")
	}
	if c.Batch.OutputSuffix == "" && c.Paths.OutputDir == "" {
		return errors.New("batch.output_suffix is required when paths.output_dir is empty")
	}
	if c.Batch.OutputSuffix != filepath.Base(c.Batch.OutputSuffix) {
		return fmt.Errorf("batch.output_suffix must not contain path separators (got %q)", c.Batch.OutputSuffix)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
