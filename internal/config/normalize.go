package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables that override file values.
const (
	EnvFFmpeg   = "BEACONSYNC_FFMPEG"
	EnvFFprobe  = "BEACONSYNC_FFPROBE"
	EnvLogLevel = "BEACONSYNC_LOG_LEVEL"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.applyEnvOverrides()
	c.normalizeDetectors()
	c.normalizeAlign()
	c.normalizeTrim()
	c.normalizeBatch()
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LedgerPath, err = expandPath(strings.TrimSpace(c.Paths.LedgerPath)); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if value, ok := os.LookupEnv(EnvFFmpeg); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFmpeg = value
	}
	if value, ok := os.LookupEnv(EnvFFprobe); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFprobe = value
	}
	if value, ok := os.LookupEnv(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
}

func (c *Config) normalizeDetectors() {
	c.Beacon.Strategy = strings.ToLower(strings.TrimSpace(c.Beacon.Strategy))
	if c.Beacon.Strategy == "" {
		c.Beacon.Strategy = "peak"
	}
}

func (c *Config) normalizeAlign() {
	c.Align.Method = strings.ToLower(strings.TrimSpace(c.Align.Method))
	if c.Align.Method == "" {
		c.Align.Method = defaultAlignMethod
	}
	c.Align.Prefer = strings.ToLower(strings.TrimSpace(c.Align.Prefer))
	if c.Align.Prefer == "" {
		c.Align.Prefer = defaultAlignPrefer
	}
}

func (c *Config) normalizeTrim() {
	c.Trim.Mode = strings.ToLower(strings.TrimSpace(c.Trim.Mode))
	if c.Trim.Mode == "" {
		c.Trim.Mode = defaultTrimMode
	}
	c.Trim.VideoCodec = strings.TrimSpace(c.Trim.VideoCodec)
	c.Trim.Preset = strings.TrimSpace(c.Trim.Preset)
	c.Trim.PixelFormat = strings.TrimSpace(c.Trim.PixelFormat)
}

func (c *Config) normalizeBatch() {
	if c.Batch.Workers == 0 {
		c.Batch.Workers = defaultBatchWorkers
	}
	seen := make(map[string]struct{}, len(c.Batch.Extensions))
	exts := make([]string, 0, len(c.Batch.Extensions))
	for _, ext := range c.Batch.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Batch.Extensions = exts
	c.Batch.OutputSuffix = strings.TrimSpace(c.Batch.OutputSuffix)
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
