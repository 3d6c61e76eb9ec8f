package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"beaconsync/internal/detect"
	"beaconsync/internal/media/ffmpeg"
	"beaconsync/internal/protocol"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working, output, and state locations.
type Paths struct {
	WorkDir    string `toml:"work_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	LedgerPath string `toml:"ledger_path"`
}

// Protocol mirrors protocol.Config.
type Protocol struct {
	SampleRate        int     `toml:"sample_rate"`
	InitialSilenceSec float64 `toml:"initial_silence_sec"`
	BeaconFreqHz      float64 `toml:"beacon_freq_hz"`
	BeaconDurationSec float64 `toml:"beacon_duration_sec"`
	GuardSilenceSec   float64 `toml:"guard_silence_sec"`
	TailSilenceSec    float64 `toml:"tail_silence_sec"`
	PulseDurationSec  float64 `toml:"pulse_duration_sec"`
	GapDurationSec    float64 `toml:"gap_duration_sec"`
	StartFreqHz       float64 `toml:"start_freq_hz"`
	EndFreqHz         float64 `toml:"end_freq_hz"`
	Amplitude         float64 `toml:"amplitude"`
	FadeMs            float64 `toml:"fade_ms"`
	CyclesTotal       int     `toml:"cycles_total"`
	ActiveSecs        float64 `toml:"active_secs"`
	BlockPauseSec     float64 `toml:"block_pause_sec"`
}

// Beacon configures the beacon detector. A zero center frequency follows
// protocol.beacon_freq_hz.
type Beacon struct {
	CenterHz       float64 `toml:"center_hz"`
	BandwidthHz    float64 `toml:"bandwidth_hz"`
	MinDurationSec float64 `toml:"min_duration_sec"`
	ThresholdRatio float64 `toml:"threshold_ratio"`
	Strategy       string  `toml:"strategy"`
	Percentile     float64 `toml:"percentile"`
	FilterOrder    int     `toml:"filter_order"`
}

// Chirp configures the chirp detector. Zero band edges follow the protocol
// sweep range.
type Chirp struct {
	FFTSize         int     `toml:"fft_size"`
	HopSize         int     `toml:"hop_size"`
	WinLength       int     `toml:"win_length"`
	MinHz           float64 `toml:"min_hz"`
	MaxHz           float64 `toml:"max_hz"`
	StartIndex      int     `toml:"start_index"`
	EndIndex        int     `toml:"end_index"`
	MinPeakDistance int     `toml:"min_peak_distance"`
	OnsetOnly       bool    `toml:"onset_only"`
}

// Align selects detectors and arbitration.
type Align struct {
	Method              string  `toml:"method"`
	Prefer              string  `toml:"prefer"`
	DisagreementWarnSec float64 `toml:"disagreement_warn_sec"`
	KeepAudio           bool    `toml:"keep_audio"`
}

// Trim configures the output cut.
type Trim struct {
	Mode        string `toml:"mode"`
	VideoCodec  string `toml:"video_codec"`
	Preset      string `toml:"preset"`
	CRF         int    `toml:"crf"`
	PixelFormat string `toml:"pixel_format"`
}

// Batch configures directory processing.
type Batch struct {
	Workers      int      `toml:"workers"`
	Extensions   []string `toml:"extensions"`
	OutputSuffix string   `toml:"output_suffix"`
	SkipExisting bool     `toml:"skip_existing"`
	FailFast     bool     `toml:"fail_fast"`
}

// Tools names the external executables.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for beaconsync.
//
// Configuration sections by subsystem:
//   - Paths: scratch, output, log, and ledger locations
//   - Protocol: timing and spectral layout of the sync signal
//   - Beacon, Chirp: detector parameters
//   - Align: detector selection and arbitration
//   - Trim: ffmpeg cut mode and re-encode settings
//   - Batch: directory walking and worker count
//   - Tools: ffmpeg and ffprobe executables
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Protocol Protocol `toml:"protocol"`
	Beacon   Beacon   `toml:"beacon"`
	Chirp    Chirp    `toml:"chirp"`
	Align    Align    `toml:"align"`
	Trim     Trim     `toml:"trim"`
	Batch    Batch    `toml:"batch"`
	Tools    Tools    `toml:"tools"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work and log directories and the ledger's
// parent. The output directory is created lazily per output.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.LogDir}
	if c.Paths.LedgerPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.LedgerPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ProtocolConfig returns the protocol section as a protocol.Config.
func (c *Config) ProtocolConfig() protocol.Config {
	p := c.Protocol
	return protocol.Config{
		SampleRate:        p.SampleRate,
		InitialSilenceSec: p.InitialSilenceSec,
		BeaconFreqHz:      p.BeaconFreqHz,
		BeaconDurationSec: p.BeaconDurationSec,
		GuardSilenceSec:   p.GuardSilenceSec,
		TailSilenceSec:    p.TailSilenceSec,
		PulseDurationSec:  p.PulseDurationSec,
		GapDurationSec:    p.GapDurationSec,
		StartFreqHz:       p.StartFreqHz,
		EndFreqHz:         p.EndFreqHz,
		Amplitude:         p.Amplitude,
		FadeMs:            p.FadeMs,
		CyclesTotal:       p.CyclesTotal,
		ActiveSecs:        p.ActiveSecs,
		BlockPauseSec:     p.BlockPauseSec,
	}
}

// BeaconParams returns the beacon detector parameters.
func (c *Config) BeaconParams() detect.BeaconParams {
	b := c.Beacon
	center := b.CenterHz
	if center == 0 {
		center = c.Protocol.BeaconFreqHz
	}
	return detect.BeaconParams{
		CenterHz:       center,
		BandwidthHz:    b.BandwidthHz,
		MinDurationSec: b.MinDurationSec,
		ThresholdRatio: b.ThresholdRatio,
		Strategy:       b.Strategy,
		Percentile:     b.Percentile,
		FilterOrder:    b.FilterOrder,
	}
}

// ChirpParams returns the chirp detector parameters.
func (c *Config) ChirpParams() detect.ChirpParams {
	ch := c.Chirp
	minHz, maxHz := ch.MinHz, ch.MaxHz
	if minHz == 0 && maxHz == 0 {
		minHz, maxHz = c.Protocol.StartFreqHz, c.Protocol.EndFreqHz
		if minHz > maxHz {
			minHz, maxHz = maxHz, minHz
		}
	}
	return detect.ChirpParams{
		FFTSize:         ch.FFTSize,
		HopSize:         ch.HopSize,
		WinLength:       ch.WinLength,
		MinHz:           minHz,
		MaxHz:           maxHz,
		StartIndex:      ch.StartIndex,
		EndIndex:        ch.EndIndex,
		MinPeakDistance: ch.MinPeakDistance,
		OnsetOnly:       ch.OnsetOnly,
	}
}

// EncodeSettings returns the re-encode settings for trimming.
func (c *Config) EncodeSettings() ffmpeg.EncodeSettings {
	return ffmpeg.EncodeSettings{
		VideoCodec:  c.Trim.VideoCodec,
		Preset:      c.Trim.Preset,
		CRF:         c.Trim.CRF,
		PixelFormat: c.Trim.PixelFormat,
	}
}

// FFmpegBinary returns the ffmpeg executable.
func (c *Config) FFmpegBinary() string {
	return c.Tools.FFmpeg
}

// FFprobeBinary returns the ffprobe executable.
func (c *Config) FFprobeBinary() string {
	return c.Tools.FFprobe
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
