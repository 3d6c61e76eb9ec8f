package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"beaconsync/internal/config"
	"beaconsync/internal/detect"
	"beaconsync/internal/protocol"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beaconsync.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "beaconsync", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.OutputDir != "" {
		t.Fatalf("expected empty output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.LedgerPath != filepath.Join(tempHome, ".local", "share", "beaconsync", "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Paths.LedgerPath)
	}
	if cfg.Align.Method != config.MethodBeacon || cfg.Align.Prefer != config.MethodChirp {
		t.Fatalf("unexpected align defaults: %+v", cfg.Align)
	}
	if cfg.Tools.FFmpeg != "ffmpeg" || cfg.Tools.FFprobe != "ffprobe" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
	if !reflect.DeepEqual(cfg.ProtocolConfig(), protocol.Default()) {
		t.Fatalf("protocol section does not round-trip defaults: %+v", cfg.ProtocolConfig())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir, filepath.Dir(cfg.Paths.LedgerPath)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := writeConfig(t, `
[paths]
output_dir = "~/aligned"

[protocol]
beacon_freq_hz = 9000.0
cycles_total = 4

[align]
method = "BOTH"
prefer = " Beacon "

[batch]
workers = 3
extensions = ["MP4", ".mov", "mp4"]
`)

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	home, _ := os.UserHomeDir()
	if cfg.Paths.OutputDir != filepath.Join(home, "aligned") {
		t.Fatalf("expected expanded output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Protocol.CyclesTotal != 4 {
		t.Fatalf("expected cycles_total 4, got %d", cfg.Protocol.CyclesTotal)
	}
	if cfg.Protocol.SampleRate != 48000 {
		t.Fatalf("expected untouched sample rate to keep default, got %d", cfg.Protocol.SampleRate)
	}
	if cfg.Align.Method != config.MethodBoth || cfg.Align.Prefer != config.MethodBeacon {
		t.Fatalf("expected normalized align values, got %+v", cfg.Align)
	}
	if cfg.Batch.Workers != 3 {
		t.Fatalf("expected 3 workers, got %d", cfg.Batch.Workers)
	}
	if want := []string{".mp4", ".mov"}; !reflect.DeepEqual(cfg.Batch.Extensions, want) {
		t.Fatalf("extensions = %v, want %v", cfg.Batch.Extensions, want)
	}
	if got := cfg.BeaconParams().CenterHz; got != 9000 {
		t.Fatalf("expected beacon center to follow protocol, got %v", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := writeConfig(t, "[align]\nmethdo = \"chirp\"\n")

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
	if !strings.Contains(err.Error(), "methdo") {
		t.Fatalf("expected error to name the unknown key, got %v", err)
	}
}

func TestEnvOverridesToolsAndLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := writeConfig(t, "[tools]\nffmpeg = \"/opt/ffmpeg\"\n")
	t.Setenv(config.EnvFFmpeg, "/usr/local/bin/ffmpeg")
	t.Setenv(config.EnvFFprobe, "/usr/local/bin/ffprobe")
	t.Setenv(config.EnvLogLevel, "DEBUG")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FFmpegBinary() != "/usr/local/bin/ffmpeg" {
		t.Errorf("expected ffmpeg from env, got %q", cfg.FFmpegBinary())
	}
	if cfg.FFprobeBinary() != "/usr/local/bin/ffprobe" {
		t.Errorf("expected ffprobe from env, got %q", cfg.FFprobeBinary())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected normalized level from env, got %q", cfg.Logging.Level)
	}
}

func TestCreateSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw config.Config
	if err := toml.Unmarshal(contents, &raw); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(raw.Paths.WorkDir, "beaconsync") {
		t.Fatalf("expected work dir to contain beaconsync, got %q", raw.Paths.WorkDir)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	def := config.Default()
	if !reflect.DeepEqual(cfg.Protocol, def.Protocol) {
		t.Fatalf("sample protocol drifted from defaults:\n got %+v\nwant %+v", cfg.Protocol, def.Protocol)
	}
	if !reflect.DeepEqual(cfg.Chirp, def.Chirp) || !reflect.DeepEqual(cfg.Beacon, def.Beacon) {
		t.Fatalf("sample detector sections drifted from defaults")
	}
}

func TestDetectorParamsFollowProtocol(t *testing.T) {
	cfg := config.Default()
	cfg.Protocol.StartFreqHz = 19000
	cfg.Protocol.EndFreqHz = 16000

	chirp := cfg.ChirpParams()
	if chirp.MinHz != 16000 || chirp.MaxHz != 19000 {
		t.Fatalf("expected ordered protocol band, got [%v, %v]", chirp.MinHz, chirp.MaxHz)
	}

	cfg.Chirp.MinHz = 14000
	cfg.Chirp.MaxHz = 20000
	chirp = cfg.ChirpParams()
	if chirp.MinHz != 14000 || chirp.MaxHz != 20000 {
		t.Fatalf("expected explicit band to win, got [%v, %v]", chirp.MinHz, chirp.MaxHz)
	}

	beacon := cfg.BeaconParams()
	want := detect.DefaultBeaconParams()
	if beacon != want {
		t.Fatalf("beacon params = %+v, want %+v", beacon, want)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"protocol sample rate", func(c *config.Config) { c.Protocol.SampleRate = 0 }},
		{"beacon above nyquist", func(c *config.Config) { c.Beacon.CenterHz = 30000 }},
		{"beacon strategy", func(c *config.Config) { c.Beacon.Strategy = "median" }},
		{"chirp hop", func(c *config.Config) { c.Chirp.HopSize = 0 }},
		{"align method", func(c *config.Config) { c.Align.Method = "xcorr" }},
		{"align prefer both", func(c *config.Config) { c.Align.Prefer = config.MethodBoth }},
		{"negative disagreement", func(c *config.Config) { c.Align.DisagreementWarnSec = -1 }},
		{"trim mode", func(c *config.Config) { c.Trim.Mode = "smart" }},
		{"reencode crf", func(c *config.Config) {
			c.Trim.Mode = "reencode"
			c.Trim.CRF = 60
		}},
		{"reencode codec", func(c *config.Config) {
			c.Trim.Mode = "reencode"
			c.Trim.VideoCodec = ""
		}},
		{"workers", func(c *config.Config) { c.Batch.Workers = -2 }},
		{"extensions", func(c *config.Config) { c.Batch.Extensions = nil }},
		{"overwrite source", func(c *config.Config) { c.Batch.OutputSuffix = "" }},
		{"suffix separator", func(c *config.Config) { c.Batch.OutputSuffix = "x/y" }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Trim.Mode = "copy"
	cfg.Trim.CRF = 99
	if err := cfg.Validate(); err != nil {
		t.Fatalf("copy mode should ignore encode settings: %v", err)
	}
	cfg.Batch.OutputSuffix = ""
	cfg.Paths.OutputDir = "/tmp/aligned"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty suffix with separate output dir should validate: %v", err)
	}
}
