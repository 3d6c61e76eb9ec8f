package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"beaconsync/internal/config"
	"beaconsync/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg.Logging.Level = "error"
	cfg.Protocol.InitialSilenceSec = 0.2
	cfg.Protocol.BeaconDurationSec = 0.5
	cfg.Protocol.GuardSilenceSec = 0.3
	cfg.Protocol.TailSilenceSec = 0.2
	cfg.Protocol.ActiveSecs = 0.6
	cfg.Beacon.MinDurationSec = 1.0

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(base, "config.toml"),
		baseDir:    base,
	}
	env.writeConfig(t)
	return env
}

func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	writeTestConfig(t, e.configPath, e.cfg)
}

// stubMediaTools installs fake ffmpeg and ffprobe executables. Extraction
// copies capturePath into place; trims write a marker file listing the
// arguments.
func (e *cliTestEnv) stubMediaTools(t *testing.T, capturePath string) {
	t.Helper()
	binDir := filepath.Join(e.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ffmpeg := fmt.Sprintf(`#!/bin/sh
for arg; do out="$arg"; done
case " $* " in
  *" -version "*) echo "ffmpeg version 0.0-test"; exit 0 ;;
  *" -vn "*) cp %q "$out" ;;
  *) printf 'trimmed %%s\n' "$*" > "$out" ;;
esac
`, capturePath)
	ffprobe := `#!/bin/sh
case " $* " in
  *" -version "*) echo "ffprobe version 0.0-test"; exit 0 ;;
esac
cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio","sample_rate":"48000"}],"format":{"format_name":"mov,mp4","duration":"5.0"}}
JSON
`
	for name, script := range map[string]string{"ffmpeg": ffmpeg, "ffprobe": ffprobe} {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte(script), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	e.cfg.Tools.FFmpeg = filepath.Join(binDir, "ffmpeg")
	e.cfg.Tools.FFprobe = filepath.Join(binDir, "ffprobe")
	e.writeConfig(t)
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, e.configPath)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
