package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"beaconsync/internal/testsupport"
)

func TestStatusReportsHealthySetup(t *testing.T) {
	env, _ := setupAlignEnv(t, testsupport.BeaconCapture(48000))

	out, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "ffmpeg (0.0-test)")
	requireContains(t, out, "Work directory:")
	requireContains(t, out, "Aligned:")

	out, _, err = env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var got statusOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.ConfigPath != env.configPath || !got.ConfigExists {
		t.Fatalf("config path = %q (exists %v)", got.ConfigPath, got.ConfigExists)
	}
	for _, check := range got.Checks {
		if !check.Passed {
			t.Fatalf("check %s failed: %s", check.Name, check.Detail)
		}
	}
}

func TestStatusFindsToolsOnPath(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, filepath.Join(env.baseDir, "bin", "ffprobe")+" (0.0-test)")
}

func TestStatusFailsWithoutTools(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Tools.FFmpeg = filepath.Join(env.baseDir, "missing", "ffmpeg")
	env.cfg.Tools.FFprobe = filepath.Join(env.baseDir, "missing", "ffprobe")
	env.writeConfig(t)

	out, _, err := env.run(t, "status")
	if err == nil || !strings.Contains(err.Error(), "preflight check(s) failed") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
	requireContains(t, out, "[ERROR]")
}

func useSparseProtocol(env *cliTestEnv) {
	p := testsupport.SparseProtocol()
	env.cfg.Protocol.InitialSilenceSec = p.InitialSilenceSec
	env.cfg.Protocol.BeaconDurationSec = p.BeaconDurationSec
	env.cfg.Protocol.GuardSilenceSec = p.GuardSilenceSec
	env.cfg.Protocol.TailSilenceSec = p.TailSilenceSec
	env.cfg.Protocol.ActiveSecs = p.ActiveSecs
	env.cfg.Protocol.CyclesTotal = p.CyclesTotal
}

func TestStatusRehearsesChirpProtocol(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries(), testsupport.WithMethod("chirp", ""))
	useSparseProtocol(env)
	env.writeConfig(t)

	out, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "== Protocol ==")
	requireContains(t, out, "[OK] 12 of 12 chirps recovered")

	out, _, err = env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var got statusOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !got.ChirpsInUse || got.Rehearsal == nil || !got.Rehearsal.Recovered() {
		t.Fatalf("rehearsal = %+v (in use %v)", got.Rehearsal, got.ChirpsInUse)
	}
}

func TestStatusFailsWhenChirpsCannotBeRecovered(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries(), testsupport.WithMethod("chirp", ""))
	useSparseProtocol(env)
	env.cfg.Chirp.StartIndex = 20
	env.writeConfig(t)

	out, _, err := env.run(t, "status")
	if err == nil || !strings.Contains(err.Error(), "chirp detector cannot recover") {
		t.Fatalf("expected rehearsal failure, got %v\n%s", err, out)
	}
	requireContains(t, out, "insufficient chirps detected")

	env.cfg.Align.Method = "beacon"
	env.writeConfig(t)
	out, _, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("beacon-only status must only warn: %v\n%s", err, out)
	}
	requireContains(t, out, "[WARN]")
}

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Ledger", statusOK, "ready", false)
	if plain != "  Ledger:              [OK] ready" {
		t.Fatalf("plain = %q", plain)
	}
	colored := renderStatusLine("Ledger", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("colored = %q", colored)
	}
}

func TestRenderTSV(t *testing.T) {
	got := renderTSV([]string{"A", "B"}, [][]string{{"1\t2", "x"}, {"only"}})
	want := "A\tB\n1 2\tx\nonly\t\n"
	if got != want {
		t.Fatalf("renderTSV = %q, want %q", got, want)
	}
}
