package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"beaconsync/internal/batch"
	"beaconsync/internal/detect"
	"beaconsync/internal/ledger"
	"beaconsync/internal/testsupport"
)

func setupAlignEnv(t *testing.T, fixture testsupport.Capture, opts ...testsupport.ConfigOption) (*cliTestEnv, string) {
	t.Helper()
	env := setupCLITestEnv(t, opts...)
	capture := filepath.Join(env.baseDir, "fixtures", "capture.wav")
	if err := os.MkdirAll(filepath.Dir(capture), 0o755); err != nil {
		t.Fatalf("mkdir fixtures: %v", err)
	}
	testsupport.WriteCapture(t, capture, fixture)
	env.stubMediaTools(t, capture)

	source := filepath.Join(env.baseDir, "media", "take1.mp4")
	testsupport.WriteFile(t, source, 256)
	return env, source
}

func TestAlignTrimsAndRecords(t *testing.T) {
	env, source := setupAlignEnv(t, testsupport.BeaconCapture(48000))

	out, _, err := env.run(t, "align", source, "--json")
	if err != nil {
		t.Fatalf("align: %v\n%s", err, out)
	}
	var got alignOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	wantOutput := filepath.Join(env.baseDir, "media", "take1_aligned.mp4")
	if got.Report == nil || got.Report.Output != wantOutput {
		t.Fatalf("unexpected report %+v", got.Report)
	}
	window := got.Report.Window()
	if !near(window.StartSec, 1.5) || !near(window.EndSec, 3.5) {
		t.Fatalf("window = %s", window)
	}

	trimmed, err := os.ReadFile(wantOutput)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(trimmed), fmt.Sprintf("-ss %.6f", window.StartSec)) {
		t.Fatalf("trim arguments %q do not start at the window", trimmed)
	}

	out, _, err = env.run(t, "history", "--json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []ledger.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].SourcePath != source || entries[0].Status != ledger.StatusAligned || entries[0].RunID != got.RunID {
		t.Fatalf("unexpected history %+v", entries)
	}
}

func TestAlignDryRunSkipsTrimAndLedger(t *testing.T) {
	env, source := setupAlignEnv(t, testsupport.BeaconCapture(48000))

	out, _, err := env.run(t, "align", source, "--dry-run")
	if err != nil {
		t.Fatalf("align --dry-run: %v\n%s", err, out)
	}
	requireContains(t, out, "Dry run: would write")
	if _, err := os.Stat(filepath.Join(env.baseDir, "media", "take1_aligned.mp4")); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote an output, stat err = %v", err)
	}

	out, _, err = env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No alignments recorded")
}

func TestAlignFailureIsRecorded(t *testing.T) {
	env, source := setupAlignEnv(t, testsupport.SilentCapture(48000, 3))

	_, _, err := env.run(t, "align", source)
	if !errors.Is(err, detect.ErrNoBeaconEnergy) {
		t.Fatalf("expected ErrNoBeaconEnergy, got %v", err)
	}
	out, _, err := env.run(t, "history", "--status", "failed")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, source)
	requireContains(t, out, "validation: ")

	if _, _, err := env.run(t, "align", source, "--method", "sideways"); err == nil {
		t.Fatal("expected an unknown method to be rejected")
	}
}

func TestAlignHonorsOutputFlag(t *testing.T) {
	env, source := setupAlignEnv(t, testsupport.BeaconCapture(48000))
	target := filepath.Join(env.baseDir, "elsewhere", "cut.mp4")

	if _, _, err := env.run(t, "align", source, "-o", target); err != nil {
		t.Fatalf("align: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected output at %s: %v", target, err)
	}
}

func TestBatchAlignsThenSkips(t *testing.T) {
	env, first := setupAlignEnv(t, testsupport.BeaconCapture(48000), testsupport.WithOutputDir())
	root := filepath.Dir(first)
	second := filepath.Join(root, "day2", "take2.mov")
	testsupport.WriteFile(t, second, 256)

	out, _, err := env.run(t, "batch", root, "--workers", "2", "--json")
	if err != nil {
		t.Fatalf("batch: %v\n%s", err, out)
	}
	var summary batch.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if summary.Total != 2 || summary.Aligned != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	mirrored := filepath.Join(env.cfg.Paths.OutputDir, "day2", "take2_aligned.mov")
	if _, err := os.Stat(mirrored); err != nil {
		t.Fatalf("expected mirrored output %s: %v", mirrored, err)
	}

	out, _, err = env.run(t, "batch", root)
	if err != nil {
		t.Fatalf("second batch: %v\n%s", err, out)
	}
	requireContains(t, out, "already aligned")
	requireContains(t, out, "0 aligned, 2 skipped, 0 failed")

	if _, _, err := env.run(t, "history", "forget", first); err != nil {
		t.Fatalf("history forget: %v", err)
	}
	out, _, err = env.run(t, "batch", root)
	if err != nil {
		t.Fatalf("third batch: %v\n%s", err, out)
	}
	requireContains(t, out, "1 aligned, 1 skipped, 0 failed")
}

func TestBatchReportsFailures(t *testing.T) {
	env, first := setupAlignEnv(t, testsupport.SilentCapture(48000, 3))

	out, _, err := env.run(t, "batch", filepath.Dir(first))
	if err == nil {
		t.Fatal("expected batch to report failures")
	}
	requireContains(t, err.Error(), "1 of 1 recordings failed")
	requireContains(t, out, "failed")
}
