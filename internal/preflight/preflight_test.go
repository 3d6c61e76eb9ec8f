package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"beaconsync/internal/config"
)

func writeTool(t *testing.T, dir, name, banner string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\necho '" + banner + "'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write %s stub: %v", name, err)
	}
	return path
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLedgerLocation(t *testing.T) {
	dir := t.TempDir()

	fresh := CheckLedgerLocation(filepath.Join(dir, "ledger.db"))
	if !fresh.Passed {
		t.Fatalf("expected new ledger in writable dir to pass: %s", fresh.Detail)
	}

	existing := filepath.Join(dir, "existing.db")
	if err := os.WriteFile(existing, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckLedgerLocation(existing); !r.Passed {
		t.Fatalf("expected existing ledger to pass: %s", r.Detail)
	}

	if r := CheckLedgerLocation(dir); r.Passed {
		t.Fatal("expected directory ledger path to fail")
	}
	if r := CheckLedgerLocation(filepath.Join(dir, "missing", "ledger.db")); r.Passed {
		t.Fatal("expected ledger in missing directory to fail")
	}
}

func TestParseVersionBanner(t *testing.T) {
	tests := map[string]string{
		"ffmpeg version 6.1.1 Copyright (c) 2000-2023\nbuilt with gcc": "6.1.1",
		"ffprobe version n7.0-static https://johnvansickle.com":          "n7.0-static",
		"unexpected output":                                              "",
		"":                                                               "",
	}
	for input, want := range tests {
		if got := parseVersionBanner(input); got != want {
			t.Errorf("parseVersionBanner(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_StubbedTools(t *testing.T) {
	bin := t.TempDir()
	cfg := config.Default()
	cfg.Tools.FFmpeg = writeTool(t, bin, "ffmpeg", "ffmpeg version 6.1.1 Copyright")
	cfg.Tools.FFprobe = writeTool(t, bin, "ffprobe", "ffprobe version 6.1.1 Copyright")
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.OutputDir = ""
	cfg.Paths.LedgerPath = filepath.Join(t.TempDir(), "ledger.db")

	results := RunAll(context.Background(), &cfg)
	// ffmpeg, ffprobe, work directory, ledger
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %#v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
	if want := cfg.Tools.FFmpeg + " (6.1.1)"; results[0].Detail != want {
		t.Fatalf("ffmpeg detail = %q, want %q", results[0].Detail, want)
	}
}

func TestRunAll_MissingTool(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.FFmpeg = "clearly-not-present-ffmpeg"
	cfg.Tools.FFprobe = "clearly-not-present-ffprobe"
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.LedgerPath = ""

	results := RunAll(context.Background(), &cfg)
	failed := Failed(results)
	if len(failed) != 2 {
		t.Fatalf("expected both tools to fail, got %#v", failed)
	}
	if failed[0].Name != "FFmpeg" || failed[1].Name != "FFprobe" {
		t.Fatalf("unexpected failure order: %#v", failed)
	}
}
