package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"beaconsync/internal/config"
	"beaconsync/internal/logging"
	"beaconsync/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (*slog.Logger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{
		Format:           format,
		Level:            level,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerLayout(t *testing.T) {
	logger, logPath := newFileLogger(t, "console", "info")
	ctx := services.WithSource(services.WithStage(context.Background(), "detect"), "/captures/take1.mp4")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "align")).Info("beacon window found",
		logging.Float64("start_sec", 17.5),
		logging.String("method", "beacon"),
		logging.String("note", "two words"),
	)

	line := strings.TrimSpace(readLog(t, logPath))
	for _, fragment := range []string{" INFO [align] take1.mp4 (detect) – beacon window found", "start_sec=17.5", "method=beacon", `note="two words"`} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleLoggerDebugIncludesCallerAndRunID(t *testing.T) {
	logger, logPath := newFileLogger(t, "console", "debug")
	ctx := services.WithRunID(context.Background(), "run-1")
	logging.WithContext(ctx, logger).Debug("flux computed")
	logging.WithContext(ctx, logger).Info("aligned")

	lines := strings.Split(strings.TrimSpace(readLog(t, logPath)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	if !strings.Contains(lines[0], ".go:") || !strings.Contains(lines[0], "run_id=run-1") {
		t.Fatalf("debug line missing caller or run id: %q", lines[0])
	}
	if strings.Contains(lines[1], "run_id") {
		t.Fatalf("info line should hide run id: %q", lines[1])
	}
}

func TestJSONLoggerKeys(t *testing.T) {
	logger, logPath := newFileLogger(t, "json", "info")
	logger.Info("json message", logging.String("k", "v"))

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["msg"] != "json message" || record["level"] != "info" || record["k"] != "v" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	logger, logPath := newFileLogger(t, "console", "loud")
	logger.Debug("hidden")
	logger.Info("shown")
	content := readLog(t, logPath)
	if strings.Contains(content, "hidden") || !strings.Contains(content, "shown") {
		t.Fatalf("unexpected output %q", content)
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Level = "warn"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("not recorded")
	logger.Warn("disagreement", logging.Float64("delta_sec", 0.25))

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if strings.Contains(content, "not recorded") {
		t.Fatalf("info record leaked past warn level: %q", content)
	}
	if !strings.Contains(content, `"msg":"disagreement"`) {
		t.Fatalf("expected JSON warn record, got %q", content)
	}
}

func TestTeeHandlerRespectsLevels(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	tee := logging.TeeHandler(
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		nil,
		slog.NewTextHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(tee).With("component", "batch")
	logger.Info("progress")
	logger.Error("failed")

	if !strings.Contains(infoBuf.String(), "progress") || !strings.Contains(infoBuf.String(), "failed") {
		t.Fatalf("info handler missing records: %q", infoBuf.String())
	}
	if strings.Contains(errBuf.String(), "progress") || !strings.Contains(errBuf.String(), "component=batch") {
		t.Fatalf("error handler output unexpected: %q", errBuf.String())
	}
	if _, ok := logging.TeeHandler(nil).(logging.NoopHandler); !ok {
		t.Fatal("expected NoopHandler for no handlers")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "detectors disagree", "detector_disagreement", logging.String(logging.FieldImpact, "beacon window used"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "detector_disagreement" {
		t.Fatalf("event_type = %v", record[logging.FieldEventType])
	}
	if record[logging.FieldImpact] != "beacon window used" {
		t.Fatalf("impact overridden: %v", record[logging.FieldImpact])
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint")
	}
}

func TestContextFields(t *testing.T) {
	if fields := logging.ContextFields(context.Background()); len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}
	ctx := services.WithRunID(context.Background(), "r")
	ctx = services.WithSource(ctx, "s.mp4")
	ctx = services.WithStage(ctx, "trim")
	fields := logging.ContextFields(ctx)
	if len(fields) != 3 || fields[0].Key != logging.FieldRunID || fields[2].Value.String() != "trim" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestSecondsRoundsToMicroseconds(t *testing.T) {
	if got := logging.Seconds("t", 1.23456789).Value.Float64(); got != 1.234568 {
		t.Fatalf("Seconds = %v", got)
	}
}

func TestProgressSampler(t *testing.T) {
	s := logging.NewProgressSampler(25)
	var emitted []int
	for done := 1; done <= 8; done++ {
		if s.ShouldLog(done, 8) {
			emitted = append(emitted, done)
		}
	}
	want := []int{1, 2, 4, 6, 8}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted %v, want %v", emitted, want)
		}
	}
	var nilSampler *logging.ProgressSampler
	if !nilSampler.ShouldLog(1, 100) {
		t.Fatal("nil sampler should always log")
	}
}
