package align

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"beaconsync/internal/config"
	"beaconsync/internal/deps"
	"beaconsync/internal/detect"
	"beaconsync/internal/ledger"
	"beaconsync/internal/logging"
	"beaconsync/internal/media/ffmpeg"
	"beaconsync/internal/media/ffprobe"
	"beaconsync/internal/pcm"
	"beaconsync/internal/services"
)

// Prober inspects a source before extraction.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Recorder stores per-file outcomes. *ledger.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, entry ledger.Entry) error
}

// Aligner runs the probe, extract, detect, and trim sequence for one file at a
// time. It holds no per-file state and may be shared by goroutines.
type Aligner struct {
	opts   Options
	probe  Prober
	media  ffmpeg.Client
	ledger Recorder
	logger *slog.Logger
}

// New builds an Aligner. ledger may be nil.
func New(opts Options, probe Prober, media ffmpeg.Client, ledger Recorder, logger *slog.Logger) *Aligner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aligner{
		opts:   opts,
		probe:  probe,
		media:  media,
		ledger: ledger,
		logger: logging.NewComponentLogger(logger, "align"),
	}
}

// NewFromConfig wires the ffprobe and ffmpeg command-line clients.
func NewFromConfig(cfg *config.Config, ledger Recorder, logger *slog.Logger) *Aligner {
	media := ffmpeg.NewCLI(
		ffmpeg.WithBinary(cfg.FFmpegBinary()),
		ffmpeg.WithTrimMode(cfg.Trim.Mode),
		ffmpeg.WithEncodeSettings(cfg.EncodeSettings()),
	)
	probe := ffprobe.Prober{Binary: deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary())}
	return New(OptionsFromConfig(cfg), probe, media, ledger, logger)
}

// Options returns the aligner's options.
func (a *Aligner) Options() Options {
	return a.opts
}

// Analysis is everything learned about a source short of trimming it.
type Analysis struct {
	Source     string    `json:"source"`
	Detection  Detection `json:"detection"`
	CaptureSec float64   `json:"capture_sec"`
	AudioPath  string    `json:"audio_path,omitempty"`
}

// Report describes a completed alignment.
type Report struct {
	Analysis
	Output  string        `json:"output"`
	Elapsed time.Duration `json:"elapsed"`
}

// Window is the selected crop window.
func (a Analysis) Window() detect.Result {
	return a.Detection.Result
}

// Analyze probes and extracts the source and runs detection without trimming.
func (a *Aligner) Analyze(ctx context.Context, source string) (Analysis, error) {
	ctx = withSource(ctx, source)
	logger := logging.WithContext(ctx, a.logger)

	analysis := Analysis{Source: source}
	if err := a.checkSource(ctx, source); err != nil {
		return analysis, err
	}

	audioPath, err := a.extract(services.WithStage(ctx, "extract"), source)
	if err != nil {
		return analysis, err
	}
	if a.opts.KeepAudio {
		analysis.AudioPath = audioPath
	} else {
		defer func() {
			if rmErr := os.Remove(audioPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logger.Debug("failed to remove capture", logging.String("path", audioPath), logging.Error(rmErr))
			}
		}()
	}

	samples, _, err := pcm.LoadCapture(audioPath, a.opts.SampleRate)
	if err != nil {
		return analysis, services.Wrap(services.ErrExternalTool, "align", "load capture", "extracted audio is unusable", err)
	}
	analysis.CaptureSec = float64(len(samples)) / float64(a.opts.SampleRate)
	logger.Debug("capture loaded",
		logging.Int("samples", len(samples)),
		logging.Seconds("capture_sec", analysis.CaptureSec),
	)

	detectCtx := services.WithStage(ctx, "detect")
	det, err := Detect(detectCtx, samples, a.opts, logging.WithContext(detectCtx, a.logger))
	if err != nil {
		return analysis, err
	}
	analysis.Detection = det

	if err := ValidateWindow(det.Result, analysis.CaptureSec); err != nil {
		return analysis, err
	}
	return analysis, nil
}

// Align analyzes source and trims it into output. The outcome is recorded in
// the ledger whether or not it succeeded.
func (a *Aligner) Align(ctx context.Context, source, output string) (Report, error) {
	started := time.Now()
	ctx = withSource(ctx, source)
	logger := logging.WithContext(ctx, a.logger)

	report, err := a.align(ctx, source, output)
	report.Elapsed = time.Since(started)
	a.record(ctx, report, err)

	if err != nil {
		return report, err
	}
	logger.Info("source aligned",
		logging.String("output", output),
		logging.String("method", string(report.Window().Method)),
		logging.Seconds("start_sec", report.Window().StartSec),
		logging.Seconds("end_sec", report.Window().EndSec),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (a *Aligner) align(ctx context.Context, source, output string) (Report, error) {
	report := Report{Output: output}
	report.Source = source
	if strings.TrimSpace(output) == "" {
		return report, services.Wrap(services.ErrConfiguration, "align", "plan output", "output path is empty", nil)
	}
	if samePath(source, output) {
		return report, services.Wrap(services.ErrConfiguration, "align", "plan output",
			"output would overwrite the source", nil)
	}

	analysis, err := a.Analyze(ctx, source)
	report.Analysis = analysis
	if err != nil {
		return report, err
	}

	trimCtx := services.WithStage(ctx, "trim")
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return report, services.Wrap(services.ErrConfiguration, "align", "trim", "create output directory", err)
	}
	window := analysis.Window()
	if err := a.media.Trim(trimCtx, source, output, window.StartSec, window.EndSec); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		return report, services.Wrap(services.ErrExternalTool, "align", "trim", "", err)
	}
	return report, nil
}

// ValidateWindow checks that window is well formed and lies within a capture
// of captureSec seconds.
func ValidateWindow(window detect.Result, captureSec float64) error {
	if err := window.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "align", "validate window", "", err)
	}
	if window.StartSec < 0 {
		return services.Wrap(services.ErrValidation, "align", "validate window",
			fmt.Sprintf("start %.6fs is before the capture", window.StartSec), detect.ErrInvalidCropWindow)
	}
	if window.EndSec > captureSec {
		return services.Wrap(services.ErrValidation, "align", "validate window",
			fmt.Sprintf("end %.6fs is past the %.6fs capture", window.EndSec, captureSec), detect.ErrInvalidCropWindow)
	}
	return nil
}

func (a *Aligner) checkSource(ctx context.Context, source string) error {
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "align", "probe", "source does not exist", err)
		}
		return services.Wrap(services.ErrValidation, "align", "probe", "stat source", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "align", "probe", "source is a directory", nil)
	}
	if a.probe == nil {
		return nil
	}
	probe, err := a.probe.Inspect(services.WithStage(ctx, "probe"), source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrExternalTool, "align", "probe", "", err)
	}
	if probe.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "align", "probe", "source has no audio stream", nil)
	}
	logging.WithContext(ctx, a.logger).Debug("source probed",
		logging.String("format", probe.Format.FormatName),
		logging.Int("video_streams", probe.VideoStreamCount()),
		logging.Int("audio_streams", probe.AudioStreamCount()),
		logging.Float64("duration_sec", probe.DurationSeconds()),
	)
	return nil
}

func (a *Aligner) extract(ctx context.Context, source string) (string, error) {
	if err := os.MkdirAll(a.opts.WorkDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "align", "extract", "create work directory", err)
	}
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	audioPath := filepath.Join(a.opts.WorkDir, fmt.Sprintf("%s.%s.wav", stem, uuid.NewString()[:8]))
	if err := a.media.ExtractAudio(ctx, source, audioPath, a.opts.SampleRate); err != nil {
		_ = os.Remove(audioPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrExternalTool, "align", "extract", "", err)
	}
	return audioPath, nil
}

func (a *Aligner) record(ctx context.Context, report Report, alignErr error) {
	if a.ledger == nil {
		return
	}
	entry := ledger.Entry{
		SourcePath: absPath(report.Source),
		OutputPath: absPath(report.Output),
	}
	if id, ok := services.RunIDFromContext(ctx); ok {
		entry.RunID = id
	}
	if alignErr != nil {
		entry.Status = ledger.StatusFailed
		entry.ErrorKind = string(services.KindOf(alignErr))
		entry.ErrorMessage = alignErr.Error()
	} else {
		window := report.Window()
		entry.Status = ledger.StatusAligned
		entry.Method = string(window.Method)
		entry.StartSec = window.StartSec
		entry.EndSec = window.EndSec
	}
	// A cancelled run still gets its row.
	recordCtx := context.WithoutCancel(ctx)
	if err := a.ledger.Record(recordCtx, entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "failed to record alignment outcome", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ledger_path permissions"),
			logging.String(logging.FieldImpact, "batch skip_existing will not see this file"),
		)
	}
}

func withSource(ctx context.Context, source string) context.Context {
	if existing, ok := services.SourceFromContext(ctx); ok && existing == source {
		return ctx
	}
	return services.WithSource(ctx, source)
}

func samePath(a, b string) bool {
	return absPath(a) == absPath(b)
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
