package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"beaconsync/internal/align"
	"beaconsync/internal/config"
	"beaconsync/internal/detect"
	"beaconsync/internal/ledger"
	"beaconsync/internal/logging"
	"beaconsync/internal/services"
)

// ErrAborted is returned by Run when fail_fast stopped the batch early.
var ErrAborted = errors.New("batch aborted")

// reasonNotStarted marks jobs a canceled or aborted run never reached.
const reasonNotStarted = "not started"

// Aligner aligns one source. *align.Aligner satisfies it.
type Aligner interface {
	Align(ctx context.Context, source, output string) (align.Report, error)
}

// Lookup reads previous outcomes. *ledger.Store satisfies it.
type Lookup interface {
	Lookup(ctx context.Context, sourcePath string) (*ledger.Entry, error)
}

// Options configures a Runner.
type Options struct {
	Workers      int
	Extensions   []string
	OutputDir    string
	OutputSuffix string
	SkipExisting bool
	FailFast     bool
}

// OptionsFromConfig derives runner options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:      cfg.Batch.Workers,
		Extensions:   append([]string(nil), cfg.Batch.Extensions...),
		OutputDir:    cfg.Paths.OutputDir,
		OutputSuffix: cfg.Batch.OutputSuffix,
		SkipExisting: cfg.Batch.SkipExisting,
		FailFast:     cfg.Batch.FailFast,
	}
}

// Status is the per-file outcome of a batch.
type Status string

const (
	StatusAligned Status = "aligned"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// FileResult reports what happened to one job.
type FileResult struct {
	Job
	Status    Status         `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Window    *detect.Result `json:"window,omitempty"`
	ErrorKind services.Kind  `json:"error_kind,omitempty"`
	Err       error          `json:"-"`
	Elapsed   time.Duration  `json:"elapsed"`
}

// Summary aggregates a batch run. Results follow discovery order.
type Summary struct {
	RunID   string        `json:"run_id"`
	Root    string        `json:"root"`
	Total   int           `json:"total"`
	Aligned int           `json:"aligned"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
	Results []FileResult  `json:"results"`
	Elapsed time.Duration `json:"elapsed"`
}

// Runner processes a directory tree.
type Runner struct {
	opts    Options
	aligner Aligner
	ledger  Lookup
	logger  *slog.Logger
}

// NewRunner builds a Runner. ledger may be nil, which disables skipping on
// previous outcomes.
func NewRunner(opts Options, aligner Aligner, ledger Lookup, logger *slog.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		opts:    opts,
		aligner: aligner,
		ledger:  ledger,
		logger:  logging.NewComponentLogger(logger, "batch"),
	}
}

// Run aligns every planned job under root. The returned error is non-nil
// only when planning fails or fail_fast aborted the run; per-file failures
// are reported in the summary.
func (r *Runner) Run(ctx context.Context, root string) (Summary, error) {
	started := time.Now()
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	logger := logging.WithContext(ctx, r.logger)
	summary := Summary{RunID: runID, Root: root}

	abs, err := filepath.Abs(root)
	if err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "batch", "resolve root", "", err)
	}
	root = abs
	summary.Root = root
	jobs, err := Plan(root, r.opts)
	if err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "batch", "plan", "", err)
	}
	summary.Total = len(jobs)
	summary.Results = make([]FileResult, len(jobs))
	logger.Info("batch started",
		logging.String("root", root),
		logging.Int("files", len(jobs)),
		logging.Int("workers", r.opts.Workers),
	)

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		mu      sync.Mutex
		done    int
		sampler = logging.NewProgressSampler(10)
		indices = make(chan int)
		wg      sync.WaitGroup
	)
	for range r.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				res := r.process(runCtx, jobs[i])
				mu.Lock()
				summary.Results[i] = res
				done++
				if sampler.ShouldLog(done, len(jobs)) {
					logger.Info("batch progress",
						logging.String("progress", fmt.Sprintf("%d/%d", done, len(jobs))),
						logging.String("last", res.Source),
						logging.String("last_status", string(res.Status)),
					)
				}
				mu.Unlock()
				if res.Status == StatusFailed && r.opts.FailFast {
					cancel(fmt.Errorf("%w: %s: %w", ErrAborted, res.Source, res.Err))
				}
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case indices <- i:
		case <-runCtx.Done():
			break feed
		}
	}
	close(indices)
	wg.Wait()

	abortErr := context.Cause(runCtx)
	for i := range summary.Results {
		res := &summary.Results[i]
		if res.Status == "" {
			res.Job = jobs[i]
			res.Status = StatusSkipped
			res.Reason = reasonNotStarted
		}
		switch res.Status {
		case StatusAligned:
			summary.Aligned++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
	}
	summary.Elapsed = time.Since(started)

	logger.Info("batch finished",
		logging.Int("aligned", summary.Aligned),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed),
	)

	if errors.Is(abortErr, ErrAborted) {
		logging.WarnWithContext(logger, "batch aborted after a failure", "batch_aborted",
			logging.Alert("fail_fast"),
			logging.Error(abortErr),
			logging.String(logging.FieldImpact, fmt.Sprintf("%d recordings not started", countReason(summary.Results, reasonNotStarted))),
		)
		return summary, abortErr
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func countReason(results []FileResult, reason string) int {
	var n int
	for _, res := range results {
		if res.Reason == reason {
			n++
		}
	}
	return n
}

func (r *Runner) process(ctx context.Context, job Job) FileResult {
	res := FileResult{Job: job}
	ctx = services.WithSource(ctx, job.Source)
	logger := logging.WithContext(ctx, r.logger)

	if err := ctx.Err(); err != nil {
		res.Status = StatusSkipped
		res.Reason = reasonNotStarted
		return res
	}
	if reason, skip := r.shouldSkip(ctx, job); skip {
		logger.Info("source skipped", logging.Args(logging.DecisionAttrs("skip", "skipped", reason)...)...)
		res.Status = StatusSkipped
		res.Reason = reason
		return res
	}

	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		res.Status = StatusFailed
		res.Err = services.Wrap(services.ErrConfiguration, "batch", "create output directory", "", err)
		res.ErrorKind = services.KindOf(res.Err)
		res.Reason = res.Err.Error()
		return res
	}
	lock := flock.New(job.Output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		res.Status = StatusFailed
		res.Err = services.Wrap(services.ErrConfiguration, "batch", "lock output", "", err)
		res.ErrorKind = services.KindOf(res.Err)
		res.Reason = res.Err.Error()
		return res
	}
	if !locked {
		res.Status = StatusSkipped
		res.Reason = "output locked by another process"
		logger.Info("source skipped", logging.Args(logging.DecisionAttrs("skip", "skipped", res.Reason)...)...)
		return res
	}
	// The lock file stays on disk. Removing it would let a later process
	// lock a fresh inode while another still holds the old one.
	defer func() { _ = lock.Unlock() }()

	report, err := r.aligner.Align(ctx, job.Source, job.Output)
	res.Elapsed = report.Elapsed
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		res.ErrorKind = services.KindOf(err)
		res.Reason = err.Error()
		logging.ErrorWithContext(logger, "alignment failed", "alignment_failed",
			logging.Error(err),
			logging.String("error_kind", string(res.ErrorKind)),
		)
		return res
	}
	window := report.Window()
	res.Status = StatusAligned
	res.Window = &window
	return res
}

func (r *Runner) shouldSkip(ctx context.Context, job Job) (string, bool) {
	if !r.opts.SkipExisting || r.ledger == nil {
		return "", false
	}
	if _, err := os.Stat(job.Output); err != nil {
		return "", false
	}
	entry, err := r.ledger.Lookup(ctx, job.Source)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "ledger lookup failed", "ledger_read_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "source will be aligned again"),
		)
		return "", false
	}
	if entry == nil || entry.Status != ledger.StatusAligned || entry.OutputPath != job.Output {
		return "", false
	}
	return "already aligned", true
}
