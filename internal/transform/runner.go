package transform

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
	"git.home.luguber.info/inful/ditabuilder/internal/metrics"
	"git.home.luguber.info/inful/ditabuilder/internal/retry"
	"git.home.luguber.info/inful/ditabuilder/internal/toolkit"
)

// Options configures a Runner.
type Options struct {
	Classifier *diagnostics.Classifier
	ErrorTail  int
	// Progress receives rendered stage lines; nil disables progress output.
	Progress func(transtype, line string)
	// Retry wraps whole invocations. The zero policy runs each invocation once.
	Retry    retry.Policy
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Runner executes toolkit invocations and folds their output into Results.
// A Runner holds no per-invocation state and may run invocations in parallel.
type Runner struct {
	opts Options
}

// NewRunner creates a runner with opts, filling defaults.
func NewRunner(opts Options) *Runner {
	if opts.Classifier == nil {
		opts.Classifier = diagnostics.NewClassifier(nil)
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{opts: opts}
}

// WithRecorder sets the metrics recorder.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	if rec != nil {
		r.opts.Recorder = rec
	}
	return r
}

// Run performs one invocation. The error return is reserved for problems detected before
// the process starts; process failures are reported in the Result.
func (r *Runner) Run(ctx context.Context, spec toolkit.InvocationSpec) (*Result, error) {
	id := uuid.NewString()
	strategy := ""
	if spec.Strategy != nil {
		strategy = string(spec.Strategy.Kind())
	}
	log := r.opts.Logger.With(
		logfields.InvocationID(id),
		logfields.Transtype(spec.Transtype),
		logfields.Strategy(strategy))

	started := time.Now()
	exec, err := toolkit.Start(ctx, spec)
	if err != nil {
		return nil, err
	}
	log.Info("Toolkit started", slog.Any("args", exec.Args))

	var progress func(string)
	if r.opts.Progress != nil {
		transtype := spec.Transtype
		progress = func(line string) { r.opts.Progress(transtype, line) }
	}
	tracker := diagnostics.NewTracker(r.opts.Classifier, diagnostics.TrackerOptions{
		ErrorTail: r.opts.ErrorTail,
		Progress:  progress,
		Logger:    log,
		Recorder:  r.opts.Recorder,
	})
	for line := range exec.Lines() {
		tracker.Observe(line)
	}
	status := exec.Wait()

	res := &Result{
		ID:        id,
		Transtype: spec.Transtype,
		Strategy:  strategy,
		Inputs:    append([]string(nil), spec.Inputs...),
		OutputDir: spec.OutputDir,
		StartedAt: started,
		Duration:  status.Duration,
		Attempts:  1,
		Status:    status,
		Summary:   tracker.Summary(),
	}
	if spec.OutputDir != "" && status.Kind != toolkit.StatusStartFailed {
		res.OutputFiles = listOutputs(spec.OutputDir)
	}

	r.opts.Recorder.ObserveInvocationDuration(spec.Transtype, res.Duration)
	r.opts.Recorder.IncInvocationOutcome(spec.Transtype, res.Outcome())
	attrs := []any{
		slog.String("status", status.String()),
		logfields.ExitCode(status.Code),
		logfields.DurationMS(float64(res.Duration.Milliseconds())),
		logfields.Stage(res.Summary.Stage.String()),
		slog.Int("errors", res.Summary.Errors),
		slog.Int("warnings", res.Summary.Warnings),
	}
	if res.Succeeded() {
		log.Info("Toolkit finished", attrs...)
	} else {
		log.Error("Toolkit failed", append(attrs, logfields.Error(res.Err()))...)
	}
	return res, nil
}

// RunWithRetry runs spec under the configured retry policy. Only retryable results are
// repeated; the last Result is returned either way.
func (r *Runner) RunWithRetry(ctx context.Context, spec toolkit.InvocationSpec) (*Result, error) {
	res, err := retry.Do(ctx, r.opts.Retry, func(ctx context.Context, attempt int) (*Result, error) {
		if attempt > 1 {
			r.opts.Recorder.IncInvocationRetry(spec.Transtype)
		}
		res, err := r.Run(ctx, spec)
		if err != nil {
			return nil, err
		}
		res.Attempts = attempt
		if res.Retryable() {
			return res, res.Err()
		}
		return res, nil
	})
	if res != nil {
		return res, nil
	}
	return nil, err
}

// RunAll runs one invocation per transtype, at most parallel at a time, each writing to
// <OutputDir>/<transtype>. Every invocation runs to completion regardless of the others.
// Results keep the order of transtypes; an entry is nil when its invocation failed before
// starting, and the first such error is returned.
func (r *Runner) RunAll(ctx context.Context, base toolkit.InvocationSpec, transtypes []string, parallel int) ([]*Result, error) {
	results := make([]*Result, len(transtypes))
	var g errgroup.Group
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, tt := range transtypes {
		spec := base.WithTranstype(tt)
		g.Go(func() error {
			res, err := r.RunWithRetry(ctx, spec)
			results[i] = res
			return err
		})
	}
	return results, g.Wait()
}

// listOutputs returns the files below dir relative to it, sorted.
func listOutputs(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(dir, path); err == nil {
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(out)
	return out
}
