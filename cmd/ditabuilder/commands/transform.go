package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/ditabuilder/internal/config"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
	"git.home.luguber.info/inful/ditabuilder/internal/report"
	"git.home.luguber.info/inful/ditabuilder/internal/retry"
	"git.home.luguber.info/inful/ditabuilder/internal/toolkit"
	"git.home.luguber.info/inful/ditabuilder/internal/transform"
)

// TransformCmd implements the 'transform' command.
type TransformCmd struct {
	Inputs     []string          `arg:"" optional:"" help:"Maps or topics to transform (overrides transform.inputs)" type:"path"`
	Transtypes []string          `short:"t" name:"transtype" help:"Transformation type; repeatable (overrides transform.transtypes)"`
	Output     string            `short:"o" help:"Output directory (overrides transform.output_dir)" type:"path"`
	Property   map[string]string `short:"D" help:"Extra toolkit property as key=value; repeatable"`
	Parallel   int               `short:"p" help:"Maximum concurrent invocations (overrides transform.parallel)"`
	Timeout    time.Duration     `help:"Deadline per invocation (overrides transform.timeout)"`
	Progress   bool              `help:"Print stage progress lines"`
	Format     string            `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
}

func (t *TransformCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	t.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	results, err := RunTransform(ctx, g, cfg)
	if results == nil {
		return err
	}
	if ferr := report.NewFormatter(t.Format).FormatTransform(g.Stdout, results); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}
	return firstFailure(results)
}

func (t *TransformCmd) applyOverrides(cfg *config.Config) {
	if len(t.Inputs) > 0 {
		cfg.Transform.Inputs = t.Inputs
	}
	if len(t.Transtypes) > 0 {
		cfg.Transform.Transtypes = t.Transtypes
	}
	if t.Output != "" {
		cfg.Transform.OutputDir = t.Output
	}
	if len(t.Property) > 0 {
		if cfg.Transform.Properties == nil {
			cfg.Transform.Properties = map[string]string{}
		}
		for k, v := range t.Property {
			cfg.Transform.Properties[k] = v
		}
	}
	if t.Parallel > 0 {
		cfg.Transform.Parallel = t.Parallel
	}
	if t.Timeout > 0 {
		cfg.Transform.Timeout = t.Timeout.String()
	}
	if t.Progress {
		cfg.Diagnostics.Progress = true
	}
}

// RunTransform runs every configured transtype and hands the results to the configured
// publisher and history store. Results are returned even when some invocations failed.
func RunTransform(ctx context.Context, g *Global, cfg *config.Config) ([]*transform.Result, error) {
	strategy, err := toolkit.SelectStrategy(cfg.Toolkit)
	if err != nil {
		return nil, err
	}
	classifier, err := newClassifier(cfg)
	if err != nil {
		return nil, err
	}

	opts := transform.Options{
		Classifier: classifier,
		ErrorTail:  cfg.Diagnostics.ErrorTail,
		Retry:      retry.FromConfig(cfg.Retry),
		Recorder:   startMetrics(ctx, cfg, g.Logger),
		Logger:     g.Logger,
	}
	if cfg.Diagnostics.Progress {
		opts.Progress = func(transtype, line string) {
			printf(g.Stderr, "%s %s\n", transtype, line)
		}
	}
	runner := transform.NewRunner(opts)

	base := toolkit.InvocationSpec{
		ToolHome:   cfg.Toolkit.Home,
		Strategy:   strategy,
		Inputs:     cfg.Transform.Inputs,
		OutputDir:  cfg.Transform.OutputDir,
		TempDir:    cfg.Transform.TempDir,
		FilterFile: cfg.Transform.Filter,
		Properties: cfg.Transform.Properties,
		Timeout:    config.Duration(cfg.Transform.Timeout, 0),
	}
	g.Logger.Info("Starting transformations",
		logfields.Strategy(string(strategy.Kind())),
		logfields.Path(cfg.Transform.OutputDir),
		"transtypes", cfg.Transform.Transtypes)

	results, runErr := runner.RunAll(ctx, base, cfg.Transform.Transtypes, cfg.Transform.Parallel)

	s := openSinks(ctx, cfg, g.Logger)
	defer s.Close()
	for _, res := range results {
		if res == nil {
			continue
		}
		if err := s.publisher.PublishTransform(ctx, res); err != nil {
			g.Logger.Warn("Publishing result failed", logfields.InvocationID(res.ID), logfields.Error(err))
		}
		if s.history != nil {
			if err := s.history.RecordTransform(ctx, res); err != nil {
				g.Logger.Warn("Recording result failed", logfields.InvocationID(res.ID), logfields.Error(err))
			}
		}
	}
	return results, runErr
}

// firstFailure returns the error of the first unsuccessful result.
func firstFailure(results []*transform.Result) error {
	failed := 0
	var first error
	for _, res := range results {
		if res == nil || res.Succeeded() {
			continue
		}
		failed++
		if first == nil {
			first = res.Err()
		}
	}
	if first == nil {
		return nil
	}
	if c, ok := errors.AsClassified(first); ok && failed > 1 {
		return c.WithContext("failed_invocations", failed)
	}
	return first
}
