package commands

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/ditabuilder/internal/config"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/integrity"
	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
	"git.home.luguber.info/inful/ditabuilder/internal/report"
	"git.home.luguber.info/inful/ditabuilder/internal/watch"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Root          string `arg:"" optional:"" help:"Map or topic to start from (overrides check.root)" type:"path"`
	NoRecursive   bool   `name:"no-recursive" help:"Only check the root document"`
	FollowXrefs   bool   `name:"follow-xrefs" help:"Also follow xref, link and conref targets"`
	CheckExternal bool   `name:"external" help:"Probe http(s) references"`
	NoFail        bool   `name:"no-fail" help:"Exit 0 even when broken references are found"`
	Watch         bool   `short:"w" help:"Re-run the check whenever files below the root's directory change"`
	Format        string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadCheckConfig(root)
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)
	if cfg.Check.Root == "" {
		return errors.ValidationError("no document to check").
			WithRemedy("pass a map or topic path or set check.root").Build()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checker := newChecker(ctx, cfg, g)
	s := openSinks(ctx, cfg, g.Logger)
	defer s.Close()

	runOnce := func(ctx context.Context) error {
		return c.runOnce(ctx, g, cfg, checker, s)
	}
	if !c.Watch {
		return runOnce(ctx)
	}
	dir := filepath.Dir(cfg.Check.Root)
	g.Logger.Info("Watching for changes", logfields.Path(dir))
	return watch.Run(ctx, dir, watch.Options{Logger: g.Logger}, runOnce)
}

// loadCheckConfig loads the configuration file when present; check runs without one.
func loadCheckConfig(root *CLI) (*config.Config, error) {
	cfg, err := loadConfig(root)
	if err == nil {
		return cfg, nil
	}
	if fileExists(root.Config) {
		return nil, err
	}
	return config.Parse(nil)
}

func (c *CheckCmd) applyOverrides(cfg *config.Config) {
	if c.Root != "" {
		cfg.Check.Root = c.Root
	}
	if c.NoRecursive {
		f := false
		cfg.Check.Recursive = &f
	}
	if c.FollowXrefs {
		cfg.Check.FollowXrefs = true
	}
	if c.CheckExternal {
		cfg.Check.CheckExternal = true
	}
	if c.NoFail {
		f := false
		cfg.Check.FailOnBroken = &f
	}
}

func newChecker(ctx context.Context, cfg *config.Config, g *Global) *integrity.Checker {
	rec := startMetrics(ctx, cfg, g.Logger)
	prober := integrity.NewProber(integrity.ProberOptions{
		Timeout:   config.Duration(cfg.Check.ProbeTimeout, integrity.DefaultProbeTimeout),
		RateLimit: cfg.Check.RateLimit,
		CacheSize: cfg.Check.CacheSize,
		CacheTTL:  config.Duration(cfg.Check.CacheTTL, integrity.DefaultCacheTTL),
		Recorder:  rec,
	})
	return integrity.NewChecker(prober).WithRecorder(rec).WithLogger(g.Logger)
}

func (c *CheckCmd) runOnce(ctx context.Context, g *Global, cfg *config.Config, checker *integrity.Checker, s *sinks) error {
	started := time.Now()
	result, err := checker.Check(ctx, cfg.Check.Root, integrity.Options{
		Recursive:       cfg.Check.IsRecursive(),
		FollowCrossRefs: cfg.Check.FollowXrefs,
		CheckExternal:   cfg.Check.CheckExternal,
		Concurrency:     cfg.Check.Concurrency,
		Timeout:         config.Duration(cfg.Check.Timeout, 0),
	})
	if result == nil {
		return err
	}
	failOnBroken := cfg.Check.ShouldFailOnBroken()
	if ferr := report.NewFormatter(c.Format).FormatCheck(g.Stdout, result, failOnBroken); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}

	if perr := s.publisher.PublishCheck(ctx, result); perr != nil {
		g.Logger.Warn("Publishing broken references failed", logfields.Error(perr))
	}
	if s.history != nil {
		if herr := s.history.RecordCheck(ctx, result, failOnBroken, started); herr != nil {
			g.Logger.Warn("Recording check failed", logfields.Error(herr))
		}
	}

	if !result.Passed(failOnBroken) {
		return errors.NewError(errors.CategoryIntegrity, fmt.Sprintf("%d broken references", result.Counts.Broken())).
			WithContext("root", result.Root).
			WithRemedy("fix the reported targets or mark peer references with scope=\"peer\"").
			Build()
	}
	return nil
}
