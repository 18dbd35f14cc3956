package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/ditabuilder/internal/retry"
	"git.home.luguber.info/inful/ditabuilder/internal/toolkit"
	"git.home.luguber.info/inful/ditabuilder/internal/transform"
)

// InstallCmd implements the 'install' command.
type InstallCmd struct {
	Plugin string `arg:"" help:"Plugin ID, file or URL to install"`
}

func (i *InstallCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := cfg.ValidateToolkit(); err != nil {
		return err
	}
	strategy, err := toolkit.SelectStrategy(cfg.Toolkit)
	if err != nil {
		return err
	}
	classifier, err := newClassifier(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := transform.NewRunner(transform.Options{
		Classifier: classifier,
		ErrorTail:  cfg.Diagnostics.ErrorTail,
		Retry:      retry.FromConfig(cfg.Retry),
		Recorder:   startMetrics(ctx, cfg, g.Logger),
		Logger:     g.Logger,
	})
	res, err := runner.RunWithRetry(ctx, toolkit.InstallSpec(cfg.Toolkit.Home, strategy, i.Plugin))
	if err != nil {
		return err
	}
	if !res.Succeeded() {
		for _, line := range res.Status.Tail {
			printf(g.Stderr, "| %s\n", line)
		}
		return res.Err()
	}
	printf(g.Stdout, "Installed %s\n", i.Plugin)
	return nil
}
