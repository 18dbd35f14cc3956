package commands

import (
	"context"
	"encoding/json"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Kind    string        `help:"Only show transform or check runs (all, transform or check)" enum:"all,transform,check" default:"all"`
	Subject string        `short:"s" help:"Only show runs for this transtype or root document"`
	Since   time.Duration `help:"Only show runs started within this duration"`
	Limit   int           `short:"n" help:"Maximum number of runs to show" default:"20"`
	Prune   time.Duration `help:"Delete runs older than this duration before listing"`
	Format  string        `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.History.DB == "" {
		return errors.ConfigError("run history is not enabled").
			WithRemedy("set history.db in the configuration file").Build()
	}
	store, err := history.Open(cfg.History.DB)
	if err != nil {
		return errors.WrapError(err, errors.CategoryHistory, "open run history").
			WithContext("path", cfg.History.DB).Build()
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.Prune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-h.Prune))
		if err != nil {
			return errors.WrapError(err, errors.CategoryHistory, "prune run history").Build()
		}
		g.Logger.Info("Pruned run history", "removed", n)
	}

	q := history.Query{Subject: h.Subject, Limit: h.Limit}
	if h.Kind != "all" {
		q.Kind = history.Kind(h.Kind)
	}
	if h.Since > 0 {
		q.Since = time.Now().Add(-h.Since)
	}
	entries, err := store.List(ctx, q)
	if err != nil {
		return errors.WrapError(err, errors.CategoryHistory, "list run history").Build()
	}

	if h.Format == "json" {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	printf(tw, "STARTED\tKIND\tSUBJECT\tSTATUS\tERRORS\tDURATION\n")
	for _, e := range entries {
		printf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.StartedAt.Format(time.DateTime), e.Kind, e.Subject, e.Status, e.Errors, e.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}
