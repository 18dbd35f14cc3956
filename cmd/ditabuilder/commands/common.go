package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/ditabuilder/internal/config"
	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/events"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/history"
	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
	"git.home.luguber.info/inful/ditabuilder/internal/metrics"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"ditabuilder.yaml" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging, including unclassified toolkit output"`
	LogFormat string           `name:"log-format" help:"Log format (text or json)" default:"text" enum:"text,json"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Transform TransformCmd `cmd:"" help:"Run DITA-OT transformations"`
	Check     CheckCmd     `cmd:"" help:"Check references in a map or topic"`
	Install   InstallCmd   `cmd:"" help:"Install a plugin into the toolkit"`
	Classify  ClassifyCmd  `cmd:"" help:"Classify a saved toolkit transcript"`
	Classpath ClasspathCmd `cmd:"" help:"Print the classpath resolved from the toolkit installation"`
	History   HistoryCmd   `cmd:"" help:"Show recorded transform and check runs"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
	Ver       VersionCmd   `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	if g.Stderr == nil {
		g.Stderr = os.Stderr
	}
	if g.Stdout == nil {
		g.Stdout = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(g.Stderr, opts)
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(g.Stderr, opts)
	}
	g.Logger = slog.New(handler)
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig loads and normalizes the configuration file named by the global flag.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "load config").
			WithContext("path", root.Config).
			WithRemedy("run 'ditabuilder init' to create a configuration file").
			Build()
	}
	return cfg, nil
}

// newClassifier builds a classifier recognising the configured extra prefixes.
func newClassifier(cfg *config.Config) (*diagnostics.Classifier, error) {
	reg, err := diagnostics.NewRegistry(cfg.Diagnostics.Prefixes...)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid diagnostics prefix").Build()
	}
	return diagnostics.NewClassifier(reg), nil
}

// startMetrics returns a Prometheus recorder served on metrics.listen until ctx is done,
// or a no-op recorder when metrics are not configured.
func startMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) metrics.Recorder {
	if cfg.Metrics.Listen == "" {
		return metrics.NoopRecorder{}
	}
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Listen, reg); err != nil {
			logger.Warn("Metrics endpoint stopped", logfields.Error(err))
		}
	}()
	return rec
}

// openPublisher connects to NATS when events.nats_url is set.
func openPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.Events.NATSURL == "" {
		return events.NoopPublisher{}
	}
	pub, err := events.Connect(ctx, cfg.Events.NATSURL, cfg.Events.Subject)
	if err != nil {
		logger.Warn("Event publishing disabled", logfields.Error(err))
		return events.NoopPublisher{}
	}
	return pub
}

// openHistory opens the run history when history.db is set. A nil store disables recording.
func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	if cfg.History.DB == "" {
		return nil
	}
	store, err := history.Open(cfg.History.DB)
	if err != nil {
		logger.Warn("Run history disabled", logfields.Path(cfg.History.DB), logfields.Error(err))
		return nil
	}
	return store
}

// sinks fans finished results out to the optional publisher and history store.
type sinks struct {
	publisher events.Publisher
	history   *history.Store
	logger    *slog.Logger
}

func openSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) *sinks {
	return &sinks{
		publisher: openPublisher(ctx, cfg, logger),
		history:   openHistory(cfg, logger),
		logger:    logger,
	}
}

func (s *sinks) Close() {
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("Closing publisher failed", logfields.Error(err))
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("Closing history failed", logfields.Error(err))
		}
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
