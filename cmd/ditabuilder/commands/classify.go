package commands

import (
	"io"
	"os"

	"git.home.luguber.info/inful/ditabuilder/internal/config"
	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/report"
)

// ClassifyCmd implements the 'classify' command.
type ClassifyCmd struct {
	File      string   `arg:"" help:"Transcript file to classify, or - for stdin"`
	Prefix    []string `help:"Additional message-code prefix; repeatable"`
	ErrorTail int      `name:"error-tail" help:"Number of error lines to keep" default:"5"`
	Format    string   `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
}

func (c *ClassifyCmd) Run(g *Global, root *CLI) error {
	prefixes := c.Prefix
	if cfg, err := loadConfig(root); err == nil {
		prefixes = append(prefixes, cfg.Diagnostics.Prefixes...)
	}
	classifier, err := newClassifier(&config.Config{Diagnostics: config.DiagnosticsConfig{Prefixes: prefixes}})
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return errors.WrapError(err, errors.CategoryNotFound, "transcript not readable").
				WithContext("path", c.File).Build()
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	lines, err := diagnostics.ReadTranscript(r)
	if err != nil {
		return errors.FileSystemError("read transcript").WithCause(err).Build()
	}

	summary := diagnostics.SummarizeTranscript(lines, classifier, c.ErrorTail)
	return report.NewFormatter(c.Format).FormatSummary(g.Stdout, c.File, summary)
}
