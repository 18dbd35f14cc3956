package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/integrity"
	"git.home.luguber.info/inful/ditabuilder/internal/transform"
)

var separator = strings.Repeat("━", 60)

// TextFormatter formats results as human-readable text.
type TextFormatter struct{}

// NewTextFormatter creates a text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// FormatTransform prints one block per invocation followed by a totals line.
func (f *TextFormatter) FormatTransform(w io.Writer, results []*transform.Result) error {
	p := &printer{w: w}
	p.line(separator)
	failed := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		icon := "✓"
		if !res.Succeeded() {
			icon = "✗"
			failed++
		}
		p.linef("%s %s  %s  (%s, %d attempt%s)", icon, res.Transtype, res.Status.String(),
			roundDuration(res.Duration), res.Attempts, pluralize(res.Attempts))
		p.linef("  output:  %s (%d file%s)", res.OutputDir, len(res.OutputFiles), pluralize(len(res.OutputFiles)))
		p.linef("  stage:   %s", res.Summary.Stage)
		p.linef("  diagnostics: %d error%s, %d warning%s", res.Summary.Errors, pluralize(res.Summary.Errors),
			res.Summary.Warnings, pluralize(res.Summary.Warnings))
		for _, msg := range res.Summary.LastErrors {
			p.linef("    %s", msg)
		}
		if !res.Succeeded() && res.Summary.Errors == 0 {
			for _, tail := range res.Status.Tail {
				p.linef("    | %s", tail)
			}
		}
		p.blank()
	}
	p.line(separator)
	if failed == 0 {
		p.linef("✨ %d transformation%s succeeded.", len(results), pluralize(len(results)))
	} else {
		p.linef("❌ %d of %d transformation%s failed.", failed, len(results), pluralize(len(results)))
	}
	return p.err
}

// FormatCheck prints broken references grouped by source document, then the counts.
func (f *TextFormatter) FormatCheck(w io.Writer, result *integrity.CheckResult, failOnBroken bool) error {
	p := &printer{w: w}
	p.linef("Checking references from: %s", result.Root)
	p.line(separator)
	p.blank()

	var current string
	for _, rec := range result.Broken {
		if rec.Source != current {
			if current != "" {
				p.blank()
			}
			current = rec.Source
			p.linef("✗ %s", rec.Source)
		}
		location := ""
		if rec.Line > 0 {
			location = fmt.Sprintf(":%d", rec.Line)
		}
		p.linef("  %s%s %s=%q (%s)", rec.Element, location, rec.Attribute, rec.Target, rec.Kind)
		if rec.Detail != "" {
			p.linef("    %s", rec.Detail)
		}
	}
	if len(result.Broken) > 0 {
		p.blank()
	}
	for _, de := range result.DocumentErrors {
		p.linef("⚠ %s", de.Path)
		p.linef("  %s", de.Message)
	}
	if len(result.DocumentErrors) > 0 {
		p.blank()
	}

	c := result.Counts
	p.line(separator)
	p.linef("%d document%s, %d reference%s in %s", len(result.Documents), pluralize(len(result.Documents)),
		c.Total, pluralize(c.Total), roundDuration(result.Duration))
	p.linef("  internal: %d valid, %d broken", c.InternalValid, c.InternalBroken)
	p.linef("  external: %d valid, %d broken, %d skipped", c.ExternalValid, c.ExternalBroken, c.ExternalSkipped)
	if c.PeerSkipped > 0 {
		p.linef("  %d peer reference%s skipped", c.PeerSkipped, pluralize(c.PeerSkipped))
	}
	if c.KeySkipped > 0 {
		p.linef("  %d key reference%s skipped", c.KeySkipped, pluralize(c.KeySkipped))
	}
	p.blank()

	switch {
	case c.Broken() == 0:
		p.line("✨ All references resolve.")
	case result.Passed(failOnBroken):
		p.linef("⚠️  %d broken reference%s (not failing).", c.Broken(), pluralize(c.Broken()))
	default:
		p.linef("❌ %d broken reference%s.", c.Broken(), pluralize(c.Broken()))
	}
	return p.err
}

// FormatSummary prints a classified transcript.
func (f *TextFormatter) FormatSummary(w io.Writer, source string, s diagnostics.Summary) error {
	p := &printer{w: w}
	p.linef("Transcript: %s", source)
	p.line(separator)
	p.linef("  %d line%s, last stage %s", s.Lines, pluralize(s.Lines), s.Stage)
	p.linef("  %d error%s (%d fatal), %d warning%s, %d info, %d unclassified",
		s.Errors, pluralize(s.Errors), s.Fatal, s.Warnings, pluralize(s.Warnings), s.Info, s.Unclassified)
	for _, ev := range s.StageHistory {
		p.linef("  [%d/%d] %s", ev.Stage.Index(), diagnostics.TotalStages, ev.Stage)
	}
	if len(s.LastErrors) > 0 {
		p.blank()
		p.line("Last errors:")
		for _, msg := range s.LastErrors {
			p.linef("  %s", msg)
		}
	}
	return p.err
}

// printer remembers the first write error so the formatters stay linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) linef(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) blank() { p.line("") }

func roundDuration(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(10 * time.Millisecond)
	}
	return d.Round(time.Millisecond)
}
