package report

import (
	"io"

	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/integrity"
	"git.home.luguber.info/inful/ditabuilder/internal/transform"
)

// Formatter writes reports to w.
type Formatter interface {
	FormatTransform(w io.Writer, results []*transform.Result) error
	FormatCheck(w io.Writer, result *integrity.CheckResult, failOnBroken bool) error
	FormatSummary(w io.Writer, source string, summary diagnostics.Summary) error
}

// NewFormatter creates the appropriate formatter based on format string.
func NewFormatter(format string) Formatter {
	switch format {
	case "json":
		return NewJSONFormatter()
	default:
		return NewTextFormatter()
	}
}

// pluralize returns "s" if count != 1, otherwise empty string.
func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
