package report

import (
	"encoding/json"
	"io"

	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/integrity"
	"git.home.luguber.info/inful/ditabuilder/internal/transform"
)

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// TransformOutput is the JSON document for a transform run.
type TransformOutput struct {
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Results   []*transform.Result `json:"results"`
}

// CheckOutput is the JSON document for a check run.
type CheckOutput struct {
	Passed bool `json:"passed"`
	*integrity.CheckResult
}

// SummaryOutput is the JSON document for a classified transcript.
type SummaryOutput struct {
	Source  string              `json:"source"`
	Summary diagnostics.Summary `json:"summary"`
}

// FormatTransform outputs transform results in JSON format.
func (f *JSONFormatter) FormatTransform(w io.Writer, results []*transform.Result) error {
	out := TransformOutput{Results: make([]*transform.Result, 0, len(results))}
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Succeeded() {
			out.Succeeded++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, res)
	}
	return encode(w, out)
}

// FormatCheck outputs a check result in JSON format.
func (f *JSONFormatter) FormatCheck(w io.Writer, result *integrity.CheckResult, failOnBroken bool) error {
	return encode(w, CheckOutput{Passed: result.Passed(failOnBroken), CheckResult: result})
}

// FormatSummary outputs a transcript summary in JSON format.
func (f *JSONFormatter) FormatSummary(w io.Writer, source string, summary diagnostics.Summary) error {
	return encode(w, SummaryOutput{Source: source, Summary: summary})
}

func encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
