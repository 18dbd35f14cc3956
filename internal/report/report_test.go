package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/integrity"
	"git.home.luguber.info/inful/ditabuilder/internal/toolkit"
	"git.home.luguber.info/inful/ditabuilder/internal/transform"
)

func sampleResults() []*transform.Result {
	return []*transform.Result{
		{
			ID:          "a",
			Transtype:   "html5",
			OutputDir:   "/out/html5",
			Duration:    1500 * time.Millisecond,
			Attempts:    1,
			Status:      toolkit.ExitStatus{Kind: toolkit.StatusSuccess},
			Summary:     diagnostics.Summary{Lines: 10, Stage: diagnostics.StageComplete},
			OutputFiles: []string{"index.html"},
		},
		{
			ID:        "b",
			Transtype: "pdf",
			OutputDir: "/out/pdf",
			Attempts:  2,
			Status:    toolkit.ExitStatus{Kind: toolkit.StatusFailed, Code: 1, Tail: []string{"BUILD FAILED"}},
			Summary: diagnostics.Summary{
				Errors:     1,
				Stage:      diagnostics.StageRendering,
				LastErrors: []string{"[DOTX012E] missing topic"},
			},
		},
	}
}

func sampleCheck() *integrity.CheckResult {
	return &integrity.CheckResult{
		Root:      "/docs/root.ditamap",
		Documents: []string{"/docs/root.ditamap", "/docs/a.dita"},
		Broken: []integrity.LinkRecord{
			{Source: "/docs/a.dita", Line: 4, Element: "xref", Attribute: "href", Kind: integrity.KindXref,
				Target: "missing.dita", Outcome: integrity.OutcomeBroken, Detail: "file not found"},
		},
		Counts: integrity.Counts{Total: 3, InternalValid: 2, InternalBroken: 1},
	}
}

func TestTextFormatter_Transform(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter().FormatTransform(&buf, sampleResults()))
	out := buf.String()

	assert.Contains(t, out, "✓ html5")
	assert.Contains(t, out, "✗ pdf  failed (exit code 1)")
	assert.Contains(t, out, "(1 file)")
	assert.Contains(t, out, "2 attempts")
	assert.Contains(t, out, "[DOTX012E] missing topic")
	assert.NotContains(t, out, "| BUILD FAILED", "tail is only shown when no structured error exists")
	assert.Contains(t, out, "1 of 2 transformations failed")
}

func TestTextFormatter_TransformShowsTailWithoutStructuredErrors(t *testing.T) {
	res := sampleResults()[1]
	res.Summary.Errors = 0
	res.Summary.LastErrors = nil

	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter().FormatTransform(&buf, []*transform.Result{res}))
	assert.Contains(t, buf.String(), "| BUILD FAILED")
}

func TestTextFormatter_Check(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter().FormatCheck(&buf, sampleCheck(), true))
	out := buf.String()

	assert.Contains(t, out, "✗ /docs/a.dita")
	assert.Contains(t, out, `xref:4 href="missing.dita" (xref)`)
	assert.Contains(t, out, "internal: 2 valid, 1 broken")
	assert.Contains(t, out, "❌ 1 broken reference.")

	buf.Reset()
	require.NoError(t, NewTextFormatter().FormatCheck(&buf, sampleCheck(), false))
	assert.Contains(t, buf.String(), "(not failing)")
}

func TestTextFormatter_CheckClean(t *testing.T) {
	res := &integrity.CheckResult{Root: "r", Counts: integrity.Counts{Total: 1, InternalValid: 1}}
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter().FormatCheck(&buf, res, true))
	assert.Contains(t, buf.String(), "All references resolve")
}

func TestTextFormatter_Summary(t *testing.T) {
	s := diagnostics.Summary{
		Lines: 3, Errors: 1, Stage: diagnostics.StagePreprocessing,
		StageHistory: []diagnostics.StageEvent{{Stage: diagnostics.StageInitializing}, {Stage: diagnostics.StagePreprocessing}},
		LastErrors:   []string{"[DOTJ013E] boom"},
	}
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter().FormatSummary(&buf, "build.log", s))
	out := buf.String()
	assert.Contains(t, out, "Transcript: build.log")
	assert.Contains(t, out, "[2/9] Preprocessing")
	assert.Contains(t, out, "[DOTJ013E] boom")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().FormatTransform(&buf, sampleResults()))

	var out struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
		Results   []struct {
			Transtype string `json:"transtype"`
			Status    struct {
				Kind string `json:"kind"`
			} `json:"status"`
			Summary struct {
				Stage string `json:"stage"`
			} `json:"summary"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 1, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "failed", out.Results[1].Status.Kind)
	assert.Equal(t, diagnostics.StageRendering.String(), out.Results[1].Summary.Stage)

	buf.Reset()
	require.NoError(t, NewJSONFormatter().FormatCheck(&buf, sampleCheck(), true))
	var check map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &check))
	assert.Equal(t, false, check["passed"])
	assert.Equal(t, "/docs/root.ditamap", check["root"])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestTextFormatter_PropagatesWriteErrors(t *testing.T) {
	err := NewTextFormatter().FormatCheck(failingWriter{}, sampleCheck(), true)
	require.Error(t, err)
}

func TestNewFormatter(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, NewFormatter("json"))
	assert.IsType(t, &TextFormatter{}, NewFormatter("text"))
	assert.IsType(t, &TextFormatter{}, NewFormatter(""))
}
