package transform

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ditabuilder/internal/config"
	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/retry"
	"git.home.luguber.info/inful/ditabuilder/internal/toolkit"
)

// transcriptLauncher prints a canned transcript, writes one output file per run into
// the --output directory and exits with $FAKE_EXIT. $FAKE_COUNTER, when set, names a
// file that receives one line per run.
const transcriptLauncher = `#!/bin/sh
out=""
fmt=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output) out="$2"; shift ;;
    --format) fmt="$2"; shift ;;
  esac
  shift
done
[ -n "$FAKE_COUNTER" ] && echo run >> "$FAKE_COUNTER"
echo "preprocess:"
echo "[DOTJ031I] info"
echo "[DOTX023W] warn" 1>&2
echo "Processing file:/x/error-messages.xml to file:/y/out.xml"
if [ -n "$FAKE_ERROR" ]; then echo "[DOTJ013E] err"; fi
echo "html5.topic:"
mkdir -p "$out/topics"
echo "<html/>" > "$out/index-$fmt.html"
echo "<html/>" > "$out/topics/a.html"
exit ${FAKE_EXIT:-0}
`

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake launcher scripts require a POSIX shell")
	}
}

func newSpec(t *testing.T) toolkit.InvocationSpec {
	t.Helper()
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "bin", "dita"), []byte(transcriptLauncher), 0o755))
	input := filepath.Join(t.TempDir(), "guide.ditamap")
	require.NoError(t, os.WriteFile(input, []byte("<map/>"), 0o600))

	strategy, err := toolkit.SelectStrategy(config.ToolkitConfig{Home: home, Strategy: config.StrategyScript})
	require.NoError(t, err)
	return toolkit.InvocationSpec{
		ToolHome:  home,
		Strategy:  strategy,
		Inputs:    []string{input},
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Transtype: "html5",
	}
}

func TestRunEndToEnd(t *testing.T) {
	skipOnWindows(t)
	t.Setenv("FAKE_ERROR", "1")
	spec := newSpec(t)

	var mu sync.Mutex
	var progress []string
	r := NewRunner(Options{Progress: func(tt, line string) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, tt+" "+line)
	}})

	res, err := r.Run(context.Background(), spec)
	require.NoError(t, err)

	assert.True(t, res.Succeeded())
	assert.Equal(t, toolkit.StatusSuccess, res.Status.Kind)
	assert.Equal(t, 1, res.Summary.Errors)
	assert.Equal(t, 1, res.Summary.Warnings)
	assert.Equal(t, []string{"[DOTJ013E] err"}, res.Summary.LastErrors)
	assert.Equal(t, diagnostics.StageRendering, res.Summary.Stage)
	assert.Equal(t, []string{"index-html5.html", "topics/a.html"}, res.OutputFiles)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "script", res.Strategy)
	assert.Len(t, progress, 2)
	assert.NoError(t, res.Err())
}

func TestRunFailureIsReportedInResult(t *testing.T) {
	skipOnWindows(t)
	t.Setenv("FAKE_EXIT", "1")
	t.Setenv("FAKE_ERROR", "1")

	res, err := NewRunner(Options{}).Run(context.Background(), newSpec(t))
	require.NoError(t, err)
	assert.Equal(t, toolkit.StatusFailed, res.Status.Kind)
	assert.False(t, res.Retryable(), "structured errors mean a rerun will fail the same way")

	rerr := res.Err()
	require.Error(t, rerr)
	assert.True(t, errors.HasCategory(rerr, errors.CategoryToolkit))
	assert.Contains(t, rerr.Error(), "exit code 1")
	ce, ok := errors.AsClassified(rerr)
	require.True(t, ok)
	assert.NotEmpty(t, ce.Remedy())
}

func TestRunConfigErrorBeforeStart(t *testing.T) {
	spec := toolkit.InvocationSpec{ToolHome: filepath.Join(t.TempDir(), "missing"), Strategy: toolkit.HostExec{Command: "true"}}
	res, err := NewRunner(Options{}).Run(context.Background(), spec)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestRunWithRetryRepeatsUnstructuredFailures(t *testing.T) {
	skipOnWindows(t)
	counter := filepath.Join(t.TempDir(), "runs")
	t.Setenv("FAKE_COUNTER", counter)
	t.Setenv("FAKE_EXIT", "2")

	policy := retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	res, err := NewRunner(Options{Retry: policy}).RunWithRetry(context.Background(), newSpec(t))
	require.NoError(t, err)
	assert.Equal(t, toolkit.StatusFailed, res.Status.Kind)
	assert.Equal(t, 3, res.Attempts)

	data, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, "run\nrun\nrun\n", string(data))
}

func TestRunWithRetryStopsOnStructuredErrors(t *testing.T) {
	skipOnWindows(t)
	counter := filepath.Join(t.TempDir(), "runs")
	t.Setenv("FAKE_COUNTER", counter)
	t.Setenv("FAKE_EXIT", "2")
	t.Setenv("FAKE_ERROR", "1")

	policy := retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	res, err := NewRunner(Options{Retry: policy}).RunWithRetry(context.Background(), newSpec(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)

	data, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, "run\n", string(data))
}

func TestRunAllWritesPerTranstype(t *testing.T) {
	skipOnWindows(t)
	spec := newSpec(t)

	results, err := NewRunner(Options{}).RunAll(context.Background(), spec, []string{"html5", "pdf", "markdown"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, tt := range []string{"html5", "pdf", "markdown"} {
		require.NotNil(t, results[i])
		assert.Equal(t, tt, results[i].Transtype)
		assert.Equal(t, filepath.Join(spec.OutputDir, tt), results[i].OutputDir)
		assert.FileExists(t, filepath.Join(spec.OutputDir, tt, "index-"+tt+".html"))
		assert.True(t, results[i].Succeeded())
	}
}

func TestResultRetryable(t *testing.T) {
	tests := []struct {
		name   string
		res    Result
		expect bool
	}{
		{"success", Result{Status: toolkit.ExitStatus{Kind: toolkit.StatusSuccess}}, false},
		{"start failed", Result{Status: toolkit.ExitStatus{Kind: toolkit.StatusStartFailed}}, true},
		{"failed without codes", Result{Status: toolkit.ExitStatus{Kind: toolkit.StatusFailed, Code: 1}}, true},
		{"failed with codes", Result{Status: toolkit.ExitStatus{Kind: toolkit.StatusFailed, Code: 1}, Summary: diagnostics.Summary{Errors: 2}}, false},
		{"canceled", Result{Status: toolkit.ExitStatus{Kind: toolkit.StatusCanceled}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.res.Retryable())
			assert.Equal(t, tt.expect, errors.IsRetryable(tt.res.Err()))
		})
	}
}

func TestCanceledResultErr(t *testing.T) {
	res := Result{Transtype: "pdf", Status: toolkit.ExitStatus{Kind: toolkit.StatusCanceled, TimedOut: true}}
	err := res.Err()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCanceled))
	assert.Contains(t, err.Error(), "timed out")
}
