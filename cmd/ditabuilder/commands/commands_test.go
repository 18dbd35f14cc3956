package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI parses args against a fresh CLI and runs the selected command.
func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()
	var cli CLI
	var stdout, stderr bytes.Buffer
	g := &Global{Stdout: &stdout, Stderr: &stderr}
	parser, err := kong.New(&cli,
		kong.Name("ditabuilder"),
		kong.Vars{"version": "test"},
		kong.Bind(g, &cli),
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = kctx.Run()
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestVersionCommand(t *testing.T) {
	res := runCLI(t, "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "ditabuilder ")
}

func TestInitCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "ditabuilder.yaml")

	res := runCLI(t, "-c", cfgPath, "init")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "initialized successfully")
	assert.FileExists(t, cfgPath)

	res = runCLI(t, "-c", cfgPath, "init")
	require.Error(t, res.err, "init must not overwrite without --force")

	res = runCLI(t, "-c", cfgPath, "init", "--force")
	require.NoError(t, res.err)
}

func TestClassifyCommand(t *testing.T) {
	dir := t.TempDir()
	transcript := filepath.Join(dir, "build.log")
	write(t, transcript, "dita.init:\n[DOTJ031I] ok\n[DOTX023W] careful\n[DOTJ013E] broken\nplain text\n")

	res := runCLI(t, "-c", filepath.Join(dir, "none.yaml"), "classify", transcript, "-f", "json")
	require.NoError(t, res.err)

	var out struct {
		Source  string `json:"source"`
		Summary struct {
			Lines      int      `json:"lines"`
			Info       int      `json:"info"`
			Warnings   int      `json:"warnings"`
			Errors     int      `json:"errors"`
			LastErrors []string `json:"last_errors"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, 5, out.Summary.Lines)
	assert.Equal(t, 1, out.Summary.Info)
	assert.Equal(t, 1, out.Summary.Warnings)
	assert.Equal(t, 1, out.Summary.Errors)
	assert.Equal(t, []string{"[DOTJ013E] broken"}, out.Summary.LastErrors)
}

func TestClassifyCommandMissingFile(t *testing.T) {
	dir := t.TempDir()
	res := runCLI(t, "-c", filepath.Join(dir, "none.yaml"), "classify", filepath.Join(dir, "missing.log"))
	require.Error(t, res.err)
	assert.True(t, errors.HasCategory(res.err, errors.CategoryNotFound))
}

func TestClasspathCommand(t *testing.T) {
	home := t.TempDir()
	write(t, filepath.Join(home, "config", "plugins.xml"), `<plugins><plugin xml:base="../plugins/p/">`+
		`<feature extension="dita.conductor.lib.import" file="lib/p.jar"/></plugin></plugins>`)
	write(t, filepath.Join(home, "resources", "messages.xml"), "<x/>")
	write(t, filepath.Join(home, "lib", "dost.jar"), "")
	write(t, filepath.Join(home, "plugins", "p", "lib", "p.jar"), "")

	res := runCLI(t, "-c", filepath.Join(home, "none.yaml"), "classpath", "--home", home, "-l")
	require.NoError(t, res.err)
	lines := bytes.Split(bytes.TrimSpace([]byte(res.stdout)), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, filepath.Join(home, "config"), string(lines[0]))
	assert.Equal(t, filepath.Join(home, "plugins", "p", "lib", "p.jar"), string(lines[3]))
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root.ditamap")
	write(t, root, `<map><topicref href="a.dita"/><topicref href="missing.dita"/></map>`)
	write(t, filepath.Join(dir, "a.dita"), `<topic id="a"><title>A</title></topic>`)
	cfg := filepath.Join(dir, "none.yaml")

	res := runCLI(t, "-c", cfg, "check", root)
	require.Error(t, res.err)
	assert.True(t, errors.HasCategory(res.err, errors.CategoryIntegrity))
	assert.Contains(t, res.stdout, "missing.dita")
	assert.Equal(t, 3, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(res.err))

	res = runCLI(t, "-c", cfg, "check", root, "--no-fail", "-f", "json")
	require.NoError(t, res.err)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, true, out["passed"])
}

func TestCheckCommandRequiresRoot(t *testing.T) {
	res := runCLI(t, "-c", filepath.Join(t.TempDir(), "none.yaml"), "check")
	require.Error(t, res.err)
	assert.True(t, errors.HasCategory(res.err, errors.CategoryValidation))
}

const fakeLauncher = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output) out="$2"; shift ;;
  esac
  shift
done
echo "preprocess:"
echo "[DOTX023W] careful"
mkdir -p "$out"
echo "<html/>" > "$out/index.html"
if [ -n "$FAKE_ERROR" ]; then echo "[DOTJ013E] broken"; exit 1; fi
exit 0
`

func transformFixture(t *testing.T) (cfgPath, outDir, historyDB string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake launcher scripts require a POSIX shell")
	}
	dir := t.TempDir()
	home := filepath.Join(dir, "dita-ot")
	require.NoError(t, os.MkdirAll(filepath.Join(home, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "bin", "dita"), []byte(fakeLauncher), 0o755))
	input := filepath.Join(dir, "guide.ditamap")
	write(t, input, "<map/>")
	outDir = filepath.Join(dir, "out")
	historyDB = filepath.Join(dir, "history.db")

	cfgPath = filepath.Join(dir, "ditabuilder.yaml")
	write(t, cfgPath, fmt.Sprintf(`toolkit:
  home: %s
transform:
  inputs: [%s]
  output_dir: %s
  transtypes: [html5, xhtml]
history:
  db: %s
`, home, input, outDir, historyDB))
	return cfgPath, outDir, historyDB
}

func TestTransformCommand(t *testing.T) {
	cfgPath, outDir, _ := transformFixture(t)

	res := runCLI(t, "-c", cfgPath, "transform", "-f", "json")
	require.NoError(t, res.err)
	assert.FileExists(t, filepath.Join(outDir, "html5", "index.html"))
	assert.FileExists(t, filepath.Join(outDir, "xhtml", "index.html"))

	var out struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 0, out.Failed)

	res = runCLI(t, "-c", cfgPath, "history", "--kind", "transform", "-f", "json")
	require.NoError(t, res.err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &entries))
	assert.Len(t, entries, 2)
}

func TestTransformCommandFailure(t *testing.T) {
	cfgPath, _, _ := transformFixture(t)
	t.Setenv("FAKE_ERROR", "1")

	res := runCLI(t, "-c", cfgPath, "transform", "-t", "pdf")
	require.Error(t, res.err)
	assert.True(t, errors.HasCategory(res.err, errors.CategoryToolkit))
	assert.Contains(t, res.stdout, "[DOTJ013E] broken")
	assert.Contains(t, res.stdout, "1 of 1 transformation failed")
}

func TestTransformCommandRequiresConfig(t *testing.T) {
	res := runCLI(t, "-c", filepath.Join(t.TempDir(), "none.yaml"), "transform")
	require.Error(t, res.err)
	assert.True(t, errors.HasCategory(res.err, errors.CategoryConfig))
}
