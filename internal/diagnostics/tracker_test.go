package diagnostics

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeThreeLineTranscript(t *testing.T) {
	s := SummarizeTranscript([]string{
		"[DOTJ031I] info",
		"[DOTX023W] warn",
		"[DOTJ013E] err",
	}, nil, 0)

	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, 1, s.Info)
	assert.Equal(t, 3, s.Lines)
	assert.Equal(t, []string{"[DOTJ013E] err"}, s.LastErrors)
}

func TestStackTraceNotDoubleCounted(t *testing.T) {
	s := SummarizeTranscript([]string{
		"[ERROR] generic third-party message",
		"org.example.SomeException: ...",
	}, nil, 0)
	assert.Equal(t, 0, s.Errors)
	assert.Equal(t, 0, s.Warnings)
	assert.Equal(t, 2, s.Unclassified)
}

func TestSummarizeIsDeterministic(t *testing.T) {
	transcript := []string{
		"preprocess:",
		"[DOTX023W] warn",
		"Processing file:/x/error-messages.xml to file:/y/out.xml",
		"[PDFJ001F] fatal",
	}
	first := SummarizeTranscript(transcript, nil, 0)
	second := SummarizeTranscript(transcript, nil, 0)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.Fatal)
	assert.Equal(t, 1, first.Errors)
}

func TestTrackerErrorTailBounded(t *testing.T) {
	tr := NewTracker(nil, TrackerOptions{ErrorTail: 3})
	for i := 1; i <= 7; i++ {
		tr.Observe(LogLine{Seq: uint64(i), Text: fmt.Sprintf("[DOTJ%03dE] failure %d", i, i)})
	}
	s := tr.Summary()
	assert.Equal(t, 7, s.Errors)
	assert.Equal(t, []string{
		"[DOTJ005E] failure 5",
		"[DOTJ006E] failure 6",
		"[DOTJ007E] failure 7",
	}, s.LastErrors)
}

func TestTrackerSummaryIdempotent(t *testing.T) {
	tr := NewTracker(nil, TrackerOptions{})
	tr.Observe(LogLine{Seq: 1, Text: "gen-list:"})
	tr.Observe(LogLine{Seq: 2, Text: "[DOTJ013E] err"})

	a := tr.Summary()
	b := tr.Summary()
	assert.Equal(t, a, b)

	a.LastErrors[0] = "mutated"
	a.StageHistory[0].Stage = StageComplete
	c := tr.Summary()
	assert.Equal(t, "[DOTJ013E] err", c.LastErrors[0])
	assert.Equal(t, StagePreprocessing, c.StageHistory[0].Stage)
}

func TestTrackerStagesNeverRewind(t *testing.T) {
	var progress []string
	tr := NewTracker(nil, TrackerOptions{Progress: func(line string) { progress = append(progress, line) }})
	for i, line := range []string{
		"preprocess:",
		"conref:",
		"keyref:", // earlier stage after a later one
		"html5.topic:",
		"BUILD SUCCESSFUL",
	} {
		tr.Observe(LogLine{Seq: uint64(i + 1), Text: line})
	}

	s := tr.Summary()
	assert.Equal(t, StageComplete, s.Stage)
	stages := make([]Stage, 0, len(s.StageHistory))
	for _, ev := range s.StageHistory {
		stages = append(stages, ev.Stage)
	}
	assert.Equal(t, []Stage{StagePreprocessing, StageResolvingContent, StageRendering, StageComplete}, stages)
	require.Len(t, progress, 4)
	assert.Equal(t, fmt.Sprintf("[%d/%d] Complete", TotalStages, TotalStages), progress[3])
}

func TestDetectStage(t *testing.T) {
	ev, ok := DetectStage("  gen-list:")
	require.True(t, ok)
	assert.Equal(t, StagePreprocessing, ev.Stage)

	_, ok = DetectStage("Processing file:/x/keyref.dita")
	assert.False(t, ok, "target markers match whole target lines only")

	ev, ok = DetectStage("[dita.init] Processing 42 files")
	require.True(t, ok)
	assert.Equal(t, StageInitializing, ev.Stage)
	assert.Equal(t, 42, ev.FileCountHint)
}

func TestRenderProgress(t *testing.T) {
	assert.Equal(t, "[2/9] Preprocessing (12 files)", RenderProgress(StagePreprocessing, 2, 9, 12))
	assert.Equal(t, "Rendering", RenderProgress(StageRendering, 0, 0, 0))
}

func TestReadTranscript(t *testing.T) {
	lines, err := ReadTranscript(strings.NewReader("a\r\nb\n\nc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "", "c"}, lines)
}
