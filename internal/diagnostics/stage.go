package diagnostics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Stage is a processing phase of a transformation. Stages are ordered; the zero
// value means no stage has been seen.
type Stage int

const (
	StageNone Stage = iota
	StageInitializing
	StagePreprocessing
	StageResolvingKeys
	StageResolvingContent
	StageChunking
	StageLinking
	StageRendering
	StageFormatting
	StageComplete
)

var stageNames = [...]string{
	StageNone:             "None",
	StageInitializing:     "Initializing",
	StagePreprocessing:    "Preprocessing",
	StageResolvingKeys:    "Resolving keys",
	StageResolvingContent: "Resolving content references",
	StageChunking:         "Chunking",
	StageLinking:          "Linking",
	StageRendering:        "Rendering",
	StageFormatting:       "Formatting",
	StageComplete:         "Complete",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// MarshalText renders the stage name for JSON output.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Index returns the 1-based position of s among the known stages.
func (s Stage) Index() int { return int(s) }

// TotalStages is the number of known stages, Complete included.
const TotalStages = int(StageComplete)

// StageEvent records entry into a stage with an optional file-count hint (0 when unknown).
type StageEvent struct {
	Stage         Stage `json:"stage"`
	FileCountHint int   `json:"file_count_hint,omitempty"`
}

type stageMarker struct {
	stage Stage
	text  string
	// target markers are build target names printed alone followed by a colon.
	target bool
}

// stageMarkers is ordered by stage. Target markers match "name:" at the start of a
// trimmed line; the others match anywhere.
var stageMarkers = []stageMarker{
	{StageInitializing, "dita.init", false},
	{StageInitializing, "check-arg", true},
	{StageInitializing, "build-init", true},
	{StagePreprocessing, "preprocess", true},
	{StagePreprocessing, "gen-list", true},
	{StagePreprocessing, "preprocess_preprocess", true},
	{StageResolvingKeys, "keyref", true},
	{StageResolvingKeys, "preprocess_keyref", true},
	{StageResolvingContent, "conref", true},
	{StageResolvingContent, "conrefpush", true},
	{StageResolvingContent, "preprocess_conref", true},
	{StageChunking, "chunk", true},
	{StageChunking, "preprocess_chunk", true},
	{StageLinking, "maplink", true},
	{StageLinking, "topicpull", true},
	{StageLinking, "move-meta-entries", true},
	{StageRendering, "html5.topic", true},
	{StageRendering, "dita.topics.html.common", true},
	{StageRendering, "xhtml.topics", true},
	{StageRendering, "transform.topic2fo", true},
	{StageRendering, "dita2markdown", true},
	{StageFormatting, "transform.fo2pdf", true},
	{StageFormatting, "transform.fo2pdf.fop", true},
	{StageFormatting, "html5.map", true},
	{StageComplete, "BUILD SUCCESSFUL", false},
	{StageComplete, "build-finish", true},
}

var fileCountPattern = regexp.MustCompile(`\b(\d+)\s+(?:files?|topics?)\b`)

// DetectStage returns the stage announced by text, if any, together with a file-count
// hint parsed from the same line.
func DetectStage(text string) (StageEvent, bool) {
	trimmed := strings.TrimSpace(text)
	for _, m := range stageMarkers {
		if m.target {
			if trimmed != m.text+":" {
				continue
			}
		} else if !strings.Contains(trimmed, m.text) {
			continue
		}
		ev := StageEvent{Stage: m.stage}
		if sm := fileCountPattern.FindStringSubmatch(trimmed); sm != nil {
			if n, err := strconv.Atoi(sm[1]); err == nil {
				ev.FileCountHint = n
			}
		}
		return ev, true
	}
	return StageEvent{}, false
}

// RenderProgress formats a progress line. It depends only on its arguments.
func RenderProgress(stage Stage, index, total, fileCountHint int) string {
	var b strings.Builder
	if total > 0 {
		fmt.Fprintf(&b, "[%d/%d] ", index, total)
	}
	b.WriteString(stage.String())
	if fileCountHint > 0 {
		fmt.Fprintf(&b, " (%d files)", fileCountHint)
	}
	return b.String()
}
