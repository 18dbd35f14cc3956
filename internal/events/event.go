package events

import (
	"time"

	"git.home.luguber.info/inful/ditabuilder/internal/integrity"
	"git.home.luguber.info/inful/ditabuilder/internal/transform"
)

// TransformEvent is published once per finished invocation.
type TransformEvent struct {
	InvocationID string        `json:"invocation_id"`
	Transtype    string        `json:"transtype"`
	Strategy     string        `json:"strategy"`
	Inputs       []string      `json:"inputs,omitempty"`
	OutputDir    string        `json:"output_dir,omitempty"`
	Status       string        `json:"status"`
	ExitCode     int           `json:"exit_code"`
	TimedOut     bool          `json:"timed_out,omitempty"`
	Attempts     int           `json:"attempts"`
	Duration     time.Duration `json:"duration"`
	Stage        string        `json:"stage"`
	Errors       int           `json:"errors"`
	Warnings     int           `json:"warnings"`
	LastErrors   []string      `json:"last_errors,omitempty"`
	OutputFiles  int           `json:"output_files"`
	StartedAt    time.Time     `json:"started_at"`
	Timestamp    time.Time     `json:"timestamp"`
}

// BrokenLinkEvent represents a broken reference discovered by a check run.
type BrokenLinkEvent struct {
	Root      string `json:"root"`
	Source    string `json:"source"`
	Line      int    `json:"line,omitempty"`
	Element   string `json:"element"`
	Attribute string `json:"attribute"`
	Kind      string `json:"kind"`
	Target    string `json:"target"`
	External  bool   `json:"external"`
	Status    int    `json:"status,omitempty"` // HTTP status code (0 for non-HTTP errors)
	Detail    string `json:"detail,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// NewTransformEvent flattens res into an event.
func NewTransformEvent(res *transform.Result) *TransformEvent {
	return &TransformEvent{
		InvocationID: res.ID,
		Transtype:    res.Transtype,
		Strategy:     res.Strategy,
		Inputs:       res.Inputs,
		OutputDir:    res.OutputDir,
		Status:       res.Status.Kind.String(),
		ExitCode:     res.Status.Code,
		TimedOut:     res.Status.TimedOut,
		Attempts:     res.Attempts,
		Duration:     res.Duration,
		Stage:        res.Summary.Stage.String(),
		Errors:       res.Summary.Errors,
		Warnings:     res.Summary.Warnings,
		LastErrors:   res.Summary.LastErrors,
		OutputFiles:  len(res.OutputFiles),
		StartedAt:    res.StartedAt,
	}
}

// NewBrokenLinkEvent converts one broken record of a check rooted at root.
func NewBrokenLinkEvent(root string, rec integrity.LinkRecord) *BrokenLinkEvent {
	return &BrokenLinkEvent{
		Root:      root,
		Source:    rec.Source,
		Line:      rec.Line,
		Element:   rec.Element,
		Attribute: rec.Attribute,
		Kind:      string(rec.Kind),
		Target:    rec.Target,
		External:  rec.IsExternal(),
		Status:    rec.Status,
		Detail:    rec.Detail,
	}
}
