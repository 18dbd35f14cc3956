package transform

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/ditabuilder/internal/diagnostics"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/metrics"
	"git.home.luguber.info/inful/ditabuilder/internal/toolkit"
)

// Result is the outcome of one toolkit invocation. It is plain data owned by the caller.
type Result struct {
	ID          string              `json:"id"`
	Transtype   string              `json:"transtype"`
	Strategy    string              `json:"strategy"`
	Inputs      []string            `json:"inputs,omitempty"`
	OutputDir   string              `json:"output_dir,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration"`
	Attempts    int                 `json:"attempts"`
	Status      toolkit.ExitStatus  `json:"status"`
	Summary     diagnostics.Summary `json:"summary"`
	OutputFiles []string            `json:"output_files,omitempty"`
}

// Succeeded reports whether the toolkit exited with code 0.
func (r *Result) Succeeded() bool { return r.Status.Success() }

// Retryable reports whether running the invocation again might succeed: the process
// could not start, or it failed without reporting a structured error.
func (r *Result) Retryable() bool {
	switch r.Status.Kind {
	case toolkit.StatusStartFailed:
		return true
	case toolkit.StatusFailed:
		return r.Summary.Errors == 0
	default:
		return false
	}
}

// Outcome maps the status onto a metrics label.
func (r *Result) Outcome() metrics.OutcomeLabel {
	switch r.Status.Kind {
	case toolkit.StatusSuccess:
		return metrics.OutcomeSuccess
	case toolkit.StatusStartFailed:
		return metrics.OutcomeStartFailed
	case toolkit.StatusCanceled:
		if r.Status.TimedOut {
			return metrics.OutcomeTimedOut
		}
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}

// Err describes a failed invocation as a classified error, or returns nil on success.
// The message names the transtype, the stage reached and a remedy.
func (r *Result) Err() error {
	switch r.Status.Kind {
	case toolkit.StatusSuccess:
		return nil
	case toolkit.StatusStartFailed:
		return errors.WrapError(r.Status.Err, errors.CategoryProcess, "toolkit could not be started").
			WithContext("transtype", r.Transtype).
			WithRemedy("check toolkit.home and that the launcher is executable").
			Retryable().Build()
	case toolkit.StatusCanceled:
		msg := "toolkit run canceled"
		if r.Status.TimedOut {
			msg = "toolkit run timed out"
		}
		b := errors.CanceledError(msg).
			WithContext("transtype", r.Transtype).
			WithContext("stage", r.Summary.Stage.String())
		if r.Status.TimedOut {
			b = b.WithRemedy("raise transform.timeout")
		}
		return b.Build()
	default:
		b := errors.ToolkitError(fmt.Sprintf("%s transformation failed with exit code %d", r.Transtype, r.Status.Code)).
			WithContext("transtype", r.Transtype).
			WithContext("stage", r.Summary.Stage.String()).
			WithContext("errors", r.Summary.Errors)
		if r.Summary.Errors > 0 {
			b = b.WithRemedy("fix the reported toolkit errors in the source documents")
		} else {
			b = b.WithRemedy("no structured error was reported; inspect the output tail").Retryable()
		}
		return b.Build()
	}
}
