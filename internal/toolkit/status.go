package toolkit

import (
	"fmt"
	"time"
)

// StatusKind is the outcome class of a finished invocation.
type StatusKind int

const (
	StatusSuccess StatusKind = iota
	StatusFailed
	StatusStartFailed
	StatusCanceled
)

func (k StatusKind) String() string {
	switch k {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusStartFailed:
		return "start_failed"
	case StatusCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("status(%d)", int(k))
	}
}

// MarshalText renders the kind name for JSON output.
func (k StatusKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ExitStatus describes how an invocation ended.
type ExitStatus struct {
	Kind StatusKind `json:"kind"`
	// Code is the process exit code for Success and Failed, -1 otherwise.
	Code int `json:"code"`
	// TimedOut distinguishes a deadline from an explicit cancellation.
	TimedOut bool          `json:"timed_out,omitempty"`
	Duration time.Duration `json:"duration"`
	// Tail holds the last lines of output verbatim for failure reports.
	Tail []string `json:"tail,omitempty"`
	Err  error    `json:"-"`
}

// Success reports whether the process exited with code 0.
func (s ExitStatus) Success() bool { return s.Kind == StatusSuccess }

func (s ExitStatus) String() string {
	switch s.Kind {
	case StatusFailed:
		return fmt.Sprintf("failed (exit code %d)", s.Code)
	case StatusStartFailed:
		return fmt.Sprintf("could not start: %v", s.Err)
	case StatusCanceled:
		if s.TimedOut {
			return "timed out"
		}
		return "canceled"
	default:
		return s.Kind.String()
	}
}
