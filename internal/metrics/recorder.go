package metrics

import "time"

// OutcomeLabel enumerates invocation outcome categories for counters.
type OutcomeLabel string

const (
	OutcomeSuccess     OutcomeLabel = "success"
	OutcomeFailed      OutcomeLabel = "failed"
	OutcomeStartFailed OutcomeLabel = "start_failed"
	OutcomeCanceled    OutcomeLabel = "canceled"
	OutcomeTimedOut    OutcomeLabel = "timed_out"
)

// Recorder defines observability hooks for toolkit invocations and integrity checks.
// NoopRecorder is used when metrics are not configured.
type Recorder interface {
	ObserveInvocationDuration(transtype string, d time.Duration)
	IncInvocationOutcome(transtype string, outcome OutcomeLabel)
	IncInvocationRetry(transtype string)
	IncDiagnostic(severity string)
	ObserveStageReached(stage string)
	ObserveCheckDuration(d time.Duration)
	IncReference(kind, status string)
	ObserveProbe(status string, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveInvocationDuration(string, time.Duration) {}
func (NoopRecorder) IncInvocationOutcome(string, OutcomeLabel)       {}
func (NoopRecorder) IncInvocationRetry(string)                       {}
func (NoopRecorder) IncDiagnostic(string)                            {}
func (NoopRecorder) ObserveStageReached(string)                      {}
func (NoopRecorder) ObserveCheckDuration(time.Duration)              {}
func (NoopRecorder) IncReference(string, string)                     {}
func (NoopRecorder) ObserveProbe(string, time.Duration)              {}
