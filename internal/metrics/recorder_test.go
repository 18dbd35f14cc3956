package metrics

import (
	"sync"
	"time"
)

type testRecorder struct {
	mu       sync.Mutex
	outcomes map[OutcomeLabel]int
	retries  int
	refs     map[string]int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{outcomes: map[OutcomeLabel]int{}, refs: map[string]int{}}
}

func (t *testRecorder) ObserveInvocationDuration(string, time.Duration) {}
func (t *testRecorder) IncInvocationOutcome(_ string, o OutcomeLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes[o]++
}
func (t *testRecorder) IncInvocationRetry(string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retries++
}
func (t *testRecorder) IncDiagnostic(string)               {}
func (t *testRecorder) ObserveStageReached(string)         {}
func (t *testRecorder) ObserveCheckDuration(time.Duration) {}
func (t *testRecorder) IncReference(kind, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refs[kind+"/"+status]++
}
func (t *testRecorder) ObserveProbe(string, time.Duration) {}

var _ Recorder = (*testRecorder)(nil)
var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)
