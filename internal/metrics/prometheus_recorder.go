package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "ditabuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	invocationDuration *prom.HistogramVec
	invocationOutcome  *prom.CounterVec
	invocationRetries  *prom.CounterVec
	diagnostics        *prom.CounterVec
	stagesReached      *prom.CounterVec
	checkDuration      prom.Histogram
	references         *prom.CounterVec
	probeDuration      *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		invocationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Duration of toolkit invocations",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"transtype"}),
		invocationOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "invocation_outcomes_total",
			Help:      "Toolkit invocation outcomes by final status",
		}, []string{"transtype", "outcome"}),
		invocationRetries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "invocation_retries_total",
			Help:      "Toolkit invocations retried after a transient failure",
		}, []string{"transtype"}),
		diagnostics: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Classified toolkit messages by severity",
		}, []string{"severity"}),
		stagesReached: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stages_reached_total",
			Help:      "Processing stages entered by toolkit invocations",
		}, []string{"stage"}),
		checkDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of content integrity checks",
			Buckets:   prom.DefBuckets,
		}),
		references: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "references_total",
			Help:      "References inspected by kind and status",
		}, []string{"kind", "status"}),
		probeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "external_probe_duration_seconds",
			Help:      "Duration of external link probes",
			Buckets:   prom.DefBuckets,
		}, []string{"status"}),
	}
	reg.MustRegister(pr.invocationDuration, pr.invocationOutcome, pr.invocationRetries, pr.diagnostics,
		pr.stagesReached, pr.checkDuration, pr.references, pr.probeDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveInvocationDuration(transtype string, d time.Duration) {
	if p == nil {
		return
	}
	p.invocationDuration.WithLabelValues(transtype).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncInvocationOutcome(transtype string, outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.invocationOutcome.WithLabelValues(transtype, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncInvocationRetry(transtype string) {
	if p == nil {
		return
	}
	p.invocationRetries.WithLabelValues(transtype).Inc()
}

func (p *PrometheusRecorder) IncDiagnostic(severity string) {
	if p == nil {
		return
	}
	p.diagnostics.WithLabelValues(severity).Inc()
}

func (p *PrometheusRecorder) ObserveStageReached(stage string) {
	if p == nil {
		return
	}
	p.stagesReached.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) ObserveCheckDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.checkDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncReference(kind, status string) {
	if p == nil {
		return
	}
	p.references.WithLabelValues(kind, status).Inc()
}

func (p *PrometheusRecorder) ObserveProbe(status string, d time.Duration) {
	if p == nil {
		return
	}
	p.probeDuration.WithLabelValues(status).Observe(d.Seconds())
}
