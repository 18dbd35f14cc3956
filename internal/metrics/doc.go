// Package metrics provides observability hooks for toolkit invocations and
// integrity checks.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks at call sites:
//
//	runner := transform.NewRunner(opts) // uses NoopRecorder
//	runner.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// When metrics.listen is configured, Serve exposes the registry on /metrics.
package metrics
