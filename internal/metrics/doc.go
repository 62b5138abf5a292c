// Package metrics records task and dev-server metrics.
//
// Components receive a Recorder through injection and default to
// NoopRecorder, so nothing needs a nil check:
//
//	runner := tasks.NewRunner(registry, tasks.WithRecorder(metrics.NoopRecorder{}))
//
// The serve command swaps in a PrometheusRecorder and exposes its registry
// through HTTPHandler on /metrics.
package metrics
