// Package metrics provides the observability hooks for getbuf generation runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	orch := pipeline.NewOrchestrator(reg, inv, ws, pipeline.WithRecorder(metrics.NoopRecorder{}))
//
// PrometheusRecorder registers its collectors on an explicit registry. The CLI
// is short-lived, so instead of serving /metrics it writes a textfile for the
// node_exporter textfile collector when metrics.textfile is configured.
package metrics
