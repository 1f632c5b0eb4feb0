// Package metrics provides the observability hooks for packhooks builds.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing in the pipeline needs nil checks:
//
//	composed := hooks.ComposeAll(merged, originals, factoryFor,
//	    hooks.WithRecorder(metrics.NoopRecorder{}))
//
// When the CLI is started with --metrics-listen, a PrometheusRecorder backed
// by its own registry is injected instead and served through HTTPHandler.
package metrics
