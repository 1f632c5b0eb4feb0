package metrics

import "time"

// ResultLabel enumerates stage and handler result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel enumerates final build outcomes.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for build, stage, handler and
// validation metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveHandlerDuration(stage, phase string, d time.Duration)
	IncHandlerResult(stage, phase string, result ResultLabel)
	IncValidationResult(selector string, valid bool)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                   {}
func (NoopRecorder) ObserveHandlerDuration(string, string, time.Duration) {}
func (NoopRecorder) IncHandlerResult(string, string, ResultLabel)         {}
func (NoopRecorder) IncValidationResult(string, bool)                     {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                   {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)                    {}

// ResultFromError maps an error to a result label.
func ResultFromError(err error, canceled bool) ResultLabel {
	switch {
	case err == nil:
		return ResultSuccess
	case canceled:
		return ResultCanceled
	default:
		return ResultFatal
	}
}
