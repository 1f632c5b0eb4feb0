package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testRecorder struct {
	mu             sync.Mutex
	stageDurations map[string]int
	handlerResults map[string]int
	validations    map[bool]int
	buildOutcomes  map[BuildOutcomeLabel]int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		stageDurations: map[string]int{},
		handlerResults: map[string]int{},
		validations:    map[bool]int{},
		buildOutcomes:  map[BuildOutcomeLabel]int{},
	}
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stageDurations[stage]++
}
func (t *testRecorder) IncStageResult(string, ResultLabel)                   {}
func (t *testRecorder) ObserveHandlerDuration(string, string, time.Duration) {}
func (t *testRecorder) IncHandlerResult(stage, phase string, result ResultLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlerResults[stage+"/"+phase+"/"+string(result)]++
}
func (t *testRecorder) IncValidationResult(_ string, valid bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.validations[valid]++
}
func (t *testRecorder) ObserveBuildDuration(time.Duration) {}
func (t *testRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buildOutcomes[outcome]++
}

func TestRecorderInterface(t *testing.T) {
	var r Recorder = newTestRecorder()
	r.ObserveStageDuration("Compile", time.Millisecond)
	r.IncHandlerResult("Compile", "before", ResultSuccess)
	r.IncValidationResult("bump", true)
	r.IncBuildOutcome(BuildOutcomeSuccess)

	tr := r.(*testRecorder)
	assert.Equal(t, 1, tr.stageDurations["Compile"])
	assert.Equal(t, 1, tr.handlerResults["Compile/before/success"])
	assert.Equal(t, 1, tr.validations[true])
	assert.Equal(t, 1, tr.buildOutcomes[BuildOutcomeSuccess])

	var noop Recorder = NoopRecorder{}
	noop.IncBuildOutcome(BuildOutcomeFailed)
}

func TestResultFromError(t *testing.T) {
	assert.Equal(t, ResultSuccess, ResultFromError(nil, false))
	assert.Equal(t, ResultFatal, ResultFromError(errors.New("x"), false))
	assert.Equal(t, ResultCanceled, ResultFromError(errors.New("x"), true))
}
