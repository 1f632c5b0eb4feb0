package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "packhooks"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	handlerDuration *prom.HistogramVec
	handlerResults  *prom.CounterVec
	validations     *prom.CounterVec
	buildDuration   prom.Histogram
	buildOutcome    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.handlerDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Duration of registered hook handlers",
			Buckets:   prom.DefBuckets,
		}, []string{"stage", "phase"})
		pr.handlerResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "handler_results_total",
			Help:      "Hook handler result counts by outcome",
		}, []string{"stage", "phase", "result"})
		pr.validations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "job_validations_total",
			Help:      "Job configuration validation results",
		}, []string{"selector", "result"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		reg.MustRegister(pr.stageDuration, pr.stageResults, pr.handlerDuration, pr.handlerResults,
			pr.validations, pr.buildDuration, pr.buildOutcome)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveHandlerDuration(stage, phase string, d time.Duration) {
	if p == nil || p.handlerDuration == nil {
		return
	}
	p.handlerDuration.WithLabelValues(stage, phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncHandlerResult(stage, phase string, result ResultLabel) {
	if p == nil || p.handlerResults == nil {
		return
	}
	p.handlerResults.WithLabelValues(stage, phase, string(result)).Inc()
}

func (p *PrometheusRecorder) IncValidationResult(selector string, valid bool) {
	if p == nil || p.validations == nil {
		return
	}
	res := "invalid"
	if valid {
		res = "valid"
	}
	p.validations.WithLabelValues(selector, res).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}
