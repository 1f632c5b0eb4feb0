package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("Compile", 150*time.Millisecond)
	pr.IncStageResult("Compile", ResultSuccess)
	pr.ObserveHandlerDuration("PackageEmit", "before", time.Millisecond)
	pr.IncHandlerResult("PackageEmit", "before", ResultFatal)
	pr.IncValidationResult("copyFile", false)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncBuildOutcome(BuildOutcomeSuccess)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 7)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "packhooks_job_validations_total"))
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("Compile", time.Second)
	pr.IncBuildOutcome(BuildOutcomeFailed)
}
