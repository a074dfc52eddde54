package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("mgmtd", "GET", "/health", 200, 12*time.Millisecond)
	RecordBringUp("ready", 40*time.Millisecond)
	RecordLoaderLoad("loader.kv", true, 3*time.Millisecond)
	RecordLoaderLoad("loader.kv", false, 3*time.Millisecond)
	RecordLoaderUnload("loader.kv", true)
	RecordFeaturePublished("mgmt.ready")
}

func TestLoaderRunsCountedByOutcome(t *testing.T) {
	before := testutil.ToFloat64(loaderRuns.WithLabelValues("loader.metrics-test", "load", "failed"))
	RecordLoaderLoad("loader.metrics-test", false, time.Millisecond)
	RecordLoaderLoad("loader.metrics-test", false, time.Millisecond)
	after := testutil.ToFloat64(loaderRuns.WithLabelValues("loader.metrics-test", "load", "failed"))
	assert.Equal(t, before+2, after)
}

func TestSetPhaseMarksSingleActivePhase(t *testing.T) {
	all := []string{"not_loaded", "core_loading", "ready"}
	SetPhase("core_loading", all)
	assert.Equal(t, 1.0, testutil.ToFloat64(startupPhase.WithLabelValues("core_loading")))
	assert.Equal(t, 0.0, testutil.ToFloat64(startupPhase.WithLabelValues("ready")))

	SetPhase("ready", all)
	assert.Equal(t, 0.0, testutil.ToFloat64(startupPhase.WithLabelValues("core_loading")))
	assert.Equal(t, 1.0, testutil.ToFloat64(startupPhase.WithLabelValues("ready")))
}
