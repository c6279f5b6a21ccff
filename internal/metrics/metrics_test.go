package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Observations(t *testing.T) {
	r := NewRegistry()

	r.ObserveUpstream("datamall", "ok")
	r.ObserveUpstream("datamall", "ok")
	r.ObservePrediction("High", "model", 20*time.Millisecond)
	r.ObserveDegraded("bus")
	r.SetModelLoaded(true)
	r.ObserveHTTP("GET", "/predict/:hawkerId", "200", 5*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(r.UpstreamRequests.WithLabelValues("datamall", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.Predictions.WithLabelValues("High", "model")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.DegradedSignals.WithLabelValues("bus")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.ModelLoaded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.HTTPRequests.WithLabelValues("GET", "/predict/:hawkerId", "200")), 0)
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveUpstream("places", "error")
		r.ObserveCapped("places")
		r.ObservePrediction("Low", "model", time.Second)
		r.ObserveFailure("not_found")
		r.ObserveDegraded("carpark")
		r.SetModelLoaded(false)
		r.ObserveRefresh()
		r.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	})
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.ObserveRefresh()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hawker_refresh_cycles_total 1")
}
