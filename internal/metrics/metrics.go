// Package metrics exposes the Prometheus instruments used across the service.
// A nil *Registry is valid and records nothing, so components can be built
// without metrics in tests and one-shot CLI commands.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private Prometheus registry and the service's instruments.
type Registry struct {
	reg                *prometheus.Registry
	UpstreamRequests   *prometheus.CounterVec
	PaginationCapped   *prometheus.CounterVec
	Predictions        *prometheus.CounterVec
	PredictionFailures *prometheus.CounterVec
	DegradedSignals    *prometheus.CounterVec
	PredictionLatency  prometheus.Histogram
	ModelLoaded        prometheus.Gauge
	RefreshCycles      prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
}

// NewRegistry creates a Registry with every instrument registered.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hawker_upstream_requests_total",
		Help: "Requests issued to external data providers",
	}, []string{"provider", "outcome"})
	capped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hawker_pagination_capped_total",
		Help: "Paginated fetches stopped by the request cap",
	}, []string{"provider"})
	predictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hawker_predictions_total",
		Help: "Crowd predictions served",
	}, []string{"crowd_level", "source"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hawker_prediction_failures_total",
		Help: "Crowd predictions that could not be produced",
	}, []string{"reason"})
	degraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hawker_degraded_signals_total",
		Help: "Feature extractions that substituted neutral defaults",
	}, []string{"signal"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hawker_prediction_duration_seconds",
		Help:    "Time to extract features and classify one hawker center",
		Buckets: prometheus.DefBuckets,
	})
	loaded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hawker_model_loaded",
		Help: "1 when a trained model unit is available",
	})
	cycles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hawker_refresh_cycles_total",
		Help: "Completed background prediction refresh cycles",
	})

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hawker_http_requests_total",
		Help: "HTTP requests served",
	}, []string{"method", "route", "status"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hawker_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.MustRegister(upstream, capped, predictions, failures, degraded, latency, loaded, cycles, httpRequests, httpLatency)
	r.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Registry{
		reg:                r,
		UpstreamRequests:   upstream,
		PaginationCapped:   capped,
		Predictions:        predictions,
		PredictionFailures: failures,
		DegradedSignals:    degraded,
		PredictionLatency:  latency,
		ModelLoaded:        loaded,
		RefreshCycles:      cycles,
		HTTPRequests:       httpRequests,
		HTTPLatency:        httpLatency,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveUpstream counts one provider request.
func (r *Registry) ObserveUpstream(provider, outcome string) {
	if r == nil {
		return
	}
	r.UpstreamRequests.WithLabelValues(provider, outcome).Inc()
}

// ObserveCapped counts a pagination loop stopped by its request cap.
func (r *Registry) ObserveCapped(provider string) {
	if r == nil {
		return
	}
	r.PaginationCapped.WithLabelValues(provider).Inc()
}

// ObservePrediction records a served prediction and its latency.
func (r *Registry) ObservePrediction(level, source string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Predictions.WithLabelValues(level, source).Inc()
	r.PredictionLatency.Observe(elapsed.Seconds())
}

// ObserveFailure counts a failed prediction.
func (r *Registry) ObserveFailure(reason string) {
	if r == nil {
		return
	}
	r.PredictionFailures.WithLabelValues(reason).Inc()
}

// ObserveDegraded counts a neutral-default substitution for signal.
func (r *Registry) ObserveDegraded(signal string) {
	if r == nil {
		return
	}
	r.DegradedSignals.WithLabelValues(signal).Inc()
}

// SetModelLoaded reports whether a trained unit is available.
func (r *Registry) SetModelLoaded(loaded bool) {
	if r == nil {
		return
	}
	if loaded {
		r.ModelLoaded.Set(1)
		return
	}
	r.ModelLoaded.Set(0)
}

// ObserveRefresh counts a completed refresh cycle.
func (r *Registry) ObserveRefresh() {
	if r == nil {
		return
	}
	r.RefreshCycles.Inc()
}

// ObserveHTTP records one served request.
func (r *Registry) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, status).Inc()
	r.HTTPLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
