package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics. A nil *Registry records nothing.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Dashboard metrics
	rendersTotal         *prometheus.CounterVec
	renderDuration       prometheus.Histogram
	panelsBuilt          *prometheus.CounterVec
	explanationsTotal    *prometheus.CounterVec
	explanationDuration  prometheus.Histogram
	staleCompletions     prometheus.Counter
	backendRequestsTotal *prometheus.CounterVec
	regionsActive        prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.rendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalboard_renders_total",
			Help: "Total number of region render passes",
		},
		[]string{"outcome"},
	)
	r.renderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalboard_render_duration_seconds",
			Help:    "Region render pass duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
	)
	r.panelsBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalboard_panels_built_total",
			Help: "Total number of panels built by title",
		},
		[]string{"panel"},
	)
	r.explanationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalboard_explanations_total",
			Help: "Total number of explanation requests by outcome",
		},
		[]string{"outcome"},
	)
	r.explanationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalboard_explanation_duration_seconds",
			Help:    "Explanation request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.staleCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signalboard_stale_completions_total",
			Help: "Explanation completions dropped because the region was re-rendered",
		},
	)
	r.backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalboard_backend_requests_total",
			Help: "Total number of analysis fetches by status",
		},
		[]string{"status"},
	)
	r.regionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalboard_regions",
			Help: "Number of dashboard regions held in memory",
		},
	)

	reg.MustRegister(r.rendersTotal)
	reg.MustRegister(r.renderDuration)
	reg.MustRegister(r.panelsBuilt)
	reg.MustRegister(r.explanationsTotal)
	reg.MustRegister(r.explanationDuration)
	reg.MustRegister(r.staleCompletions)
	reg.MustRegister(r.backendRequestsTotal)
	reg.MustRegister(r.regionsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r != nil {
		r.httpRequestsInFlight.Inc()
	}
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r != nil {
		r.httpRequestsInFlight.Dec()
	}
}

// RecordRender records a render pass: "ok", "untrained" or "failed".
func (r *Registry) RecordRender(outcome string, duration float64) {
	if r == nil {
		return
	}
	r.rendersTotal.WithLabelValues(outcome).Inc()
	r.renderDuration.Observe(duration)
}

// RecordPanel records one built panel.
func (r *Registry) RecordPanel(title string) {
	if r != nil {
		r.panelsBuilt.WithLabelValues(title).Inc()
	}
}

// RecordExplanation records an explanation request outcome.
func (r *Registry) RecordExplanation(outcome string, duration float64) {
	if r == nil {
		return
	}
	r.explanationsTotal.WithLabelValues(outcome).Inc()
	r.explanationDuration.Observe(duration)
}

// RecordStaleCompletion records a dropped explanation completion.
func (r *Registry) RecordStaleCompletion() {
	if r != nil {
		r.staleCompletions.Inc()
	}
}

// RecordBackend records an analysis fetch by HTTP status class or "error".
func (r *Registry) RecordBackend(status string) {
	if r != nil {
		r.backendRequestsTotal.WithLabelValues(status).Inc()
	}
}

// SetRegions sets the number of regions held.
func (r *Registry) SetRegions(n int) {
	if r != nil {
		r.regionsActive.Set(float64(n))
	}
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}
