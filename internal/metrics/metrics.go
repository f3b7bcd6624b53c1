package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Analysis metrics
	branchesTotal    *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	opportunities    *prometheus.GaugeVec
	fetchesTotal     *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
	refreshesTotal   *prometheus.CounterVec
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

		branchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipcast_pipeline_branches_total",
				Help: "Pipeline branch outcomes by branch and status",
			},
			[]string{"branch", "status"},
		),

		pipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dipcast_pipeline_duration_seconds",
				Help:    "Time to analyze one symbol",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),

		opportunities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dipcast_opportunities",
				Help: "Dip opportunities found in the latest analysis of a symbol",
			},
			[]string{"symbol"},
		),

		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipcast_fetches_total",
				Help: "Market data fetches by collector and status",
			},
			[]string{"collector", "status"},
		),

		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipcast_cache_requests_total",
				Help: "Analysis cache lookups by result",
			},
			[]string{"result"},
		),

		refreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipcast_refreshes_total",
				Help: "Watchlist refresh cycles by trigger",
			},
			[]string{"trigger"},
		),
	}

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.httpRequestsInFlight,
		r.branchesTotal,
		r.pipelineDuration,
		r.opportunities,
		r.fetchesTotal,
		r.cacheRequests,
		r.refreshesTotal,
	)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBranch counts one pipeline branch outcome.
func (r *Registry) RecordBranch(branch, status string) {
	r.branchesTotal.WithLabelValues(branch, status).Inc()
}

// RecordPipeline records a finished symbol analysis.
func (r *Registry) RecordPipeline(symbol string, opportunities int, duration float64) {
	r.opportunities.WithLabelValues(symbol).Set(float64(opportunities))
	r.pipelineDuration.Observe(duration)
}

// RecordFetch counts a market data fetch.
func (r *Registry) RecordFetch(collector string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.fetchesTotal.WithLabelValues(collector, status).Inc()
}

// RecordCache counts a cache lookup as "hit" or "miss".
func (r *Registry) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(result).Inc()
}

// RecordRefresh counts a watchlist refresh cycle.
func (r *Registry) RecordRefresh(trigger string) {
	r.refreshesTotal.WithLabelValues(trigger).Inc()
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
