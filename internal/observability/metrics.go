package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap API call rate. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Weather API latency per request. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Retry attempts for weather API. Watch for: high retries = unstable upstream.
	WeatherAPIRetriesTotal prometheus.Counter

	// OpenAI API call rate. Watch for: error vs success ratio, auth failures.
	AIAPICallsTotal *prometheus.CounterVec

	// OpenAI API latency per request. Completions are slow; buckets go to 30s.
	AIAPIDuration *prometheus.HistogramVec

	// Suggestion payloads that failed structured parsing and used the fallback.
	AIFallbacksTotal prometheus.Counter

	// Administrative-divisions API call rate. Watch for: error vs success ratio.
	GeoAPICallsTotal *prometheus.CounterVec

	// Administrative-divisions API latency per request.
	GeoAPIDuration *prometheus.HistogramVec

	// Mapbox geocoding API call rate. Watch for: auth failures, rate limiting.
	GeocodingAPICallsTotal *prometheus.CounterVec

	// Mapbox geocoding API latency per request.
	GeocodingAPIDuration *prometheus.HistogramVec

	// Cache hits per cache (weather, agro). Hit rate = hits/(hits+misses).
	CacheHitsTotal *prometheus.CounterVec

	// Cache misses per cache.
	CacheMissesTotal *prometheus.CounterVec

	// Batch fan-out sizes for fetchMany/analyzeMany/bulk-analyze.
	BatchSize *prometheus.HistogramVec

	// Wall time of a whole batch, barrier included.
	BatchDuration *prometheus.HistogramVec

	// Per-location failures inside batches, by stage.
	BatchFailuresTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state per component: 0 closed, 1 open, 2 half-open.
	CircuitBreakerState *prometheus.GaugeVec

	// Circuit breaker transitions per component.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherApiRetriesTotal",
			Help: "Total number of retry attempts for weather API calls",
		},
	)
	AIAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiApiCallsTotal",
			Help: "Total number of OpenAI API calls",
		},
		[]string{"status"},
	)
	AIAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiApiDurationSeconds",
			Help:    "OpenAI API latency in seconds (per request)",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"status"},
	)
	AIFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aiSuggestionFallbacksTotal",
			Help: "AI responses that failed structured parsing and used the deterministic fallback",
		},
	)
	GeoAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoApiCallsTotal",
			Help: "Total number of administrative-divisions API calls",
		},
		[]string{"status"},
	)
	GeoAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geoApiDurationSeconds",
			Help:    "Administrative-divisions API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	GeocodingAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocodingApiCallsTotal",
			Help: "Total number of Mapbox geocoding API calls",
		},
		[]string{"status"},
	)
	GeocodingAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocodingApiDurationSeconds",
			Help:    "Mapbox geocoding API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits per cache",
		},
		[]string{"cacheType"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of cache misses per cache",
		},
		[]string{"cacheType"},
	)
	BatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchFanoutSize",
			Help:    "Number of locations per batch operation",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"operation"},
	)
	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchFanoutDurationSeconds",
			Help:    "Wall time of a batch operation including the fan-in barrier",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
	BatchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchFailuresTotal",
			Help: "Per-location failures inside batch operations, by stage",
		},
		[]string{"stage"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state per component: 0 closed, 1 open, 2 half-open",
		},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions per component",
		},
		[]string{"component", "from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIRetriesTotal,
		AIAPICallsTotal, AIAPIDuration, AIFallbacksTotal,
		GeoAPICallsTotal, GeoAPIDuration,
		GeocodingAPICallsTotal, GeocodingAPIDuration,
		CacheHitsTotal, CacheMissesTotal,
		BatchSize, BatchDuration, BatchFailuresTotal,
		RateLimitDeniedTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
	)
}

// MetricsHandler returns the /metrics handler for the private registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
