package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/secretcache/internal/breaker"
	"github.com/systmms/secretcache/internal/classify"
)

// Prometheus records events as Prometheus metrics.
type Prometheus struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheOps     *prometheus.CounterVec
	retries      *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

// NewPrometheus registers the secretcache metrics on reg. Registering twice
// on the same registry panics, so share one Prometheus between resolvers;
// the store label keeps them apart.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretcache_requests_total",
				Help: "Total number of secret store requests",
			},
			[]string{"store", "status", "error_category"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secretcache_request_duration_seconds",
				Help:    "Latency of secret store requests in seconds, retries included",
				Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"store"},
		),
		cacheOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretcache_cache_operations_total",
				Help: "Total number of cache lookups",
			},
			[]string{"store", "operation"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretcache_retry_attempts_total",
				Help: "Total number of retry attempts",
			},
			[]string{"store", "attempt", "error_category"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "secretcache_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 0.5=half_open, 1=open)",
			},
			[]string{"store"},
		),
	}
}

func (p *Prometheus) CacheHit(store string) {
	p.cacheOps.WithLabelValues(store, OperationCacheHit).Inc()
}

func (p *Prometheus) CacheMiss(store string) {
	p.cacheOps.WithLabelValues(store, OperationCacheMiss).Inc()
}

func (p *Prometheus) Success(store string, latency time.Duration) {
	p.request(store, StatusSuccess, noCategory, latency)
}

func (p *Prometheus) NotFound(store string, latency time.Duration) {
	p.request(store, StatusNotFound, noCategory, latency)
}

func (p *Prometheus) Error(store string, latency time.Duration, category classify.Category) {
	p.request(store, StatusError, category.String(), latency)
}

func (p *Prometheus) request(store, status, category string, latency time.Duration) {
	p.requests.WithLabelValues(store, status, category).Inc()
	p.duration.WithLabelValues(store).Observe(latency.Seconds())
}

func (p *Prometheus) RetryAttempt(store string, attempt int, category classify.Category) {
	p.retries.WithLabelValues(store, strconv.Itoa(attempt), category.String()).Inc()
}

func (p *Prometheus) BreakerStateChanged(store string, state breaker.State) {
	p.breakerState.WithLabelValues(store).Set(StateValue(state))
}
