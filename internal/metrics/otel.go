package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/systmms/secretcache/internal/breaker"
	"github.com/systmms/secretcache/internal/classify"
)

const meterName = "github.com/systmms/secretcache"

// OTel records events as OpenTelemetry instruments.
type OTel struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	cacheOps     metric.Int64Counter
	retries      metric.Int64Counter
	breakerState metric.Float64Gauge
}

// NewOTel creates the instruments on provider, or on the global meter
// provider when provider is nil. Instruments that fail to initialize are
// replaced by no-ops after the error is handed to otel.Handle.
func NewOTel(provider metric.MeterProvider) *OTel {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)
	fallback := noop.NewMeterProvider().Meter(meterName)

	o := &OTel{}
	var err error

	if o.requests, err = meter.Int64Counter("secretcache.requests",
		metric.WithDescription("Total secret store requests."),
		metric.WithUnit("{request}")); err != nil {
		otel.Handle(err)
		o.requests, _ = fallback.Int64Counter("secretcache.requests")
	}
	if o.duration, err = meter.Float64Histogram("secretcache.request.duration",
		metric.WithDescription("Latency of secret store requests, retries included."),
		metric.WithUnit("s")); err != nil {
		otel.Handle(err)
		o.duration, _ = fallback.Float64Histogram("secretcache.request.duration")
	}
	if o.cacheOps, err = meter.Int64Counter("secretcache.cache.operations",
		metric.WithDescription("Total cache lookups."),
		metric.WithUnit("{operation}")); err != nil {
		otel.Handle(err)
		o.cacheOps, _ = fallback.Int64Counter("secretcache.cache.operations")
	}
	if o.retries, err = meter.Int64Counter("secretcache.retry.attempts",
		metric.WithDescription("Total retry attempts."),
		metric.WithUnit("{attempt}")); err != nil {
		otel.Handle(err)
		o.retries, _ = fallback.Int64Counter("secretcache.retry.attempts")
	}
	if o.breakerState, err = meter.Float64Gauge("secretcache.circuit_breaker.state",
		metric.WithDescription("Circuit breaker state: 0 closed, 0.5 half open, 1 open.")); err != nil {
		otel.Handle(err)
		o.breakerState, _ = fallback.Float64Gauge("secretcache.circuit_breaker.state")
	}
	return o
}

func storeAttr(store string) attribute.KeyValue {
	return attribute.String("store", store)
}

func (o *OTel) CacheHit(store string) {
	o.cacheOps.Add(context.Background(), 1,
		metric.WithAttributes(storeAttr(store), attribute.String("operation", OperationCacheHit)))
}

func (o *OTel) CacheMiss(store string) {
	o.cacheOps.Add(context.Background(), 1,
		metric.WithAttributes(storeAttr(store), attribute.String("operation", OperationCacheMiss)))
}

func (o *OTel) Success(store string, latency time.Duration) {
	o.request(store, StatusSuccess, noCategory, latency)
}

func (o *OTel) NotFound(store string, latency time.Duration) {
	o.request(store, StatusNotFound, noCategory, latency)
}

func (o *OTel) Error(store string, latency time.Duration, category classify.Category) {
	o.request(store, StatusError, category.String(), latency)
}

func (o *OTel) request(store, status, category string, latency time.Duration) {
	ctx := context.Background()
	o.requests.Add(ctx, 1, metric.WithAttributes(
		storeAttr(store),
		attribute.String("status", status),
		attribute.String("error_category", category),
	))
	o.duration.Record(ctx, latency.Seconds(), metric.WithAttributes(storeAttr(store)))
}

func (o *OTel) RetryAttempt(store string, attempt int, category classify.Category) {
	o.retries.Add(context.Background(), 1, metric.WithAttributes(
		storeAttr(store),
		attribute.Int("attempt", attempt),
		attribute.String("error_category", category.String()),
	))
}

func (o *OTel) BreakerStateChanged(store string, state breaker.State) {
	o.breakerState.Record(context.Background(), StateValue(state), metric.WithAttributes(storeAttr(store)))
}
