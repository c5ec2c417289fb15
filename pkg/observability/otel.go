package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for search and cache instruments.
var meter = otel.Meter("causalorder")

var (
	restartDuration metric.Float64Histogram
	restartScore    metric.Float64Histogram
	improvements    metric.Int64Counter
	searchTotal     metric.Int64Counter
	searchFailures  metric.Int64Counter
	cacheOps        metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		restartDuration, err = meter.Float64Histogram(
			"search_restart_duration_seconds",
			metric.WithDescription("Duration of a single restart from initial order to local optimum"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		restartScore, err = meter.Float64Histogram(
			"search_restart_score",
			metric.WithDescription("Total score of each restart's local optimum"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		improvements, err = meter.Int64Counter(
			"search_improvements_total",
			metric.WithDescription("Accepted improving moves by move kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchTotal, err = meter.Int64Counter(
			"search_runs_total",
			metric.WithDescription("Completed search runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchFailures, err = meter.Int64Counter(
			"search_evaluation_failures_total",
			metric.WithDescription("Recovered score or independence evaluation failures"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheOps, err = meter.Int64Counter(
			"score_cache_operations_total",
			metric.WithDescription("Score cache operations by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// OTelSearchHooks records search events as OpenTelemetry metrics.
type OTelSearchHooks struct{ NoopSearchHooks }

// NewOTelSearchHooks returns search hooks backed by the global meter provider.
func NewOTelSearchHooks() *OTelSearchHooks { return &OTelSearchHooks{} }

func (*OTelSearchHooks) OnImprovement(ctx context.Context, restart int, kind MoveKind, score float64) {
	if err := initMetrics(); err != nil {
		return
	}
	improvements.Add(ctx, 1, metric.WithAttributes(attribute.String("move", string(kind))))
}

func (*OTelSearchHooks) OnRestartComplete(ctx context.Context, restart int, score float64, iterations int, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	restartDuration.Record(ctx, duration.Seconds())
	restartScore.Record(ctx, score)
}

func (*OTelSearchHooks) OnSearchComplete(ctx context.Context, score float64, failures int64, incomplete bool, duration time.Duration, err error) {
	if initMetrics() != nil {
		return
	}
	searchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("incomplete", incomplete),
		attribute.Bool("success", err == nil),
	))
	if failures > 0 {
		searchFailures.Add(ctx, failures)
	}
}

// OTelCacheHooks records cache events as OpenTelemetry metrics.
type OTelCacheHooks struct{}

// NewOTelCacheHooks returns cache hooks backed by the global meter provider.
func NewOTelCacheHooks() *OTelCacheHooks { return &OTelCacheHooks{} }

func (*OTelCacheHooks) record(ctx context.Context, keyType, op string) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key_type", keyType),
		attribute.String("op", op),
	))
}

func (h *OTelCacheHooks) OnCacheHit(ctx context.Context, keyType string)  { h.record(ctx, keyType, "hit") }
func (h *OTelCacheHooks) OnCacheMiss(ctx context.Context, keyType string) { h.record(ctx, keyType, "miss") }
func (h *OTelCacheHooks) OnCacheSet(ctx context.Context, keyType string, _ int) {
	h.record(ctx, keyType, "set")
}
func (h *OTelCacheHooks) OnCacheEvict(ctx context.Context, keyType string) {
	h.record(ctx, keyType, "evict")
}

var (
	_ SearchHooks = (*OTelSearchHooks)(nil)
	_ CacheHooks  = (*OTelCacheHooks)(nil)
)
