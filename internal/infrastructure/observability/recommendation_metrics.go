package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	recommendationMetricsOnce sync.Once
	generatedCount            metric.Int64Counter
	complianceRejectCount     metric.Int64Counter
	transitionCount           metric.Int64Counter
	modelCallDuration         metric.Float64Histogram
)

// Instruments are created lazily from the global meter provider, so they
// are no-ops until Setup installs a real one.
func initRecommendationMetrics() {
	recommendationMetricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		generatedCount, _ = meter.Int64Counter(
			"nba.recommendations.generated",
			metric.WithDescription("Recommendations persisted, by source"),
		)
		complianceRejectCount, _ = meter.Int64Counter(
			"nba.compliance.rejected",
			metric.WithDescription("Candidates discarded by compliance, by violation kind"),
		)
		transitionCount, _ = meter.Int64Counter(
			"nba.lifecycle.transitions",
			metric.WithDescription("Lifecycle transitions applied"),
		)
		modelCallDuration, _ = meter.Float64Histogram(
			"nba.model.call.duration",
			metric.WithDescription("Model provider call latency in milliseconds"),
			metric.WithUnit("ms"),
		)
	})
}

// RecordGenerated counts persisted recommendations for one HCP run.
func RecordGenerated(ctx context.Context, source string, n int) {
	initRecommendationMetrics()
	if generatedCount == nil || n <= 0 {
		return
	}
	generatedCount.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

// RecordComplianceRejection counts one discarded candidate per violation kind.
func RecordComplianceRejection(ctx context.Context, kinds ...string) {
	initRecommendationMetrics()
	if complianceRejectCount == nil {
		return
	}
	for _, kind := range kinds {
		complianceRejectCount.Add(ctx, 1, metric.WithAttributes(attribute.String("violation", kind)))
	}
}

// RecordTransition counts an applied lifecycle transition.
func RecordTransition(ctx context.Context, from, to string) {
	initRecommendationMetrics()
	if transitionCount == nil {
		return
	}
	transitionCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordModelCall records model latency and whether the call succeeded.
func RecordModelCall(ctx context.Context, model string, ok bool, durationMs float64) {
	initRecommendationMetrics()
	if modelCallDuration == nil {
		return
	}
	modelCallDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("success", ok),
	))
}
