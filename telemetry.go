package howmany

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/howmany")
var meter = otel.Meter("github.com/go-digitaltwin/howmany")

const (
	// strategyName is the attribute key associating each resolution record with
	// the strategy that produced it (e.g. "direct" or "decomposition").
	strategyName = "strategy"
	// compareMode is the attribute key associating each comparison record with
	// the way its amounts were obtained (see Engine.Compare).
	compareMode = "mode"
)

var (
	// resolveDuration measures the duration of a single resolution strategy
	// attempt that produced a quantity, including its fetches.
	//
	// Each record is associated with the strategyName.
	resolveDuration metric.Float64Histogram
	// resolveFailures counts the resolution strategy attempts that failed,
	// whether or not the failure let the next strategy run.
	//
	// Each record is associated with the strategyName.
	resolveFailures metric.Int64Counter
	// compareDuration measures the duration of successful comparisons.
	//
	// Each record is associated with the compareMode.
	compareDuration metric.Float64Histogram
)

func init() {
	var err error
	resolveDuration, err = meter.Float64Histogram(
		"howmany.resolve.duration",
		metric.WithDescription("The duration of a successful resolution strategy attempt, including its fetches."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("howmany: failed to init 'howmany.resolve.duration' instrument")
	}

	resolveFailures, err = meter.Int64Counter(
		"howmany.resolve.failures",
		metric.WithDescription("The number of resolution strategy attempts that have failed."),
	)
	if err != nil {
		panic("howmany: failed to init 'howmany.resolve.failures' instrument")
	}

	compareDuration, err = meter.Float64Histogram(
		"howmany.compare.duration",
		metric.WithDescription("The duration of a successful comparison, including all resolutions and label fetches."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("howmany: failed to init 'howmany.compare.duration' instrument")
	}
}

// measureResolution records the outcome of a single strategy attempt: its
// duration if it succeeded, or a failure otherwise.
func measureResolution(ctx context.Context, strategy string, succeeded bool, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(strategyName, strategy))
	if succeeded {
		// Floating-point division keeps sub-millisecond precision.
		resolveDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributeSet(attrs))
	} else {
		resolveFailures.Add(ctx, 1, metric.WithAttributeSet(attrs))
	}
}

func measureComparison(ctx context.Context, mode string, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(compareMode, mode))
	compareDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributeSet(attrs))
}
