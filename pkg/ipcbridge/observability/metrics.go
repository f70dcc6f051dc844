package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records ipcbridge metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordRequest records a request handed to the transport.
	RecordRequest(ctx context.Context, event, mode string)

	// RecordDispatch records a response delivered to a handler, with the
	// time elapsed since the handler was registered.
	RecordDispatch(ctx context.Context, event string, latency time.Duration, err error)

	// RecordUnmatched records an inbound response with no handler.
	RecordUnmatched(ctx context.Context, strategy string)

	// RecordBuffered records a response parked by the fallback transport.
	RecordBuffered(ctx context.Context, event string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	requests       metric.Int64Counter
	dispatches     metric.Int64Counter
	deliveryErrors metric.Int64Counter
	latency        metric.Float64Histogram
	unmatched      metric.Int64Counter
	buffered       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared OTel instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("ipcbridge")

	requests, err := meter.Int64Counter("ipcbridge.requests",
		metric.WithDescription("Number of requests sent"),
	)
	if err != nil {
		return nil, err
	}

	dispatches, err := meter.Int64Counter("ipcbridge.dispatches",
		metric.WithDescription("Number of responses delivered to handlers"),
	)
	if err != nil {
		return nil, err
	}

	deliveryErrors, err := meter.Int64Counter("ipcbridge.delivery_errors",
		metric.WithDescription("Number of delivered responses carrying an error"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("ipcbridge.response.latency_ms",
		metric.WithDescription("Time from handler registration to delivery in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	unmatched, err := meter.Int64Counter("ipcbridge.unmatched",
		metric.WithDescription("Number of inbound responses without a handler"),
	)
	if err != nil {
		return nil, err
	}

	buffered, err := meter.Int64Counter("ipcbridge.buffered",
		metric.WithDescription("Number of responses buffered by the fallback transport"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		requests:       requests,
		dispatches:     dispatches,
		deliveryErrors: deliveryErrors,
		latency:        latency,
		unmatched:      unmatched,
		buffered:       buffered,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordRequest records a request.
func (m *otelMetrics) RecordRequest(ctx context.Context, event, mode string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("mode", mode),
	))
}

// RecordDispatch records a delivery.
func (m *otelMetrics) RecordDispatch(ctx context.Context, event string, latency time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("event", event))

	m.dispatches.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(latency.Microseconds())/1000, attrs)
	if err != nil {
		m.deliveryErrors.Add(ctx, 1, attrs)
	}
}

// RecordUnmatched records a dropped response.
func (m *otelMetrics) RecordUnmatched(ctx context.Context, strategy string) {
	m.unmatched.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordBuffered records a buffered response.
func (m *otelMetrics) RecordBuffered(ctx context.Context, event string) {
	m.buffered.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}
