// Package metrics wires OpenTelemetry metrics to a Prometheus scrape endpoint
// and defines the pipeline's counters.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/cuongbtq/mediajobs"

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// Recorder holds the pipeline counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	submitted     otelmetric.Int64Counter
	transitions   otelmetric.Int64Counter
	notifications otelmetric.Int64Counter
	invalidations otelmetric.Int64Counter
}

// NewRecorder creates counters on the global meter provider. Call it after InitMetrics.
func NewRecorder() (*Recorder, error) {
	return NewRecorderFromProvider(otel.GetMeterProvider())
}

// NewRecorderFromProvider creates counters on the given meter provider
func NewRecorderFromProvider(provider otelmetric.MeterProvider) (*Recorder, error) {
	return newRecorder(provider.Meter(meterName))
}

// Noop returns a Recorder backed by a no-op meter, for tests and disabled metrics.
func Noop() *Recorder {
	r, _ := newRecorder(noop.NewMeterProvider().Meter(meterName))
	return r
}

func newRecorder(meter otelmetric.Meter) (*Recorder, error) {
	var (
		r   Recorder
		err error
	)

	r.submitted, err = meter.Int64Counter("mediajobs_jobs_submitted_total",
		otelmetric.WithDescription("Submissions by outcome (created or joined)"))
	if err != nil {
		return nil, fmt.Errorf("failed to create submitted counter: %w", err)
	}

	r.transitions, err = meter.Int64Counter("mediajobs_job_transitions_total",
		otelmetric.WithDescription("Applied state transitions by target state"))
	if err != nil {
		return nil, fmt.Errorf("failed to create transitions counter: %w", err)
	}

	r.notifications, err = meter.Int64Counter("mediajobs_notifications_created_total",
		otelmetric.WithDescription("Notifications created by the dispatcher"))
	if err != nil {
		return nil, fmt.Errorf("failed to create notifications counter: %w", err)
	}

	r.invalidations, err = meter.Int64Counter("mediajobs_cache_invalidations_total",
		otelmetric.WithDescription("Cache invalidation attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create invalidations counter: %w", err)
	}

	return &r, nil
}

// Submitted counts one submission. outcome is "created" or "joined".
func (r *Recorder) Submitted(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	r.submitted.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

// Transitioned counts one applied transition into state to.
func (r *Recorder) Transitioned(ctx context.Context, to string) {
	if r == nil {
		return
	}
	r.transitions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("to", to)))
}

// NotificationsCreated counts newly inserted notifications.
func (r *Recorder) NotificationsCreated(ctx context.Context, n int) {
	if r == nil || n == 0 {
		return
	}
	r.notifications.Add(ctx, int64(n))
}

// Invalidated counts one invalidation attempt. result is "ok" or "error".
func (r *Recorder) Invalidated(ctx context.Context, result string) {
	if r == nil {
		return
	}
	r.invalidations.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("result", result)))
}
