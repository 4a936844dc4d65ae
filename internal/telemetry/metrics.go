package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds all the metric instruments for postdesk.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter
	// uploads
	UploadsTotal      metric.Int64Counter
	UploadDuration    metric.Float64Histogram
	UploadsInFlight   metric.Int64UpDownCounter
	UploadBytesTotal  metric.Int64Counter
	DroppedFilesTotal metric.Int64Counter
	StaleOutcomes     metric.Int64Counter
	// limiter
	RateLimitHitsTotal metric.Int64Counter
	// preview
	CacheHitsTotal   metric.Int64Counter
	CacheMissesTotal metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_requests", "Total number of HTTP requests", "{request}"},
		{&m.UploadsTotal, "uploads", "Uploads by target and outcome", "{upload}"},
		{&m.UploadBytesTotal, "upload_bytes", "Bytes sent to the blob store", "By"},
		{&m.DroppedFilesTotal, "drop_files_ignored", "Dropped files ignored because only the first image is taken", "{file}"},
		{&m.StaleOutcomes, "upload_stale_outcomes", "Upload outcomes discarded because the draft was reset", "{upload}"},
		{&m.RateLimitHitsTotal, "rate_limit_hits", "Number of rate limiter blocked requests", "{request}"},
		{&m.CacheHitsTotal, "preview_cache_hits", "Number of preview cache hits", "{hit}"},
		{&m.CacheMissesTotal, "preview_cache_misses", "Number of preview cache misses", "{miss}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration",
		metric.WithDescription("HTTP request latency in ms"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration: %w", err)
	}

	m.UploadDuration, err = meter.Float64Histogram(
		"upload_duration",
		metric.WithDescription("Time from upload start to outcome in ms"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_active_requests: %w", err)
	}

	m.UploadsInFlight, err = meter.Int64UpDownCounter(
		"uploads_in_flight",
		metric.WithDescription("Uploads waiting on the blob store"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create uploads_in_flight: %w", err)
	}

	return &m, nil
}

// NewNoopMetrics returns instruments bound to a no-op meter, handy in tests.
func NewNoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(""))
	return m
}

func (m *Metrics) UploadStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.UploadsInFlight.Add(ctx, 1)
}

// UploadFinished closes what UploadStarted opened and records the result.
func (m *Metrics) UploadFinished(ctx context.Context, target, outcome string, elapsed time.Duration, size int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("upload.target", target),
		attribute.String("upload.outcome", outcome),
	)
	m.UploadsInFlight.Add(ctx, -1)
	m.UploadsTotal.Add(ctx, 1, attrs)
	m.UploadDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	if outcome == "success" {
		m.UploadBytesTotal.Add(ctx, size, metric.WithAttributes(attribute.String("upload.target", target)))
	}
}

func (m *Metrics) FilesIgnored(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedFilesTotal.Add(ctx, int64(n))
}

func (m *Metrics) StaleOutcome(ctx context.Context, target string) {
	if m == nil {
		return
	}
	m.StaleOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("upload.target", target)))
}

func (m *Metrics) PreviewCache(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Add(ctx, 1)
		return
	}
	m.CacheMissesTotal.Add(ctx, 1)
}
