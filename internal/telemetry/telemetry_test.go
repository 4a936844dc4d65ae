package telemetry

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestInitDisabled(t *testing.T) {
	t.Parallel()
	tel, err := Init(context.Background(), "postdesk", "test", "dev", "", false, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if tel.Tracer == nil || tel.Meter == nil {
		t.Fatal("expected no-op tracer and meter")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}

	if _, err := NewMetrics(tel.Meter); err != nil {
		t.Fatalf("NewMetrics on no-op meter: %v", err)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	t.Parallel()
	var m *Metrics
	ctx := context.Background()

	m.UploadStarted(ctx)
	m.UploadFinished(ctx, "inline", "success", time.Millisecond, 10)
	m.FilesIgnored(ctx, 2)
	m.StaleOutcome(ctx, "dropped")
	m.PreviewCache(ctx, true)
}

func TestNoopMetricsRecord(t *testing.T) {
	t.Parallel()
	m := NewNoopMetrics()
	if m == nil || m.UploadsTotal == nil {
		t.Fatal("expected instruments")
	}
	m.UploadStarted(context.Background())
	m.UploadFinished(context.Background(), "featured", "failure", time.Second, 0)
}
