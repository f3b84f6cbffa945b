package observe

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q not found", name)
	return metricdata.Metrics{}
}

func TestSessionEndedCountsByOutcome(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionEnded(ctx, "forwarded")
	m.SessionEnded(ctx, "forwarded")
	m.SessionEnded(ctx, "discarded")

	sum, ok := findMetric(t, reader, "ushidashi.sessions").Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("expected an int64 sum")
	}
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[v.AsString()] = dp.Value
	}
	if counts["forwarded"] != 2 || counts["discarded"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestStageRecordsSeconds(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.Stage(context.Background(), StageReply, 1500*time.Millisecond)

	hist, ok := findMetric(t, reader, "ushidashi.stage.duration").Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("expected a float64 histogram")
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("expected one data point, got %d", len(hist.DataPoints))
	}
	dp := hist.DataPoints[0]
	if dp.Count != 1 || dp.Sum != 1.5 {
		t.Fatalf("expected one 1.5s observation, got count=%d sum=%f", dp.Count, dp.Sum)
	}
	if v, _ := dp.Attributes.Value(attribute.Key("stage")); v.AsString() != StageReply {
		t.Fatalf("expected stage attribute %q, got %q", StageReply, v.AsString())
	}
}

func TestNopRecordsNothing(t *testing.T) {
	m := Nop()
	m.SessionEnded(context.Background(), "errored")
	m.CollaboratorFailed(context.Background(), "chat")
	m.Recorded(context.Background(), time.Second)
}

func TestExporterServesPrometheusText(t *testing.T) {
	exp, err := NewExporter()
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	defer exp.Shutdown(context.Background())

	exp.Metrics.CollaboratorFailed(context.Background(), "synthesis")

	rec := httptest.NewRecorder()
	exp.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "ushidashi_collaborator_errors") {
		t.Fatalf("expected collaborator error metric in output:\n%s", body)
	}
	if !strings.Contains(string(body), `service="synthesis"`) {
		t.Fatalf("expected service label in output:\n%s", body)
	}
}
