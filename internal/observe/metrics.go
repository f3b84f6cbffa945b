// Package observe records assistant metrics through OpenTelemetry and
// exposes them for Prometheus scraping.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/petems/ushidashi"

// Pipeline stages timed by StageDuration.
const (
	StageTranscribe = "stt"
	StageReply      = "llm"
	StageSynthesize = "tts"
	StagePlayback   = "playback"
)

// Metrics holds every instrument the controller records to. The zero value
// is not usable; build one with NewMetrics or Nop.
type Metrics struct {
	// Sessions counts finished press/release cycles by outcome.
	Sessions metric.Int64Counter
	// RecordingDuration is the length of captured audio, in seconds.
	RecordingDuration metric.Float64Histogram
	// StageDuration is per-stage latency, in seconds, by stage.
	StageDuration metric.Float64Histogram
	// CollaboratorErrors counts failed external calls by service.
	CollaboratorErrors metric.Int64Counter
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Sessions, err = m.Int64Counter("ushidashi.sessions",
		metric.WithDescription("Push-to-talk sessions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.RecordingDuration, err = m.Float64Histogram("ushidashi.recording.duration",
		metric.WithDescription("Length of captured speech."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("ushidashi.stage.duration",
		metric.WithDescription("Latency of each dispatch stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CollaboratorErrors, err = m.Int64Counter("ushidashi.collaborator.errors",
		metric.WithDescription("Failed calls to external services by service."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Nop returns Metrics that record nothing.
func Nop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

func (m *Metrics) SessionEnded(ctx context.Context, outcome string) {
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) Recorded(ctx context.Context, d time.Duration) {
	m.RecordingDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) Stage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) CollaboratorFailed(ctx context.Context, service string) {
	m.CollaboratorErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("service", service)))
}
