package audio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/petems/ushidashi/internal/audio"
	"github.com/petems/ushidashi/internal/audio/mock"
)

func TestCaptureKeepsEveryDeliveredBatch(t *testing.T) {
	b := &mock.Backend{Input: audio.Format{SampleRate: 16000, Channels: 1}}
	c, err := audio.OpenDefaultInput(b)
	if err != nil {
		t.Fatalf("OpenDefaultInput() error = %v", err)
	}

	rec, err := c.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	in := b.Inputs()[0]

	batch := []float32{0.1, 0.2, 0.3}
	for range 3 {
		if !in.Deliver(batch) {
			t.Fatal("expected delivery to a running stream")
		}
	}
	// The device reuses its buffer; mutating it must not reach the recording.
	batch[0] = 9

	buf, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if in.Deliver([]float32{1}) {
		t.Fatal("expected no delivery after Stop")
	}
	if !in.Closed() {
		t.Fatal("expected stream to be closed after Stop")
	}

	if buf.Format != c.Format() {
		t.Fatalf("expected format %v, got %v", c.Format(), buf.Format)
	}
	if len(buf.Samples) != 9 {
		t.Fatalf("expected 9 samples, got %d", len(buf.Samples))
	}
	for i, s := range buf.Samples {
		if want := []float32{0.1, 0.2, 0.3}[i%3]; s != want {
			t.Fatalf("sample %d: expected %f, got %f", i, want, s)
		}
	}
}

func TestCaptureClampsChannels(t *testing.T) {
	b := &mock.Backend{Input: audio.Format{SampleRate: 48000, Channels: 6}}
	c, err := audio.OpenDefaultInput(b)
	if err != nil {
		t.Fatalf("OpenDefaultInput() error = %v", err)
	}
	if c.Format().Channels != 2 {
		t.Fatalf("expected 2 channels, got %d", c.Format().Channels)
	}
}

func TestCaptureWithoutDevice(t *testing.T) {
	_, err := audio.OpenDefaultInput(&mock.Backend{NoInput: true})
	var de *audio.DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
	if !errors.Is(err, audio.ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice in chain, got %v", err)
	}
}

func TestCaptureOpenFailure(t *testing.T) {
	b := &mock.Backend{
		Input:   audio.Format{SampleRate: 16000, Channels: 1},
		OpenErr: errors.New("busy"),
	}
	c, err := audio.OpenDefaultInput(b)
	if err != nil {
		t.Fatalf("OpenDefaultInput() error = %v", err)
	}
	_, err = c.Start()
	var de *audio.DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
}

func TestCaptureDropsPastMaxDuration(t *testing.T) {
	b := &mock.Backend{Input: audio.Format{SampleRate: 10, Channels: 1}}
	c, err := audio.OpenDefaultInput(b, audio.WithMaxDuration(time.Second))
	if err != nil {
		t.Fatalf("OpenDefaultInput() error = %v", err)
	}
	rec, err := c.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	in := b.Inputs()[0]
	in.Deliver(make([]float32, 8))
	in.Deliver(make([]float32, 7))

	buf, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(buf.Samples) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(buf.Samples))
	}
	if rec.Dropped() != 5 {
		t.Fatalf("expected 5 dropped samples, got %d", rec.Dropped())
	}
}

func TestRecordingStopTwice(t *testing.T) {
	b := &mock.Backend{Input: audio.Format{SampleRate: 16000, Channels: 1}}
	c, _ := audio.OpenDefaultInput(b)
	rec, err := c.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := rec.Stop(); err != nil {
		t.Fatalf("first Stop() error = %v", err)
	}
	if _, err := rec.Stop(); err == nil {
		t.Fatal("expected second Stop() to fail")
	}
}
