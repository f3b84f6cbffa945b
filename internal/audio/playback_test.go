package audio_test

import (
	"errors"
	"testing"

	"github.com/petems/ushidashi/internal/audio"
	"github.com/petems/ushidashi/internal/audio/mock"
)

func TestPlayDeliversEverySample(t *testing.T) {
	src := audio.Buffer{Format: audio.Format{SampleRate: 24000, Channels: 1}, Samples: make([]float32, 250)}
	for i := range src.Samples {
		src.Samples[i] = float32(i%50) / 100
	}
	container, err := audio.Encode(src)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want, err := audio.Decode(container)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	b := &mock.Backend{Output: audio.Format{SampleRate: 48000, Channels: 2}, Period: 100}
	p, err := audio.OpenDefaultOutput(b)
	if err != nil {
		t.Fatalf("OpenDefaultOutput() error = %v", err)
	}
	if err := p.Play(container); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	outs := b.Outputs()
	if len(outs) != 1 {
		t.Fatalf("expected one output stream, got %d", len(outs))
	}
	out := outs[0]
	if out.Format() != src.Format {
		t.Fatalf("expected stream in %v, got %v", src.Format, out.Format())
	}
	if !out.Closed() {
		t.Fatal("expected output stream to be closed")
	}

	played := out.Played()
	// Three periods carry the buffer and a fourth, silent one drains it.
	if len(played) < 400 {
		t.Fatalf("expected at least four periods, got %d samples", len(played))
	}
	for i, s := range want.Samples {
		if played[i] != s {
			t.Fatalf("sample %d: expected %f, got %f", i, s, played[i])
		}
	}
	for i := len(want.Samples); i < len(played); i++ {
		if played[i] != 0 {
			t.Fatalf("expected silence after the buffer, sample %d is %f", i, played[i])
		}
	}
}

func TestPlayRejectsUndecodableContainer(t *testing.T) {
	b := &mock.Backend{Output: audio.Format{SampleRate: 48000, Channels: 2}}
	p, err := audio.OpenDefaultOutput(b)
	if err != nil {
		t.Fatalf("OpenDefaultOutput() error = %v", err)
	}

	err = p.Play([]byte("not audio at all"))
	var fe *audio.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError, got %v", err)
	}
	if len(b.Outputs()) != 0 {
		t.Fatal("expected no output stream for a bad container")
	}
}

func TestPlayEmptyBuffer(t *testing.T) {
	b := &mock.Backend{Output: audio.Format{SampleRate: 48000, Channels: 2}}
	p, _ := audio.OpenDefaultOutput(b)

	err := p.PlayBuffer(audio.Buffer{Format: audio.Format{SampleRate: 16000, Channels: 1}})
	if err != nil {
		t.Fatalf("PlayBuffer() error = %v", err)
	}
}

func TestPlayReportsDeviceFault(t *testing.T) {
	fault := errors.New("device unplugged")
	b := &mock.Backend{
		Output: audio.Format{SampleRate: 48000, Channels: 2},
		Period: 10,
		Fault:  fault,
	}
	p, _ := audio.OpenDefaultOutput(b)

	err := p.PlayBuffer(audio.Buffer{
		Format:  audio.Format{SampleRate: 16000, Channels: 1},
		Samples: make([]float32, 1000),
	})
	var de *audio.DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
	if !errors.Is(err, fault) {
		t.Fatalf("expected fault in chain, got %v", err)
	}
}

func TestOpenDefaultOutputWithoutDevice(t *testing.T) {
	_, err := audio.OpenDefaultOutput(&mock.Backend{NoOutput: true})
	if !errors.Is(err, audio.ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
}
