package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/petems/ushidashi/internal/config"
)

// Format describes interleaved float32 samples.
type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Buffer is an interleaved run of normalized samples in roughly [-1, 1].
type Buffer struct {
	Format
	Samples []float32
}

// Frames returns the number of sample frames (one sample per channel).
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playing time of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Backend opens streams on the system default devices. Callbacks passed to
// OpenInput and OpenOutput run on a thread owned by the backend.
type Backend interface {
	// DefaultInput reports the native format of the default input device.
	DefaultInput() (Format, error)
	// DefaultOutput reports the native format of the default output device.
	DefaultOutput() (Format, error)
	OpenInput(f Format, onData func(in []float32)) (Stream, error)
	// OpenOutput opens a stream that calls onData to fill each device
	// period. onFault is called at most once if the device stops on its own.
	OpenOutput(f Format, onData func(out []float32), onFault func(error)) (Stream, error)
	Close() error
}

// Stream is a running or stopped device stream. Stop blocks until the
// callback thread has returned for the last time.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// ErrNoDevice is reported when the system has no default device of the
// requested direction.
var ErrNoDevice = errors.New("no audio device available")

// DeviceError reports a missing device or a stream that could not be built,
// started or kept running.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// FormatError reports an audio container that cannot be encoded or decoded.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "audio format: " + e.Reason
}

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// NewBackend initializes the audio library named by cfg.Backend.
func NewBackend(cfg config.AudioConfig) (Backend, error) {
	switch cfg.Backend {
	case "", config.AudioPortAudio:
		return newPortAudio()
	case config.AudioMiniAudio:
		return newMiniAudio()
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}
