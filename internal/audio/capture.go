package audio

import (
	"errors"
	"sync"
	"time"
)

const (
	maxCaptureChannels = 2
	defaultMaxDuration = 5 * time.Minute
	preallocDuration   = 10 * time.Second
)

// Capture records from the system default input device in its native
// format.
type Capture struct {
	backend     Backend
	format      Format
	maxDuration time.Duration
}

// CaptureOption configures a Capture.
type CaptureOption func(*Capture)

// WithMaxDuration bounds how much audio one recording keeps. Samples past
// the bound are counted and dropped.
func WithMaxDuration(d time.Duration) CaptureOption {
	return func(c *Capture) {
		if d > 0 {
			c.maxDuration = d
		}
	}
}

// OpenDefaultInput selects the default input device. It fails with a
// *DeviceError if the system has none.
func OpenDefaultInput(b Backend, opts ...CaptureOption) (*Capture, error) {
	f, err := b.DefaultInput()
	if err != nil {
		return nil, &DeviceError{Op: "open default input", Err: err}
	}
	if f.Channels < 1 || f.SampleRate <= 0 {
		return nil, &DeviceError{Op: "open default input", Err: ErrNoDevice}
	}
	// The codec carries mono or stereo only.
	f.Channels = min(f.Channels, maxCaptureChannels)

	c := &Capture{backend: b, format: f, maxDuration: defaultMaxDuration}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Format returns the format recordings are made in.
func (c *Capture) Format() Format { return c.format }

// Start opens a stream on the default input and begins appending every
// delivered batch to a fresh buffer.
func (c *Capture) Start() (*Recording, error) {
	limit := int(c.maxDuration.Seconds()*float64(c.format.SampleRate)) * c.format.Channels
	prealloc := min(limit, int(preallocDuration.Seconds())*c.format.SampleRate*c.format.Channels)

	r := &Recording{
		format:  c.format,
		started: time.Now(),
		buf:     &sharedBuffer{samples: make([]float32, 0, prealloc), limit: limit},
	}

	stream, err := c.backend.OpenInput(c.format, r.buf.append)
	if err != nil {
		return nil, &DeviceError{Op: "open input stream", Err: err}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, &DeviceError{Op: "start input stream", Err: err}
	}
	r.stream = stream
	return r, nil
}

// Recording is a capture stream in progress.
type Recording struct {
	format  Format
	started time.Time
	stream  Stream
	buf     *sharedBuffer

	mu      sync.Mutex
	stopped bool
	dropped int
}

// Started returns when the stream was started.
func (r *Recording) Started() time.Time { return r.started }

// Stop halts the stream and takes ownership of everything delivered before
// it returned. Batches arriving after the take are discarded.
func (r *Recording) Stop() (Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return Buffer{}, errors.New("recording already stopped")
	}
	r.stopped = true

	stopErr := r.stream.Stop()
	samples, dropped := r.buf.take()
	closeErr := r.stream.Close()
	r.dropped = dropped

	b := Buffer{Format: r.format, Samples: samples}
	if stopErr != nil {
		return b, &DeviceError{Op: "stop input stream", Err: stopErr}
	}
	if closeErr != nil {
		return b, &DeviceError{Op: "close input stream", Err: closeErr}
	}
	return b, nil
}

// Dropped reports how many samples were discarded because the recording hit
// its maximum duration. It is valid after Stop.
func (r *Recording) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// sharedBuffer is written by the device callback thread and taken once by
// the controlling thread. The mutex is held only for one append or the take.
type sharedBuffer struct {
	mu      sync.Mutex
	samples []float32
	limit   int
	dropped int
	taken   bool
}

func (s *sharedBuffer) append(in []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken {
		return
	}
	room := s.limit - len(s.samples)
	if len(in) > room {
		s.dropped += len(in) - max(room, 0)
		if room <= 0 {
			return
		}
		in = in[:room]
	}
	// The backend reuses its batch slice, so the samples are copied.
	s.samples = append(s.samples, in...)
}

func (s *sharedBuffer) take() ([]float32, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.samples
	s.samples = nil
	s.taken = true
	return out, s.dropped
}
