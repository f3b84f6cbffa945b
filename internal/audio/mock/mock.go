// Package mock provides a scripted audio.Backend for tests.
package mock

import (
	"errors"
	"sync"

	"github.com/petems/ushidashi/internal/audio"
)

const defaultPeriod = 256

// Backend is an in-memory audio.Backend. The exported fields configure it
// and must be set before first use.
type Backend struct {
	Input    audio.Format
	Output   audio.Format
	NoInput  bool
	NoOutput bool

	// OpenErr and StartErr are returned by every OpenInput/OpenOutput and
	// Stream.Start call respectively.
	OpenErr  error
	StartErr error

	// StopErr is returned by input streams' Stop.
	StopErr error

	// OnInputStart runs synchronously after an input stream starts, so it
	// can Deliver samples before the caller of Start regains control.
	OnInputStart func(*InputStream)

	// Period is the number of samples an output stream requests per
	// callback.
	Period int
	// Fault, if set, is reported by output streams after their first period.
	Fault error

	mu      sync.Mutex
	inputs  []*InputStream
	outputs []*OutputStream
	closed  bool
}

var _ audio.Backend = (*Backend)(nil)

func (b *Backend) DefaultInput() (audio.Format, error) {
	if b.NoInput {
		return audio.Format{}, audio.ErrNoDevice
	}
	return b.Input, nil
}

func (b *Backend) DefaultOutput() (audio.Format, error) {
	if b.NoOutput {
		return audio.Format{}, audio.ErrNoDevice
	}
	return b.Output, nil
}

func (b *Backend) OpenInput(f audio.Format, onData func([]float32)) (audio.Stream, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	s := &InputStream{backend: b, format: f, onData: onData}
	b.mu.Lock()
	b.inputs = append(b.inputs, s)
	b.mu.Unlock()
	return s, nil
}

func (b *Backend) OpenOutput(f audio.Format, onData func([]float32), onFault func(error)) (audio.Stream, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	period := b.Period
	if period <= 0 {
		period = defaultPeriod
	}
	s := &OutputStream{
		backend: b,
		format:  f,
		onData:  onData,
		onFault: onFault,
		period:  period,
		fault:   b.Fault,
	}
	b.mu.Lock()
	b.outputs = append(b.outputs, s)
	b.mu.Unlock()
	return s, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Inputs returns every input stream opened so far.
func (b *Backend) Inputs() []*InputStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*InputStream(nil), b.inputs...)
}

// Outputs returns every output stream opened so far.
func (b *Backend) Outputs() []*OutputStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*OutputStream(nil), b.outputs...)
}

// InputStream delivers samples only between Start and Stop.
type InputStream struct {
	backend *Backend
	format  audio.Format
	onData  func([]float32)

	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool
}

// Format returns the format the stream was opened with.
func (s *InputStream) Format() audio.Format { return s.format }

func (s *InputStream) Start() error {
	if s.backend.StartErr != nil {
		return s.backend.StartErr
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	if hook := s.backend.OnInputStart; hook != nil {
		hook(s)
	}
	return nil
}

// Deliver hands samples to the stream callback as the device thread would.
// It reports false, delivering nothing, unless the stream is running.
func (s *InputStream) Deliver(samples []float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return false
	}
	s.onData(samples)
	return true
}

func (s *InputStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.New("input stream not started")
	}
	s.stopped = true
	return s.backend.StopErr
}

func (s *InputStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *InputStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// OutputStream pulls period-sized buffers from its callback on its own
// goroutine until stopped, recording everything it was handed.
type OutputStream struct {
	backend *Backend
	format  audio.Format
	onData  func([]float32)
	onFault func(error)
	period  int
	fault   error

	mu      sync.Mutex
	played  []float32
	running bool
	closed  bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// Format returns the format the stream was opened with.
func (s *OutputStream) Format() audio.Format { return s.format }

func (s *OutputStream) Start() error {
	if s.backend.StartErr != nil {
		return s.backend.StartErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("output stream already running")
	}
	s.running = true
	s.quit = make(chan struct{})
	s.wg.Add(1)
	go s.pump(s.quit)
	return nil
}

func (s *OutputStream) pump(quit <-chan struct{}) {
	defer s.wg.Done()
	for first := true; ; first = false {
		select {
		case <-quit:
			return
		default:
		}
		if s.fault != nil && !first {
			if s.onFault != nil {
				s.onFault(s.fault)
			}
			return
		}
		buf := make([]float32, s.period)
		s.onData(buf)
		s.mu.Lock()
		s.played = append(s.played, buf...)
		s.mu.Unlock()
	}
}

// Stop blocks until the pump goroutine has returned.
func (s *OutputStream) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.quit)
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *OutputStream) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *OutputStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Played returns every sample the callback wrote, including trailing
// silence requested before Stop.
func (s *OutputStream) Played() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float32(nil), s.played...)
}
