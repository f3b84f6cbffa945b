package audio

import "sync"

// Player streams decoded containers to the default output device.
type Player struct {
	backend Backend
}

// OpenDefaultOutput checks that a default output device exists. It fails
// with a *DeviceError otherwise.
func OpenDefaultOutput(b Backend) (*Player, error) {
	f, err := b.DefaultOutput()
	if err != nil {
		return nil, &DeviceError{Op: "open default output", Err: err}
	}
	if f.Channels < 1 {
		return nil, &DeviceError{Op: "open default output", Err: ErrNoDevice}
	}
	return &Player{backend: b}, nil
}

// Play decodes container (WAV or MP3) and blocks until the device has been
// handed every sample or the stream fails. A container that cannot be
// decoded yields a *FormatError before any device is touched.
func (p *Player) Play(container []byte) error {
	b, err := DecodeContainer(container)
	if err != nil {
		return err
	}
	return p.PlayBuffer(b)
}

// PlayBuffer is Play for an already decoded buffer.
func (p *Player) PlayBuffer(b Buffer) error {
	q := newQueue(b.Samples)

	stream, err := p.backend.OpenOutput(b.Format, q.fill, q.fault)
	if err != nil {
		return &DeviceError{Op: "open output stream", Err: err}
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return &DeviceError{Op: "start output stream", Err: err}
	}

	err = <-q.done
	if stopErr := stream.Stop(); stopErr != nil && err == nil {
		err = &DeviceError{Op: "stop output stream", Err: stopErr}
	}
	return err
}

// queue is drained by the output callback. pos and drained are only touched
// on the callback thread; completion is reported once through done.
type queue struct {
	samples []float32
	pos     int
	// drained is set once the last sample has been handed to the device.
	drained bool

	once sync.Once
	done chan error
}

func newQueue(samples []float32) *queue {
	return &queue{samples: samples, done: make(chan error, 1)}
}

// fill copies the next samples into out and pads the rest with silence.
// Completion waits for the first all-silent period after the queue empties,
// so the device has taken the final samples before the stream is stopped.
func (q *queue) fill(out []float32) {
	n := copy(out, q.samples[q.pos:])
	q.pos += n
	clear(out[n:])
	if q.pos < len(q.samples) {
		return
	}
	if q.drained {
		q.finish(nil)
	}
	q.drained = true
}

func (q *queue) fault(err error) {
	q.finish(&DeviceError{Op: "output stream", Err: err})
}

func (q *queue) finish(err error) {
	q.once.Do(func() { q.done <- err })
}
