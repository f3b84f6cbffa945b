package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type portAudioBackend struct{}

func newPortAudio() (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return portAudioBackend{}, nil
}

func (portAudioBackend) DefaultInput() (Format, error) {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Format{}, fmt.Errorf("failed to get default input device: %w", err)
	}
	if dev == nil || dev.MaxInputChannels < 1 {
		return Format{}, ErrNoDevice
	}
	return Format{
		SampleRate: int(dev.DefaultSampleRate),
		Channels:   min(dev.MaxInputChannels, maxCaptureChannels),
	}, nil
}

func (portAudioBackend) DefaultOutput() (Format, error) {
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return Format{}, fmt.Errorf("failed to get default output device: %w", err)
	}
	if dev == nil || dev.MaxOutputChannels < 1 {
		return Format{}, ErrNoDevice
	}
	return Format{
		SampleRate: int(dev.DefaultSampleRate),
		Channels:   min(dev.MaxOutputChannels, 2),
	}, nil
}

func (portAudioBackend) OpenInput(f Format, onData func(in []float32)) (Stream, error) {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to get default input device: %w", err)
	}
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = f.Channels
	params.SampleRate = float64(f.SampleRate)

	stream, err := portaudio.OpenStream(params, func(in []float32) { onData(in) })
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return stream, nil
}

// OpenOutput ignores onFault: PortAudio reports stream failures from the
// blocking calls, not asynchronously.
func (portAudioBackend) OpenOutput(f Format, onData func(out []float32), _ func(error)) (Stream, error) {
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to get default output device: %w", err)
	}
	params := portaudio.HighLatencyParameters(nil, dev)
	params.Output.Channels = f.Channels
	params.SampleRate = float64(f.SampleRate)

	stream, err := portaudio.OpenStream(params, func(out []float32) { onData(out) })
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return stream, nil
}

func (portAudioBackend) Close() error {
	return portaudio.Terminate()
}
