package audio

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
)

type miniAudioBackend struct {
	ctx *malgo.AllocatedContext
}

func newMiniAudio() (Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{
		ThreadPriority: malgo.ThreadPriorityRealtime,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio: %w", err)
	}
	return &miniAudioBackend{ctx: ctx}, nil
}

func (m *miniAudioBackend) DefaultInput() (Format, error) {
	return m.nativeFormat(malgo.Capture)
}

func (m *miniAudioBackend) DefaultOutput() (Format, error) {
	return m.nativeFormat(malgo.Playback)
}

// nativeFormat briefly opens the default device with zeroed rate and
// channels, which miniaudio resolves to the device's own format.
func (m *miniAudioBackend) nativeFormat(kind malgo.DeviceType) (Format, error) {
	devices, err := m.ctx.Devices(kind)
	if err != nil {
		return Format{}, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if len(devices) == 0 {
		return Format{}, ErrNoDevice
	}

	cfg := malgo.DefaultDeviceConfig(kind)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Playback.Format = malgo.FormatF32
	dev, err := malgo.InitDevice(m.ctx.Context, cfg, malgo.DeviceCallbacks{})
	if err != nil {
		return Format{}, fmt.Errorf("failed to probe default device: %w", err)
	}
	defer dev.Uninit()

	channels := dev.CaptureChannels()
	if kind == malgo.Playback {
		channels = dev.PlaybackChannels()
	}
	if channels == 0 {
		return Format{}, ErrNoDevice
	}
	return Format{SampleRate: int(dev.SampleRate()), Channels: min(int(channels), 2)}, nil
}

func (m *miniAudioBackend) OpenInput(f Format, onData func(in []float32)) (Stream, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)

	s := &miniAudioStream{}
	dev, err := malgo.InitDevice(m.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, in []byte, frames uint32) {
			onData(floatView(in, int(frames)*f.Channels))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}
	s.dev = dev
	return s, nil
}

func (m *miniAudioBackend) OpenOutput(f Format, onData func(out []float32), onFault func(error)) (Stream, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)

	s := &miniAudioStream{}
	dev, err := malgo.InitDevice(m.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frames uint32) {
			onData(floatView(out, int(frames)*f.Channels))
		},
		Stop: func() {
			if !s.stopping.Load() && onFault != nil {
				onFault(fmt.Errorf("playback device stopped unexpectedly"))
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open playback device: %w", err)
	}
	s.dev = dev
	return s, nil
}

func (m *miniAudioBackend) Close() error {
	err := m.ctx.Uninit()
	m.ctx.Free()
	return err
}

type miniAudioStream struct {
	dev      *malgo.Device
	stopping atomic.Bool
}

func (s *miniAudioStream) Start() error {
	s.stopping.Store(false)
	return s.dev.Start()
}

func (s *miniAudioStream) Stop() error {
	s.stopping.Store(true)
	return s.dev.Stop()
}

func (s *miniAudioStream) Close() error {
	s.stopping.Store(true)
	s.dev.Uninit()
	return nil
}

// floatView reinterprets a FormatF32 device buffer without copying.
func floatView(b []byte, n int) []float32 {
	if len(b) == 0 || n == 0 {
		return nil
	}
	n = min(n, len(b)/4)
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
}
