package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth      = 16
	wavFormatPCM  = 1
	quantizeScale = 32767.0
)

// Encode quantizes b to 16-bit signed PCM and wraps it in a WAV container
// whose header carries b's channel count and sample rate. Samples outside
// [-1, 1] are clamped.
func Encode(b Buffer) ([]byte, error) {
	if b.Channels < 1 || b.Channels > 2 {
		return nil, formatErrorf("unsupported channel count %d", b.Channels)
	}
	if b.SampleRate <= 0 {
		return nil, formatErrorf("invalid sample rate %d", b.SampleRate)
	}
	if len(b.Samples)%b.Channels != 0 {
		return nil, formatErrorf("%d samples do not fill whole %d-channel frames", len(b.Samples), b.Channels)
	}

	ints := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		ints[i] = int(quantize(s))
	}

	out := &seekBuffer{}
	enc := wav.NewEncoder(out, b.SampleRate, bitDepth, b.Channels, wavFormatPCM)
	// Write is required even for an empty buffer: it emits the header.
	err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           ints,
		SourceBitDepth: bitDepth,
	})
	if err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return out.buf, nil
}

// Decode parses a 16-bit PCM WAV container. The RIFF size must match the
// container and every chunk must fit in it, so the data chunk holds exactly
// the payload its header declares, in whole frames.
func Decode(data []byte) (Buffer, error) {
	fmtBody, pcm, err := scanChunks(data)
	if err != nil {
		return Buffer{}, err
	}

	// go-audio only sees the two chunks it needs, with sizes already checked.
	r := bytes.NewReader(canonicalWAV(fmtBody, pcm))
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Buffer{}, formatErrorf("malformed header: %v", err)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return Buffer{}, formatErrorf("unsupported encoding tag %d, want integer PCM", d.WavAudioFormat)
	}
	if d.BitDepth != bitDepth {
		return Buffer{}, formatErrorf("unsupported bit depth %d, want %d", d.BitDepth, bitDepth)
	}
	if d.NumChans < 1 {
		return Buffer{}, formatErrorf("header declares %d channels", d.NumChans)
	}
	if d.SampleRate == 0 {
		return Buffer{}, formatErrorf("header declares a zero sample rate")
	}

	if err := d.FwdToPCM(); err != nil {
		return Buffer{}, formatErrorf("no data chunk: %v", err)
	}
	if d.PCMChunk == nil {
		return Buffer{}, formatErrorf("no data chunk")
	}

	declared := d.PCMLen()
	frameSize := int64(d.NumChans) * bitDepth / 8
	if declared%frameSize != 0 {
		return Buffer{}, formatErrorf("data chunk of %d bytes is not a multiple of the %d-byte frame", declared, frameSize)
	}

	payload := make([]byte, declared)
	n, err := io.ReadFull(d.PCMChunk, payload)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Buffer{}, formatErrorf("data chunk declares %d bytes but only %d are present", declared, n)
		}
		return Buffer{}, formatErrorf("reading payload: %v", err)
	}

	samples := make([]float32, len(payload)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(payload[i*2:]))
		samples[i] = float32(v) / quantizeScale
	}

	return Buffer{
		Format:  Format{SampleRate: int(d.SampleRate), Channels: int(d.NumChans)},
		Samples: samples,
	}, nil
}

const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	pcmFmtSize      = 16
)

// scanChunks walks every chunk after the RIFF/WAVE header and returns the
// fmt body and the data payload. Each chunk, with the pad byte that follows
// an odd size, must fit in what remains of data, and bytes after the last
// chunk must form another complete chunk.
func scanChunks(data []byte) (fmtBody, pcm []byte, err error) {
	if len(data) < riffHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, nil, formatErrorf("not a RIFF/WAVE container")
	}
	if size := int64(binary.LittleEndian.Uint32(data[4:8])); size != int64(len(data))-8 {
		return nil, nil, formatErrorf("RIFF size %d does not match the %d bytes that follow it", size, len(data)-8)
	}

	for pos := int64(riffHeaderSize); pos < int64(len(data)); {
		left := int64(len(data)) - pos
		if left < chunkHeaderSize {
			return nil, nil, formatErrorf("%d trailing bytes do not hold a chunk header", left)
		}
		id := string(data[pos : pos+4])
		size := int64(binary.LittleEndian.Uint32(data[pos+4:]))
		span := size + size%2
		if span > left-chunkHeaderSize {
			return nil, nil, formatErrorf("chunk %q declares %d bytes but only %d follow its header", id, size, left-chunkHeaderSize)
		}
		body := data[pos+chunkHeaderSize : pos+chunkHeaderSize+size]

		switch id {
		case "fmt ":
			if fmtBody != nil {
				return nil, nil, formatErrorf("duplicate fmt chunk")
			}
			if size < pcmFmtSize {
				return nil, nil, formatErrorf("fmt chunk of %d bytes, want at least %d", size, pcmFmtSize)
			}
			fmtBody = body
		case "data":
			if pcm != nil {
				return nil, nil, formatErrorf("duplicate data chunk")
			}
			if fmtBody == nil {
				return nil, nil, formatErrorf("data chunk precedes fmt chunk")
			}
			pcm = body
		}
		pos += chunkHeaderSize + span
	}

	if fmtBody == nil {
		return nil, nil, formatErrorf("no fmt chunk")
	}
	if pcm == nil {
		return nil, nil, formatErrorf("no data chunk")
	}
	return fmtBody, pcm, nil
}

// canonicalWAV rebuilds a container holding only a 16-byte fmt chunk and the
// data chunk.
func canonicalWAV(fmtBody, pcm []byte) []byte {
	size := 4 + chunkHeaderSize + pcmFmtSize + chunkHeaderSize + len(pcm)
	out := make([]byte, 0, 8+size)
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(size))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, pcmFmtSize)
	out = append(out, fmtBody[:pcmFmtSize]...)
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pcm)))
	return append(out, pcm...)
}

func quantize(s float32) int16 {
	switch {
	case math.IsNaN(float64(s)):
		return 0
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return int16(math.Round(float64(s) * quantizeScale))
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes once the payload length is known.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if end := s.pos + len(p); end > len(s.buf) {
		if end > cap(s.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, s.buf)
			s.buf = grown
		} else {
			s.buf = s.buf[:end]
		}
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(s.pos) + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("seekBuffer: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seekBuffer: negative position")
	}
	s.pos = int(abs)
	return abs, nil
}
