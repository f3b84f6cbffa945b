package audio

import (
	"bytes"
	"encoding/binary"

	"github.com/tosone/minimp3"
)

// DecodeMP3 decodes an MP3 stream into 16-bit-quantized samples.
func DecodeMP3(data []byte) (Buffer, error) {
	dec, pcm, err := minimp3.DecodeFull(data)
	if err != nil {
		return Buffer{}, formatErrorf("mp3: %v", err)
	}
	if dec == nil || dec.Channels < 1 || dec.SampleRate <= 0 {
		return Buffer{}, formatErrorf("mp3: no decodable frames")
	}
	if len(pcm)%(2*dec.Channels) != 0 {
		return Buffer{}, formatErrorf("mp3: decoder produced %d bytes, not whole %d-channel frames", len(pcm), dec.Channels)
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / quantizeScale
	}
	return Buffer{
		Format:  Format{SampleRate: dec.SampleRate, Channels: dec.Channels},
		Samples: samples,
	}, nil
}

// DecodeContainer picks the decoder from the container's leading bytes:
// RIFF/WAVE goes to Decode, an ID3 tag or MPEG frame sync goes to DecodeMP3.
func DecodeContainer(data []byte) (Buffer, error) {
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return Decode(data)
	case bytes.HasPrefix(data, []byte("ID3")),
		len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return DecodeMP3(data)
	default:
		return Buffer{}, formatErrorf("unrecognized container (%d bytes)", len(data))
	}
}
