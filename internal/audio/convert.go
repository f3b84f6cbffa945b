package audio

// Downmix averages the channels of b into a mono buffer. A mono input is
// copied so the result never aliases b.Samples.
func Downmix(b Buffer) Buffer {
	if b.Channels <= 0 {
		return Buffer{Format: Format{SampleRate: b.SampleRate, Channels: 1}}
	}
	return Buffer{
		Format:  Format{SampleRate: b.SampleRate, Channels: 1},
		Samples: downmixInterleaved(b.Samples, b.Channels, b.Frames()),
	}
}

func downmixInterleaved(in []float32, channels, frames int) []float32 {
	out := make([]float32, frames)
	if channels == 1 {
		copy(out, in)
		return out
	}
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += in[i*channels+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Resample converts a mono buffer to rate using linear interpolation.
// Multi-channel input is downmixed first.
func Resample(b Buffer, rate int) Buffer {
	if b.Channels != 1 {
		b = Downmix(b)
	}
	if rate <= 0 || b.SampleRate <= 0 || b.SampleRate == rate {
		return b
	}

	src := b.Samples
	n := int(int64(len(src)) * int64(rate) / int64(b.SampleRate))
	out := make([]float32, n)
	ratio := float64(b.SampleRate) / float64(rate)
	for i := range n {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))
		s0 := src[idx]
		s1 := s0
		if idx+1 < len(src) {
			s1 = src[idx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return Buffer{Format: Format{SampleRate: rate, Channels: 1}, Samples: out}
}
