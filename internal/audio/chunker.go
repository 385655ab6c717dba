package audio

import "fmt"

// Chunker converts a byte stream of interleaved PCM16LE audio into
// fixed-duration mono float32 frames. Multi-channel input is downmixed by
// averaging.
type Chunker struct {
	sampleRate    int
	channels      int
	frameSamples  int // samples per output frame, per channel
	pending       []byte
}

// NewChunker creates a chunker producing frames of frameMs duration.
func NewChunker(sampleRate, channels, frameMs int) (*Chunker, error) {
	if sampleRate <= 0 || channels <= 0 || frameMs <= 0 {
		return nil, fmt.Errorf("invalid chunker parameters: rate=%d channels=%d frame_ms=%d",
			sampleRate, channels, frameMs)
	}
	return &Chunker{
		sampleRate:   sampleRate,
		channels:     channels,
		frameSamples: sampleRate * frameMs / 1000,
	}, nil
}

// Push appends raw PCM16LE bytes and returns all complete frames now
// available. Leftover bytes are retained for the next call.
func (c *Chunker) Push(data []byte) []Frame {
	c.pending = append(c.pending, data...)

	frameBytes := c.frameSamples * c.channels * 2
	var frames []Frame
	for len(c.pending) >= frameBytes {
		raw := c.pending[:frameBytes]
		c.pending = c.pending[frameBytes:]
		frames = append(frames, c.decode(raw))
	}

	// Compact so consumed bytes don't pin the backing array.
	if len(frames) > 0 && len(c.pending) > 0 {
		c.pending = append([]byte(nil), c.pending...)
	} else if len(frames) > 0 {
		c.pending = nil
	}
	return frames
}

// Reset discards buffered bytes, e.g. after a stream reconnect.
func (c *Chunker) Reset() {
	c.pending = nil
}

// decode converts one frame worth of interleaved PCM16LE into mono float32.
func (c *Chunker) decode(raw []byte) Frame {
	samples := make([]float32, c.frameSamples)
	for i := 0; i < c.frameSamples; i++ {
		var sum float32
		for ch := 0; ch < c.channels; ch++ {
			off := (i*c.channels + ch) * 2
			s := int16(uint16(raw[off]) | uint16(raw[off+1])<<8)
			sum += float32(s) / 32768
		}
		samples[i] = sum / float32(c.channels)
	}
	return Frame{Samples: samples, SampleRate: c.sampleRate}
}
