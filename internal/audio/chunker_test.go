package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestChunkerProducesFixedFrames(t *testing.T) {
	// 4 samples per frame at 1000 Hz / 4 ms.
	c, err := NewChunker(1000, 1, 4)
	require.NoError(t, err)

	frames := c.Push(pcm16(16384, -16384, 0, 32767, 100))
	require.Len(t, frames, 1)
	require.Len(t, frames[0].Samples, 4)
	assert.InDelta(t, 0.5, float64(frames[0].Samples[0]), 1e-4)
	assert.InDelta(t, -0.5, float64(frames[0].Samples[1]), 1e-4)
	assert.InDelta(t, 0, float64(frames[0].Samples[2]), 1e-4)
	assert.InDelta(t, 1, float64(frames[0].Samples[3]), 1e-3)

	// The leftover sample completes a frame with three more.
	frames = c.Push(pcm16(0, 0, 0))
	require.Len(t, frames, 1)
	assert.InDelta(t, 100.0/32768, float64(frames[0].Samples[0]), 1e-6)
}

func TestChunkerDownmixesStereo(t *testing.T) {
	c, err := NewChunker(1000, 2, 2)
	require.NoError(t, err)

	// L=0.5, R=-0.5 averages to 0; L=R=0.25 averages to 0.25.
	frames := c.Push(pcm16(16384, -16384, 8192, 8192))
	require.Len(t, frames, 1)
	require.Len(t, frames[0].Samples, 2)
	assert.InDelta(t, 0, float64(frames[0].Samples[0]), 1e-4)
	assert.InDelta(t, 0.25, float64(frames[0].Samples[1]), 1e-4)
}

func TestChunkerReset(t *testing.T) {
	c, err := NewChunker(1000, 1, 4)
	require.NoError(t, err)

	c.Push(pcm16(1, 2, 3))
	c.Reset()
	// Buffered partial frame is gone after reset.
	assert.Empty(t, c.Push(pcm16(4)))
}

func TestChunkerRejectsInvalidParams(t *testing.T) {
	_, err := NewChunker(0, 1, 4)
	assert.Error(t, err)
	_, err = NewChunker(1000, 0, 4)
	assert.Error(t, err)
	_, err = NewChunker(1000, 1, 0)
	assert.Error(t, err)
}

func TestEncodeWAVHeader(t *testing.T) {
	data := EncodeWAV([]float32{0, 0.5, -0.5, 2}, 16000)
	require.Len(t, data, 44+8)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]))  // PCM
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))  // mono
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(data[40:44]))

	// Out-of-range samples clamp instead of wrapping.
	last := int16(binary.LittleEndian.Uint16(data[50:52]))
	assert.Equal(t, int16(32767), last)
}
