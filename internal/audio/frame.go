package audio

import (
	"context"
	"errors"
	"time"
)

// ErrCaptureUnavailable is returned by a Source when the underlying audio
// device or stream has disappeared. It is fatal to the channel that owns the
// source; the pipeline surfaces it instead of silently stopping.
var ErrCaptureUnavailable = errors.New("audio capture unavailable")

// Frame is a fixed-duration block of mono float32 PCM samples in [-1, 1].
// Frames are ephemeral: the segmenter owns them once pushed.
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the frame length as wall time.
func (f Frame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Peak returns the maximum absolute sample amplitude in the frame.
func (f Frame) Peak() float32 {
	var peak float32
	for _, s := range f.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Utterance is a contiguous run of speech samples bounded by detected
// silence (or a max-duration cutoff). It is owned by the segmenter until
// handed to transcription and is not reused afterwards.
type Utterance struct {
	Samples    []float32
	SampleRate int
	Start      time.Time
	End        time.Time
}

// Duration returns the utterance length as wall time.
func (u *Utterance) Duration() time.Duration {
	if u.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(u.Samples)) * time.Second / time.Duration(u.SampleRate)
}

// Source produces a continuous sequence of frames from one capture device or
// stream. Frames() is closed when the source stops; Err() reports why.
type Source interface {
	// Start begins capture. Frames are delivered on the Frames channel until
	// the context is cancelled, Stop is called, or the source fails.
	Start(ctx context.Context) error

	// Frames returns the channel frames are delivered on.
	Frames() <-chan Frame

	// Err returns the terminal error after Frames is closed. A clean stop
	// returns nil; a vanished device returns ErrCaptureUnavailable (possibly
	// wrapped).
	Err() error

	// Stop terminates capture and closes the Frames channel.
	Stop()
}
