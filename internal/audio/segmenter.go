package audio

import (
	"time"

	"github.com/rvasily/squadvoice/internal/config"
)

// Segmenter buffers incoming frames and cuts them into utterances at
// silence boundaries. Frame ingestion never blocks; all decisions are made
// incrementally from per-frame peak amplitude, so Push is O(frame) and never
// rescans the whole buffer except when forcing a split at the max-duration
// cap.
//
// An utterance is emitted when:
//   - speech has lasted at least the minimum duration and the configured
//     number of consecutive silent frames follows it, or
//   - the buffer reaches the maximum duration, in which case the split point
//     is the most recent silent region inside the trailing search window so
//     a word is not cut in half.
//
// Buffers that never contained speech are discarded; only a short trailing
// padding of silence is retained while waiting for speech onset, bounding
// memory growth during quiet periods.
//
// Segmenter is not safe for concurrent use; each channel owns one.
type Segmenter struct {
	cfg        config.SegmenterConfig
	sampleRate int
	frameSize  int

	buf         []float32
	bufStart    time.Time
	speechSeen  bool
	silentRun   int
	minSamples  int
	maxSamples  int
	padSamples  int
	searchSamps int

	now func() time.Time
}

// NewSegmenter creates a segmenter for the given PCM format and policy.
func NewSegmenter(cfg config.SegmenterConfig, sampleRate, frameMs int) *Segmenter {
	frameSize := sampleRate * frameMs / 1000
	return &Segmenter{
		cfg:         cfg,
		sampleRate:  sampleRate,
		frameSize:   frameSize,
		minSamples:  int(cfg.MinUtteranceSec * float64(sampleRate)),
		maxSamples:  int(cfg.MaxUtteranceSec * float64(sampleRate)),
		padSamples:  int(cfg.TrailingPaddingSec * float64(sampleRate)),
		searchSamps: int(cfg.SplitSearchSec * float64(sampleRate)),
		now:         time.Now,
	}
}

// Push ingests one frame and returns a completed utterance if the frame
// closed one, or nil.
func (s *Segmenter) Push(f Frame) *Utterance {
	if len(s.buf) == 0 {
		s.bufStart = s.now()
	}
	s.buf = append(s.buf, f.Samples...)

	peak := f.Peak()
	silent := peak < float32(s.cfg.SilenceThreshold)
	if silent {
		s.silentRun++
	} else {
		s.silentRun = 0
		s.speechSeen = true
	}

	// Nothing but silence so far: keep only the trailing padding so the
	// buffer cannot grow without bound while the channel is quiet.
	if !s.speechSeen {
		if len(s.buf) > s.padSamples {
			keep := s.buf[len(s.buf)-s.padSamples:]
			fresh := make([]float32, len(keep))
			copy(fresh, keep)
			s.buf = fresh
		}
		return nil
	}

	if len(s.buf) >= s.maxSamples {
		return s.forceSplit()
	}
	if len(s.buf) >= s.minSamples && s.silentRun >= s.cfg.SilenceFrames {
		return s.emitAll()
	}
	return nil
}

// Flush emits whatever speech is buffered, if it meets the minimum duration.
// Called by the pipeline when the capture source goes idle or shuts down.
func (s *Segmenter) Flush() *Utterance {
	if !s.speechSeen || len(s.buf) < s.minSamples {
		s.reset()
		return nil
	}
	return s.emitAll()
}

// emitAll hands the entire buffer off as one utterance and resets.
func (s *Segmenter) emitAll() *Utterance {
	u := &Utterance{
		Samples:    s.buf,
		SampleRate: s.sampleRate,
		Start:      s.bufStart,
		End:        s.now(),
	}
	s.buf = nil
	s.reset()
	return u
}

// forceSplit cuts the buffer at the last silent region inside the trailing
// search window, carrying the remainder into the next utterance.
func (s *Segmenter) forceSplit() *Utterance {
	split := s.findSilenceSplit()
	out := make([]float32, split)
	copy(out, s.buf[:split])

	rest := make([]float32, len(s.buf)-split)
	copy(rest, s.buf[split:])

	end := s.now()
	u := &Utterance{
		Samples:    out,
		SampleRate: s.sampleRate,
		Start:      s.bufStart,
		End:        end,
	}

	s.buf = rest
	s.bufStart = end
	s.silentRun = 0
	s.speechSeen = restHasSpeech(rest, float32(s.cfg.SilenceThreshold))
	return u
}

// findSilenceSplit walks backwards through the tail of the buffer in
// frame-size steps looking for a silent block. Returns the index just after
// the silence, or the buffer length when no silence exists in the window.
func (s *Segmenter) findSilenceSplit() int {
	search := s.searchSamps
	if search > len(s.buf) {
		search = len(s.buf)
	}
	start := len(s.buf) - search

	for i := len(s.buf) - s.frameSize; i > start; i -= s.frameSize {
		if blockPeak(s.buf[i:i+s.frameSize]) < float32(s.cfg.SilenceThreshold) {
			return i + s.frameSize
		}
	}
	return len(s.buf)
}

func (s *Segmenter) reset() {
	s.buf = nil
	s.speechSeen = false
	s.silentRun = 0
}

func blockPeak(block []float32) float32 {
	var peak float32
	for _, v := range block {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

func restHasSpeech(rest []float32, threshold float32) bool {
	return blockPeak(rest) >= threshold
}
