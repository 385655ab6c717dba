package transcription

import (
	"context"

	"github.com/rvasily/squadvoice/internal/audio"
)

// Service turns one utterance into source-language text. Implementations
// block for the duration of the model call; the pipeline schedules around
// that. A (nil, nil) return means no speech was detected — a normal outcome,
// not an error.
type Service interface {
	Transcribe(ctx context.Context, u *audio.Utterance, language string) (*Transcript, error)
}
