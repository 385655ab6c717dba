package translation

import (
	"context"
	"fmt"
)

// Service translates text between two languages. Stateless from the
// pipeline's perspective.
type Service interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Error is a recoverable per-utterance translation failure. The pipeline
// responds by passing the source text through untranslated and logging the
// failure; the channel stays alive.
type Error struct {
	SourceLang string
	TargetLang string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("translation %s->%s failed: %v", e.SourceLang, e.TargetLang, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
