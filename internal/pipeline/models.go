package pipeline

import (
	"time"

	"github.com/rvasily/squadvoice/internal/glossary"
)

// State is the processing stage a channel is currently in. The zero value is
// StateIdle.
type State int32

const (
	StateIdle State = iota
	StateBuffering
	StateTranscribing
	StateTranslating
	StateCorrecting
	StateDisplaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuffering:
		return "buffering"
	case StateTranscribing:
		return "transcribing"
	case StateTranslating:
		return "translating"
	case StateCorrecting:
		return "correcting"
	case StateDisplaying:
		return "displaying"
	default:
		return "unknown"
	}
}

// Message is one finished utterance ready for display.
type Message struct {
	Channel    string            `json:"channel"`
	SourceLang string            `json:"source_lang"`
	TargetLang string            `json:"target_lang"`
	SourceText string            `json:"source_text"`
	Text       string            `json:"text"`
	Romanized  string            `json:"romanized,omitempty"`
	Failed     bool              `json:"failed,omitempty"`
	Changes    []glossary.Change `json:"changes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Display receives finished messages. Implementations must not block: a slow
// consumer is the display's problem, not the pipeline's.
type Display interface {
	Show(msg Message)
}
