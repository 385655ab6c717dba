package transcription

import "time"

// Transcript is the source-language text recognized from one utterance.
// A nil *Transcript means the utterance contained no usable speech; empty
// strings never travel downstream.
type Transcript struct {
	Text      string
	Language  string // ISO 639-1 code of the recognized language
	Timestamp time.Time
}
