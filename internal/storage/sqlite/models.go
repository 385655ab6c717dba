package sqlite

import "time"

// UtteranceRecord is one fully processed utterance as persisted for the
// session: what was heard, what the translator produced, and what the
// glossary made of it.
type UtteranceRecord struct {
	ID         int64     `json:"id"`
	Channel    string    `json:"channel"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	SourceText string    `json:"source_text"`
	RawText    string    `json:"raw_text"`
	FixedText  string    `json:"fixed_text"`
	Corrected  bool      `json:"corrected"` // true when the glossary changed the text
	CreatedAt  time.Time `json:"created_at"`
}
