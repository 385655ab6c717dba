package transcription

import "strings"

// Speech models emit stock phrases on silence and background noise
// (subtitle credits, channel sign-offs, filler words). These are collected
// from real session logs for both languages we run.
var noisePhrases = map[string]struct{}{
	// English
	"you": {}, "thank you": {}, "thanks": {}, "thanks for watching": {},
	"subtitles": {}, "subtitles by": {}, "subs by": {}, "mbc": {},
	"copyright": {}, "allô": {}, "allo": {}, "bye": {}, "goodbye": {},
	"the end": {}, "thank you for watching": {},
	"please subscribe": {}, "like and subscribe": {},
	"so": {}, "i'm sorry": {}, "oh": {}, "ah": {}, "hmm": {}, "huh": {},
	"okay": {}, "ok": {}, "yes": {}, "no": {}, "yeah": {}, "right": {},
	"sync corrected": {}, "elderman": {}, "elder_man": {},
	"www": {}, "http": {}, "com": {},
	// Russian
	"субтитры": {}, "продолжение следует": {}, "спасибо": {},
	"спасибо за просмотр": {}, "подписывайтесь": {},
	"до свидания": {}, "конец": {}, "редактор": {},
	"переводчик": {}, "субтитры сделал": {},
}

// IsLikelyNoise reports whether transcribed text is a recognition artifact
// rather than actual speech: a known hallucination phrase, a short filler,
// or a degenerate repetition of one token.
func IsLikelyNoise(text string) bool {
	if text == "" {
		return true
	}

	stripped := strings.Trim(strings.ToLower(strings.TrimSpace(text)), ".!?,;:… \t\n\"'")
	if len([]rune(stripped)) < 3 {
		return true
	}

	if _, ok := noisePhrases[stripped]; ok {
		return true
	}
	for phrase := range noisePhrases {
		// Substring match only for multi-word phrases; single words would
		// flag legitimate sentences containing them.
		if strings.Contains(phrase, " ") && strings.Contains(stripped, phrase) {
			return true
		}
	}

	words := strings.Fields(stripped)
	if len(words) >= 3 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[strings.Trim(w, ".!?,")] = struct{}{}
		}
		limit := len(words) / 5
		if limit < 1 {
			limit = 1
		}
		if len(unique) <= limit {
			return true
		}
	}

	if isRepeatedFragment(stripped) {
		return true
	}

	if len([]rune(strings.ReplaceAll(stripped, " ", ""))) < 4 {
		return true
	}
	return false
}

// isRepeatedFragment detects "фраза фраза фраза"-style output: a short
// leading fragment repeated three or more times with only separators in
// between. Reimplemented as a scan because RE2 has no backreferences.
func isRepeatedFragment(s string) bool {
	runes := []rune(s)
	for size := 2; size <= 15 && size*3 <= len(runes); size++ {
		fragment := string(runes[:size])
		rest := s
		count := 0
		for strings.HasPrefix(rest, fragment) {
			count++
			rest = strings.TrimLeft(rest[len(fragment):], " ,.!?")
		}
		if count >= 3 && rest == "" {
			return true
		}
	}
	return false
}
