// Package translit romanizes Russian text for the overlay, so translated
// mic output is readable without knowing the Cyrillic alphabet. The mapping
// is the informal phonetic romanization Russian gamers use in Latin-only
// chats ("я иду" -> "ya idu", "хорошо" -> "khorosho").
package translit

import (
	"strings"
	"unicode"
)

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
	'і': "i", // Ukrainian і, occasionally appears in mixed text
}

// Romanize converts Cyrillic characters in text to their Latin phonetic
// equivalents. Latin letters, digits, and punctuation pass through as-is.
// Uppercase Cyrillic maps to a capitalized sequence ("Я" -> "Ya").
func Romanize(text string) string {
	if !HasCyrillic(text) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if latin, ok := cyrillicToLatin[r]; ok {
			b.WriteString(latin)
			continue
		}
		lower := unicode.ToLower(r)
		if latin, ok := cyrillicToLatin[lower]; ok {
			b.WriteString(capitalize(latin))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HasCyrillic reports whether text contains any Cyrillic characters.
func HasCyrillic(text string) bool {
	for _, r := range text {
		if r >= 0x0400 && r <= 0x04ff {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
