package glossary

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Engine applies ordered terminology-correction rules to translated text.
// Rule sets are loaded once and immutable afterwards, so Apply is safe for
// concurrent use from both channel pipelines.
//
// Rules compose sequentially: each rule sees the text as rewritten by the
// rules before it, and within one pass earlier rules are never re-evaluated
// against later rewrites. Spans rewritten by an exclusive rule are protected
// from later rules in the same pass; non-exclusive rewrites stay visible so
// rules can deliberately chain.
type Engine struct {
	rules map[string][]*compiledRule // keyed by target language
}

// NewEngine compiles and validates rule sets keyed by target language.
// Validation is all-or-nothing: any malformed rule rejects the entire load
// with a *RuleError naming the offending rule. Beyond per-rule checks, the
// set is verified to be idempotent: no rule's pattern may match text another
// rule produces in a way that would fire again on a second pass.
func NewEngine(sets map[string][]Rule) (*Engine, error) {
	e := &Engine{rules: make(map[string][]*compiledRule, len(sets))}
	for lang, rules := range sets {
		compiled := make([]*compiledRule, 0, len(rules))
		ids := make(map[string]bool, len(rules))
		for _, r := range rules {
			cr, err := compileRule(r)
			if err != nil {
				return nil, fmt.Errorf("language %q: %w", lang, err)
			}
			if ids[cr.ID] {
				return nil, fmt.Errorf("language %q: %w", lang,
					&RuleError{RuleID: cr.ID, Reason: "duplicate id"})
			}
			ids[cr.ID] = true
			compiled = append(compiled, cr)
		}
		if err := checkIdempotence(lang, compiled); err != nil {
			return nil, err
		}
		e.rules[lang] = compiled
	}
	return e, nil
}

// Languages returns the target languages the engine has rules for.
func (e *Engine) Languages() []string {
	langs := make([]string, 0, len(e.rules))
	for l := range e.rules {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// RuleCount returns the number of rules loaded for a language.
func (e *Engine) RuleCount(lang string) int {
	return len(e.rules[lang])
}

// Apply runs the rule set for lang over text and returns the corrected text
// plus one Change per rule firing, in firing order. Text without rules for
// its language passes through unchanged.
func (e *Engine) Apply(text, lang string) (string, []Change) {
	rules := e.rules[lang]
	if len(rules) == 0 || text == "" {
		return text, nil
	}

	var changes []Change
	var protected []span
	for _, r := range rules {
		text, protected, changes = applyRule(r, text, protected, changes)
	}
	return text, changes
}

type span struct{ start, end int }

func (s span) overlaps(o span) bool { return s.start < o.end && o.start < s.end }

// applyRule fires one rule everywhere it legally matches in text, returning
// the rewritten text and the protected-span list remapped to it.
func applyRule(r *compiledRule, text string, protected []span, changes []Change) (string, []span, []Change) {
	locs := r.re.FindAllStringIndex(text, -1)
	if locs == nil {
		return text, protected, changes
	}

	var accepted []span
	for _, loc := range locs {
		m := span{loc[0], loc[1]}
		if !wordBounded(text, m) {
			continue
		}
		if !predicateHolds(r.When, text, m) {
			continue
		}
		if overlapsAny(m, protected) || overlapsAny(m, accepted) {
			continue
		}
		accepted = append(accepted, m)
	}
	if len(accepted) == 0 {
		return text, protected, changes
	}

	// Rebuild the text with all accepted edits and remap protected spans.
	var b strings.Builder
	var next []span
	pi := 0
	prev, delta := 0, 0
	for _, m := range accepted {
		// Protected spans entirely before this edit shift by the running delta.
		for pi < len(protected) && protected[pi].end <= m.start {
			next = append(next, span{protected[pi].start + delta, protected[pi].end + delta})
			pi++
		}
		b.WriteString(text[prev:m.start])
		b.WriteString(r.Replace)
		changes = append(changes, Change{
			RuleID: r.ID,
			Before: text[m.start:m.end],
			After:  r.Replace,
		})
		if !r.NonExclusive {
			start := m.start + delta
			next = append(next, span{start, start + len(r.Replace)})
		}
		delta += len(r.Replace) - (m.end - m.start)
		prev = m.end
	}
	for ; pi < len(protected); pi++ {
		next = append(next, span{protected[pi].start + delta, protected[pi].end + delta})
	}
	b.WriteString(text[prev:])

	sort.Slice(next, func(i, j int) bool { return next[i].start < next[j].start })
	return b.String(), next, changes
}

func overlapsAny(m span, spans []span) bool {
	for _, s := range spans {
		if m.overlaps(s) {
			return true
		}
	}
	return false
}

// wordBounded reports whether the match is not embedded inside a larger
// word. Uses Unicode letter/digit classes so Cyrillic counts as word runes.
func wordBounded(text string, m span) bool {
	if before, size := utf8.DecodeLastRuneInString(text[:m.start]); size > 0 && isWordRune(before) {
		return false
	}
	if after, size := utf8.DecodeRuneInString(text[m.end:]); size > 0 && isWordRune(after) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// predicateHolds checks the rule's contextual predicate against the runes
// adjacent to the match, skipping whitespace.
func predicateHolds(p Predicate, text string, m span) bool {
	switch p {
	case PredicatePrecededByDigit:
		rest := strings.TrimRight(text[:m.start], " \t")
		r, size := utf8.DecodeLastRuneInString(rest)
		return size > 0 && unicode.IsDigit(r)
	case PredicateFollowedByDigit:
		rest := strings.TrimLeft(text[m.end:], " \t")
		r, size := utf8.DecodeRuneInString(rest)
		return size > 0 && unicode.IsDigit(r)
	default:
		return true
	}
}

// checkIdempotence rejects sets where re-applying the pass could change
// already-corrected text. A rule j whose pattern can touch rule i's
// replacement — inside it, or spanning one of its edges into surrounding
// text — is only allowed when i is non-exclusive and j comes later in the
// set: that chain resolves within a single pass. Everything else would fire
// again on the next pass, so it is a configuration error. Exclusive
// replacements are protected from later rules only during the pass that
// produced them, so a boundary-spanning match they suppress would fire
// freely on re-apply; the check is deliberately blind to predicates and
// rejects such sets outright.
func checkIdempotence(lang string, rules []*compiledRule) error {
	for i, ri := range rules {
		for j, rj := range rules {
			if !matchesWithin(rj, ri.Replace) && !spansReplacement(rj, ri) {
				continue
			}
			if !ri.NonExclusive || j <= i {
				return fmt.Errorf("language %q: %w", lang, &RuleError{
					RuleID: rj.ID,
					Reason: fmt.Sprintf("pattern can match text produced by rule %q; applying the set twice would not be a no-op", ri.ID),
				})
			}
		}
	}
	return nil
}

// matchesWithin reports whether the rule would fire somewhere inside text.
func matchesWithin(r *compiledRule, text string) bool {
	for _, loc := range r.re.FindAllStringIndex(text, -1) {
		if wordBounded(text, span{loc[0], loc[1]}) {
			return true
		}
	}
	return false
}

// spansReplacement reports whether rj's pattern could match a span that
// crosses an edge of ri's replacement into the surrounding text. Patterns
// are literal token phrases and a replacement always lands on word
// boundaries, so this reduces to word-level sequence overlap: rj's tokens
// start with a suffix of the replacement, end with a prefix of it, or
// properly contain the whole of it.
func spansReplacement(rj, ri *compiledRule) bool {
	pattern := strings.Fields(strings.ToLower(rj.Pattern))
	repl := strings.Fields(strings.ToLower(ri.Replace))
	if len(pattern) == 0 || len(repl) == 0 {
		return false
	}

	overlap := len(repl)
	if len(pattern) < overlap {
		overlap = len(pattern)
	}
	for k := 1; k <= overlap; k++ {
		// Pattern starts inside the replacement and runs past its end.
		if len(pattern) > k && tokensEqual(repl[len(repl)-k:], pattern[:k]) {
			return true
		}
		// Pattern starts before the replacement and ends inside it.
		if len(pattern) > k && tokensEqual(repl[:k], pattern[len(pattern)-k:]) {
			return true
		}
	}

	// Replacement sits strictly inside the pattern.
	if len(pattern) > len(repl) {
		for off := 0; off+len(repl) <= len(pattern); off++ {
			if tokensEqual(pattern[off:off+len(repl)], repl) {
				return true
			}
		}
	}
	return false
}

func tokensEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
