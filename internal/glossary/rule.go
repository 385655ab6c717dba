package glossary

import (
	"fmt"
	"regexp"
	"strings"
)

// Predicate restricts where a rule may fire beyond its pattern match.
type Predicate string

const (
	// PredicateNone places no additional restriction.
	PredicateNone Predicate = ""

	// PredicatePrecededByDigit fires only when the nearest non-space rune
	// before the match is a decimal digit ("5 men left").
	PredicatePrecededByDigit Predicate = "preceded_by_digit"

	// PredicateFollowedByDigit fires only when the nearest non-space rune
	// after the match is a decimal digit.
	PredicateFollowedByDigit Predicate = "followed_by_digit"
)

// Rule is one ordered pattern→replacement correction, scoped to a target
// language. Rules are immutable once loaded; declaration order defines
// precedence. The zero value of NonExclusive means the rule is exclusive:
// text it rewrites is protected from later rules in the same pass.
type Rule struct {
	ID           string    `toml:"id"`
	Pattern      string    `toml:"pattern"`       // literal phrase, case-insensitive, word-bounded
	Replace      string    `toml:"replace"`       // replacement casing is taken verbatim from here
	When         Predicate `toml:"when"`
	NonExclusive bool      `toml:"non_exclusive"`
}

// Change records one firing of a rule: the span that was replaced and what
// it became.
type Change struct {
	RuleID string `json:"rule_id"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// RuleError reports a malformed rule found at load time. The engine never
// applies a partially-invalid set: one RuleError rejects the whole load.
type RuleError struct {
	RuleID string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("glossary rule %q: %s", e.RuleID, e.Reason)
}

// compiledRule pairs a rule with its compiled matcher.
type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// compileRule validates a single rule and builds its matcher. The pattern is
// a literal phrase: each whitespace-separated token is quoted and tokens are
// joined with \s+, so "first aid kit" matches any inter-word spacing.
// Word-boundedness is checked separately by the engine because RE2's \b is
// ASCII-only and the Russian rule sets need Cyrillic boundaries.
func compileRule(r Rule) (*compiledRule, error) {
	if r.ID == "" {
		return nil, &RuleError{RuleID: "(unnamed)", Reason: "missing id"}
	}
	if strings.TrimSpace(r.Pattern) == "" {
		return nil, &RuleError{RuleID: r.ID, Reason: "empty pattern"}
	}
	if r.Replace == "" {
		return nil, &RuleError{RuleID: r.ID, Reason: "empty replacement"}
	}
	switch r.When {
	case PredicateNone, PredicatePrecededByDigit, PredicateFollowedByDigit:
	default:
		return nil, &RuleError{RuleID: r.ID, Reason: fmt.Sprintf("unknown predicate %q", r.When)}
	}

	tokens := strings.Fields(r.Pattern)
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(quoted, `\s+`))
	if err != nil {
		return nil, &RuleError{RuleID: r.ID, Reason: fmt.Sprintf("pattern does not compile: %v", err)}
	}
	return &compiledRule{Rule: r, re: re}, nil
}
