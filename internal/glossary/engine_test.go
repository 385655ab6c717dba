package glossary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEngine(t *testing.T, lang string, rules ...Rule) *Engine {
	t.Helper()
	e, err := NewEngine(map[string][]Rule{lang: rules})
	require.NoError(t, err)
	return e
}

func TestApplyReplacesWholeWordsOnly(t *testing.T) {
	e := mustEngine(t, "en",
		Rule{ID: "cartridges-ammo", Pattern: "cartridges", Replace: "ammo"},
	)

	out, changes := e.Apply("I need cartridges, no more cartridges left", "en")
	assert.Equal(t, "I need ammo, no more ammo left", out)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{RuleID: "cartridges-ammo", Before: "cartridges", After: "ammo"}, changes[0])

	// Embedded occurrences stay untouched.
	out, changes = e.Apply("the cartridgesque look", "en")
	assert.Equal(t, "the cartridgesque look", out)
	assert.Empty(t, changes)
}

func TestApplyIsCaseInsensitiveKeepsReplacementCasing(t *testing.T) {
	e := mustEngine(t, "en",
		Rule{ID: "machine-ar", Pattern: "machine", Replace: "AR"},
	)

	out, _ := e.Apply("Machine! grab the MACHINE", "en")
	assert.Equal(t, "AR! grab the AR", out)
}

func TestApplyDeclarationOrderPrecedence(t *testing.T) {
	// The longer phrase is declared first, so the plain rule never sees its
	// text.
	e := mustEngine(t, "en",
		Rule{ID: "golden-machine", Pattern: "golden machine", Replace: "Gold AR"},
		Rule{ID: "machine-ar", Pattern: "machine", Replace: "AR"},
	)

	out, changes := e.Apply("he has the golden machine and a machine", "en")
	assert.Equal(t, "he has the Gold AR and a AR", out)
	require.Len(t, changes, 2)
	assert.Equal(t, "golden-machine", changes[0].RuleID)
	assert.Equal(t, "machine-ar", changes[1].RuleID)
}

func TestApplyRuleProtectsExclusiveSpans(t *testing.T) {
	// A later rule must not fire across the boundary of text an exclusive
	// rule produced in the same pass. Sets like this one are rejected at
	// load, so this exercises the apply-time guard directly.
	first, err := compileRule(Rule{ID: "first", Pattern: "treating", Replace: "healing"})
	require.NoError(t, err)
	second, err := compileRule(Rule{ID: "second", Pattern: "healing myself", Replace: "healing"})
	require.NoError(t, err)

	text, protected, changes := applyRule(first, "treating myself while healing myself", nil, nil)
	require.Equal(t, "healing myself while healing myself", text)

	text, _, changes = applyRule(second, text, protected, changes)
	assert.Equal(t, "healing myself while healing", text)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{RuleID: "second", Before: "healing myself", After: "healing"}, changes[1])
}

func TestApplyNonExclusiveChains(t *testing.T) {
	// A non-exclusive rewrite stays visible, so a later rule may refine it
	// within the same pass.
	e := mustEngine(t, "en",
		Rule{ID: "first", Pattern: "medicine cabinet", Replace: "first aid kit", NonExclusive: true},
		Rule{ID: "second", Pattern: "first aid kit", Replace: "medkit"},
	)

	out, changes := e.Apply("check the medicine cabinet", "en")
	assert.Equal(t, "check the medkit", out)
	require.Len(t, changes, 2)
	assert.Equal(t, "first", changes[0].RuleID)
	assert.Equal(t, "second", changes[1].RuleID)

	// The chain resolves within one pass, so running again changes nothing.
	again, changes := e.Apply(out, "en")
	assert.Equal(t, out, again)
	assert.Empty(t, changes)
}

func TestApplyDigitPredicates(t *testing.T) {
	e := mustEngine(t, "en",
		Rule{ID: "men-players", Pattern: "men", Replace: "players", When: PredicatePrecededByDigit},
	)

	out, changes := e.Apply("5 men left", "en")
	assert.Equal(t, "5 players left", out)
	require.Len(t, changes, 1)

	// No digit context: the rule stays silent.
	out, changes = e.Apply("the men left", "en")
	assert.Equal(t, "the men left", out)
	assert.Empty(t, changes)
}

func TestApplyCyrillicWordBoundaries(t *testing.T) {
	e := mustEngine(t, "ru",
		Rule{ID: "apteka", Pattern: "аптека", Replace: "аптечка"},
	)

	out, changes := e.Apply("аптека за углом", "ru")
	assert.Equal(t, "аптечка за углом", out)
	require.Len(t, changes, 1)

	// Embedded in a longer Cyrillic word: no match.
	out, _ = e.Apply("аптекарь за углом", "ru")
	assert.Equal(t, "аптекарь за углом", out)
}

func TestApplyIsDeterministic(t *testing.T) {
	e := mustEngine(t, "en",
		Rule{ID: "bullets-ammo", Pattern: "bullets", Replace: "ammo"},
		Rule{ID: "men-players", Pattern: "men", Replace: "players", When: PredicatePrecededByDigit},
	)

	const input = "3 men need bullets"
	first, firstChanges := e.Apply(input, "en")
	for i := 0; i < 10; i++ {
		out, changes := e.Apply(input, "en")
		assert.Equal(t, first, out)
		assert.Equal(t, firstChanges, changes)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	e := mustEngine(t, "en",
		Rule{ID: "cartridges-ammo", Pattern: "cartridges", Replace: "ammo"},
		Rule{ID: "upstairs", Pattern: "upstairs", Replace: "on high ground"},
	)

	out, _ := e.Apply("cartridges upstairs", "en")
	again, changes := e.Apply(out, "en")
	assert.Equal(t, out, again)
	assert.Empty(t, changes)
}

func TestApplyUnknownLanguagePassesThrough(t *testing.T) {
	e := mustEngine(t, "en", Rule{ID: "r", Pattern: "foo", Replace: "bar"})

	out, changes := e.Apply("foo", "de")
	assert.Equal(t, "foo", out)
	assert.Empty(t, changes)
}

func TestNewEngineRejectsSelfMatchingReplacement(t *testing.T) {
	_, err := NewEngine(map[string][]Rule{"en": {
		{ID: "loop", Pattern: "ammo", Replace: "more ammo"},
	}})
	require.Error(t, err)
	var ruleErr *RuleError
	assert.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "loop", ruleErr.RuleID)
}

func TestNewEngineRejectsBoundarySpanningPatterns(t *testing.T) {
	// A pattern that can match text straddling an edge of another rule's
	// replacement would be suppressed by the exclusive-span guard on the
	// first pass and fire on the next, so the set must not load.
	cases := []struct {
		name  string
		rules []Rule
		bad   string
	}{
		{
			name: "pattern starts inside a replacement",
			rules: []Rule{
				{ID: "treating-healing", Pattern: "treating", Replace: "healing"},
				{ID: "healing-myself", Pattern: "healing myself", Replace: "healing"},
			},
			bad: "healing-myself",
		},
		{
			name: "pattern ends inside a replacement",
			rules: []Rule{
				{ID: "upstairs", Pattern: "upstairs", Replace: "high ground"},
				{ID: "very-high", Pattern: "very high", Replace: "high"},
			},
			bad: "very-high",
		},
		{
			name: "pattern contains a replacement",
			rules: []Rule{
				{ID: "machine-ar", Pattern: "machine", Replace: "AR"},
				{ID: "ar-mag", Pattern: "gold AR mag", Replace: "gold mag"},
			},
			bad: "ar-mag",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine(map[string][]Rule{"en": tc.rules})
			require.Error(t, err)
			var ruleErr *RuleError
			require.ErrorAs(t, err, &ruleErr)
			assert.Equal(t, tc.bad, ruleErr.RuleID)
		})
	}
}

func TestNewEngineRejectsBackwardChain(t *testing.T) {
	// "second" produces text "first" would match, which only a second pass
	// could pick up.
	_, err := NewEngine(map[string][]Rule{"en": {
		{ID: "first", Pattern: "medkit", Replace: "aid"},
		{ID: "second", Pattern: "heals", Replace: "medkit box", NonExclusive: true},
	}})
	require.Error(t, err)
}

func TestNewEngineRejectsDuplicateIDs(t *testing.T) {
	_, err := NewEngine(map[string][]Rule{"en": {
		{ID: "dup", Pattern: "a", Replace: "b"},
		{ID: "dup", Pattern: "c", Replace: "d"},
	}})
	require.Error(t, err)
}

func TestNewEngineRejectsInvalidRules(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
	}{
		{"empty id", Rule{Pattern: "a", Replace: "b"}},
		{"empty pattern", Rule{ID: "r", Replace: "b"}},
		{"unknown predicate", Rule{ID: "r", Pattern: "a", Replace: "b", When: "near_digit"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine(map[string][]Rule{"en": {tc.rule}})
			assert.Error(t, err)
		})
	}
}
