package glossary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuleFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validEnRules = `
lang = "en"
version = 1

[[rules]]
id = "cartridges-ammo"
pattern = "cartridges"
replace = "ammo"

[[rules]]
id = "men-players"
pattern = "men"
replace = "players"
when = "preceded_by_digit"
`

func TestLoadFile(t *testing.T) {
	path := writeRuleFile(t, "en.toml", validEnRules)

	lang, rules, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	require.Len(t, rules, 2)
	assert.Equal(t, "cartridges-ammo", rules[0].ID)
	assert.Equal(t, PredicatePrecededByDigit, rules[1].When)
}

func TestLoadFileRequiresLang(t *testing.T) {
	path := writeRuleFile(t, "bad.toml", `
[[rules]]
id = "r"
pattern = "a"
replace = "b"
`)
	_, _, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadEngine(t *testing.T) {
	en := writeRuleFile(t, "en.toml", validEnRules)

	e, err := LoadEngine(map[string]string{"en": en})
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, e.Languages())
	assert.Equal(t, 2, e.RuleCount("en"))
}

func TestLoadEngineRejectsLangMismatch(t *testing.T) {
	en := writeRuleFile(t, "en.toml", validEnRules)

	_, err := LoadEngine(map[string]string{"ru": en})
	assert.Error(t, err)
}

func TestLoadEngineAllOrNothing(t *testing.T) {
	en := writeRuleFile(t, "en.toml", validEnRules)
	ru := writeRuleFile(t, "ru.toml", `
lang = "ru"

[[rules]]
id = "broken"
pattern = ""
replace = "x"
`)

	// One malformed rule in one file fails the entire load.
	_, err := LoadEngine(map[string]string{"en": en, "ru": ru})
	require.Error(t, err)
	var ruleErr *RuleError
	assert.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "broken", ruleErr.RuleID)
}

func TestShippedRuleFilesLoad(t *testing.T) {
	// The rule files in the repository must always pass validation.
	e, err := LoadEngine(map[string]string{
		"en": "../../glossary/en.toml",
		"ru": "../../glossary/ru.toml",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "ru"}, e.Languages())
	assert.Greater(t, e.RuleCount("en"), 10)
}
