package glossary

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ruleFile is the on-disk TOML shape of one language's rule set.
//
//	lang = "en"
//	version = 3
//
//	[[rules]]
//	id = "ammo-cartridges"
//	pattern = "cartridges"
//	replace = "ammo"
type ruleFile struct {
	Lang    string `toml:"lang"`
	Version int    `toml:"version"`
	Rules   []Rule `toml:"rules"`
}

// LoadFile reads one rule file and returns its language and rules. The
// rules are not yet validated; NewEngine does that for the full set.
func LoadFile(path string) (string, []Rule, error) {
	var rf ruleFile
	if _, err := toml.DecodeFile(path, &rf); err != nil {
		return "", nil, fmt.Errorf("failed to decode rule file %s: %w", path, err)
	}
	if rf.Lang == "" {
		return "", nil, fmt.Errorf("rule file %s does not declare a lang", path)
	}
	return rf.Lang, rf.Rules, nil
}

// LoadEngine builds a validated engine from rule files keyed by target
// language. Loading is all-or-nothing: any malformed file or rule fails the
// whole call, and the previous engine (if any) stays in use. Safe to invoke
// again between sessions.
func LoadEngine(files map[string]string) (*Engine, error) {
	sets := make(map[string][]Rule, len(files))
	for lang, path := range files {
		fileLang, rules, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if fileLang != lang {
			return nil, fmt.Errorf("rule file %s declares lang %q but is configured for %q",
				path, fileLang, lang)
		}
		sets[lang] = rules
	}
	return NewEngine(sets)
}
