package shortlist

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules controls which lines qualify as snippets.
type Rules struct {
	Keywords      []string `yaml:"keywords"`
	CaseSensitive bool     `yaml:"case_sensitive"`
	Window        int      `yaml:"window"`
}

// DefaultRules returns the built-in keyword set and a one-line context
// window. "tco2e" also covers "ktco2e" and "mtco2e" as a substring, but
// the prefixed forms stay listed so custom rule files can drop the bare
// token without losing them.
func DefaultRules() Rules {
	return Rules{
		Keywords: []string{
			"scope 1", "scope 2", "scope 3",
			"tco2e", "mtco2e",
			"emissions", "ghg", "tonnes",
		},
		Window: 1,
	}
}

// LoadRules reads shortlist rules from a YAML file. Missing fields fall
// back to the defaults; an empty path returns the defaults directly.
func LoadRules(path string) (Rules, error) {
	defaults := DefaultRules()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, eris.Wrapf(err, "shortlist: read rules %s", path)
	}

	// The YAML has a top-level "shortlist" key
	var wrapper struct {
		Shortlist Rules `yaml:"shortlist"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return defaults, eris.Wrap(err, "shortlist: parse rules")
	}

	rules := wrapper.Shortlist
	if len(rules.Keywords) == 0 {
		rules.Keywords = defaults.Keywords
	}
	if rules.Window <= 0 {
		rules.Window = defaults.Window
	}
	if !rules.CaseSensitive {
		for i, k := range rules.Keywords {
			rules.Keywords[i] = strings.ToLower(k)
		}
	}
	return rules, nil
}
