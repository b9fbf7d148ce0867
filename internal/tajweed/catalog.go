// Package tajweed detects tajweed recitation rules in Arabic Quranic text.
//
// Rules are regular expressions over Arabic code points: a nun sakinah,
// sukun or tanwin followed (across optional whitespace) by a letter from a
// fixed set, or a qalqalah letter. They are heuristics over raw text with no
// morphological analysis, so false positives and misses are expected.
//
// The catalog, the annotator and the question generator are safe for
// concurrent use.
package tajweed

import (
	"fmt"
	"regexp"
)

// Rule is a named tajweed rule. A rule without a Pattern only appears in
// the guide and as a practice distractor; it never matches text.
type Rule struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Example      string         `json:"example"`
	DisplayColor string         `json:"display_color"`
	TextColor    string         `json:"text_color"`
	Pattern      *regexp.Regexp `json:"-"`
}

// HasPattern reports whether the rule takes part in matching
func (r Rule) HasPattern() bool {
	return r.Pattern != nil
}

// Catalog is an immutable, ordered rule table
type Catalog struct {
	rules []Rule
	byID  map[string]int
}

// NewCatalog builds a catalog keeping the given definition order
func NewCatalog(rules ...Rule) (*Catalog, error) {
	c := &Catalog{
		rules: make([]Rule, 0, len(rules)),
		byID:  make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule %q: empty id", r.Name)
		}
		if r.Name == "" {
			return nil, fmt.Errorf("rule %q: empty name", r.ID)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("rule %q: duplicate id", r.ID)
		}
		c.byID[r.ID] = len(c.rules)
		c.rules = append(c.rules, r)
	}
	return c, nil
}

// List returns every rule in definition order
func (c *Catalog) List() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// WithPattern returns the rules that take part in matching, in definition order
func (c *Catalog) WithPattern() []Rule {
	out := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		if r.HasPattern() {
			out = append(out, r)
		}
	}
	return out
}

// Rule looks a rule up by ID
func (c *Catalog) Rule(id string) (Rule, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// Len returns the number of rules
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Character classes shared by the default patterns.
const (
	// nun, sukun and the three tanwin marks
	nunSakinahOrTanwin = `[\x{0646}\x{0652}\x{064B}\x{064D}\x{064C}]`
	gap                = `[\s\x{00A0}]*`
)

var defaultCatalog = mustCatalog(
	Rule{
		ID:           "izhhar",
		Name:         "Izhhar",
		Description:  "Pronounced clearly without nasalisation: nun sakinah or tanwin followed by alif/hamza, ha, kha, 'ain, ghain or ha.",
		Example:      "مَنْ اٰمَنَ",
		DisplayColor: "blue",
		TextColor:    "text-blue-600",
		Pattern:      regexp.MustCompile(nunSakinahOrTanwin + gap + `[\x{0627}\x{0623}\x{0625}\x{0622}\x{062D}\x{062E}\x{0639}\x{063A}\x{0647}]`),
	},
	Rule{
		ID:           "idgham",
		Name:         "Idgham",
		Description:  "The nun sound merges into the next letter: ya, nun, mim, waw, lam or ra.",
		Example:      "مَنْ يَّقُوْلُ",
		DisplayColor: "purple",
		TextColor:    "text-purple-600",
		Pattern:      regexp.MustCompile(nunSakinahOrTanwin + gap + `[\x{064A}\x{0646}\x{0645}\x{0648}\x{0644}\x{0631}]`),
	},
	Rule{
		ID:           "iqlab",
		Name:         "Iqlab",
		Description:  "Nun sakinah or tanwin turns into a mim sound before ba.",
		Example:      "مِنْ بَعْدِ",
		DisplayColor: "emerald",
		TextColor:    "text-emerald-600",
		Pattern:      regexp.MustCompile(nunSakinahOrTanwin + gap + `[\x{0628}]`),
	},
	Rule{
		ID:           "ikhfa",
		Name:         "Ikhfa",
		Description:  "Concealed with nasalisation before the remaining fifteen letters.",
		Example:      "مِنْ قَبْلِ",
		DisplayColor: "orange",
		TextColor:    "text-orange-600",
	},
	Rule{
		ID:           "qalqalah",
		Name:         "Qalqalah",
		Description:  "An echoing bounce on qaf, ta, ba, jim or dal.",
		Example:      "اَحَدٌ",
		DisplayColor: "rose",
		TextColor:    "text-rose-600",
		Pattern:      regexp.MustCompile(`[\x{0642}\x{0637}\x{0628}\x{062C}\x{062F}][\x{0652}]?`),
	},
)

// Default returns the built-in rule catalog
func Default() *Catalog {
	return defaultCatalog
}

func mustCatalog(rules ...Rule) *Catalog {
	c, err := NewCatalog(rules...)
	if err != nil {
		panic(err)
	}
	return c
}
