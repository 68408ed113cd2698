package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Window is a half-open local-hour range: a category is active while the
// current hour falls within [Start, End).
type Window struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Contains reports whether hour (0-23) falls inside the window.
func (w Window) Contains(hour int) bool {
	return hour >= w.Start && hour < w.End
}

// Rule maps keyword and section hints to a category with an active-hours
// window. Rules are data: adding a category is a configuration change,
// not a code change.
type Rule struct {
	Name     string   `yaml:"name"`
	Window   Window   `yaml:"window"`
	Keywords []string `yaml:"keywords"`
	Sections []string `yaml:"sections"`
}

// Classifier assigns each task a category by matching the rule table in
// priority order. Classification is pure: the same (text, sectionHeader)
// always yields the same category.
type Classifier struct {
	rules    []Rule
	fallback Rule
	byName   map[string]Rule
}

// New builds a Classifier from an ordered rule table and a fallback rule
// for unmatched items.
func New(rules []Rule, fallback Rule) *Classifier {
	byName := make(map[string]Rule, len(rules)+1)
	for _, r := range rules {
		byName[r.Name] = r
	}
	byName[fallback.Name] = fallback
	return &Classifier{rules: rules, fallback: fallback, byName: byName}
}

// Classify returns the name of the first rule (in priority order) whose
// section hints match the section header or whose keywords match the
// concatenated header and text, case-insensitively. Items matching no
// rule get the fallback category.
func (c *Classifier) Classify(text, sectionHeader string) string {
	section := strings.ToLower(sectionHeader)
	haystack := section + " " + strings.ToLower(text)

	for _, r := range c.rules {
		for _, s := range r.Sections {
			if strings.Contains(section, s) {
				return r.Name
			}
		}
		for _, kw := range r.Keywords {
			if strings.Contains(haystack, kw) {
				return r.Name
			}
		}
	}
	return c.fallback.Name
}

// Window returns the active-hours window for a category name. Unknown
// names get the fallback window.
func (c *Classifier) Window(category string) Window {
	if r, ok := c.byName[category]; ok {
		return r.Window
	}
	return c.fallback.Window
}

// Categories returns the rule names in priority order, fallback last.
func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		out = append(out, r.Name)
	}
	return append(out, c.fallback.Name)
}

type ruleFile struct {
	Categories []Rule `yaml:"categories"`
	Fallback   *Rule  `yaml:"fallback"`
}

// Load reads a rule table from a YAML file. A missing fallback entry
// falls back to the built-in general category.
func Load(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category rules: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing category rules: %w", err)
	}
	if len(rf.Categories) == 0 {
		return nil, fmt.Errorf("category rules file %s defines no categories", path)
	}
	for i, r := range rf.Categories {
		if r.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		for j, kw := range r.Keywords {
			r.Keywords[j] = strings.ToLower(kw)
		}
		for j, s := range r.Sections {
			r.Sections[j] = strings.ToLower(s)
		}
	}
	fallback := defaultFallback
	if rf.Fallback != nil {
		fallback = *rf.Fallback
	}
	return New(rf.Categories, fallback), nil
}
