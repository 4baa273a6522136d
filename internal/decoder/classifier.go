// Package decoder maps free-text symptoms to a fixed emotional-conflict
// reading. Dispatch is first-match-wins over an ordered rule table, so the
// table order is the tie-break.
package decoder

import (
	"regexp"
	"strings"
)

// Bundle is the canned payload returned for a classification.
type Bundle struct {
	Title       string `json:"title"`
	Core        string `json:"core"`
	Hook        string `json:"hook"`
	ConflictTag string `json:"conflict_tag"`
	Badge       string `json:"badge"`
}

// Rule pairs a pattern with the bundle it selects. Patterns are matched
// against lower-cased input, so they are written in lower case.
type Rule struct {
	ID      string
	Pattern *regexp.Regexp
	Bundle  Bundle
}

// RuleInfo is the public catalogue entry for a rule.
type RuleInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Badge string `json:"badge"`
}

// DefaultRuleID identifies the fallback bundle.
const DefaultRuleID = "default"

// Classifier dispatches input over an ordered rule table. It is immutable
// once built and safe for concurrent use.
type Classifier struct {
	rules    []Rule
	fallback Rule
}

// NewClassifier copies rules, so later changes to the caller's slice have
// no effect.
func NewClassifier(rules []Rule, fallback Bundle) *Classifier {
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Classifier{
		rules:    copied,
		fallback: Rule{ID: DefaultRuleID, Bundle: fallback},
	}
}

// Classify returns the bundle of the first rule matching raw, or the
// default bundle.
func (c *Classifier) Classify(raw string) Bundle {
	return c.Lookup(raw).Bundle
}

// Lookup is Classify that also reports which rule matched.
func (c *Classifier) Lookup(raw string) Rule {
	normalized := strings.ToLower(raw)
	for _, rule := range c.rules {
		if rule.Pattern != nil && rule.Pattern.MatchString(normalized) {
			return rule
		}
	}
	return c.fallback
}

// Rules lists the table in priority order, followed by the fallback.
func (c *Classifier) Rules() []RuleInfo {
	infos := make([]RuleInfo, 0, len(c.rules)+1)
	for _, rule := range c.rules {
		infos = append(infos, RuleInfo{ID: rule.ID, Title: rule.Bundle.Title, Badge: rule.Bundle.Badge})
	}
	infos = append(infos, RuleInfo{ID: c.fallback.ID, Title: c.fallback.Bundle.Title, Badge: c.fallback.Bundle.Badge})
	return infos
}

func rule(id, pattern string, bundle Bundle) Rule {
	return Rule{ID: id, Pattern: regexp.MustCompile(pattern), Bundle: bundle}
}
