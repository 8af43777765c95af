// Package rules implements the track exclusion predicates applied while
// building the shuffle chain.
package rules

import (
	"fmt"
	"strings"
)

// Pattern matches a single tag against a value. The match is a
// case-insensitive substring test, so "--exclude album=traveller" excludes
// "Traveller's Guide". A track missing the tag never matches.
type Pattern struct {
	Tag   string
	Value string
}

func (p Pattern) matches(tags map[string]string) bool {
	v, ok := tags[p.Tag]
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(v), strings.ToLower(p.Value))
}

// Rule is a conjunction of patterns. A track matching every pattern of any
// rule in a set is excluded.
type Rule struct {
	patterns []Pattern
}

// AddPattern appends a tag pattern to the rule. Tag names are
// case-insensitive.
func (r *Rule) AddPattern(tag, value string) {
	r.patterns = append(r.patterns, Pattern{Tag: strings.ToLower(tag), Value: value})
}

// Empty reports whether the rule has no patterns.
func (r Rule) Empty() bool {
	return len(r.patterns) == 0
}

// Matches reports whether every pattern of the rule matches the tag map.
// An empty rule matches nothing.
func (r Rule) Matches(tags map[string]string) bool {
	if r.Empty() {
		return false
	}
	for _, p := range r.patterns {
		if !p.matches(tags) {
			return false
		}
	}
	return true
}

// Accepted reports whether a track with the given tags survives the rule
// set, i.e. no rule matches it.
func Accepted(rs []Rule, tags map[string]string) bool {
	for _, r := range rs {
		if r.Matches(tags) {
			return false
		}
	}
	return true
}

// Parse builds a rule from a flag value of the form
// "tag=value[,tag=value...]". The comma-joined pairs are ANDed; separate
// --exclude flags produce separate (ORed) rules.
func Parse(spec string) (Rule, error) {
	var r Rule
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, value, ok := strings.Cut(part, "=")
		if !ok || tag == "" || value == "" {
			return Rule{}, fmt.Errorf("invalid exclude pattern %q, want tag=value", part)
		}
		r.AddPattern(tag, value)
	}
	if r.Empty() {
		return Rule{}, fmt.Errorf("empty exclude rule %q", spec)
	}
	return r, nil
}

// ParseAll parses one rule per spec.
func ParseAll(specs []string) ([]Rule, error) {
	out := make([]Rule, 0, len(specs))
	for _, s := range specs {
		r, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
