package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/noeyos-p/hirehub-ai/internal/config"
)

type compiledPattern struct {
	name     string
	category string
	re       *regexp.Regexp
}

// RuleSet is the compiled, read-only form of config.ModerationRules.
type RuleSet struct {
	profanityCategory string
	tokens            []string
	patterns          []compiledPattern
	maxRepeatRun      int
}

// RuleMatch names the rule that fired.
type RuleMatch struct {
	Rule     string
	Category string
}

// CompileRules lowercases tokens and compiles every pattern case-insensitively.
func CompileRules(r config.ModerationRules) (*RuleSet, error) {
	rs := &RuleSet{profanityCategory: r.Profanity.Category, maxRepeatRun: r.MaxRepeatRun}
	for _, t := range r.Profanity.Tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			rs.tokens = append(rs.tokens, t)
		}
	}
	groups := append(append([]config.PatternRule{}, r.Obfuscated...), r.Spam...)
	for _, p := range groups {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("op=usecase.CompileRules: rule %q: %w", p.Name, err)
		}
		rs.patterns = append(rs.patterns, compiledPattern{name: p.Name, category: p.Category, re: re})
	}
	return rs, nil
}

// Match returns the first rule that fires on text.
func (rs *RuleSet) Match(text string) (RuleMatch, bool) {
	if rs == nil {
		return RuleMatch{}, false
	}
	lower := strings.ToLower(text)
	for _, t := range rs.tokens {
		if strings.Contains(lower, t) {
			return RuleMatch{Rule: "token", Category: rs.profanityCategory}, true
		}
	}
	for _, p := range rs.patterns {
		if p.re.MatchString(text) {
			return RuleMatch{Rule: p.name, Category: p.category}, true
		}
	}
	if rs.maxRepeatRun > 0 && longestRun(text) > rs.maxRepeatRun {
		return RuleMatch{Rule: "repeat-flood", Category: "spam"}, true
	}
	return RuleMatch{}, false
}

// longestRun ignores whitespace.
func longestRun(s string) int {
	best, cur := 0, 0
	var prev rune = -1
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			continue
		}
		if r == prev {
			cur++
		} else {
			prev, cur = r, 1
		}
		if cur > best {
			best = cur
		}
	}
	return best
}
