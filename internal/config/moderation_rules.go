package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed moderation_rules.yaml
var defaultModerationRules []byte

// TokenRule lists plain tokens matched by case-insensitive containment.
type TokenRule struct {
	Category string   `yaml:"category"`
	Tokens   []string `yaml:"tokens"`
}

// PatternRule is a named regular expression tagged with a risk category.
type PatternRule struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Pattern  string `yaml:"pattern"`
}

// ModerationRules is the deterministic rule set applied before any model call.
type ModerationRules struct {
	Profanity    TokenRule     `yaml:"profanity"`
	Obfuscated   []PatternRule `yaml:"obfuscated"`
	Spam         []PatternRule `yaml:"spam"`
	MaxRepeatRun int           `yaml:"max_repeat_run"`
}

// LoadModerationRules reads rules from path, or the built-in set when path is empty.
func LoadModerationRules(path string) (ModerationRules, error) {
	raw := defaultModerationRules
	if path != "" {
		b, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return ModerationRules{}, fmt.Errorf("op=config.LoadModerationRules: %w", err)
		}
		raw = b
	}
	return ParseModerationRules(raw)
}

// ParseModerationRules decodes a YAML rule document.
func ParseModerationRules(raw []byte) (ModerationRules, error) {
	var rules ModerationRules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return ModerationRules{}, fmt.Errorf("op=config.ParseModerationRules: %w", err)
	}
	if rules.Profanity.Category == "" {
		rules.Profanity.Category = "profanity"
	}
	for i := range rules.Spam {
		if rules.Spam[i].Category == "" {
			rules.Spam[i].Category = "spam"
		}
	}
	for i := range rules.Obfuscated {
		if rules.Obfuscated[i].Category == "" {
			rules.Obfuscated[i].Category = rules.Profanity.Category
		}
	}
	return rules, nil
}
