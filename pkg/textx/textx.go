// Package textx provides small text utilities used across the project.
package textx

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Truncate returns at most n runes of s. Never splits a multi-byte rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Normalize lowercases s and collapses every whitespace run to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// sentenceEnd matches terminal punctuation, including the full-width forms.
var sentenceEnd = regexp.MustCompile(`[.!?。！？]+`)

// SplitSentences splits s on terminal punctuation and drops empty pieces.
// The punctuation stays attached to its sentence.
func SplitSentences(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	out := make([]string, 0, 8)
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(s, -1) {
		if sent := strings.TrimSpace(s[last:loc[1]]); hasLetter(sent) {
			out = append(out, sent)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(s[last:]); hasLetter(tail) {
		out = append(out, tail)
	}
	return out
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// StripTags removes the bold markup the news provider wraps matches in.
func StripTags(s string) string {
	return strings.NewReplacer("<b>", "", "</b>", "").Replace(s)
}
