package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noeyos-p/hirehub-ai/pkg/textx"
)

// QualityCheck decides whether a non-empty model response is good enough to
// stop the fallback chain. It returns "" when the text passes, otherwise a
// short reason that ends up in logs.
type QualityCheck func(text string) string

// MinLength requires at least n runes after trimming.
func MinLength(n int) QualityCheck {
	return func(text string) string {
		if got := utf8.RuneCountInString(strings.TrimSpace(text)); got < n {
			return fmt.Sprintf("too short: %d < %d runes", got, n)
		}
		return ""
	}
}

// MinSentences requires at least n sentences split on terminal punctuation.
func MinSentences(n int) QualityCheck {
	return func(text string) string {
		if got := len(textx.SplitSentences(text)); got < n {
			return fmt.Sprintf("too few sentences: %d < %d", got, n)
		}
		return ""
	}
}

// refusal phrasing seen from hosted models; only matched in short replies so
// a long answer that happens to apologise is not thrown away
var refusalIndicators = []string{
	"i'm sorry, but", "i cannot help", "i can't help", "i can't assist", "i cannot assist",
	"i'm unable to", "as an ai", "i am unable to",
	"도와드릴 수 없", "답변드릴 수 없", "처리할 수 없습니다", "제공할 수 없습니다",
}

const refusalMaxRunes = 240

// NotRefusal rejects short replies that read as a model refusal.
func NotRefusal() QualityCheck {
	return func(text string) string {
		if utf8.RuneCountInString(text) > refusalMaxRunes {
			return ""
		}
		lower := strings.ToLower(text)
		for _, ind := range refusalIndicators {
			if strings.Contains(lower, ind) {
				return "refusal: " + ind
			}
		}
		return ""
	}
}

// NotRepetitive rejects text where one three-word phrase repeats more than twice.
func NotRepetitive() QualityCheck {
	return func(text string) string {
		words := strings.Fields(strings.ToLower(text))
		if len(words) < 10 {
			return ""
		}
		seen := make(map[string]int)
		for i := 0; i < len(words)-2; i++ {
			p := strings.Join(words[i:i+3], " ")
			seen[p]++
			if seen[p] > 2 {
				return "repetitive: " + p
			}
		}
		return ""
	}
}

// AllOf passes only if every check passes; nil checks are skipped.
func AllOf(checks ...QualityCheck) QualityCheck {
	return func(text string) string {
		for _, c := range checks {
			if c == nil {
				continue
			}
			if why := c(text); why != "" {
				return why
			}
		}
		return ""
	}
}
