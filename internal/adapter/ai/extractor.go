package ai

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

// Strategy tags which extraction step produced a value.
type Strategy string

const (
	StrategyDirectParse       Strategy = "direct_parse"
	StrategyBraceExtraction   Strategy = "brace_extraction"
	StrategyFieldRegexSalvage Strategy = "field_regex_salvage"
	StrategyDefault           Strategy = "default"
)

// ParseFailedReason is the reason attached to the score-shaped default value.
const ParseFailedReason = "parse failed"

// salvagedReasonPlaceholder is used when a score was salvaged without a reason.
const salvagedReasonPlaceholder = "no reason provided"

var (
	// at most one level of nesting; enough for {"categories":{...}} payloads
	bracePattern    = regexp.MustCompile(`\{(?:[^{}]|\{[^{}]*\})*\}`)
	scorePattern    = regexp.MustCompile(`"score"\s*:\s*(-?\d+)`)
	reasonPattern   = regexp.MustCompile(`"reason"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// Extraction is the result of ResponseExtractor.Extract.
type Extraction struct {
	Value    map[string]any
	Strategy Strategy
}

// OK reports whether any strategy other than the default succeeded.
func (e Extraction) OK() bool { return e.Strategy != StrategyDefault }

// ResponseExtractor coerces free-form model text into a JSON object. Each
// strategy runs only if the previous one failed; a re-ask costs quota, local
// recovery does not.
type ResponseExtractor struct{}

// NewResponseExtractor creates a new extractor.
func NewResponseExtractor() *ResponseExtractor {
	return &ResponseExtractor{}
}

// Extract returns the first value a strategy recovers, or an empty mapping
// tagged StrategyDefault.
func (re *ResponseExtractor) Extract(raw string) Extraction {
	ex := re.extract(raw)
	observability.ExtractionStrategyTotal.WithLabelValues(string(ex.Strategy)).Inc()
	return ex
}

func (re *ResponseExtractor) extract(raw string) Extraction {
	if v, ok := re.DirectParse(raw); ok {
		return Extraction{Value: v, Strategy: StrategyDirectParse}
	}
	if v, ok := re.BraceExtraction(raw); ok {
		return Extraction{Value: v, Strategy: StrategyBraceExtraction}
	}
	if v, ok := re.FieldRegexSalvage(raw); ok {
		return Extraction{Value: v, Strategy: StrategyFieldRegexSalvage}
	}
	return Extraction{Value: map[string]any{}, Strategy: StrategyDefault}
}

// ExtractScored is Extract for score-shaped tasks: the default value is
// {score: 0, reason: "parse failed"} and ok is false.
func (re *ResponseExtractor) ExtractScored(raw string) (domain.MatchResult, bool) {
	ex := re.Extract(raw)
	if !ex.OK() {
		return domain.MatchResult{Score: 0, Reason: ParseFailedReason}, false
	}
	score, ok := IntField(ex.Value, "score")
	if !ok {
		return domain.MatchResult{Score: 0, Reason: ParseFailedReason}, false
	}
	reason, _ := StringField(ex.Value, "reason")
	if strings.TrimSpace(reason) == "" {
		reason = salvagedReasonPlaceholder
	}
	return domain.MatchResult{Score: score, Reason: reason}, true
}

// DirectParse strips code fences and parses the remainder as a JSON object.
func (re *ResponseExtractor) DirectParse(raw string) (map[string]any, bool) {
	return parseObject(stripCodeFence(raw))
}

// BraceExtraction parses the largest brace-delimited candidate that decodes.
func (re *ResponseExtractor) BraceExtraction(raw string) (map[string]any, bool) {
	candidates := bracePattern.FindAllString(raw, -1)
	if len(candidates) == 0 {
		return nil, false
	}
	sort.SliceStable(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	for _, c := range candidates {
		if v, ok := parseObject(c); ok {
			return v, true
		}
		if v, ok := parseObject(trailingCommaRe.ReplaceAllString(c, "$1")); ok {
			return v, true
		}
	}
	return nil, false
}

// FieldRegexSalvage recovers {score, reason} from text that is not JSON at all.
// A score is required; the reason falls back to a placeholder.
func (re *ResponseExtractor) FieldRegexSalvage(raw string) (map[string]any, bool) {
	m := scorePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}
	reason := salvagedReasonPlaceholder
	if rm := reasonPattern.FindStringSubmatch(raw); rm != nil {
		if s, err := strconv.Unquote(`"` + rm[1] + `"`); err == nil {
			reason = s
		} else {
			reason = rm[1]
		}
	}
	return map[string]any{"score": float64(score), "reason": reason}, true
}

// ExtractArray recovers a JSON array, used for list-shaped outputs.
func (re *ResponseExtractor) ExtractArray(raw string) ([]any, bool) {
	s := stripCodeFence(raw)
	var arr []any
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		return arr, true
	}
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	body := s[start : end+1]
	if err := json.Unmarshal([]byte(body), &arr); err == nil {
		return arr, true
	}
	if err := json.Unmarshal([]byte(trailingCommaRe.ReplaceAllString(body, "$1")), &arr); err == nil {
		return arr, true
	}
	return nil, false
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// drop an optional language tag on the opening fence line
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseObject(s string) (map[string]any, bool) {
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// IntField reads an integer-ish field. Accepts JSON numbers and numeric strings;
// fractional values are rounded toward zero and magnitudes beyond int32
// saturate so callers can still clamp them.
func IntField(m map[string]any, key string) (int, bool) {
	f, ok := FloatField(m, key)
	if !ok {
		return 0, false
	}
	f = math.Max(math.MinInt32, math.Min(math.MaxInt32, f))
	return int(f), true
}

// FloatField reads a finite numeric field. Accepts JSON numbers and numeric
// strings; NaN and infinities are rejected.
func FloatField(m map[string]any, key string) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch v := m[key].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// StringField reads a string field.
func StringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// BoolField reads a boolean field. Accepts "true"/"false" strings.
func BoolField(m map[string]any, key string) (bool, bool) {
	switch v := m[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	}
	return false, false
}
