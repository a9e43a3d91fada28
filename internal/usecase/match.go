package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/pkg/textx"
)

const (
	keywordWeight  = 10
	keywordCeiling = 70
	// ReasonMatchInputMissing is returned when either side is blank.
	ReasonMatchInputMissing = "resume and job description are both required"
)

// keywordVocabulary partitions technology terms by area. Matching is
// case-insensitive containment, so very short tokens are avoided.
var keywordVocabulary = map[string][]string{
	"backend":  {"java", "spring", "python", "django", "fastapi", "flask", "node", "express", "golang", "kotlin", "php", "ruby", "c#", ".net"},
	"frontend": {"react", "vue", "angular", "javascript", "typescript", "html", "css", "next.js", "svelte"},
	"database": {"mysql", "postgresql", "oracle", "mongodb", "redis", "sql", "jpa", "elasticsearch"},
	"devops":   {"docker", "kubernetes", "aws", "gcp", "azure", "jenkins", "terraform", "linux", "nginx", "ci/cd"},
	"mobile":   {"android", "ios", "swift", "flutter", "react native"},
}

const matchSystemPrompt = `You are a recruiting assistant that rates how well a resume fits a job posting.
Return JSON only: {"score": integer 0-100, "reason": "one or two sentences in Korean"}.`

func matchSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":  map[string]any{"type": "integer"},
			"reason": map[string]any{"type": "string"},
		},
		"required": []string{"score", "reason"},
	}
}

// MatchScorer rates resume/job fit, falling back to KeywordScore.
type MatchScorer struct {
	runner    Runner
	extractor *ai.ResponseExtractor
	models    Models
	maxChars  int
}

// NewMatchScorer builds a scorer. maxChars <= 0 disables truncation.
func NewMatchScorer(runner Runner, models Models, maxChars int) *MatchScorer {
	return &MatchScorer{runner: runner, extractor: ai.NewResponseExtractor(), models: models, maxChars: maxChars}
}

// Score always returns a result with Score in [0,100].
func (s *MatchScorer) Score(ctx context.Context, resume, job string) domain.MatchResult {
	resume, job = strings.TrimSpace(resume), strings.TrimSpace(job)
	if resume == "" || job == "" {
		return domain.MatchResult{Score: 0, Reason: ReasonMatchInputMissing}
	}
	if s.maxChars > 0 {
		resume = textx.Truncate(resume, s.maxChars)
		job = textx.Truncate(job, s.maxChars)
	}

	task := domain.GenerationTask{
		SystemInstruction:     matchSystemPrompt,
		UserPrompt:            fmt.Sprintf("### Resume\n%s\n\n### Job posting\n%s", resume, job),
		MaxOutputTokens:       300,
		Temperature:           0.2,
		ForceStructuredOutput: true,
		OutputSchema:          matchSchema(),
	}
	out := s.runner.Run(ctx, ai.TwoModelPlan(s.models.Primary, s.models.Secondary, task, nil))
	if out.OK {
		if res, ok := s.extractor.ExtractScored(out.Text); ok {
			res.Score = clampInt(res.Score, 0, 100)
			observability.ObserveMatch("model", res.Score)
			return res
		}
		observability.LoggerFromContext(ctx).Warn("match response unparsable; using keyword heuristic")
	} else {
		observability.LoggerFromContext(ctx).Warn("match model unavailable; using keyword heuristic",
			slog.String("last_kind", string(out.LastKind)))
	}
	res := KeywordScore(resume, job)
	observability.ObserveMatch("keyword", res.Score)
	return res
}

// KeywordScore is a pure, deterministic overlap heuristic capped at 70.
func KeywordScore(resume, job string) domain.MatchResult {
	r, j := strings.ToLower(resume), strings.ToLower(job)
	areas := make([]string, 0, len(keywordVocabulary))
	for area := range keywordVocabulary {
		areas = append(areas, area)
	}
	sort.Strings(areas)

	total := 0
	parts := make([]string, 0, len(areas))
	for _, area := range areas {
		n := 0
		for _, kw := range keywordVocabulary[area] {
			if strings.Contains(r, kw) && strings.Contains(j, kw) {
				n++
			}
		}
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", area, n))
		}
		total += n
	}
	score := total * keywordWeight
	if score > keywordCeiling {
		score = keywordCeiling
	}
	reason := "keyword match: no shared technology keywords"
	if len(parts) > 0 {
		reason = "keyword match: " + strings.Join(parts, ", ")
	}
	return domain.MatchResult{Score: score, Reason: reason}
}
