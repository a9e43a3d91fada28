package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/pkg/textx"
)

// InterviewCategories are the accepted question categories; anything else is
// filed under the last one.
var InterviewCategories = []string{"기술", "경험", "직무", "회사", "인성"}

const (
	questionCount         = 3
	feedbackMinChars      = 60
	interviewContextChars = 3000
)

const interviewSystemPrompt = `당신은 IT 기업의 면접관입니다. 지원자 정보를 바탕으로 실제 면접에서 나올 법한 질문을 만드세요.
규칙:
- 이전에 나온 질문과 의미가 겹치는 질문은 만들지 마세요.
- category는 기술, 경험, 직무, 회사, 인성 중 하나입니다.
- 반드시 JSON 배열로만 답하세요: [{"question": "...", "category": "..."}]`

const feedbackSystemPrompt = `당신은 면접 코치입니다. 질문과 지원자의 답변을 보고 다음 형식으로 피드백을 작성하세요.
[좋았던 점]
[아쉬운 점]
[개선된 답변 예시]`

// FeedbackFallbackTemplate is served when the model cannot produce feedback.
const FeedbackFallbackTemplate = `[좋았던 점]
질문에 성실하게 답변하려는 태도가 보입니다.

[아쉬운 점]
구체적인 사례와 수치가 부족하면 답변의 설득력이 떨어질 수 있습니다.

[개선 방법]
STAR(상황, 과제, 행동, 결과) 구조로 경험을 정리하고, 본인의 역할과 결과를 수치로 보여주세요.`

// QuestionRequest carries references to the candidate and target role. The
// service holds no data of its own, so callers pass whatever text they have.
type QuestionRequest struct {
	ResumeID          int64
	ResumeText        string
	JobPostID         int64
	JobPostLink       string
	CompanyID         int64
	CompanyLink       string
	PreviousQuestions []string
}

// FeedbackRequest is one answered interview question.
type FeedbackRequest struct {
	Question    string
	Answer      string
	Context     string
	JobPostLink string
	CompanyLink string
}

// Interview runs the interview-coaching operations.
type Interview struct {
	runner    Runner
	extractor *ai.ResponseExtractor
	models    Models
}

// NewInterview wires the interview coach.
func NewInterview(runner Runner, models Models) *Interview {
	return &Interview{runner: runner, extractor: ai.NewResponseExtractor(), models: models}
}

// GenerateQuestions returns an empty slice unless the model output parses as
// a JSON array.
func (s *Interview) GenerateQuestions(ctx context.Context, req QuestionRequest) []domain.InterviewQuestion {
	var b strings.Builder
	fmt.Fprintf(&b, "### 지원자\n이력서 ID: %d\n", req.ResumeID)
	if t := strings.TrimSpace(req.ResumeText); t != "" {
		fmt.Fprintf(&b, "%s\n", textx.Truncate(t, interviewContextChars))
	}
	if req.JobPostID != 0 || req.JobPostLink != "" {
		fmt.Fprintf(&b, "\n### 지원 공고\nID: %d\n링크: %s\n", req.JobPostID, req.JobPostLink)
	}
	if req.CompanyID != 0 || req.CompanyLink != "" {
		fmt.Fprintf(&b, "\n### 회사\nID: %d\n링크: %s\n", req.CompanyID, req.CompanyLink)
	}
	if len(req.PreviousQuestions) > 0 {
		b.WriteString("\n### 이전 질문 (중복 금지)\n")
		for _, q := range req.PreviousQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	fmt.Fprintf(&b, "\n질문 %d개를 만드세요.", questionCount)

	task := domain.GenerationTask{
		SystemInstruction:     interviewSystemPrompt,
		UserPrompt:            b.String(),
		MaxOutputTokens:       800,
		Temperature:           0.8,
		ForceStructuredOutput: true,
		OutputSchema: map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{"type": "string"},
					"category": map[string]any{"type": "string"},
				},
				"required": []string{"question", "category"},
			},
		},
	}
	out := s.runner.Run(ctx, ai.TwoModelPlan(s.models.Primary, s.models.Secondary, task, nil))
	if !out.OK {
		return []domain.InterviewQuestion{}
	}
	arr, ok := s.extractor.ExtractArray(out.Text)
	if !ok {
		observability.LoggerFromContext(ctx).Warn("interview questions not a JSON array", slog.Int("len", len(out.Text)))
		return []domain.InterviewQuestion{}
	}

	seen := make(map[string]struct{}, len(req.PreviousQuestions))
	for _, q := range req.PreviousQuestions {
		seen[textx.Normalize(q)] = struct{}{}
	}
	questions := make([]domain.InterviewQuestion, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q, _ := ai.StringField(m, "question")
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[textx.Normalize(q)]; dup {
			continue
		}
		seen[textx.Normalize(q)] = struct{}{}
		cat, _ := ai.StringField(m, "category")
		questions = append(questions, domain.InterviewQuestion{
			ID:       uuid.NewString(),
			Question: q,
			Category: normalizeCategory(cat),
		})
	}
	return questions
}

func normalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	for _, known := range InterviewCategories {
		if c == known {
			return c
		}
	}
	return InterviewCategories[len(InterviewCategories)-1]
}

// Feedback always returns non-empty text.
func (s *Interview) Feedback(ctx context.Context, req FeedbackRequest) string {
	question, answer := strings.TrimSpace(req.Question), strings.TrimSpace(req.Answer)
	if question == "" || answer == "" {
		return FeedbackFallbackTemplate
	}
	var b strings.Builder
	fmt.Fprintf(&b, "### 질문\n%s\n\n### 답변\n%s\n", question, textx.Truncate(answer, interviewContextChars))
	if c := strings.TrimSpace(req.Context); c != "" {
		fmt.Fprintf(&b, "\n### 참고 정보\n%s\n", textx.Truncate(c, interviewContextChars))
	}
	if req.JobPostLink != "" {
		fmt.Fprintf(&b, "지원 공고: %s\n", req.JobPostLink)
	}
	if req.CompanyLink != "" {
		fmt.Fprintf(&b, "회사: %s\n", req.CompanyLink)
	}
	task := domain.GenerationTask{
		SystemInstruction: feedbackSystemPrompt,
		UserPrompt:        b.String(),
		MaxOutputTokens:   800,
		Temperature:       0.5,
	}
	out := s.runner.Run(ctx, ai.TwoModelPlan(s.models.Primary, s.models.Secondary, task, ai.NotRefusal()))
	if !out.OK || utf8.RuneCountInString(strings.TrimSpace(out.Text)) < feedbackMinChars {
		return FeedbackFallbackTemplate
	}
	return out.Text
}
