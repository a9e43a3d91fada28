package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/pkg/textx"
)

const (
	chatPersona = "당신은 채용 플랫폼 HireHub의 친절한 고객 지원 AI 챗봇입니다. 사용자의 질문에 명확하고 친절하게 답변해주세요."

	reviewPersona = `당신은 10년 경력의 채용 담당자입니다. 지원자의 이력서를 읽고 다음 항목별로 구체적인 피드백을 작성하세요.
1. 강점
2. 보완이 필요한 부분
3. 문장 및 표현 개선 제안
4. 직무 적합성을 높이기 위한 조언
각 항목은 제목과 함께 2~4개의 bullet로 작성하세요.`

	summaryFullPrompt = `다음 글을 정확히 다섯 문장으로 요약하세요.
규칙:
- 각 문장은 마침표로 끝나는 완결된 문장이어야 합니다.
- 목록, 제목, 마크다운을 사용하지 마세요.
- 원문에 없는 내용을 추가하지 마세요.

### 원문
%s`

	summarySimplePrompt = "다음 글을 세 문장 이상으로 간단히 요약하세요.\n\n%s"

	summaryMinChars       = 80
	summarySimpleMinChars = 30
	summaryMinSentences   = 3
	summaryMaxSentences   = 5
	summaryInputMaxChars  = 6000
	reviewInputMaxChars   = 8000
)

// Review placeholders, keyed by the failure that exhausted the plan.
const (
	ReviewQuotaMessage   = "AI 사용량 한도에 도달하여 지금은 이력서 피드백을 생성할 수 없습니다. 잠시 후 다시 시도해 주세요."
	ReviewTimeoutMessage = "AI 응답이 지연되어 이력서 피드백을 생성하지 못했습니다. 잠시 후 다시 시도해 주세요."
	ReviewUnknownMessage = "이력서 피드백을 생성하는 중 문제가 발생했습니다. 잠시 후 다시 시도해 주세요."
)

// Assistant serves the free-text operations: chat, resume review, summaries
// and embeddings.
type Assistant struct {
	runner   Runner
	embedder domain.Embedder
	models   Models
}

// NewAssistant wires the assistant. embedder may be nil, which disables Embed.
func NewAssistant(runner Runner, embedder domain.Embedder, models Models) *Assistant {
	return &Assistant{runner: runner, embedder: embedder, models: models}
}

// Chat answers with the support persona. Blank input yields an empty answer.
func (a *Assistant) Chat(ctx context.Context, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ""
	}
	task := domain.GenerationTask{
		SystemInstruction: chatPersona,
		UserPrompt:        message,
		MaxOutputTokens:   500,
		Temperature:       0.7,
	}
	return a.runner.Run(ctx, ai.TwoModelPlan(a.models.Primary, a.models.Secondary, task, nil)).Text
}

// ReviewResume returns a critique, or a placeholder that says why none could
// be produced.
func (a *Assistant) ReviewResume(ctx context.Context, content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	task := domain.GenerationTask{
		SystemInstruction: reviewPersona,
		UserPrompt:        "### 이력서\n" + textx.Truncate(content, reviewInputMaxChars),
		MaxOutputTokens:   1500,
		Temperature:       0.4,
	}
	quality := ai.AllOf(ai.MinLength(50), ai.NotRefusal(), ai.NotRepetitive())
	out := a.runner.Run(ctx, ai.TwoModelPlan(a.models.Primary, a.models.Secondary, task, quality))
	if out.OK {
		return out.Text
	}
	return reviewPlaceholder(out)
}

func reviewPlaceholder(out ai.Outcome) string {
	switch out.LastKind {
	case domain.ErrorKindQuota:
		return ReviewQuotaMessage
	case domain.ErrorKindTransient:
		return ReviewTimeoutMessage
	case domain.ErrorKindNone:
		if strings.TrimSpace(out.Rejected) != "" {
			return out.Rejected
		}
	}
	return ReviewUnknownMessage
}

// Summarize asks for five sentences, retries once with a simpler prompt, and
// returns the raw output when fewer than three sentences can be recovered.
func (a *Assistant) Summarize(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = textx.Truncate(text, summaryInputMaxChars)
	full := domain.GenerationTask{
		UserPrompt:      fmt.Sprintf(summaryFullPrompt, text),
		MaxOutputTokens: 600,
		Temperature:     0.3,
	}
	simple := domain.GenerationTask{
		UserPrompt:      fmt.Sprintf(summarySimplePrompt, text),
		MaxOutputTokens: 400,
		Temperature:     0.3,
	}
	plan := ai.DegradingPromptPlan(a.models.Primary,
		full, ai.AllOf(ai.MinLength(summaryMinChars), ai.NotRefusal()),
		simple, ai.MinLength(summarySimpleMinChars))
	out := a.runner.Run(ctx, plan)

	raw := out.Text
	if !out.OK {
		if strings.TrimSpace(out.Rejected) == "" {
			return ai.NoModelResponse
		}
		raw = out.Rejected
	}
	sentences := textx.SplitSentences(raw)
	if len(sentences) < summaryMinSentences {
		observability.LoggerFromContext(ctx).Info("summary has too few sentences; returning raw output",
			slog.Int("sentences", len(sentences)))
		return strings.TrimSpace(raw)
	}
	if len(sentences) > summaryMaxSentences {
		sentences = sentences[:summaryMaxSentences]
	}
	return strings.Join(sentences, " ")
}

// Embed returns an empty vector on any failure.
func (a *Assistant) Embed(ctx context.Context, text string) []float32 {
	if a.embedder == nil || strings.TrimSpace(text) == "" {
		return []float32{}
	}
	vec, err := a.embedder.Embed(ctx, text)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("embedding failed; returning empty vector",
			slog.String("kind", string(domain.ClassifyError(err))),
			slog.Any("error", err))
		return []float32{}
	}
	if vec == nil {
		return []float32{}
	}
	return vec
}
