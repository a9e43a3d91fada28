package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/internal/domain/mocks"
	"github.com/noeyos-p/hirehub-ai/internal/usecase"
)

func TestInterview_GenerateQuestions(t *testing.T) {
	inv := mocks.NewMockModelInvoker(t)
	var task domain.GenerationTask
	inv.On("Invoke", mock.Anything, "primary", capturedTask(&task)).Return(answered("```json\n" + `[
		{"question": "Go에서 채널을 언제 사용하나요?", "category": "기술"},
		{"question": "자기소개를 해주세요.", "category": "인성"},
		{"question": "가장 어려웠던 프로젝트는?", "category": "잡담"},
		{"question": "", "category": "기술"}
	]` + "\n```"))
	svc := usecase.NewInterview(newOrchestrator(inv), testModels)

	qs := svc.GenerateQuestions(context.Background(), usecase.QuestionRequest{
		ResumeID:          7,
		ResumeText:        "Go 백엔드 3년",
		JobPostLink:       "https://example.com/jobs/1",
		PreviousQuestions: []string{"자기소개를 해주세요"},
	})

	require.Len(t, qs, 2)
	assert.Equal(t, "Go에서 채널을 언제 사용하나요?", qs[0].Question)
	assert.Equal(t, "기술", qs[0].Category)
	assert.Equal(t, "가장 어려웠던 프로젝트는?", qs[1].Question)
	assert.Equal(t, "인성", qs[1].Category, "unknown category maps to the catch-all")
	assert.NotEmpty(t, qs[0].ID)
	assert.NotEqual(t, qs[0].ID, qs[1].ID)

	assert.True(t, task.ForceStructuredOutput)
	assert.Equal(t, "array", task.OutputSchema["type"])
	assert.Contains(t, task.UserPrompt, "자기소개를 해주세요")
	assert.Contains(t, task.UserPrompt, "https://example.com/jobs/1")
}

func TestInterview_GenerateQuestionsFailures(t *testing.T) {
	tests := []struct {
		name string
		res  domain.ModelCallResult
	}{
		{"not an array", answered(`{"question": "하나"}`)},
		{"prose", answered("질문을 만들 수 없습니다")},
		{"model failure", failed(domain.ErrorKindTransient)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := mocks.NewMockModelInvoker(t)
			onInvoke(inv, tc.res)
			svc := usecase.NewInterview(newOrchestrator(inv), testModels)

			qs := svc.GenerateQuestions(context.Background(), usecase.QuestionRequest{ResumeID: 1})
			assert.NotNil(t, qs)
			assert.Empty(t, qs)
		})
	}
}

func TestInterview_Feedback(t *testing.T) {
	good := "[좋았던 점]\n경험을 구체적으로 설명했습니다.\n[아쉬운 점]\n결과 수치가 빠져 있습니다.\n[개선된 답변 예시]\n트래픽을 30% 줄인 사례를 먼저 말해 보세요."

	t.Run("model feedback", func(t *testing.T) {
		inv := mocks.NewMockModelInvoker(t)
		var task domain.GenerationTask
		inv.On("Invoke", mock.Anything, "primary", capturedTask(&task)).Return(answered(good))
		svc := usecase.NewInterview(newOrchestrator(inv), testModels)

		out := svc.Feedback(context.Background(), usecase.FeedbackRequest{
			Question: "장애 대응 경험을 말해 주세요",
			Answer:   "결제 서버 장애 때 롤백을 주도했습니다",
			Context:  "핀테크 백엔드",
		})
		assert.Equal(t, good, out)
		assert.Contains(t, task.UserPrompt, "핀테크 백엔드")
	})

	t.Run("blank answer skips the model", func(t *testing.T) {
		inv := mocks.NewMockModelInvoker(t)
		svc := usecase.NewInterview(newOrchestrator(inv), testModels)

		out := svc.Feedback(context.Background(), usecase.FeedbackRequest{Question: "질문", Answer: "  "})
		assert.Equal(t, usecase.FeedbackFallbackTemplate, out)
		inv.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("short feedback uses template", func(t *testing.T) {
		inv := mocks.NewMockModelInvoker(t)
		onInvoke(inv, answered("좋습니다."))
		svc := usecase.NewInterview(newOrchestrator(inv), testModels)

		out := svc.Feedback(context.Background(), usecase.FeedbackRequest{Question: "q", Answer: "a"})
		assert.Equal(t, usecase.FeedbackFallbackTemplate, out)
	})

	t.Run("both models fail", func(t *testing.T) {
		inv := mocks.NewMockModelInvoker(t)
		onInvoke(inv, failed(domain.ErrorKindQuota))
		svc := usecase.NewInterview(newOrchestrator(inv), testModels)

		out := svc.Feedback(context.Background(), usecase.FeedbackRequest{Question: "q", Answer: "a"})
		assert.True(t, strings.HasPrefix(out, "[좋았던 점]"))
		inv.AssertNumberOfCalls(t, "Invoke", 2)
	})
}
