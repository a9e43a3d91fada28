package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/internal/domain/mocks"
	"github.com/noeyos-p/hirehub-ai/internal/usecase"
)

func TestAssistant_Chat(t *testing.T) {
	inv := mocks.NewMockModelInvoker(t)
	var seen domain.GenerationTask
	inv.On("Invoke", mock.Anything, "primary", capturedTask(&seen)).Return(answered("안녕하세요!")).Once()
	a := usecase.NewAssistant(newOrchestrator(inv), nil, testModels)

	assert.Equal(t, "안녕하세요!", a.Chat(context.Background(), "hi"))
	assert.Contains(t, seen.SystemInstruction, "HireHub")
	assert.Equal(t, 500, seen.MaxOutputTokens)
	assert.Equal(t, "", a.Chat(context.Background(), "   "))
}

func TestAssistant_ChatExhaustionReturnsPlaceholder(t *testing.T) {
	inv := mocks.NewMockModelInvoker(t)
	onInvoke(inv, answered("")).Twice()
	a := usecase.NewAssistant(newOrchestrator(inv), nil, testModels)
	assert.Equal(t, ai.NoModelResponse, a.Chat(context.Background(), "hi"))
}

func TestAssistant_ReviewPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		kind domain.ErrorKind
		want string
	}{
		{"quota", domain.ErrorKindQuota, usecase.ReviewQuotaMessage},
		{"timeout", domain.ErrorKindTransient, usecase.ReviewTimeoutMessage},
		{"unknown", domain.ErrorKindUnknown, usecase.ReviewUnknownMessage},
		{"auth", domain.ErrorKindAuthentication, usecase.ReviewUnknownMessage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := mocks.NewMockModelInvoker(t)
			onInvoke(inv, failed(tc.kind)).Twice()
			a := usecase.NewAssistant(newOrchestrator(inv), nil, testModels)
			assert.Equal(t, tc.want, a.ReviewResume(context.Background(), "5년차 백엔드 개발자 이력서"))
		})
	}
}

func TestAssistant_ReviewRejectsRefusal(t *testing.T) {
	inv := mocks.NewMockModelInvoker(t)
	long := "강점: 다양한 프로젝트 경험이 있습니다. 보완점: 성과를 수치로 표현하면 좋겠습니다. 제안: 기술 스택을 정리하세요."
	inv.On("Invoke", mock.Anything, "primary", mock.Anything).Return(answered("I'm sorry, but I can't help with that request.")).Once()
	inv.On("Invoke", mock.Anything, "secondary", mock.Anything).Return(answered(long)).Once()
	a := usecase.NewAssistant(newOrchestrator(inv), nil, testModels)
	assert.Equal(t, long, a.ReviewResume(context.Background(), "이력서 내용"))
}

func TestAssistant_Summarize(t *testing.T) {
	five := "첫째 문장입니다. 둘째 문장입니다. 셋째 문장입니다. 넷째 문장입니다. 다섯째 문장입니다. 여섯째 문장입니다."

	t.Run("keeps at most five sentences", func(t *testing.T) {
		inv := mocks.NewMockModelInvoker(t)
		onInvoke(inv, answered(five)).Once()
		a := usecase.NewAssistant(newOrchestrator(inv), nil, testModels)
		assert.Equal(t, "첫째 문장입니다. 둘째 문장입니다. 셋째 문장입니다. 넷째 문장입니다. 다섯째 문장입니다.",
			a.Summarize(context.Background(), "원문"))
	})

	t.Run("short output retries with simplified prompt", func(t *testing.T) {
		inv := mocks.NewMockModelInvoker(t)
		onInvoke(inv, answered("짧음.")).Once()
		onInvoke(inv, answered("한 문장짜리 요약이 돌아왔지만 간단 요약 기준 길이는 충분히 넘습니다")).Once()
		a := usecase.NewAssistant(newOrchestrator(inv), nil, testModels)

		out := a.Summarize(context.Background(), "원문")
		assert.Equal(t, "한 문장짜리 요약이 돌아왔지만 간단 요약 기준 길이는 충분히 넘습니다", out, "fewer than three sentences returns raw output")
		inv.AssertNumberOfCalls(t, "Invoke", 2)
	})

	t.Run("both attempts short returns rejected raw text", func(t *testing.T) {
		inv := mocks.NewMockModelInvoker(t)
		onInvoke(inv, answered("짧음.")).Twice()
		a := usecase.NewAssistant(newOrchestrator(inv), nil, testModels)
		assert.Equal(t, "짧음.", a.Summarize(context.Background(), "원문"))
	})

	t.Run("total failure returns placeholder", func(t *testing.T) {
		inv := mocks.NewMockModelInvoker(t)
		onInvoke(inv, failed(domain.ErrorKindTransient)).Twice()
		a := usecase.NewAssistant(newOrchestrator(inv), nil, testModels)
		assert.Equal(t, ai.NoModelResponse, a.Summarize(context.Background(), "원문"))
	})
}

func TestAssistant_Embed(t *testing.T) {
	emb := mocks.NewMockEmbedder(t)
	emb.On("Embed", mock.Anything, "hello").Return([]float32{0.1, 0.2}, nil).Once()
	emb.On("Embed", mock.Anything, "boom").Return(nil, errors.New("upstream down")).Once()
	a := usecase.NewAssistant(nil, emb, testModels)

	assert.Equal(t, []float32{0.1, 0.2}, a.Embed(context.Background(), "hello"))
	got := a.Embed(context.Background(), "boom")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, a.Embed(context.Background(), " "))
}

func TestAssistant_EmbedDisabled(t *testing.T) {
	a := usecase.NewAssistant(nil, nil, testModels)
	assert.Equal(t, []float32{}, a.Embed(context.Background(), "hello"))
}
