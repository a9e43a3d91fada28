package usecase_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai"
	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/internal/domain/mocks"
	"github.com/noeyos-p/hirehub-ai/internal/usecase"
)

var testModels = usecase.Models{Primary: "primary", Secondary: "secondary"}

func answered(text string) domain.ModelCallResult {
	return domain.ModelCallResult{Succeeded: true, Text: text}
}

func failed(kind domain.ErrorKind) domain.ModelCallResult {
	return domain.ModelCallResult{Succeeded: false, Kind: kind, Err: errors.New(string(kind))}
}

func newOrchestrator(inv domain.ModelInvoker) *ai.Orchestrator {
	return ai.NewOrchestrator(inv, nil, nil)
}

func defaultRules(t *testing.T) *usecase.RuleSet {
	t.Helper()
	raw, err := config.LoadModerationRules("")
	require.NoError(t, err)
	rs, err := usecase.CompileRules(raw)
	require.NoError(t, err)
	return rs
}

// onInvoke registers an Invoke expectation for any model and task.
func onInvoke(inv *mocks.MockModelInvoker, res domain.ModelCallResult) *mock.Call {
	return inv.On("Invoke", mock.Anything, mock.Anything, mock.Anything).Return(res)
}

// capturedTask returns a matcher that stores the task it sees.
func capturedTask(dst *domain.GenerationTask) any {
	return mock.MatchedBy(func(task domain.GenerationTask) bool {
		*dst = task
		return true
	})
}
