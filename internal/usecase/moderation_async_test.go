package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/internal/domain/mocks"
	"github.com/noeyos-p/hirehub-ai/internal/usecase"
)

func TestModerationSubmitter_Disabled(t *testing.T) {
	assert.Nil(t, usecase.NewModerationSubmitter(nil))
}

func TestModerationSubmitter_Submit(t *testing.T) {
	q := mocks.NewMockModerationQueue(t)
	var got domain.ModerationJob
	q.On("EnqueueModeration", mock.Anything, mock.MatchedBy(func(j domain.ModerationJob) bool {
		got = j
		return true
	})).Return(nil)
	s := usecase.NewModerationSubmitter(q)

	id, err := s.Submit(context.Background(), "게시글 본문")
	require.NoError(t, err)
	assert.Equal(t, got.ID, id)
	assert.Equal(t, "게시글 본문", got.Content)
	assert.False(t, got.EnqueuedAt.IsZero())
}

func TestModerationSubmitter_Errors(t *testing.T) {
	t.Run("blank content", func(t *testing.T) {
		q := mocks.NewMockModerationQueue(t)
		_, err := usecase.NewModerationSubmitter(q).Submit(context.Background(), " \n")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
	t.Run("queue failure", func(t *testing.T) {
		q := mocks.NewMockModerationQueue(t)
		boom := errors.New("broker down")
		q.On("EnqueueModeration", mock.Anything, mock.Anything).Return(boom)
		_, err := usecase.NewModerationSubmitter(q).Submit(context.Background(), "본문")
		assert.ErrorIs(t, err, boom)
	})
}

func TestModerationPipeline_Process(t *testing.T) {
	inv := mocks.NewMockModelInvoker(t)
	p := newPipeline(t, inv, usecase.ModerationOptions{})

	out := p.Process(context.Background(), domain.ModerationJob{ID: "job-1", Content: "씨발 진짜"})
	assert.Equal(t, "job-1", out.ID)
	assert.False(t, out.Decision.Approve)
	assert.Equal(t, usecase.ReasonRuleBlock, out.Decision.Reason)
	assert.False(t, out.DoneAt.IsZero())
}
