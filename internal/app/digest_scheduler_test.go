package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/internal/domain/mocks"
)

func TestNewDigestSchedulerDefaults(t *testing.T) {
	s := NewDigestScheduler(mocks.NewMockPublisher(t), 0, 2)
	require.NotNil(t, s)
	assert.Equal(t, time.Hour, s.interval)

	assert.Nil(t, NewDigestScheduler(nil, time.Minute, 2))
}

func TestDigestSchedulerPublishOnce(t *testing.T) {
	pub := mocks.NewMockPublisher(t)
	pub.On("PublishDigest", mock.Anything, domain.PublishRequest{
		Query:     DigestQuery,
		Days:      30,
		Limit:     15,
		Style:     "bullet",
		BotUserID: 7,
	}).Return(nil).Once()

	NewDigestScheduler(pub, time.Hour, 7).publishOnce(context.Background())
}

func TestDigestSchedulerPublishFailureIsNotFatal(t *testing.T) {
	pub := mocks.NewMockPublisher(t)
	pub.On("PublishDigest", mock.Anything, mock.Anything).Return(errors.New("backend down")).Twice()

	s := NewDigestScheduler(pub, time.Hour, 2)
	s.publishOnce(context.Background())
	s.publishOnce(context.Background())
}

func TestDigestSchedulerRunWaitsForFirstTick(t *testing.T) {
	pub := mocks.NewMockPublisher(t)
	called := make(chan struct{}, 8)
	pub.On("PublishDigest", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		called <- struct{}{}
	}).Maybe()

	s := NewDigestScheduler(pub, 40*time.Millisecond, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-called:
		t.Fatal("published before the first tick")
	case <-time.After(15 * time.Millisecond):
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("no publish after the first tick")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Run did not exit after context cancellation")
	}
}

func TestDigestSchedulerNilRunReturns(t *testing.T) {
	var s *DigestScheduler
	s.Run(context.Background())
}
