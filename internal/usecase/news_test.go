package usecase_test

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
	"github.com/noeyos-p/hirehub-ai/internal/usecase"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 4, 9, 5, 6, 0, time.UTC) }

func byQuery(q string) any {
	return mock.MatchedBy(func(nq domain.NewsQuery) bool { return nq.Query == q })
}

func TestNewsDigest_FetchDefaults(t *testing.T) {
	s := mocks.NewMockNewsSearcher(t)
	want := domain.NewsQuery{Query: usecase.DefaultNewsQuery, Days: usecase.DefaultNewsDays, Limit: usecase.DefaultNewsLimit}
	s.On("Search", mock.Anything, want).Return([]domain.NewsItem{{Title: "a"}}, nil)
	svc := usecase.NewNewsDigest(s, newOrchestrator(mocks.NewMockModelInvoker(t)), testModels, fixedNow)

	items := svc.Fetch(context.Background(), usecase.DigestRequest{})
	assert.Len(t, items, 1)
}

func TestNewsDigest_FetchErrorIsEmpty(t *testing.T) {
	s := mocks.NewMockNewsSearcher(t)
	s.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	svc := usecase.NewNewsDigest(s, nil, testModels, fixedNow)

	items := svc.Fetch(context.Background(), usecase.DigestRequest{Query: "AI", Days: 3, Limit: 5})
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestNewsDigest_FetchTrimsToLimit(t *testing.T) {
	s := mocks.NewMockNewsSearcher(t)
	s.On("Search", mock.Anything, mock.Anything).Return([]domain.NewsItem{{Title: "1"}, {Title: "2"}, {Title: "3"}}, nil)
	svc := usecase.NewNewsDigest(s, nil, testModels, fixedNow)

	assert.Len(t, svc.Fetch(context.Background(), usecase.DigestRequest{Limit: 2}), 2)
}

func TestNewsDigest_Digest(t *testing.T) {
	s := mocks.NewMockNewsSearcher(t)
	s.On("Search", mock.Anything, byQuery(usecase.DigestQueryTiers[0])).Return(nil, nil).Once()
	s.On("Search", mock.Anything, byQuery(usecase.DigestQueryTiers[1])).Return([]domain.NewsItem{
		{Title: "AI 개발자 채용 확대", Link: "https://n.example/1"},
		{Title: "스타트업 투자 회복", Link: "https://n.example/2"},
	}, nil).Once()

	inv := mocks.NewMockModelInvoker(t)
	var task domain.GenerationTask
	inv.On("Invoke", mock.Anything, "primary", capturedTask(&task)).Return(answered("- AI 인재 수요가 늘고 있습니다."))
	svc := usecase.NewNewsDigest(s, newOrchestrator(inv), testModels, fixedNow)

	d := svc.Digest(context.Background(), usecase.DigestRequest{Style: "paragraph"})
	assert.Equal(t, "AI 뉴스 요약 (20260304090506)", d.Title)
	assert.Equal(t, "[UID:20260304090506] - AI 인재 수요가 늘고 있습니다.", d.Content)
	assert.Equal(t, usecase.DigestTags, d.Tags)
	require.Len(t, d.Sources, 2)
	assert.Contains(t, task.UserPrompt, "paragraph")
	assert.Contains(t, task.UserPrompt, "- 스타트업 투자 회복")
}

func TestNewsDigest_DigestNoNews(t *testing.T) {
	s := mocks.NewMockNewsSearcher(t)
	s.On("Search", mock.Anything, mock.Anything).Return([]domain.NewsItem{}, nil).Times(len(usecase.DigestQueryTiers))
	inv := mocks.NewMockModelInvoker(t)
	svc := usecase.NewNewsDigest(s, newOrchestrator(inv), testModels, fixedNow)

	d := svc.Digest(context.Background(), usecase.DigestRequest{})
	assert.Equal(t, "뉴스 없음 (2026-03-04 09:05)", d.Title)
	assert.Empty(t, d.Content)
	assert.NotNil(t, d.Tags)
	assert.NotNil(t, d.Sources)
	inv.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewsDigest_DigestFallsBackToHeadlines(t *testing.T) {
	s := mocks.NewMockNewsSearcher(t)
	s.On("Search", mock.Anything, mock.Anything).Return([]domain.NewsItem{{Title: "공채 시즌 시작"}}, nil).Once()
	inv := mocks.NewMockModelInvoker(t)
	onInvoke(inv, failed(domain.ErrorKindQuota))
	svc := usecase.NewNewsDigest(s, newOrchestrator(inv), testModels, fixedNow)

	d := svc.Digest(context.Background(), usecase.DigestRequest{})
	assert.Equal(t, "[UID:20260304090506] - 공채 시즌 시작", d.Content)
}
