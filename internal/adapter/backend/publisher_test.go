package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

func newTestPublisher(t *testing.T, h http.HandlerFunc) *Publisher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewPublisher(config.Config{AppEnv: "test", BackendBaseURL: srv.URL + "/"})
}

func TestPublishDigest_Success(t *testing.T) {
	var got domain.PublishRequest
	p := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PublishPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	req := domain.PublishRequest{Query: "AI", Days: 30, Limit: 15, Style: "bullet", BotUserID: 2}
	require.NoError(t, p.PublishDigest(context.Background(), req))
	assert.Equal(t, req, got)
}

func TestPublishDigest_RetriesServerErrors(t *testing.T) {
	var calls int32
	p := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, p.PublishDigest(context.Background(), domain.PublishRequest{}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPublishDigest_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	p := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad bot user", http.StatusBadRequest)
	})
	err := p.PublishDigest(context.Background(), domain.PublishRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPublishDigest_GivesUp(t *testing.T) {
	p := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	err := p.PublishDigest(context.Background(), domain.PublishRequest{})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestPublishDigest_CanceledContext(t *testing.T) {
	p := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.PublishDigest(ctx, domain.PublishRequest{}))
}
