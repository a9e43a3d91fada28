// Package backend delivers digest publish requests to the sibling board service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

// PublishPath is where the board service accepts AI news posts.
const PublishPath = "/api/board/ai/news/publish"

// Publisher implements domain.Publisher.
type Publisher struct {
	baseURL string
	timeout time.Duration
	bo      config.BackoffConfig
	hc      *http.Client
}

// NewPublisher builds a publisher with a traced transport.
func NewPublisher(cfg config.Config) *Publisher {
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{
		baseURL: strings.TrimRight(cfg.BackendBaseURL, "/"),
		timeout: timeout,
		bo:      cfg.GetPublishBackoff(),
		hc:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (p *Publisher) retryPolicy(ctx context.Context) backoff.BackOffContext {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = p.bo.MaxElapsedTime
	expo.InitialInterval = p.bo.InitialInterval
	expo.MaxInterval = p.bo.MaxInterval
	expo.Multiplier = p.bo.Multiplier
	return backoff.WithContext(expo, ctx)
}

// PublishDigest posts req and retries network errors and 5xx responses.
// 4xx responses are not retried.
func (p *Publisher) PublishDigest(ctx context.Context, req domain.PublishRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("op=backend.PublishDigest: %w", err)
	}
	lg := observability.LoggerFromContext(ctx)
	endpoint := p.baseURL + PublishPath

	attempt := 0
	op := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		hr, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		hr.Header.Set("Content-Type", "application/json")
		if rid := observability.RequestIDFromContext(ctx); rid != "" {
			hr.Header.Set("X-Request-Id", rid)
		}
		resp, err := p.hc.Do(hr)
		if err != nil {
			lg.Warn("digest publish attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
			return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			lg.Error("digest publish rejected",
				slog.Int("status", resp.StatusCode), slog.String("body", string(snippet)))
			return backoff.Permanent(fmt.Errorf("%w: publish status %d", domain.ErrInvalidInput, resp.StatusCode))
		default:
			lg.Warn("digest publish attempt failed",
				slog.Int("attempt", attempt), slog.Int("status", resp.StatusCode))
			return fmt.Errorf("%w: publish status %d", domain.ErrProviderUnavailable, resp.StatusCode)
		}
	}
	if err := backoff.Retry(op, p.retryPolicy(ctx)); err != nil {
		return fmt.Errorf("op=backend.PublishDigest: %w", err)
	}
	lg.Info("digest published", slog.String("endpoint", endpoint), slog.Int("attempts", attempt))
	return nil
}
