// Package naver implements domain.NewsSearcher over the Naver news search API.
package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/pkg/textx"
)

const (
	pageSize    = 20
	maxStart    = 1000
	callTimeout = 10 * time.Second
	// pubDate layout, e.g. "Mon, 02 Jan 2006 15:04:05 +0900".
	pubDateLayout = time.RFC1123Z
)

// Client pages through search results and filters them by publication date.
type Client struct {
	baseURL  string
	id       string
	secret   string
	hc       *http.Client
	now      func() time.Time
	retryMax time.Duration
}

// New builds a client from config.
func New(cfg config.Config) *Client {
	retry := 5 * time.Second
	if cfg.IsTest() {
		retry = 200 * time.Millisecond
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.NaverBaseURL, "/"),
		id:       cfg.NaverClientID,
		secret:   cfg.NaverClientSecret,
		hc:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		now:      time.Now,
		retryMax: retry,
	}
}

type searchResponse struct {
	Items []struct {
		Title        string `json:"title"`
		Link         string `json:"link"`
		OriginalLink string `json:"originallink"`
		Description  string `json:"description"`
		PubDate      string `json:"pubDate"`
	} `json:"items"`
}

// Search collects up to q.Limit items, then drops anything older than
// q.Days plus half a day. Items whose date cannot be parsed are dropped when
// a day filter is active.
func (c *Client) Search(ctx context.Context, q domain.NewsQuery) ([]domain.NewsItem, error) {
	if c.id == "" || c.secret == "" {
		return nil, fmt.Errorf("%w: naver client credentials missing", domain.ErrAuthenticationFailed)
	}
	limit := q.Limit
	if limit < 1 {
		limit = 1
	}

	items := make([]domain.NewsItem, 0, limit)
	remaining := limit
	for start := 1; remaining > 0 && start <= maxStart; {
		display := min(pageSize, remaining)
		page, err := c.page(ctx, q.Query, start, display)
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}
		for _, it := range page.Items {
			items = append(items, domain.NewsItem{
				Title:       textx.StripTags(it.Title),
				Link:        it.Link,
				Description: textx.StripTags(it.Description),
				PubDate:     it.PubDate,
				Press:       it.OriginalLink,
			})
		}
		remaining -= len(page.Items)
		start += display
	}

	if q.Days > 0 {
		cutoff := c.now().Add(-(time.Duration(q.Days)*24*time.Hour + 12*time.Hour))
		kept := items[:0]
		for _, n := range items {
			ts, err := time.Parse(pubDateLayout, n.PubDate)
			if err != nil || ts.Before(cutoff) {
				continue
			}
			kept = append(kept, n)
		}
		items = kept
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *Client) page(ctx context.Context, query string, start, display int) (searchResponse, error) {
	var out searchResponse
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		v := url.Values{}
		v.Set("query", query)
		v.Set("display", strconv.Itoa(display))
		v.Set("start", strconv.Itoa(start))
		v.Set("sort", "date")
		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+"/v1/search/news.json?"+v.Encode(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-Naver-Client-Id", c.id)
		req.Header.Set("X-Naver-Client-Secret", c.secret)

		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: naver status 429", domain.ErrRateLimited)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w: naver status %d", domain.ErrAuthenticationFailed, resp.StatusCode))
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			snippet := string(body)
			if len(snippet) > 512 {
				snippet = snippet[:512]
			}
			observability.LoggerFromContext(ctx).Warn("news search 4xx",
				slog.String("provider", "naver"), slog.Int("status", resp.StatusCode), slog.String("body", snippet))
			return backoff.Permanent(fmt.Errorf("%w: naver status %d", domain.ErrInvalidInput, resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("%w: naver status %d", domain.ErrProviderUnavailable, resp.StatusCode)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err))
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryMax / 10
	expo.MaxElapsedTime = c.retryMax
	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		return searchResponse{}, fmt.Errorf("op=naver.Search: %w", err)
	}
	return out, nil
}
