// Package gemini implements domain.ModelInvoker and domain.Embedder over the
// Gemini generative-language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai/tokencount"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

const (
	provider     = "gemini"
	snippetLimit = 512
)

// Client issues single, unretried calls. Retry and fallback belong to the
// orchestrator.
type Client struct {
	apiKey     string
	baseURL    string
	embedModel string
	timeout    time.Duration
	hc         *http.Client
	tokens     *tokencount.Counter
}

// New builds a client with a traced transport.
func New(cfg config.Config) *Client {
	timeout := cfg.AICallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     cfg.GeminiAPIKey,
		baseURL:    strings.TrimRight(cfg.GeminiBaseURL, "/"),
		embedModel: cfg.EmbeddingsModel,
		timeout:    timeout,
		hc:         &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		tokens:     tokencount.Default,
	}
}

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopK             int            `json:"topK,omitempty"`
	TopP             float64        `json:"topP,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func buildRequest(task domain.GenerationTask) generateRequest {
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: task.UserPrompt}}}},
	}
	if strings.TrimSpace(task.SystemInstruction) != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: task.SystemInstruction}}}
	}
	temp := task.Temperature
	req.GenerationConfig = generationConfig{
		MaxOutputTokens: task.MaxOutputTokens,
		Temperature:     &temp,
		TopK:            task.TopK,
		TopP:            task.TopP,
	}
	if task.ForceStructuredOutput {
		req.GenerationConfig.ResponseMimeType = "application/json"
		req.GenerationConfig.ResponseSchema = task.OutputSchema
	}
	return req
}

// Invoke calls models/{model}:generateContent once. Failures are returned in
// band with a classification; the raw error never escapes.
func (c *Client) Invoke(ctx context.Context, model string, task domain.GenerationTask) domain.ModelCallResult {
	lg := observability.LoggerFromContext(ctx)
	if c.apiKey == "" {
		lg.Error("gemini API key missing", slog.String("provider", provider))
		return failure(domain.ErrorKindAuthentication, fmt.Errorf("op=gemini.Invoke: GEMINI_API_KEY missing: %w", domain.ErrAuthenticationFailed))
	}

	body, err := json.Marshal(buildRequest(task))
	if err != nil {
		return failure(domain.ErrorKindUnknown, fmt.Errorf("op=gemini.Invoke: encode: %w", err))
	}

	start := time.Now()
	raw, err := c.post(ctx, "/models/"+model+":generateContent", body)
	elapsed := time.Since(start)
	if err != nil {
		kind := classify(err)
		observability.ObserveAICall(provider, "generate", string(kind), elapsed)
		lg.Warn("gemini generate failed",
			slog.String("model", model),
			slog.String("kind", string(kind)),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err))
		return failure(kind, err)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		observability.ObserveAICall(provider, "generate", string(domain.ErrorKindUnknown), elapsed)
		lg.Error("gemini decode error", slog.String("model", model), slog.String("body", snippet(raw)), slog.Any("error", err))
		return failure(domain.ErrorKindUnknown, fmt.Errorf("op=gemini.Invoke: decode: %w: %w", domain.ErrMalformedResponse, err))
	}

	var sb strings.Builder
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	text := sb.String()
	if text == "" {
		lg.Warn("gemini returned no text",
			slog.String("model", model),
			slog.Int("candidates", len(out.Candidates)),
			slog.String("block_reason", out.PromptFeedback.BlockReason))
		observability.ObserveAICall(provider, "generate", "empty", elapsed)
		return domain.ModelCallResult{Succeeded: true}
	}

	usage := c.tokens.Estimate(model, task.SystemInstruction, task.UserPrompt, text)
	observability.AddTokens(model, usage.PromptTokens, usage.CompletionTokens)
	observability.ObserveAICall(provider, "generate", "success", elapsed)
	lg.Debug("gemini generate ok",
		slog.String("model", model),
		slog.Int("prompt_tokens", usage.PromptTokens),
		slog.Int("completion_tokens", usage.CompletionTokens),
		slog.Duration("elapsed", elapsed))
	return domain.ModelCallResult{Succeeded: true, Text: text}
}

// Embed calls models/{embedModel}:embedContent.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("op=gemini.Embed: GEMINI_API_KEY missing: %w", domain.ErrAuthenticationFailed)
	}
	body, err := json.Marshal(map[string]any{
		"model":   "models/" + c.embedModel,
		"content": content{Parts: []part{{Text: text}}},
	})
	if err != nil {
		return nil, fmt.Errorf("op=gemini.Embed: encode: %w", err)
	}
	start := time.Now()
	raw, err := c.post(ctx, "/models/"+c.embedModel+":embedContent", body)
	if err != nil {
		observability.ObserveAICall(provider, "embed", string(classify(err)), time.Since(start))
		return nil, err
	}
	var out struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		observability.ObserveAICall(provider, "embed", string(domain.ErrorKindUnknown), time.Since(start))
		return nil, fmt.Errorf("op=gemini.Embed: decode: %w: %w", domain.ErrMalformedResponse, err)
	}
	observability.ObserveAICall(provider, "embed", "success", time.Since(start))
	return out.Embedding.Values, nil
}

// post performs one bounded request and maps non-2xx statuses onto domain sentinels.
func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("op=gemini.post: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=gemini.post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("op=gemini.post: read body: %w: %w", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	observability.LoggerFromContext(ctx).Warn("gemini non-2xx",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("body", snippet(raw)))
	return nil, statusError(resp.StatusCode, providerDetail(raw))
}

// statusError maps a status onto a sentinel. Statuses without one keep the
// provider's own status and message so ClassifyError can inspect them; Gemini
// reports a bad key as 400 INVALID_ARGUMENT "API key not valid".
func statusError(status int, detail string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("op=gemini.post: status %d: %w", status, domain.ErrQuotaExceeded)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("op=gemini.post: status %d: %w", status, domain.ErrAuthenticationFailed)
	case status >= 500 || status == http.StatusRequestTimeout:
		return fmt.Errorf("op=gemini.post: status %d: %w", status, domain.ErrProviderUnavailable)
	case detail != "":
		return fmt.Errorf("op=gemini.post: status %d: %s", status, detail)
	default:
		return fmt.Errorf("op=gemini.post: status %d", status)
	}
}

// providerDetail returns "STATUS: message" from a Gemini error envelope.
func providerDetail(raw []byte) string {
	var env struct {
		Error struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	detail := strings.TrimSpace(env.Error.Message)
	if env.Error.Status != "" {
		detail = strings.TrimSpace(env.Error.Status + ": " + detail)
	}
	return strings.TrimSuffix(detail, ":")
}

// classify treats transport-level failures as transient before falling back
// to message inspection.
func classify(err error) domain.ErrorKind {
	var ne net.Error
	if errors.As(err, &ne) {
		return domain.ErrorKindTransient
	}
	return domain.ClassifyError(err)
}

func failure(kind domain.ErrorKind, err error) domain.ModelCallResult {
	return domain.ModelCallResult{Succeeded: false, Kind: kind, Err: err}
}

func snippet(b []byte) string {
	if len(b) > snippetLimit {
		b = b[:snippetLimit]
	}
	return string(b)
}
