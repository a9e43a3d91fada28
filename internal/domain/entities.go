// Package domain holds the core types, error taxonomy and ports shared by
// the LLM orchestration layer and its adapters.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrProviderUnavailable  = errors.New("provider unavailable")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrMalformedResponse    = errors.New("malformed response")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrRateLimited          = errors.New("rate limited")
	ErrInternal             = errors.New("internal error")
)

// Context is an alias to context.Context to keep signatures short in ports.
type Context = context.Context

// ErrorKind classifies a failed model call so orchestration can reason over it.
type ErrorKind string

const (
	ErrorKindNone           ErrorKind = ""
	ErrorKindTransient      ErrorKind = "transient"
	ErrorKindAuthentication ErrorKind = "authentication"
	ErrorKindQuota          ErrorKind = "quota"
	ErrorKindUnknown        ErrorKind = "unknown"
)

// ClassifyError maps an error to an ErrorKind. Sentinels win; otherwise the
// message is inspected for the usual provider phrasing.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	switch {
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrRateLimited):
		return ErrorKindQuota
	case errors.Is(err, ErrAuthenticationFailed):
		return ErrorKindAuthentication
	case errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrorKindTransient
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "quota", "resource_exhausted", "resource exhausted", "429", "rate limit", "too many requests"):
		return ErrorKindQuota
	case containsAny(msg, "api key", "api_key", "permission_denied", "unauthenticated", "unauthorized", "401", "403", "forbidden"):
		return ErrorKindAuthentication
	case containsAny(msg, "timeout", "deadline", "timed out", "connection refused", "connection reset", "eof", "unavailable", "503", "502", "500", "504"):
		return ErrorKindTransient
	}
	return ErrorKindUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// GenerationTask is one logical "ask the model for X". Treat as immutable.
type GenerationTask struct {
	SystemInstruction     string
	UserPrompt            string
	MaxOutputTokens       int
	Temperature           float64
	TopK                  int
	TopP                  float64
	ForceStructuredOutput bool
	// OutputSchema is an OpenAPI-style schema object passed through to the
	// provider when ForceStructuredOutput is set.
	OutputSchema map[string]any
}

// ModelCallResult is the in-band outcome of a single model call.
type ModelCallResult struct {
	Succeeded bool
	Text      string
	Kind      ErrorKind
	Err       error
}

// Empty reports whether the call produced no usable text.
func (r ModelCallResult) Empty() bool { return strings.TrimSpace(r.Text) == "" }

// ModerationDecision is the verdict for a piece of user content.
// Invariants: Categories values in [0,1].
type ModerationDecision struct {
	Approve    bool               `json:"approve"`
	Reason     string             `json:"reason"`
	Categories map[string]float64 `json:"categories"`
}

// Clone returns a deep copy so cached decisions are never shared mutably.
func (d ModerationDecision) Clone() ModerationDecision {
	out := ModerationDecision{Approve: d.Approve, Reason: d.Reason, Categories: make(map[string]float64, len(d.Categories))}
	for k, v := range d.Categories {
		out.Categories[k] = v
	}
	return out
}

// MatchResult is a resume/job fit score. Invariants: Score in [0,100].
type MatchResult struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// InterviewQuestion is a single generated interview question.
type InterviewQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Category string `json:"category"`
}

// NewsItem is a single article returned by the news search provider.
type NewsItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	PubDate     string `json:"pubDate"`
	Press       string `json:"press,omitempty"`
}

// NewsQuery describes a news search.
type NewsQuery struct {
	Query string
	Days  int
	Limit int
}

// Digest is a summarised set of news items ready to publish as a board post.
type Digest struct {
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Tags    []string   `json:"tags"`
	Sources []NewsItem `json:"sources"`
}

// PublishRequest asks the sibling backend to publish a digest post.
type PublishRequest struct {
	Query     string `json:"query"`
	Days      int    `json:"days"`
	Limit     int    `json:"limit"`
	Style     string `json:"style"`
	BotUserID int64  `json:"botUserId"`
}

// ModerationJob is the payload carried on the async moderation queue.
type ModerationJob struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ModerationOutcome is produced by the worker after evaluating a ModerationJob.
type ModerationOutcome struct {
	ID       string             `json:"id"`
	Decision ModerationDecision `json:"decision"`
	DoneAt   time.Time          `json:"done_at"`
}

// Ports

//go:generate mockery --name=ModelInvoker --filename=model_invoker_mock.go
//go:generate mockery --name=Embedder --filename=embedder_mock.go
//go:generate mockery --name=NewsSearcher --filename=news_searcher_mock.go
//go:generate mockery --name=Publisher --filename=publisher_mock.go
//go:generate mockery --name=ModerationQueue --filename=moderation_queue_mock.go

// ModelInvoker issues exactly one call to a generative model. It never
// returns an error outward; failures are carried in the result.
type ModelInvoker interface {
	Invoke(ctx Context, model string, task GenerationTask) ModelCallResult
}

// Embedder returns an embedding vector for a single text.
type Embedder interface {
	Embed(ctx Context, text string) ([]float32, error)
}

// NewsSearcher fetches news items for a query.
type NewsSearcher interface {
	Search(ctx Context, q NewsQuery) ([]NewsItem, error)
}

// Publisher delivers a digest publish request to the sibling backend.
type Publisher interface {
	PublishDigest(ctx Context, req PublishRequest) error
}

// ModerationQueue enqueues content for asynchronous moderation.
type ModerationQueue interface {
	EnqueueModeration(ctx Context, job ModerationJob) error
}
