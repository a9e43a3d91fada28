// Package tokencount estimates token usage for model calls.
//
// Gemini does not publish a local tokenizer, so counts use the cl100k_base
// encoding from tiktoken-go as an approximation. BPE tables are embedded via
// the offline loader; no network access is needed at runtime.
package tokencount

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const encodingName = "cl100k_base"

// Usage is the estimated token count for one call.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
}

// Counter is safe for concurrent use. The encoding is loaded once.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewCounter returns a lazily initialized counter.
func NewCounter() *Counter { return &Counter{} }

// Default is the process-wide counter.
var Default = NewCounter()

func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.once.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		c.enc, c.err = tiktoken.GetEncoding(encodingName)
		if c.err != nil {
			slog.Warn("token encoding unavailable; using rune estimate", slog.Any("error", c.err))
		}
	})
	return c.enc, c.err
}

// Count returns the token count of text. If the encoding cannot be loaded it
// falls back to roughly one token per two runes, which suits mixed Korean and
// English text better than the usual four-bytes rule.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	enc, err := c.encoding()
	if err != nil {
		n := utf8.RuneCountInString(text) / 2
		if n == 0 {
			n = 1
		}
		return n
	}
	return len(enc.Encode(text, nil, nil))
}

// Estimate computes usage for a system instruction, user prompt and reply.
func (c *Counter) Estimate(model, system, prompt, completion string) Usage {
	p := c.Count(system) + c.Count(prompt)
	out := c.Count(completion)
	return Usage{PromptTokens: p, CompletionTokens: out, TotalTokens: p + out, Model: model}
}
