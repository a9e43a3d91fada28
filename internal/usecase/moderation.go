package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/pkg/textx"
)

// Reasons carried by decisions that never reached the model.
const (
	ReasonRuleBlock   = "rule-based block"
	ReasonTrivial     = "content too short to evaluate"
	ReasonProvisional = "moderation unavailable; provisionally approved"
	reasonOverride    = "risk score above threshold"
)

// ModerationCategories are the risk categories the model scores.
var ModerationCategories = []string{"profanity", "sexual", "hate", "crime", "privacy", "spam", "other"}

const moderationSystemPrompt = `너는 커뮤니티 글을 검열하는 AI야.
이 글이 아래 문제를 포함하는지 판단해줘:
- profanity: 욕설/비방
- sexual: 성적/음란성
- hate: 혐오/차별
- crime: 범죄 조장
- privacy: 개인정보 노출
- spam: 스팸/도배
- other: 기타 부적절한 행동
각 카테고리의 위험도를 0과 1 사이 숫자로 평가하고, 결과는 반드시 JSON으로만 답해.
{"approve": true 또는 false, "categories": {"<카테고리>": 0.0~1.0}, "reason": "왜 그런 판단을 했는지 한 줄 설명"}`

func moderationSchema() map[string]any {
	cats := make(map[string]any, len(ModerationCategories))
	for _, c := range ModerationCategories {
		cats[c] = map[string]any{"type": "number"}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"approve":    map[string]any{"type": "boolean"},
			"categories": map[string]any{"type": "object", "properties": cats},
			"reason":     map[string]any{"type": "string"},
		},
		"required": []string{"approve", "categories", "reason"},
	}
}

// DecisionCache is a bounded fingerprint -> decision map. Once full it stops
// accepting new entries; existing entries live until restart.
type DecisionCache struct {
	mu       sync.Mutex
	capacity int
	m        map[string]domain.ModerationDecision
}

// NewDecisionCache builds a cache holding at most capacity entries.
func NewDecisionCache(capacity int) *DecisionCache {
	return &DecisionCache{capacity: capacity, m: make(map[string]domain.ModerationDecision)}
}

// Get returns a copy of the cached decision.
func (c *DecisionCache) Get(key string) (domain.ModerationDecision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.m[key]
	if !ok {
		return domain.ModerationDecision{}, false
	}
	return d.Clone(), true
}

// Put stores d unless the cache is full. It reports whether d was stored.
func (c *DecisionCache) Put(key string, d domain.ModerationDecision) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; exists {
		return true
	}
	if len(c.m) >= c.capacity {
		return false
	}
	c.m[key] = d.Clone()
	return true
}

// Len returns the number of cached decisions.
func (c *DecisionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// ModerationOptions tunes the pipeline.
type ModerationOptions struct {
	Threshold float64
	MinLength int
	MaxChars  int
	CacheSize int
}

// ModerationPipeline decides whether user content may be published.
type ModerationPipeline struct {
	runner    Runner
	extractor *ai.ResponseExtractor
	rules     *RuleSet
	cache     *DecisionCache
	models    Models
	opts      ModerationOptions
}

// NewModerationPipeline wires the pipeline. rules may be nil.
func NewModerationPipeline(runner Runner, rules *RuleSet, models Models, opts ModerationOptions) *ModerationPipeline {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.5
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}
	return &ModerationPipeline{
		runner:    runner,
		extractor: ai.NewResponseExtractor(),
		rules:     rules,
		cache:     NewDecisionCache(opts.CacheSize),
		models:    models,
		opts:      opts,
	}
}

// Cache exposes the decision cache for inspection.
func (p *ModerationPipeline) Cache() *DecisionCache { return p.cache }

// Moderate never fails: model problems yield a provisional, uncached approval.
func (p *ModerationPipeline) Moderate(ctx context.Context, text string) domain.ModerationDecision {
	lg := observability.LoggerFromContext(ctx)
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < max(p.opts.MinLength, 1) {
		observability.ObserveModeration("trivial", true)
		return domain.ModerationDecision{Approve: true, Reason: ReasonTrivial, Categories: map[string]float64{}}
	}

	key := ai.Fingerprint(textx.Normalize(trimmed))
	if d, ok := p.cache.Get(key); ok {
		observability.ObserveModeration("cache", d.Approve)
		return d
	}

	if m, ok := p.rules.Match(trimmed); ok {
		d := domain.ModerationDecision{Approve: false, Reason: ReasonRuleBlock, Categories: map[string]float64{m.Category: 1.0}}
		lg.Info("moderation rule matched", slog.String("rule", m.Rule), slog.String("category", m.Category))
		p.store(ctx, key, d)
		observability.ObserveModeration("rule", false)
		return d
	}

	d, ok := p.evaluate(ctx, trimmed)
	if !ok {
		observability.ObserveModeration("provisional", true)
		return d
	}
	p.store(ctx, key, d)
	observability.ObserveModeration("model", d.Approve)
	return d
}

func (p *ModerationPipeline) store(ctx context.Context, key string, d domain.ModerationDecision) {
	if !p.cache.Put(key, d) {
		observability.LoggerFromContext(ctx).Debug("moderation cache full; decision not cached", slog.Int("size", p.cache.Len()))
	}
}

func (p *ModerationPipeline) evaluate(ctx context.Context, text string) (domain.ModerationDecision, bool) {
	if p.opts.MaxChars > 0 {
		text = textx.Truncate(text, p.opts.MaxChars)
	}
	task := domain.GenerationTask{
		SystemInstruction:     moderationSystemPrompt,
		UserPrompt:            fmt.Sprintf("글 내용:\n%s", text),
		MaxOutputTokens:       300,
		Temperature:           0.1,
		ForceStructuredOutput: true,
		OutputSchema:          moderationSchema(),
	}
	out := p.runner.Run(ctx, ai.TwoModelPlan(p.models.Primary, p.models.Secondary, task, nil))
	provisional := domain.ModerationDecision{Approve: true, Reason: ReasonProvisional, Categories: map[string]float64{}}
	if !out.OK {
		observability.LoggerFromContext(ctx).Warn("moderation model unavailable; approving provisionally",
			slog.String("last_kind", string(out.LastKind)))
		return provisional, false
	}
	ex := p.extractor.Extract(out.Text)
	if !ex.OK() {
		observability.LoggerFromContext(ctx).Warn("moderation response unparsable; approving provisionally")
		return provisional, false
	}
	return p.decide(ex.Value), true
}

// decide applies the safety override: the risk vector wins over the model's
// own approve flag.
func (p *ModerationPipeline) decide(v map[string]any) domain.ModerationDecision {
	approve, ok := ai.BoolField(v, "approve")
	if !ok {
		approve = true
	}
	reason, _ := ai.StringField(v, "reason")
	cats := map[string]float64{}
	maxRisk := 0.0
	if raw, ok := v["categories"].(map[string]any); ok {
		for name := range raw {
			f, ok := ai.FloatField(raw, name)
			if !ok {
				continue
			}
			f = clampFloat(f, 0, 1)
			cats[name] = f
			if f > maxRisk {
				maxRisk = f
			}
		}
	}
	if maxRisk >= p.opts.Threshold && approve {
		approve = false
		if strings.TrimSpace(reason) == "" {
			reason = reasonOverride
		}
	}
	if strings.TrimSpace(reason) == "" {
		reason = "no reason provided"
	}
	return domain.ModerationDecision{Approve: approve, Reason: reason, Categories: cats}
}
