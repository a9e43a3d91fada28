package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

// Digest query tiers, tried in order until one returns items.
var DigestQueryTiers = []string{
	"채용 OR 공채 OR 노동시장 OR 인사",
	"IT OR 기술 OR AI OR 개발자 OR 스타트업",
	"산업 OR 기업 OR 경제 OR 시장",
}

// DigestTags are attached to every published digest.
var DigestTags = []string{"뉴스", "요약", "채용", "IT"}

// Defaults applied to zero-valued digest requests.
const (
	DefaultNewsQuery = "채용 OR 공채 OR 채용공고"
	DefaultNewsDays  = 3
	DefaultNewsLimit = 20
	DefaultNewsStyle = "bullet"
)

const digestPrompt = `당신은 뉴스 에디터입니다.
아래 뉴스들을 %s 스타일로 요약하세요.

### 뉴스 목록
%s

불필요한 광고성 문장은 제외하고 산업 동향 중심으로 정리하세요.`

// DigestRequest selects and formats news for a digest.
type DigestRequest struct {
	Query string
	Days  int
	Limit int
	Style string
}

func (r DigestRequest) withDefaults() DigestRequest {
	if strings.TrimSpace(r.Query) == "" {
		r.Query = DefaultNewsQuery
	}
	if r.Days <= 0 {
		r.Days = DefaultNewsDays
	}
	if r.Limit <= 0 {
		r.Limit = DefaultNewsLimit
	}
	if strings.TrimSpace(r.Style) == "" {
		r.Style = DefaultNewsStyle
	}
	return r
}

// NewsDigest fetches news and summarises it into a board post.
type NewsDigest struct {
	searcher domain.NewsSearcher
	runner   Runner
	models   Models
	now      func() time.Time
}

// NewNewsDigest wires the digest service. now may be nil.
func NewNewsDigest(searcher domain.NewsSearcher, runner Runner, models Models, now func() time.Time) *NewsDigest {
	if now == nil {
		now = time.Now
	}
	return &NewsDigest{searcher: searcher, runner: runner, models: models, now: now}
}

// Fetch returns items for the query. Search failures yield an empty list.
func (s *NewsDigest) Fetch(ctx context.Context, req DigestRequest) []domain.NewsItem {
	req = req.withDefaults()
	return s.search(ctx, req.Query, req)
}

func (s *NewsDigest) search(ctx context.Context, query string, req DigestRequest) []domain.NewsItem {
	if s.searcher == nil {
		return []domain.NewsItem{}
	}
	items, err := s.searcher.Search(ctx, domain.NewsQuery{Query: query, Days: req.Days, Limit: req.Limit})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("news search failed",
			slog.String("query", query), slog.Any("error", err))
		return []domain.NewsItem{}
	}
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return items
}

// Digest walks the query tiers and summarises the first non-empty result.
// The title and content carry a timestamp UID so repeated posts stay unique.
func (s *NewsDigest) Digest(ctx context.Context, req DigestRequest) domain.Digest {
	req = req.withDefaults()
	lg := observability.LoggerFromContext(ctx)

	var items []domain.NewsItem
	for i, q := range DigestQueryTiers {
		items = s.search(ctx, q, req)
		if len(items) > 0 {
			break
		}
		if i+1 < len(DigestQueryTiers) {
			lg.Info("no news for digest tier; widening query", slog.Int("tier", i))
		}
	}

	now := s.now()
	if len(items) == 0 {
		return domain.Digest{
			Title:   fmt.Sprintf("뉴스 없음 (%s)", now.Format("2006-01-02 15:04")),
			Content: "",
			Tags:    []string{},
			Sources: []domain.NewsItem{},
		}
	}

	lines := make([]string, 0, len(items))
	for _, n := range items {
		lines = append(lines, "- "+n.Title)
	}
	titles := strings.Join(lines, "\n")
	task := domain.GenerationTask{
		UserPrompt:      fmt.Sprintf(digestPrompt, req.Style, titles),
		MaxOutputTokens: 1000,
		Temperature:     0.5,
	}
	out := s.runner.Run(ctx, ai.TwoModelPlan(s.models.Primary, s.models.Secondary, task, ai.NotRefusal()))
	summary := out.Text
	if !out.OK {
		lg.Warn("digest summary unavailable; publishing headlines only", slog.String("last_kind", string(out.LastKind)))
		summary = titles
	}

	uid := now.Format("20060102150405")
	tags := make([]string, len(DigestTags))
	copy(tags, DigestTags)
	return domain.Digest{
		Title:   fmt.Sprintf("AI 뉴스 요약 (%s)", uid),
		Content: fmt.Sprintf("[UID:%s] %s", uid, summary),
		Tags:    tags,
		Sources: items,
	}
}
