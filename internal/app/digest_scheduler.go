package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

// Digest request sent on every tick.
const (
	DigestQuery = "채용 OR 공채 OR 노동시장 OR IT OR 기술 OR AI OR 개발자"
	DigestDays  = 30
	DigestLimit = 15
	DigestStyle = "bullet"
)

// DigestScheduler periodically asks the sibling backend to publish a news
// digest post. Failures are logged and the next tick tries again.
type DigestScheduler struct {
	publisher domain.Publisher
	interval  time.Duration
	botUserID int64
}

// NewDigestScheduler returns nil when publisher is nil.
func NewDigestScheduler(publisher domain.Publisher, interval time.Duration, botUserID int64) *DigestScheduler {
	if publisher == nil {
		return nil
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &DigestScheduler{publisher: publisher, interval: interval, botUserID: botUserID}
}

// Run blocks until ctx is done. The first publish happens one interval after
// start.
func (s *DigestScheduler) Run(ctx context.Context) {
	if s == nil || s.publisher == nil {
		return
	}
	slog.Info("digest scheduler started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("digest scheduler stopping")
			return
		case <-ticker.C:
			s.publishOnce(ctx)
		}
	}
}

func (s *DigestScheduler) publishOnce(ctx context.Context) {
	ctx, span := otel.Tracer("jobs.digest").Start(ctx, "DigestScheduler.publishOnce")
	defer span.End()

	req := domain.PublishRequest{
		Query:     DigestQuery,
		Days:      DigestDays,
		Limit:     DigestLimit,
		Style:     DigestStyle,
		BotUserID: s.botUserID,
	}
	span.SetAttributes(
		attribute.Int("digest.days", req.Days),
		attribute.Int("digest.limit", req.Limit),
		attribute.Int64("digest.bot_user_id", req.BotUserID),
	)

	start := time.Now()
	if err := s.publisher.PublishDigest(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		slog.Error("digest publish failed", slog.Any("error", err), slog.Duration("elapsed", time.Since(start)))
		return
	}
	slog.Info("digest published", slog.Duration("elapsed", time.Since(start)))
}
