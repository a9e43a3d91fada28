package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

// ModerationSubmitter hands content to the async moderation queue.
type ModerationSubmitter struct {
	queue domain.ModerationQueue
	now   func() time.Time
}

// NewModerationSubmitter returns nil when queue is nil so callers can treat
// async moderation as disabled.
func NewModerationSubmitter(queue domain.ModerationQueue) *ModerationSubmitter {
	if queue == nil {
		return nil
	}
	return &ModerationSubmitter{queue: queue, now: time.Now}
}

// Submit enqueues content and returns the job id.
func (s *ModerationSubmitter) Submit(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: content required", domain.ErrInvalidInput)
	}
	job := domain.ModerationJob{ID: uuid.NewString(), Content: content, EnqueuedAt: s.now().UTC()}
	if err := s.queue.EnqueueModeration(ctx, job); err != nil {
		return "", fmt.Errorf("op=usecase.Submit: %w", err)
	}
	return job.ID, nil
}

// Process evaluates a queued job.
func (p *ModerationPipeline) Process(ctx context.Context, job domain.ModerationJob) domain.ModerationOutcome {
	return domain.ModerationOutcome{ID: job.ID, Decision: p.Moderate(ctx, job.Content), DoneAt: time.Now().UTC()}
}
