package redpanda

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

// Processor evaluates one queued job.
type Processor interface {
	Process(ctx context.Context, job domain.ModerationJob) domain.ModerationOutcome
}

// OutcomeSink receives finished verdicts.
type OutcomeSink interface {
	PublishOutcome(ctx context.Context, out domain.ModerationOutcome) error
}

// fetcher is the slice of *kgo.Client the consumer needs.
type fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
	MarkCommitRecords(rs ...*kgo.Record)
	SetOffsets(offsets map[string]map[int32]kgo.EpochOffset)
	Close()
}

// Consumer drains moderation requests with a bounded worker pool. A record is
// marked for commit only after its outcome is published and every earlier
// record of its partition was marked too. A partition whose record failed is
// rewound to that record, so it is fetched again on a later poll.
type Consumer struct {
	client  fetcher
	proc    Processor
	sink    OutcomeSink
	workers int
	backoff *pollBackoff
	sleep   func(ctx context.Context, d time.Duration)
}

// ConsumerConfig selects brokers, group and concurrency.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Workers int
}

// NewConsumer joins the consumer group on TopicModerationRequests.
func NewConsumer(cfg ConsumerConfig, proc Processor, sink OutcomeSink) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: no seed brokers provided")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: missing required group ID")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(TopicModerationRequests),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(time.Second),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		tracingHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w", err)
	}
	slog.Info("redpanda consumer created",
		slog.Any("brokers", cfg.Brokers), slog.String("group_id", cfg.GroupID), slog.Int("workers", cfg.Workers))
	return newConsumer(client, proc, sink, cfg.Workers), nil
}

func newConsumer(client fetcher, proc Processor, sink OutcomeSink, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		client:  client,
		proc:    proc,
		sink:    sink,
		workers: workers,
		backoff: newPollBackoff(500*time.Millisecond, 10*time.Second),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("moderation consumer started", slog.String("topic", TopicModerationRequests))
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			for _, fe := range errs {
				if errors.Is(fe.Err, context.Canceled) {
					return ctx.Err()
				}
				slog.Error("fetch error",
					slog.String("topic", fe.Topic), slog.Int("partition", int(fe.Partition)), slog.Any("error", fe.Err))
			}
			wait := c.backoff.Failure()
			slog.Warn("backing off after fetch errors", slog.Duration("wait", wait), slog.Int("failures", c.backoff.Failures()))
			c.sleep(ctx, wait)
			continue
		}
		if c.processBatch(ctx, fetches.Records()) {
			c.backoff.Success()
			continue
		}
		wait := c.backoff.Failure()
		slog.Warn("backing off after unpublished outcomes", slog.Duration("wait", wait), slog.Int("failures", c.backoff.Failures()))
		c.sleep(ctx, wait)
	}
}

// processBatch handles records concurrently, marks what is safe to commit and
// rewinds partitions with a failed record. It reports whether every record
// finished.
func (c *Consumer) processBatch(ctx context.Context, records []*kgo.Record) bool {
	if len(records) == 0 {
		return true
	}
	sem := make(chan struct{}, c.workers)
	var (
		wg sync.WaitGroup
		ok = make([]bool, len(records))
	)
	for i, rec := range records {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, rec *kgo.Record) {
			defer func() { <-sem; wg.Done() }()
			ok[i] = c.handle(ctx, rec) == nil
		}(i, rec)
	}
	wg.Wait()

	done, rewind := settle(records, ok)
	if len(done) > 0 {
		c.client.MarkCommitRecords(done...)
	}
	if len(rewind) == 0 {
		return true
	}
	for topic, parts := range rewind {
		for p, eo := range parts {
			slog.Warn("rewinding partition to unpublished record",
				slog.String("topic", topic), slog.Int("partition", int(p)), slog.Int64("offset", eo.Offset))
		}
	}
	c.client.SetOffsets(rewind)
	return false
}

type topicPartition struct {
	topic     string
	partition int32
}

// settle walks each partition in offset order. Records up to the first failure
// are returned for marking; the failed offset becomes the partition's resume
// point. Later successes stay unmarked and are processed again after the rewind.
func settle(records []*kgo.Record, ok []bool) ([]*kgo.Record, map[string]map[int32]kgo.EpochOffset) {
	byPartition := make(map[topicPartition][]int)
	for i, rec := range records {
		tp := topicPartition{rec.Topic, rec.Partition}
		byPartition[tp] = append(byPartition[tp], i)
	}
	done := make([]*kgo.Record, 0, len(records))
	var rewind map[string]map[int32]kgo.EpochOffset
	for tp, idx := range byPartition {
		slices.SortFunc(idx, func(a, b int) int { return cmp.Compare(records[a].Offset, records[b].Offset) })
		for _, i := range idx {
			if ok[i] {
				done = append(done, records[i])
				continue
			}
			if rewind == nil {
				rewind = make(map[string]map[int32]kgo.EpochOffset)
			}
			if rewind[tp.topic] == nil {
				rewind[tp.topic] = make(map[int32]kgo.EpochOffset)
			}
			rewind[tp.topic][tp.partition] = kgo.EpochOffset{Epoch: -1, Offset: records[i].Offset}
			break
		}
	}
	return done, rewind
}

func header(rec *kgo.Record, key string) string {
	for _, h := range rec.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// handle returns an error only when the record should be redelivered.
func (c *Consumer) handle(ctx context.Context, rec *kgo.Record) error {
	ctx, span := otel.Tracer("queue.consumer").Start(ctx, "ModerationConsumer.handle")
	defer span.End()

	if rid := header(rec, headerRequestID); rid != "" {
		ctx = observability.ContextWithRequestID(ctx, rid)
	}
	lg := observability.LoggerFromContext(ctx).With(
		slog.String("topic", rec.Topic),
		slog.Int("partition", int(rec.Partition)),
		slog.Int64("offset", rec.Offset),
	)

	var job domain.ModerationJob
	if err := json.Unmarshal(rec.Value, &job); err != nil || job.ID == "" {
		// Poison records are skipped so they cannot block the partition.
		observability.QueueMessagesTotal.WithLabelValues("consume", "invalid").Inc()
		lg.Error("dropping undecodable moderation job", slog.Int("value_length", len(rec.Value)), slog.Any("error", err))
		return nil
	}
	lg = lg.With(slog.String("job_id", job.ID))
	span.SetAttributes(attribute.String("job.id", job.ID))
	ctx = observability.ContextWithLogger(ctx, lg)

	out := c.proc.Process(ctx, job)
	if err := c.sink.PublishOutcome(ctx, out); err != nil {
		observability.QueueMessagesTotal.WithLabelValues("consume", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish outcome failed")
		lg.Error("moderation outcome not published", slog.Any("error", err))
		return err
	}
	observability.QueueMessagesTotal.WithLabelValues("consume", "ok").Inc()
	lg.Info("moderation job processed", slog.Bool("approve", out.Decision.Approve))
	return nil
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
