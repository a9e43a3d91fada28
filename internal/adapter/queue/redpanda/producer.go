// Package redpanda carries asynchronous moderation jobs over Kafka-compatible
// brokers. Requests flow on TopicModerationRequests and verdicts on
// TopicModerationResults, keyed by job id.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

const (
	TopicModerationRequests = "moderation-requests"
	TopicModerationResults  = "moderation-results"

	headerJobID     = "job_id"
	headerRequestID = "request_id"
)

// syncProducer is the slice of *kgo.Client the producer needs.
type syncProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Producer implements domain.ModerationQueue and publishes outcomes.
type Producer struct {
	client syncProducer
}

func tracingHooks() kgo.Opt {
	tracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	return kgo.WithHooks(kotel.NewKotel(kotel.WithTracer(tracer)).Hooks()...)
}

// NewProducer connects to brokers and makes sure both moderation topics exist.
func NewProducer(ctx context.Context, brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewProducer: no seed brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1_000_000),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		tracingHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewProducer: %w", err)
	}
	for _, topic := range []string{TopicModerationRequests, TopicModerationResults} {
		if err := createTopicIfNotExists(ctx, client, topic, 3, 1); err != nil {
			slog.Warn("topic check failed; continuing", slog.String("topic", topic), slog.Any("error", err))
		}
	}
	slog.Info("redpanda producer ready", slog.Any("brokers", brokers))
	return &Producer{client: client}, nil
}

// EnqueueModeration publishes a moderation request.
func (p *Producer) EnqueueModeration(ctx context.Context, job domain.ModerationJob) error {
	return p.produce(ctx, TopicModerationRequests, job.ID, job)
}

// PublishOutcome publishes a verdict for a previously queued job.
func (p *Producer) PublishOutcome(ctx context.Context, out domain.ModerationOutcome) error {
	return p.produce(ctx, TopicModerationResults, out.ID, out)
}

func (p *Producer) produce(ctx context.Context, topic, id string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("op=redpanda.produce: %w", err)
	}
	rec := &kgo.Record{
		Topic:   topic,
		Key:     []byte(id),
		Value:   b,
		Headers: []kgo.RecordHeader{{Key: headerJobID, Value: []byte(id)}},
	}
	if rid := observability.RequestIDFromContext(ctx); rid != "" {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: headerRequestID, Value: []byte(rid)})
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		observability.QueueMessagesTotal.WithLabelValues("produce", "error").Inc()
		observability.LoggerFromContext(ctx).Error("produce failed",
			slog.String("topic", topic), slog.String("job_id", id), slog.Any("error", err))
		return fmt.Errorf("op=redpanda.produce: %w", err)
	}
	observability.QueueMessagesTotal.WithLabelValues("produce", "ok").Inc()
	return nil
}

// Close flushes and closes the client.
func (p *Producer) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
