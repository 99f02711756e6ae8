package export

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/resilience"
)

// Sink receives every exported snapshot.
type Sink interface {
	Name() string
	Publish(ctx context.Context, data []byte) error
}

// KeySetter is the subset of the Redis client the RedisSink needs.
type KeySetter interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RedisSink stores the latest snapshot under one key so the search runtime
// can load it without touching disk.
type RedisSink struct {
	client KeySetter
	key    string
	ttl    time.Duration
	retry  resilience.RetryConfig
}

func NewRedisSink(client KeySetter, key string, ttl time.Duration) *RedisSink {
	return &RedisSink{
		client: client,
		key:    key,
		ttl:    ttl,
		retry:  resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond},
	}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, data []byte) error {
	return resilience.Retry(ctx, "redis-snapshot", s.retry, func() error {
		return s.client.Set(ctx, s.key, data, s.ttl)
	})
}

// EventPublisher is the subset of the Kafka producer the Notifier needs.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Notifier announces finished exports on Kafka.
type Notifier struct {
	publisher EventPublisher
}

func NewNotifier(publisher EventPublisher) *Notifier {
	return &Notifier{publisher: publisher}
}

func (n *Notifier) Notify(ctx context.Context, result Result) error {
	return n.publisher.Publish(ctx, kafka.Event{
		Key: "index",
		Value: ingestion.ExportedEvent{
			Bytes:      result.Bytes,
			Path:       result.Path,
			ExportedAt: result.ExportedAt,
		},
	})
}
