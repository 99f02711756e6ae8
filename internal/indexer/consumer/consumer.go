// Package consumer applies token events from Kafka to the sharded index.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/metrics"
)

// IndexConsumer drives the index from a Kafka consumer.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a MessageHandler that routes each TokenEvent to the
// shard owning its document. Messages that cannot be decoded or fail
// validation are logged and skipped so they do not block the partition.
// store and m may be nil.
func HandleMessage(router *shard.Router, store StatusStore, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	count := func(op ingestion.Op, result string) {
		if m != nil {
			m.ConsumerEventsTotal.WithLabelValues(string(op), result).Inc()
		}
	}
	setStatus := func(ctx context.Context, docRef, status string, shardID, tokens int) {
		if store == nil {
			return
		}
		if err := store.SetStatus(ctx, docRef, status, shardID, tokens); err != nil {
			logger.Error("failed to update document status",
				"doc_ref", docRef,
				"status", status,
				"error", err,
			)
		}
	}

	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.TokenEvent](value)
		if err != nil {
			logger.Error("failed to decode token event", "error", err, "key", string(key))
			count("unknown", "decode_error")
			return nil
		}
		if err := validator.ValidateEvent(&event); err != nil {
			logger.Warn("dropping invalid token event",
				"op", event.Op,
				"doc_ref", event.DocRef,
				"error", err,
			)
			count(event.Op, "invalid")
			return nil
		}

		shardID := router.ShardFor(event.DocRef)
		engine, err := router.Route(shardID)
		if err != nil {
			count(event.Op, "error")
			return fmt.Errorf("routing %s: %w", event.DocRef, err)
		}

		switch event.Op {
		case ingestion.OpAddToken:
			if err := engine.AddToken(event.DocRef, event.Token, event.TermFrequency); err != nil {
				count(event.Op, "error")
				return fmt.Errorf("adding token for %s: %w", event.DocRef, err)
			}
		case ingestion.OpRemoveToken:
			engine.RemoveToken(event.DocRef, event.Token)
		case ingestion.OpIndexDocument:
			n, err := engine.IndexDocument(event.DocRef, event.Fields)
			if err != nil {
				setStatus(ctx, event.DocRef, StatusFailed, shardID, 0)
				count(event.Op, "error")
				return fmt.Errorf("indexing %s in shard %d: %w", event.DocRef, shardID, err)
			}
			setStatus(ctx, event.DocRef, StatusIndexed, shardID, n)
			logger.Info("document indexed", "doc_ref", event.DocRef, "shard_id", shardID, "tokens", n)
		case ingestion.OpRemoveDocument:
			n := engine.RemoveDocument(event.DocRef)
			setStatus(ctx, event.DocRef, StatusRemoved, shardID, 0)
			logger.Info("document removed", "doc_ref", event.DocRef, "shard_id", shardID, "tokens", n)
		}
		count(event.Op, "ok")
		return nil
	}
}
