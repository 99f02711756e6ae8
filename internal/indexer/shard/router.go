// Package shard partitions documents across independent indexer engines.
// Every token of a document lands on the shard its reference hashes to, so a
// token's postings may be spread over several shards; Snapshot merges them
// back into one index for export.
package shard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/export"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/metrics"
)

// Router owns one engine per shard. The set of shards is fixed at
// construction.
type Router struct {
	engines []*indexer.Engine
	logger  *slog.Logger
}

// NewRouter creates numShards empty engines. m may be nil.
func NewRouter(cfg config.TokenizerConfig, numShards int, m *metrics.Metrics) (*Router, error) {
	if numShards < 1 {
		return nil, fmt.Errorf("%w: numShards must be at least 1, got %d", apperrors.ErrInvalidInput, numShards)
	}
	r := &Router{
		engines: make([]*indexer.Engine, numShards),
		logger:  slog.Default().With("component", "shard-router"),
	}
	for i := range r.engines {
		var opts []indexer.Option
		if m != nil {
			opts = append(opts, indexer.WithMetrics(m, i))
		}
		r.engines[i] = indexer.NewEngine(cfg, opts...)
	}
	if m != nil {
		m.ActiveShards.Set(float64(numShards))
	}
	r.logger.Info("shard router ready", "num_shards", numShards)
	return r, nil
}

// ShardFor maps a document reference to its shard.
func (r *Router) ShardFor(docRef string) int {
	return int(xxhash.Sum64String(docRef) % uint64(len(r.engines)))
}

// ForDocument returns the engine that owns docRef.
func (r *Router) ForDocument(docRef string) *indexer.Engine {
	return r.engines[r.ShardFor(docRef)]
}

// Route returns the engine of a shard.
func (r *Router) Route(shardID int) (*indexer.Engine, error) {
	if shardID < 0 || shardID >= len(r.engines) {
		return nil, fmt.Errorf("%w: shard %d (valid range: 0-%d)", apperrors.ErrShardNotFound, shardID, len(r.engines)-1)
	}
	return r.engines[shardID], nil
}

// GetAllEngines returns the engines indexed by shard ID.
func (r *Router) GetAllEngines() []*indexer.Engine {
	out := make([]*indexer.Engine, len(r.engines))
	copy(out, r.engines)
	return out
}

func (r *Router) NumShards() int {
	return len(r.engines)
}

// Snapshot serializes the whole index: every shard's trie merged into one,
// so each token's df counts documents from all shards. Shards are read one
// after another; writes landing meanwhile may be partly included.
func (r *Router) Snapshot() ([]byte, error) {
	whole := index.New()
	for _, engine := range r.engines {
		engine.MergeInto(whole)
	}
	data, err := json.Marshal(whole)
	if err != nil {
		return nil, fmt.Errorf("serializing merged index: %w", err)
	}
	return data, nil
}

// Export publishes one whole-index snapshot through exp.
func (r *Router) Export(ctx context.Context, exp *export.Exporter) (export.Result, error) {
	return exp.Export(ctx, r.Snapshot)
}

// StartExportLoop exports the index every interval until ctx is done. A
// non-positive interval disables periodic export.
func (r *Router) StartExportLoop(ctx context.Context, exp *export.Exporter, interval time.Duration) {
	if interval <= 0 {
		r.logger.Warn("periodic export disabled", "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Export(ctx, exp); err != nil {
				r.logger.Error("periodic export failed", "error", err)
			}
		}
	}
}
