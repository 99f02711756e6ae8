// Package indexer wraps the trie inverted index with the pieces a running
// service needs: a lock around the index, text tokenization, a per-document
// token ledger for whole-document removal, and metrics.
package indexer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/metrics"
)

// Stats describes the size of one engine's index.
type Stats struct {
	Nodes     int `json:"nodes"`
	Documents int `json:"documents"`
	Tokens    int `json:"tokens"`
}

// Engine serialises all access to one InvertedIndex.
type Engine struct {
	mu        sync.RWMutex
	idx       *index.InvertedIndex
	docTokens map[string]map[string]struct{}
	tokenizer *tokenizer.Tokenizer
	metrics   *metrics.Metrics
	shardID   string
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics reports index activity to m under the given shard label.
func WithMetrics(m *metrics.Metrics, shardID int) Option {
	return func(e *Engine) {
		e.metrics = m
		e.shardID = strconv.Itoa(shardID)
	}
}

// NewEngine creates an engine with an empty index.
func NewEngine(cfg config.TokenizerConfig, opts ...Option) *Engine {
	e := &Engine{
		idx:       index.New(),
		docTokens: make(map[string]map[string]struct{}),
		tokenizer: tokenizer.New(cfg),
		shardID:   "0",
		logger:    slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("shard_id", e.shardID)
	return e
}

// IndexDocument tokenizes every field and indexes the summed term
// frequencies under docRef. Fields are read in name order so positions are
// deterministic. A document indexed before is replaced. It returns the
// number of distinct tokens written.
func (e *Engine) IndexDocument(docRef string, fields map[string]string) (int, error) {
	if docRef == "" {
		return 0, apperrors.Invalid("doc_ref is required")
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var tokens []tokenizer.Token
	for _, name := range names {
		tokens = append(tokens, e.tokenizer.Tokenize(fields[name])...)
	}
	freqs := tokenizer.TermFrequencies(tokens)

	e.mu.Lock()
	removed := e.removeDocumentLocked(docRef)
	for term, tf := range freqs {
		e.addTokenLocked(docRef, term, tf)
	}
	e.observeLocked()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.metrics.TokensAddedTotal.Add(float64(len(freqs)))
		e.metrics.TokensRemovedTotal.Add(float64(removed))
	}
	e.logger.Debug("document indexed",
		"doc_ref", docRef,
		"token_count", len(tokens),
		"distinct_tokens", len(freqs),
		"replaced_tokens", removed,
	)
	return len(freqs), nil
}

// AddToken indexes one already-tokenized triple. An empty token is accepted
// and has no effect. A non-finite tf is rejected since it cannot be
// serialized.
func (e *Engine) AddToken(docRef string, token string, tf float64) error {
	if docRef == "" {
		return apperrors.Invalid("doc_ref is required")
	}
	if !utf8.ValidString(token) {
		return apperrors.Invalid("token %q is not valid UTF-8", token)
	}
	if math.IsNaN(tf) || math.IsInf(tf, 0) {
		return apperrors.Invalid("tf for token %q must be a finite number", token)
	}
	if token == "" {
		return nil
	}
	e.mu.Lock()
	e.addTokenLocked(docRef, token, tf)
	e.observeLocked()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.TokensAddedTotal.Inc()
	}
	return nil
}

// RemoveToken drops docRef from token's postings. Removing something never
// indexed is a no-op. It reports whether a posting was removed.
func (e *Engine) RemoveToken(docRef string, token string) bool {
	e.mu.Lock()
	removed := e.idx.RemoveToken(docRef, token)
	if removed {
		if toks, ok := e.docTokens[docRef]; ok {
			delete(toks, token)
			if len(toks) == 0 {
				delete(e.docTokens, docRef)
			}
		}
		e.observeLocked()
	}
	e.mu.Unlock()

	if removed && e.metrics != nil {
		e.metrics.TokensRemovedTotal.Inc()
	}
	return removed
}

// RemoveDocument removes every posting recorded for docRef and returns how
// many were removed. Trie nodes are left in place.
func (e *Engine) RemoveDocument(docRef string) int {
	e.mu.Lock()
	removed := e.removeDocumentLocked(docRef)
	e.observeLocked()
	e.mu.Unlock()

	if removed > 0 {
		if e.metrics != nil {
			e.metrics.DocsRemovedTotal.Inc()
			e.metrics.TokensRemovedTotal.Add(float64(removed))
		}
		e.logger.Debug("document removed", "doc_ref", docRef, "tokens", removed)
	}
	return removed
}

// HasDocument reports whether docRef currently has any postings.
func (e *Engine) HasDocument(docRef string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.docTokens[docRef]
	return ok
}

func (e *Engine) HasToken(token string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.HasToken(token)
}

// Documents returns token's postings sorted by document reference. ok is
// false when the token was never indexed.
func (e *Engine) Documents(token string) (index.PostingList, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.Postings(token)
}

func (e *Engine) TermFrequency(docRef string, token string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.GetTermFrequency(docRef, token)
}

func (e *Engine) DocFrequency(token string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.GetDocFrequency(token)
}

// Expand lists indexed tokens starting with prefix.
func (e *Engine) Expand(prefix string, limit int) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.ExpandToken(prefix, limit)
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tokens := 0
	e.idx.Walk(func(string, int) bool {
		tokens++
		return true
	})
	return Stats{
		Nodes:     e.idx.NodeCount(),
		Documents: len(e.docTokens),
		Tokens:    tokens,
	}
}

// Snapshot serializes the whole index in the lunr interchange layout.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	data, err := json.Marshal(e.idx)
	if err != nil {
		return nil, fmt.Errorf("serializing index: %w", err)
	}
	return data, nil
}

// MergeInto copies this engine's trie into dst under the read lock.
func (e *Engine) MergeInto(dst *index.InvertedIndex) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	dst.MergeFrom(e.idx)
}

func (e *Engine) addTokenLocked(docRef string, token string, tf float64) {
	e.idx.AddToken(docRef, token, tf)
	toks, ok := e.docTokens[docRef]
	if !ok {
		toks = make(map[string]struct{})
		e.docTokens[docRef] = toks
	}
	toks[token] = struct{}{}
}

func (e *Engine) removeDocumentLocked(docRef string) int {
	toks, ok := e.docTokens[docRef]
	if !ok {
		return 0
	}
	removed := 0
	for token := range toks {
		if e.idx.RemoveToken(docRef, token) {
			removed++
		}
	}
	delete(e.docTokens, docRef)
	return removed
}

func (e *Engine) observeLocked() {
	if e.metrics == nil {
		return
	}
	e.metrics.TrieNodes.WithLabelValues(e.shardID).Set(float64(e.idx.NodeCount()))
	e.metrics.ShardDocCount.WithLabelValues(e.shardID).Set(float64(len(e.docTokens)))
}
