package shard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/export"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/metrics"
)

var tokCfg = config.TokenizerConfig{MinTokenLength: 1}

type captureSink struct {
	mu    sync.Mutex
	calls int
	last  []byte
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Publish(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = data
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// refsOnDistinctShards returns two document references owned by different
// shards.
func refsOnDistinctShards(t *testing.T, r *Router) (string, string) {
	t.Helper()
	first := "doc-0"
	for i := 1; i < 100; i++ {
		ref := fmt.Sprintf("doc-%d", i)
		if r.ShardFor(ref) != r.ShardFor(first) {
			return first, ref
		}
	}
	t.Fatal("no references on distinct shards")
	return "", ""
}

func TestNewRouterRejectsZeroShards(t *testing.T) {
	_, err := NewRouter(tokCfg, 0, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestShardForIsStableAndInRange(t *testing.T) {
	r, err := NewRouter(tokCfg, 4, nil)
	require.NoError(t, err)

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		ref := fmt.Sprintf("doc-%d", i)
		id := r.ShardFor(ref)
		assert.GreaterOrEqual(t, id, 0)
		assert.Less(t, id, 4)
		assert.Equal(t, id, r.ShardFor(ref))
		seen[id] = true
	}
	assert.Len(t, seen, 4, "references spread over every shard")
}

func TestRoute(t *testing.T) {
	r, err := NewRouter(tokCfg, 2, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)

	e, err := r.Route(1)
	require.NoError(t, err)
	assert.Same(t, r.GetAllEngines()[1], e)

	_, err = r.Route(2)
	assert.ErrorIs(t, err, apperrors.ErrShardNotFound)
	_, err = r.Route(-1)
	assert.ErrorIs(t, err, apperrors.ErrShardNotFound)
}

func TestForDocumentKeepsTokensTogether(t *testing.T) {
	r, err := NewRouter(tokCfg, 3, nil)
	require.NoError(t, err)

	e := r.ForDocument("a")
	require.NoError(t, e.AddToken("a", "foo", 1))
	require.NoError(t, e.AddToken("a", "bar", 1))

	owner, _ := r.Route(r.ShardFor("a"))
	assert.True(t, owner.HasToken("foo"))
	assert.True(t, owner.HasToken("bar"))
}

func TestSnapshotMergesShards(t *testing.T) {
	r, err := NewRouter(tokCfg, 4, nil)
	require.NoError(t, err)
	a, b := refsOnDistinctShards(t, r)
	require.NoError(t, r.ForDocument(a).AddToken(a, "foo", 1))
	require.NoError(t, r.ForDocument(b).AddToken(b, "foo", 2))

	data, err := r.Snapshot()
	require.NoError(t, err)
	want := fmt.Sprintf(`{"df":0,"docs":{},"f":{"df":0,"docs":{},"o":{"df":0,"docs":{},
		"o":{"df":2,"docs":{%q:{"tf":1},%q:{"tf":2}}}}}}`, a, b)
	assert.JSONEq(t, want, string(data))

	// Shards themselves are left untouched.
	assert.Equal(t, 1, r.ForDocument(a).DocFrequency("foo"))
}

func TestExportPublishesWholeIndex(t *testing.T) {
	r, err := NewRouter(tokCfg, 3, nil)
	require.NoError(t, err)
	a, b := refsOnDistinctShards(t, r)
	require.NoError(t, r.ForDocument(a).AddToken(a, "hi", 2))
	require.NoError(t, r.ForDocument(b).AddToken(b, "hi", 3))

	sink := &captureSink{}
	res, err := r.Export(context.Background(), export.New(export.WithSink(sink)))
	require.NoError(t, err)
	assert.Equal(t, len(sink.last), res.Bytes)

	var tree map[string]any
	require.NoError(t, json.Unmarshal(sink.last, &tree))
	hi := tree["h"].(map[string]any)["i"].(map[string]any)
	assert.Equal(t, 2.0, hi["df"])
}

func TestStartExportLoopExportsUntilCancelled(t *testing.T) {
	r, err := NewRouter(tokCfg, 2, nil)
	require.NoError(t, err)
	sink := &captureSink{}
	exp := export.New(export.WithSink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.StartExportLoop(ctx, exp, 5*time.Millisecond)
		close(done)
	}()
	assert.Eventually(t, func() bool { return sink.count() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("export loop did not stop")
	}
}

func TestStartExportLoopNonPositiveInterval(t *testing.T) {
	r, err := NewRouter(tokCfg, 1, nil)
	require.NoError(t, err)
	sink := &captureSink{}

	assert.NotPanics(t, func() {
		r.StartExportLoop(context.Background(), export.New(export.WithSink(sink)), 0)
		r.StartExportLoop(context.Background(), export.New(export.WithSink(sink)), -time.Second)
	})
	assert.Equal(t, 0, sink.count())
}
