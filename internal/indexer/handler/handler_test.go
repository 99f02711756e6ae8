package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/export"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/config"
)

type failingSink struct{}

func (failingSink) Name() string { return "failing" }

func (failingSink) Publish(context.Context, []byte) error { return errors.New("unreachable") }

type brokenWriter struct {
	header http.Header
}

func (b *brokenWriter) Header() http.Header { return b.header }

func (b *brokenWriter) WriteHeader(int) {}

func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func newServer(t *testing.T, exp *export.Exporter) (*shard.Router, http.Handler) {
	t.Helper()
	r, err := shard.NewRouter(config.TokenizerConfig{MinTokenLength: 1}, 3, nil)
	require.NoError(t, err)
	mux := http.NewServeMux()
	New(r, exp).Register(mux)
	return r, mux
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, rdr))
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestAddAndGetToken(t *testing.T) {
	_, h := newServer(t, nil)

	rec, out := do(t, h, http.MethodPost, "/api/v1/tokens", `{"doc_ref":"a","token":"foo","tf":2.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2.5, out["tf"])
	do(t, h, http.MethodPost, "/api/v1/tokens", `{"doc_ref":"b","token":"foo"}`)

	rec, out = do(t, h, http.MethodGet, "/api/v1/tokens/foo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["exists"])
	assert.Equal(t, 2.0, out["df"])
	assert.Equal(t, []any{
		map[string]any{"doc_ref": "a", "tf": 2.5},
		map[string]any{"doc_ref": "b", "tf": 1.0},
	}, out["postings"])

	rec, out = do(t, h, http.MethodGet, "/api/v1/tokens/foo/tf?doc_ref=a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.5, out["tf"])

	rec, out = do(t, h, http.MethodGet, "/api/v1/tokens/foo/tf?doc_ref=zzz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, out["tf"])
}

func TestGetTokenNotFoundAndPrefix(t *testing.T) {
	_, h := newServer(t, nil)
	do(t, h, http.MethodPost, "/api/v1/tokens", `{"doc_ref":"a","token":"foo"}`)

	rec, _ := do(t, h, http.MethodGet, "/api/v1/tokens/bar", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A prefix of an indexed token exists as a node with no documents.
	rec, out := do(t, h, http.MethodGet, "/api/v1/tokens/fo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, out["df"])
	assert.Empty(t, out["postings"])
}

func TestRemoveTokenLeavesNode(t *testing.T) {
	_, h := newServer(t, nil)
	do(t, h, http.MethodPost, "/api/v1/tokens", `{"doc_ref":"a","token":"foo"}`)

	rec, out := do(t, h, http.MethodDelete, "/api/v1/tokens?doc_ref=a&token=foo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["removed"])

	rec, out = do(t, h, http.MethodGet, "/api/v1/tokens/foo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, out["df"])

	rec, _ = do(t, h, http.MethodDelete, "/api/v1/tokens?token=foo", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddTokenValidation(t *testing.T) {
	_, h := newServer(t, nil)

	rec, out := do(t, h, http.MethodPost, "/api/v1/tokens", `{"token":"foo"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["details"], "doc_ref")

	rec, _ = do(t, h, http.MethodPost, "/api/v1/tokens", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentLifecycle(t *testing.T) {
	r, h := newServer(t, nil)

	rec, out := do(t, h, http.MethodPost, "/api/v1/documents", `{"doc_ref":"d1","fields":{"title":"Green plant","body":"plant water"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3.0, out["tokens"])
	assert.Equal(t, float64(r.ShardFor("d1")), out["shard_id"])

	_, out = do(t, h, http.MethodGet, "/api/v1/tokens/plant/tf?doc_ref=d1", "")
	assert.Equal(t, 2.0, out["tf"])

	rec, out = do(t, h, http.MethodDelete, "/api/v1/documents/d1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0, out["removed_tokens"])

	rec, _ = do(t, h, http.MethodDelete, "/api/v1/documents/d1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/documents", `{"doc_ref":"d2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpandMergesShards(t *testing.T) {
	_, h := newServer(t, nil)
	for i, tok := range []string{"plant", "plane", "planet", "pond"} {
		body, _ := json.Marshal(map[string]any{"doc_ref": string(rune('a' + i)), "token": tok})
		do(t, h, http.MethodPost, "/api/v1/tokens", string(body))
	}

	rec, out := do(t, h, http.MethodGet, "/api/v1/expand?prefix=plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"plane", "planet", "plant"}, out["tokens"])

	_, out = do(t, h, http.MethodGet, "/api/v1/expand?prefix=p&limit=2", "")
	assert.Equal(t, []any{"plane", "planet"}, out["tokens"])

	rec, _ = do(t, h, http.MethodGet, "/api/v1/expand?prefix=p&limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShardIndex(t *testing.T) {
	r, h := newServer(t, nil)
	do(t, h, http.MethodPost, "/api/v1/tokens", `{"doc_ref":"a","token":"hi","tf":3}`)

	rec, out := do(t, h, http.MethodGet, "/api/v1/index/"+string(rune('0'+r.ShardFor("a"))), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, out["df"])
	hNode := out["h"].(map[string]any)
	iNode := hNode["i"].(map[string]any)
	assert.Equal(t, 1.0, iNode["df"])
	assert.Equal(t, map[string]any{"a": map[string]any{"tf": 3.0}}, iNode["docs"])

	rec, _ = do(t, h, http.MethodGet, "/api/v1/index/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, h, http.MethodGet, "/api/v1/index/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWholeIndexMergesShards(t *testing.T) {
	r, h := newServer(t, nil)
	a := "doc-0"
	b := ""
	for i := 1; i < 100 && b == ""; i++ {
		if ref := fmt.Sprintf("doc-%d", i); r.ShardFor(ref) != r.ShardFor(a) {
			b = ref
		}
	}
	require.NotEmpty(t, b)
	do(t, h, http.MethodPost, "/api/v1/tokens", fmt.Sprintf(`{"doc_ref":%q,"token":"foo","tf":1}`, a))
	do(t, h, http.MethodPost, "/api/v1/tokens", fmt.Sprintf(`{"doc_ref":%q,"token":"foo","tf":2}`, b))

	rec, _ := do(t, h, http.MethodGet, "/api/v1/index", "")
	require.Equal(t, http.StatusOK, rec.Code)
	want := fmt.Sprintf(`{"df":0,"docs":{},"f":{"df":0,"docs":{},"o":{"df":0,"docs":{},
		"o":{"df":2,"docs":{%q:{"tf":1},%q:{"tf":2}}}}}}`, a, b)
	assert.JSONEq(t, want, rec.Body.String())
}

func TestRawWriteErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r, err := shard.NewRouter(config.TokenizerConfig{MinTokenLength: 1}, 1, nil)
	require.NoError(t, err)
	h := New(r, nil)

	h.Index(&brokenWriter{header: make(http.Header)}, httptest.NewRequest(http.MethodGet, "/api/v1/index", nil))
	assert.Contains(t, buf.String(), "failed to write response")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestExport(t *testing.T) {
	_, h := newServer(t, nil)
	rec, _ := do(t, h, http.MethodPost, "/api/v1/index/export", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, h = newServer(t, export.New(export.WithFileWriter(export.NewFileWriter(t.TempDir(), 1))))
	rec, out := do(t, h, http.MethodPost, "/api/v1/index/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, out["path"])
	assert.Equal(t, float64(len(`{"df":0,"docs":{}}`)), out["bytes"])

	_, h = newServer(t, export.New(export.WithSink(failingSink{})))
	rec, _ = do(t, h, http.MethodPost, "/api/v1/index/export", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStats(t *testing.T) {
	_, h := newServer(t, nil)
	do(t, h, http.MethodPost, "/api/v1/documents", `{"doc_ref":"d1","fields":{"body":"ab"}}`)

	rec, out := do(t, h, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, out["total_documents"])
	assert.Len(t, out["shards"], 3)
	// Every shard has at least its root; "ab" adds two nodes.
	assert.Equal(t, 5.0, out["total_nodes"])
}
