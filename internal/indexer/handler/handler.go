// Package handler exposes the sharded index over a JSON HTTP API. Writes go
// to the shard owning the document; token reads merge every shard.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/export"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/merger"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/logger"
)

const (
	defaultExpandLimit = 50
	maxExpandLimit     = 1000
	maxBodyBytes       = 4 << 20
)

type Handler struct {
	router   *shard.Router
	exporter *export.Exporter
	logger   *slog.Logger
}

// New builds the API. exporter may be nil, which disables on-demand export.
func New(router *shard.Router, exporter *export.Exporter) *Handler {
	return &Handler{
		router:   router,
		exporter: exporter,
		logger:   logger.WithComponent("index-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/tokens", h.AddToken)
	mux.HandleFunc("DELETE /api/v1/tokens", h.RemoveToken)
	mux.HandleFunc("GET /api/v1/tokens/{token}", h.GetToken)
	mux.HandleFunc("GET /api/v1/tokens/{token}/tf", h.TermFrequency)
	mux.HandleFunc("POST /api/v1/documents", h.IndexDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{ref}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/expand", h.Expand)
	mux.HandleFunc("GET /api/v1/index", h.Index)
	mux.HandleFunc("GET /api/v1/index/{shard}", h.ShardIndex)
	mux.HandleFunc("POST /api/v1/index/export", h.Export)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
}

type addTokenRequest struct {
	DocRef        string   `json:"doc_ref"`
	Token         string   `json:"token"`
	TermFrequency *float64 `json:"tf"`
}

// AddToken indexes one (doc_ref, token, tf) triple. tf defaults to 1.
func (h *Handler) AddToken(w http.ResponseWriter, r *http.Request) {
	var req addTokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	tf := 1.0
	if req.TermFrequency != nil {
		tf = *req.TermFrequency
	}
	if err := validator.ValidateToken(req.DocRef, req.Token, tf); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	shardID := h.router.ShardFor(req.DocRef)
	engine, err := h.router.Route(shardID)
	if err == nil {
		err = engine.AddToken(req.DocRef, req.Token, tf)
	}
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"doc_ref":  req.DocRef,
		"token":    req.Token,
		"tf":       tf,
		"shard_id": shardID,
	})
}

func (h *Handler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docRef, token := q.Get("doc_ref"), q.Get("token")
	if docRef == "" {
		h.writeAppError(w, r, apperrors.Invalid("query parameter 'doc_ref' is required"))
		return
	}
	removed := h.router.ForDocument(docRef).RemoveToken(docRef, token)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doc_ref": docRef,
		"token":   token,
		"removed": removed,
	})
}

type tokenResponse struct {
	Token    string            `json:"token"`
	Exists   bool              `json:"exists"`
	DocFreq  int               `json:"df"`
	Postings index.PostingList `json:"postings"`
}

// GetToken merges the token's postings from every shard. It answers 404
// when no shard ever indexed the token.
func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	var lists []index.PostingList
	for _, engine := range h.router.GetAllEngines() {
		if list, ok := engine.Documents(token); ok {
			lists = append(lists, list)
		}
	}
	if len(lists) == 0 {
		h.writeAppError(w, r, apperrors.Newf(apperrors.ErrTokenNotFound, http.StatusNotFound, "token %q not found", token))
		return
	}
	postings := merger.Postings(lists)
	resp := tokenResponse{Token: token, Exists: true, DocFreq: len(postings), Postings: postings}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) TermFrequency(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	docRef := r.URL.Query().Get("doc_ref")
	if docRef == "" {
		h.writeAppError(w, r, apperrors.Invalid("query parameter 'doc_ref' is required"))
		return
	}
	tf := h.router.ForDocument(docRef).TermFrequency(docRef, token)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doc_ref": docRef,
		"token":   token,
		"tf":      tf,
	})
}

type indexDocumentRequest struct {
	DocRef string            `json:"doc_ref"`
	Fields map[string]string `json:"fields"`
}

func (h *Handler) IndexDocument(w http.ResponseWriter, r *http.Request) {
	var req indexDocumentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validator.ValidateDocument(req.DocRef, req.Fields); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	shardID := h.router.ShardFor(req.DocRef)
	engine, err := h.router.Route(shardID)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	n, err := engine.IndexDocument(req.DocRef, req.Fields)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("document indexed", "doc_ref", req.DocRef, "shard_id", shardID, "tokens", n)
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"doc_ref":  req.DocRef,
		"shard_id": shardID,
		"tokens":   n,
	})
}

func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	docRef := r.PathValue("ref")
	engine := h.router.ForDocument(docRef)
	if !engine.HasDocument(docRef) {
		h.writeAppError(w, r, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %q not found", docRef))
		return
	}
	n := engine.RemoveDocument(docRef)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doc_ref":        docRef,
		"removed_tokens": n,
	})
}

// Expand lists indexed tokens starting with prefix across all shards,
// sorted and de-duplicated.
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	limit := defaultExpandLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			h.writeAppError(w, r, apperrors.Invalid("limit must be a positive integer"))
			return
		}
		limit = min(parsed, maxExpandLimit)
	}

	engines := h.router.GetAllEngines()
	lists := make([][]string, len(engines))
	for i, engine := range engines {
		lists[i] = engine.Expand(prefix, limit)
	}
	tokens := merger.Tokens(lists, limit)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"prefix": prefix,
		"tokens": tokens,
	})
}

// Index returns the serialized trie of the whole index, all shards merged.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data, err := h.router.Snapshot()
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeRaw(w, data)
}

// ShardIndex returns the serialized trie of one shard. Its df values count
// only that shard's documents; GET /api/v1/index is the exportable form.
func (h *Handler) ShardIndex(w http.ResponseWriter, r *http.Request) {
	shardID, err := strconv.Atoi(r.PathValue("shard"))
	if err != nil {
		h.writeAppError(w, r, apperrors.Invalid("shard must be an integer"))
		return
	}
	engine, err := h.router.Route(shardID)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	data, err := engine.Snapshot()
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeRaw(w, data)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		h.writeError(w, http.StatusServiceUnavailable, "export is disabled")
		return
	}
	result, err := h.router.Export(r.Context(), h.exporter)
	if err != nil {
		logger.FromContext(r.Context()).Error("export failed", "error", err)
		h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]any{
			"error":  err.Error(),
			"result": result,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type shardStats struct {
	ShardID   int `json:"shard_id"`
	Nodes     int `json:"nodes"`
	Documents int `json:"documents"`
	Tokens    int `json:"tokens"`
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	engines := h.router.GetAllEngines()
	shards := make([]shardStats, len(engines))
	var documents, nodes int
	for id, engine := range engines {
		s := engine.Stats()
		shards[id] = shardStats{ShardID: id, Nodes: s.Nodes, Documents: s.Documents, Tokens: s.Tokens}
		documents += s.Documents
		nodes += s.Nodes
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"shards":          shards,
		"total_documents": documents,
		"total_nodes":     nodes,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeAppError(w, r, apperrors.Invalid("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"details": verr.Fields,
		})
		return
	}
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.writeError(w, status, apperrors.Message(err))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeRaw sends an already encoded JSON body.
func (h *Handler) writeRaw(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write response", "bytes", len(data), "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
