// Package ingestion defines the Kafka event schemas exchanged with the
// tokenizing pipeline upstream and the search runtime downstream.
package ingestion

import "time"

// Op names what a TokenEvent asks the indexer to do.
type Op string

const (
	OpAddToken       Op = "add_token"
	OpRemoveToken    Op = "remove_token"
	OpIndexDocument  Op = "index_document"
	OpRemoveDocument Op = "remove_document"
)

// TokenEvent is the payload of the token-ingest topic. Token and
// TermFrequency are used by the token ops, Fields by OpIndexDocument.
type TokenEvent struct {
	Op            Op                `json:"op"`
	DocRef        string            `json:"doc_ref"`
	Token         string            `json:"token,omitempty"`
	TermFrequency float64           `json:"tf,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	EmittedAt     time.Time         `json:"emitted_at"`
}

// ExportedEvent is published after an index snapshot was written.
type ExportedEvent struct {
	Bytes      int       `json:"bytes"`
	Path       string    `json:"path,omitempty"`
	ExportedAt time.Time `json:"exported_at"`
}
