// Package validator checks token events and API requests before they reach
// the index, returning per-field error details.
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/ingestion"
)

const (
	maxDocRefLength = 255
	maxTokenLength  = 256
	maxFieldLength  = 1048576
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateEvent checks the fields the event's op needs.
func ValidateEvent(ev *ingestion.TokenEvent) error {
	errs := make(map[string]string)
	checkDocRef(ev.DocRef, errs)
	switch ev.Op {
	case ingestion.OpAddToken:
		checkToken(ev.Token, errs)
		checkTermFrequency(ev.TermFrequency, errs)
	case ingestion.OpRemoveToken:
		checkToken(ev.Token, errs)
	case ingestion.OpIndexDocument:
		checkFields(ev.Fields, errs)
	case ingestion.OpRemoveDocument:
	default:
		errs["op"] = fmt.Sprintf("unknown op %q", ev.Op)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateToken checks a raw (doc_ref, token, tf) triple.
func ValidateToken(docRef, token string, tf float64) error {
	errs := make(map[string]string)
	checkDocRef(docRef, errs)
	checkToken(token, errs)
	checkTermFrequency(tf, errs)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateDocument checks a document indexing request.
func ValidateDocument(docRef string, fields map[string]string) error {
	errs := make(map[string]string)
	checkDocRef(docRef, errs)
	checkFields(fields, errs)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkDocRef(docRef string, errs map[string]string) {
	switch {
	case strings.TrimSpace(docRef) == "":
		errs["doc_ref"] = "doc_ref is required"
	case len(docRef) > maxDocRefLength:
		errs["doc_ref"] = fmt.Sprintf("doc_ref must be at most %d bytes", maxDocRefLength)
	case !utf8.ValidString(docRef):
		errs["doc_ref"] = "doc_ref must be valid UTF-8"
	}
}

// checkToken allows the empty token; the index ignores it.
func checkToken(token string, errs map[string]string) {
	switch {
	case !utf8.ValidString(token):
		errs["token"] = "token must be valid UTF-8"
	case utf8.RuneCountInString(token) > maxTokenLength:
		errs["token"] = fmt.Sprintf("token must be at most %d characters", maxTokenLength)
	}
}

func checkTermFrequency(tf float64, errs map[string]string) {
	if math.IsNaN(tf) || math.IsInf(tf, 0) {
		errs["tf"] = "tf must be a finite number"
	}
}

func checkFields(fields map[string]string, errs map[string]string) {
	if len(fields) == 0 {
		errs["fields"] = "at least one field is required"
		return
	}
	for name, text := range fields {
		if len(text) > maxFieldLength {
			errs["fields."+name] = fmt.Sprintf("field must be at most %d bytes", maxFieldLength)
		}
	}
}
