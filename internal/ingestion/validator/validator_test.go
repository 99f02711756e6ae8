package validator

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/ingestion"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestValidateEvent(t *testing.T) {
	ok := []ingestion.TokenEvent{
		{Op: ingestion.OpAddToken, DocRef: "1", Token: "foo", TermFrequency: 2},
		{Op: ingestion.OpAddToken, DocRef: "1", Token: ""},
		{Op: ingestion.OpRemoveToken, DocRef: "1", Token: "foo"},
		{Op: ingestion.OpIndexDocument, DocRef: "1", Fields: map[string]string{"body": "x"}},
		{Op: ingestion.OpRemoveDocument, DocRef: "1"},
	}
	for _, ev := range ok {
		assert.NoError(t, ValidateEvent(&ev), "op %s", ev.Op)
	}

	err := ValidateEvent(&ingestion.TokenEvent{Op: "merge", DocRef: ""})
	f := fieldsOf(t, err)
	assert.Contains(t, f, "op")
	assert.Contains(t, f, "doc_ref")
	assert.Equal(t, "doc_ref: doc_ref is required; op: unknown op \"merge\"", err.Error())
}

func TestValidateToken(t *testing.T) {
	assert.NoError(t, ValidateToken("doc", "héllo", 1.5))

	f := fieldsOf(t, ValidateToken("doc", "bad\xff", math.NaN()))
	assert.Contains(t, f, "token")
	assert.Contains(t, f, "tf")

	f = fieldsOf(t, ValidateToken(strings.Repeat("d", 300), strings.Repeat("x", 257), 1))
	assert.Contains(t, f, "doc_ref")
	assert.Contains(t, f, "token")
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument("doc", map[string]string{"title": "t"}))

	f := fieldsOf(t, ValidateDocument("doc", nil))
	assert.Contains(t, f, "fields")
}
