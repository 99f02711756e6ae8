package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/config"
)

func terms(tokens []Token) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Term)
	}
	return out
}

func TestTokenizeFullPipeline(t *testing.T) {
	tk := New(config.TokenizerConfig{MinTokenLength: 2, StopWords: true, Stemming: true})

	tokens := tk.Tokenize("The Searching of distributed indexes, and the INDEXES!")
	assert.Equal(t, []string{"search", "distribut", "index", "index"}, terms(tokens))
	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
	}
}

func TestTokenizeWithoutFilters(t *testing.T) {
	tk := New(config.TokenizerConfig{})

	tokens := tk.Tokenize("a cat, the dogs")
	assert.Equal(t, []string{"a", "cat", "the", "dogs"}, terms(tokens))
}

func TestTokenizeCountsCodepoints(t *testing.T) {
	tk := New(config.TokenizerConfig{MinTokenLength: 2})

	tokens := tk.Tokenize("é 日本 x")
	assert.Equal(t, []string{"日本"}, terms(tokens))
}

func TestTokenizeEmpty(t *testing.T) {
	tk := New(config.TokenizerConfig{MinTokenLength: 2, StopWords: true, Stemming: true})
	assert.Empty(t, tk.Tokenize(""))
	assert.Empty(t, tk.Tokenize("  ,,, !!"))
}

func TestTermFrequencies(t *testing.T) {
	tk := New(config.TokenizerConfig{MinTokenLength: 2, StopWords: true})

	freqs := TermFrequencies(tk.Tokenize("go go gopher, go"))
	assert.Equal(t, map[string]float64{"go": 3, "gopher": 1}, freqs)
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"relational": "relate",
		"running":    "runn",
		"flies":      "fly",
		"glass":      "glass",
		"cats":       "cat",
		"is":         "is",
	}
	for in, want := range tests {
		assert.Equal(t, want, stem(in), "stem(%q)", in)
	}
}

func BenchmarkTokenize(b *testing.B) {
	tk := New(config.TokenizerConfig{MinTokenLength: 2, StopWords: true, Stemming: true})
	text := strings.Repeat("Distributed search engines process queries across multiple shards. ", 50)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = tk.Tokenize(text)
	}
}
