// Package tokenizer turns raw document text into index tokens. It
// lower-cases input, splits on non-alphanumeric boundaries, optionally drops
// stop-words and applies a suffix stemmer, then counts term frequencies.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/config"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Token is one normalised term and its position among the kept tokens.
type Token struct {
	Term     string
	Position int
}

// Tokenizer holds the pipeline switches read from configuration.
type Tokenizer struct {
	minLength int
	stopWords bool
	stemming  bool
}

// New builds a Tokenizer. A non-positive minimum length keeps every token.
func New(cfg config.TokenizerConfig) *Tokenizer {
	return &Tokenizer{
		minLength: cfg.MinTokenLength,
		stopWords: cfg.StopWords,
		stemming:  cfg.Stemming,
	}
}

// Tokenize breaks text into lower-cased tokens. Length is measured in
// codepoints.
func (t *Tokenizer) Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words)/2)
	pos := 0
	for _, word := range words {
		if utf8.RuneCountInString(word) < t.minLength {
			continue
		}
		if t.stopWords {
			if _, isStop := stopWords[word]; isStop {
				continue
			}
		}
		if t.stemming {
			word = stem(word)
		}
		if word == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// TermFrequencies counts how many times each term occurs in tokens.
func TermFrequencies(tokens []Token) map[string]float64 {
	freqs := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		freqs[tok.Term]++
	}
	return freqs
}

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

var suffixRules = []suffixRule{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// stem strips the first matching suffix whose result keeps the rule's
// minimum length.
func stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
