// Package index implements a character-trie inverted index. Each token is a
// path of Unicode codepoints from the root; the node at the end of the path
// holds the documents containing the token and their term frequencies.
//
// The index does no locking. Callers that share an InvertedIndex between
// goroutines must guard the whole index with one lock.
package index

import "encoding/json"

// InvertedIndex owns the root node, which stands for the empty prefix and
// never holds postings.
type InvertedIndex struct {
	root      *node
	nodeCount int
}

// New returns an empty index.
func New() *InvertedIndex {
	return &InvertedIndex{
		root:      newNode(),
		nodeCount: 1,
	}
}

// AddToken records that docRef contains token with the given term
// frequency. Adding the same pair again overwrites the frequency without
// changing the document frequency. An empty token is ignored.
func (idx *InvertedIndex) AddToken(docRef string, token string, tf float64) {
	idx.nodeCount += idx.root.addToken(docRef, token, TermFrequency(tf))
}

// RemoveToken drops docRef from token's postings. The token's node stays in
// place, so HasToken keeps reporting true. It reports whether a posting was
// removed.
func (idx *InvertedIndex) RemoveToken(docRef string, token string) bool {
	return idx.root.removeToken(docRef, token)
}

// HasToken reports whether a node exists for token, including tokens that
// are only a prefix of an indexed token and tokens whose postings were all
// removed.
func (idx *InvertedIndex) HasToken(token string) bool {
	return idx.root.getNode(token) != nil
}

// GetDocs returns a copy of token's postings. ok is false when the token
// was never indexed; an indexed token with no live documents yields an
// empty map and ok true.
func (idx *InvertedIndex) GetDocs(token string) (docs map[string]float64, ok bool) {
	n := idx.root.getNode(token)
	if n == nil {
		return nil, false
	}
	docs = make(map[string]float64, len(n.postings))
	for ref, tf := range n.postings {
		docs[ref] = float64(tf)
	}
	return docs, true
}

// GetTermFrequency returns the stored frequency of token in docRef, or 0.
func (idx *InvertedIndex) GetTermFrequency(docRef string, token string) float64 {
	n := idx.root.getNode(token)
	if n == nil {
		return 0
	}
	return float64(n.postings[docRef])
}

// GetDocFrequency returns the number of documents currently containing
// token, or 0 if the token was never indexed.
func (idx *InvertedIndex) GetDocFrequency(token string) int {
	n := idx.root.getNode(token)
	if n == nil {
		return 0
	}
	return n.docFreq
}

// NodeCount returns the number of trie nodes, root included.
func (idx *InvertedIndex) NodeCount() int {
	return idx.nodeCount
}

// Walk calls fn for every token that currently has at least one document,
// in codepoint order. Walk stops early when fn returns false.
func (idx *InvertedIndex) Walk(fn func(token string, docFreq int) bool) {
	idx.root.walk(nil, func(token string, n *node) bool {
		return fn(token, n.docFreq)
	})
}

// ExpandToken returns up to limit tokens with live documents that start
// with prefix, in codepoint order. A limit of zero or less means no limit.
func (idx *InvertedIndex) ExpandToken(prefix string, limit int) []string {
	start := idx.root.getNode(prefix)
	if start == nil {
		return nil
	}
	tokens := make([]string, 0)
	start.walk([]rune(prefix), func(token string, _ *node) bool {
		tokens = append(tokens, token)
		return limit <= 0 || len(tokens) < limit
	})
	return tokens
}

// Serialize returns the whole trie as nested maps in the lunr interchange
// layout:
//
//	{"df": 0, "docs": {}, "a": {"df": 1, "docs": {"123": {"tf": 2}}}}
//
// Child nodes are inlined next to "df" and "docs", keyed by their codepoint.
func (idx *InvertedIndex) Serialize() map[string]any {
	return idx.root.serialize()
}

// MarshalJSON encodes the index in the layout produced by Serialize.
func (idx *InvertedIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal(idx.Serialize())
}
