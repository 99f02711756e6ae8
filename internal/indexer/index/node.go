package index

import (
	"sort"
	"unicode/utf8"
)

// TermFrequency is the weight of a token within one document. It is stored
// exactly as supplied by the caller.
type TermFrequency float64

// node is one codepoint step of a token path. postings holds documents whose
// token ends exactly here; docFreq always equals len(postings).
type node struct {
	postings map[string]TermFrequency
	docFreq  int
	children map[rune]*node
}

func newNode() *node {
	return &node{
		postings: make(map[string]TermFrequency),
		children: make(map[rune]*node),
	}
}

// addToken inserts or overwrites the posting for docRef at the end of token's
// path, creating nodes on the way. It returns the number of nodes created.
func (n *node) addToken(docRef string, token string, tf TermFrequency) int {
	if token == "" {
		return 0
	}
	r, size := utf8.DecodeRuneInString(token)
	created := 0
	child, ok := n.children[r]
	if !ok {
		child = newNode()
		n.children[r] = child
		created++
	}
	rest := token[size:]
	if rest != "" {
		return created + child.addToken(docRef, rest, tf)
	}
	if _, exists := child.postings[docRef]; !exists {
		child.docFreq++
	}
	child.postings[docRef] = tf
	return created
}

// removeToken drops docRef from the terminal node of token. Nodes are kept
// even when their postings become empty.
func (n *node) removeToken(docRef string, token string) bool {
	if token == "" {
		return false
	}
	r, size := utf8.DecodeRuneInString(token)
	child, ok := n.children[r]
	if !ok {
		return false
	}
	rest := token[size:]
	if rest != "" {
		return child.removeToken(docRef, rest)
	}
	if _, exists := child.postings[docRef]; !exists {
		return false
	}
	delete(child.postings, docRef)
	child.docFreq--
	return true
}

// getNode follows token from n and returns nil if any edge is missing.
func (n *node) getNode(token string) *node {
	cur := n
	for _, r := range token {
		next, ok := cur.children[r]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// walk visits n and its descendants depth-first in codepoint order, calling
// fn for every node that has live postings.
func (n *node) walk(prefix []rune, fn func(token string, n *node) bool) bool {
	if n.docFreq > 0 {
		if !fn(string(prefix), n) {
			return false
		}
	}
	for _, r := range n.sortedEdges() {
		if !n.children[r].walk(append(prefix, r), fn) {
			return false
		}
	}
	return true
}

func (n *node) sortedEdges() []rune {
	edges := make([]rune, 0, len(n.children))
	for r := range n.children {
		edges = append(edges, r)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i] < edges[j] })
	return edges
}

// serialize renders n in the lunr interchange layout: "df" and "docs" next
// to one entry per child edge. A child keyed "df" or "docs" is impossible
// since edges are single codepoints.
func (n *node) serialize() map[string]any {
	docs := make(map[string]any, len(n.postings))
	for ref, tf := range n.postings {
		docs[ref] = map[string]any{"tf": float64(tf)}
	}
	out := make(map[string]any, 2+len(n.children))
	out["df"] = n.docFreq
	out["docs"] = docs
	for r, child := range n.children {
		out[string(r)] = child.serialize()
	}
	return out
}
