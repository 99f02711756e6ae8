package index

import "sort"

// Posting is one document entry of a token.
type Posting struct {
	DocRef        string  `json:"doc_ref"`
	TermFrequency float64 `json:"tf"`
}

// PostingList is sorted by DocRef.
type PostingList []Posting

// Postings returns token's postings sorted by document reference. ok has
// the same meaning as in GetDocs.
func (idx *InvertedIndex) Postings(token string) (PostingList, bool) {
	n := idx.root.getNode(token)
	if n == nil {
		return nil, false
	}
	list := make(PostingList, 0, len(n.postings))
	for ref, tf := range n.postings {
		list = append(list, Posting{DocRef: ref, TermFrequency: float64(tf)})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].DocRef < list[j].DocRef
	})
	return list, true
}
