// Package merger combines per-shard read results. Every input list is sorted,
// so a k-way heap merge produces the global order without re-sorting.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/index"
)

// Tokens merges sorted token lists, dropping duplicates. limit <= 0 means
// no limit.
func Tokens(lists [][]string, limit int) []string {
	h := &cursorHeap{}
	for i, l := range lists {
		if len(l) > 0 {
			h.items = append(h.items, cursor{list: i, key: l[0]})
		}
	}
	heap.Init(h)

	var out []string
	pos := make([]int, len(lists))
	for h.Len() > 0 {
		c := heap.Pop(h).(cursor)
		if len(out) == 0 || out[len(out)-1] != c.key {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, c.key)
		}
		pos[c.list]++
		if next := pos[c.list]; next < len(lists[c.list]) {
			heap.Push(h, cursor{list: c.list, key: lists[c.list][next]})
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Postings merges posting lists sorted by DocRef. Shards own disjoint
// documents; should a reference repeat, the first shard's posting wins.
func Postings(lists []index.PostingList) index.PostingList {
	h := &cursorHeap{}
	for i, l := range lists {
		if len(l) > 0 {
			h.items = append(h.items, cursor{list: i, key: l[0].DocRef})
		}
	}
	heap.Init(h)

	out := index.PostingList{}
	pos := make([]int, len(lists))
	for h.Len() > 0 {
		c := heap.Pop(h).(cursor)
		p := lists[c.list][pos[c.list]]
		if len(out) == 0 || out[len(out)-1].DocRef != p.DocRef {
			out = append(out, p)
		}
		pos[c.list]++
		if next := pos[c.list]; next < len(lists[c.list]) {
			heap.Push(h, cursor{list: c.list, key: lists[c.list][next].DocRef})
		}
	}
	return out
}

type cursor struct {
	list int
	key  string
}

type cursorHeap struct {
	items []cursor
}

func (h cursorHeap) Len() int { return len(h.items) }

func (h cursorHeap) Less(i, j int) bool {
	if h.items[i].key != h.items[j].key {
		return h.items[i].key < h.items[j].key
	}
	return h.items[i].list < h.items[j].list
}

func (h cursorHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *cursorHeap) Push(x interface{}) {
	h.items = append(h.items, x.(cursor))
}

func (h *cursorHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
