package index

// MergeFrom copies every node and posting of src into idx. Nodes missing in
// idx are created, including nodes whose postings were all removed, so the
// merged trie has the shape of both inputs. A document present in both
// keeps the frequency from src. src is only read.
func (idx *InvertedIndex) MergeFrom(src *InvertedIndex) {
	idx.nodeCount += idx.root.mergeFrom(src.root)
}

func (n *node) mergeFrom(src *node) int {
	for ref, tf := range src.postings {
		n.postings[ref] = tf
	}
	n.docFreq = len(n.postings)
	created := 0
	for r, srcChild := range src.children {
		child, ok := n.children[r]
		if !ok {
			child = newNode()
			n.children[r] = child
			created++
		}
		created += child.mergeFrom(srcChild)
	}
	return created
}
