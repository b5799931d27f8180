package selector

import (
	"sort"

	"crosslister/internal/domain"
)

// Candidate is one scored leaf category.
type Candidate struct {
	Node  domain.CategoryNode
	Path  string
	Score float64
}

// SemanticIndex holds embeddings for every leaf category path of one
// snapshot. Brute-force cosine search; tens of thousands of leaves rank
// in a few milliseconds.
type SemanticIndex struct {
	embedder   Embedder
	candidates []indexEntry
}

type indexEntry struct {
	node domain.CategoryNode
	path string
	vec  []float32
}

// BuildIndex embeds every leaf in the snapshot. Rebuild only when the
// snapshot is swapped.
func BuildIndex(snap *domain.CategorySnapshot, embedder Embedder) *SemanticIndex {
	idx := &SemanticIndex{embedder: embedder}
	ids := make([]string, 0, len(snap.Nodes))
	for id, node := range snap.Nodes {
		if node.Leaf {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	idx.candidates = make([]indexEntry, 0, len(ids))
	for _, id := range ids {
		path := snap.Path(id)
		idx.candidates = append(idx.candidates, indexEntry{
			node: snap.Nodes[id],
			path: path,
			vec:  embedder.Embed(path),
		})
	}
	return idx
}

// Len reports the number of indexed leaves.
func (idx *SemanticIndex) Len() int { return len(idx.candidates) }

// Search returns the top k leaves by similarity to the query, filtered
// by the minimum similarity floor. Equal scores prefer the shallower
// category.
func (idx *SemanticIndex) Search(query string, k int, minSimilarity float64) []Candidate {
	qvec := idx.embedder.Embed(query)
	scored := make([]Candidate, 0, len(idx.candidates))
	for _, e := range idx.candidates {
		score := cosine(qvec, e.vec)
		if score < minSimilarity {
			continue
		}
		scored = append(scored, Candidate{Node: e.node, Path: e.path, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Node.Level < scored[j].Node.Level
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
