package retrieval

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrInvalidK          = errors.New("k must be at least 1")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// IndexEntry is one embedded chunk. Entries are read-only once the index is built.
type IndexEntry struct {
	ChunkID int       `json:"chunkId"`
	Order   int       `json:"order"`
	Text    string    `json:"text"`
	Vector  []float32 `json:"-"`
}

type SearchResult struct {
	Entry IndexEntry `json:"entry"`
	Score float64    `json:"score"`
}

// Index is an immutable, ordered collection of entries sharing one dimension.
type Index struct {
	entries   []IndexEntry
	norms     []float64
	dimension int
}

// NewIndex takes ownership of entries. All vectors must have the same, non-zero length.
func NewIndex(entries []IndexEntry) (*Index, error) {
	idx := &Index{
		entries: entries,
		norms:   make([]float64, len(entries)),
	}
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return nil, fmt.Errorf("entry %d: empty vector", e.ChunkID)
		}
		if idx.dimension == 0 {
			idx.dimension = len(e.Vector)
		}
		if len(e.Vector) != idx.dimension {
			return nil, fmt.Errorf("%w: entry %d has %d, want %d", ErrDimensionMismatch, e.ChunkID, len(e.Vector), idx.dimension)
		}
		idx.norms[i] = norm(e.Vector)
	}
	return idx, nil
}

func (x *Index) Len() int {
	return len(x.entries)
}

func (x *Index) Dimension() int {
	return x.dimension
}

// TopK returns the k entries most similar to query by cosine similarity,
// best first, ties in chunk order. k larger than the index is clamped.
// An empty index yields an empty result.
func (x *Index) TopK(query []float32, k int) ([]SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(x.entries) == 0 {
		return []SearchResult{}, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), x.dimension)
	}

	qNorm := norm(query)
	results := make([]SearchResult, len(x.entries))
	for i, e := range x.entries {
		results[i] = SearchResult{Entry: e, Score: cosine(query, e.Vector, qNorm, x.norms[i])}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// cosineSimilarity returns 0 for zero-magnitude vectors.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	return cosine(a, b, norm(a), norm(b)), nil
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
