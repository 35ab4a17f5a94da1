package match

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

// Index is an in-memory HNSW index over enrolled employee embeddings.
// It serves as an approximate prefilter: Search returns the nearest
// candidates, which are then exactly scored by the Matcher. The index is
// rebuilt whenever the enrolled set changes.
type Index struct {
	graph *hnsw.Graph[string]
	byID  map[string]Candidate
	mu    sync.RWMutex
}

// NewIndex creates a new empty index.
func NewIndex() *Index {
	return &Index{byID: make(map[string]Candidate)}
}

// Build replaces the index contents with the given candidates.
func (idx *Index) Build(candidates []Candidate) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(candidates) == 0 {
		idx.graph = nil
		idx.byID = make(map[string]Candidate)
		return nil
	}

	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	byID := make(map[string]Candidate, len(candidates))
	for _, cand := range candidates {
		if len(cand.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(cand.EmployeeID, cand.Embedding))
		byID[cand.EmployeeID] = cand
	}

	idx.graph = g
	idx.byID = byID
	return nil
}

// Search returns up to k candidates nearest to the query embedding.
func (idx *Index) Search(query []float32, k int) ([]Candidate, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil {
		return nil, errors.New("index not initialized")
	}

	neighbors := idx.graph.Search(query, k)
	result := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if cand, ok := idx.byID[n.Key]; ok {
			result = append(result, cand)
		}
	}
	return result, nil
}

// Len returns the number of indexed candidates.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byID)
}
