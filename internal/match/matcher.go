// Package match implements cosine-similarity face matching against the
// enrolled employee set.
package match

import (
	"math"
	"runtime"
	"sync"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical).
// Degenerate input (mismatched length, empty, zero norm) returns 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return similarity
}

// Candidate is an enrolled face the matcher scores queries against.
type Candidate struct {
	EmployeeID string
	Embedding  []float32
}

// Match pairs a query embedding with its best candidate.
type Match struct {
	QueryIndex int
	EmployeeID string
	Similarity float64
}

// Matcher scores query embeddings against candidate sets with a fixed
// number of parallel workers.
type Matcher struct {
	workers int
}

// New creates a matcher. workers <= 0 defaults to the number of CPUs.
func New(workers int) *Matcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Matcher{workers: workers}
}

// FindMatches scores each query embedding independently against every
// candidate, parallelized over the candidate dimension, and returns at most
// one match per query: the candidate with the maximum similarity, accepted
// only when similarity >= threshold. Queries with no candidate clearing the
// threshold yield no match. Ties on equal maximum similarity go to the
// lexicographically lowest employee ID so results are deterministic.
func (m *Matcher) FindMatches(queries [][]float32, candidates []Candidate, threshold float64) []Match {
	var matches []Match
	for qi, query := range queries {
		best, ok := m.bestCandidate(query, candidates)
		if !ok || best.Similarity < threshold {
			continue
		}
		best.QueryIndex = qi
		matches = append(matches, best)
	}
	return matches
}

// bestCandidate scans the candidate set in parallel chunks, each worker
// keeping its local best, and merges the partial results deterministically.
func (m *Matcher) bestCandidate(query []float32, candidates []Candidate) (Match, bool) {
	if len(candidates) == 0 {
		return Match{}, false
	}

	workers := m.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	chunkSize := (len(candidates) + workers - 1) / workers

	partial := make([]Match, workers)
	found := make([]bool, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(w int, chunk []Candidate) {
			defer wg.Done()
			for _, cand := range chunk {
				sim := CosineSimilarity(query, cand.Embedding)
				if !found[w] || better(sim, cand.EmployeeID, partial[w]) {
					partial[w] = Match{EmployeeID: cand.EmployeeID, Similarity: sim}
					found[w] = true
				}
			}
		}(w, candidates[start:end])
	}
	wg.Wait()

	var best Match
	var ok bool
	for w := range partial {
		if !found[w] {
			continue
		}
		if !ok || better(partial[w].Similarity, partial[w].EmployeeID, best) {
			best = partial[w]
			ok = true
		}
	}
	return best, ok
}

// better reports whether (sim, id) beats the current best match.
// Equal similarity prefers the lower employee ID.
func better(sim float64, id string, current Match) bool {
	if sim != current.Similarity {
		return sim > current.Similarity
	}
	return id < current.EmployeeID
}
