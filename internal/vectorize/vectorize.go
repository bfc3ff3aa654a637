// Package vectorize converts normalized tokens into sparse term-frequency vectors.
//
// A SparseVector holds the vocabulary ids that occur in a document, strictly
// ascending, with their occurrence counts. Tokens missing from the vocabulary
// are dropped: queries routinely contain words no corpus document uses.
//
// Usage Example:
//
//	v := vectorize.Vectorize(tokens, vocabulary)
//	// v.IDs = [0 4 7], v.Counts = [2 1 3]
package vectorize

import (
	"log/slog"
	"sort"
)

// Lookup resolves a token to its vocabulary id.
type Lookup interface {
	ID(token string) (int, bool)
}

// SparseVector is a term-frequency vector keyed by vocabulary id.
// IDs are strictly ascending and every count is positive.
type SparseVector struct {
	IDs    []int
	Counts []float64
}

// Vectorize counts the in-vocabulary tokens of a document.
func Vectorize(tokens []string, vocab Lookup) SparseVector {
	counts := make(map[int]float64)
	dropped := 0
	for _, tok := range tokens {
		id, ok := vocab.ID(tok)
		if !ok {
			dropped++
			continue
		}
		counts[id]++
	}

	if dropped > 0 {
		slog.Debug("Out-of-vocabulary tokens dropped", "dropped", dropped, "tokens", len(tokens))
	}
	return fromCounts(counts)
}

// fromCounts orders a count map into a SparseVector, skipping non-positive counts.
func fromCounts(counts map[int]float64) SparseVector {
	ids := make([]int, 0, len(counts))
	for id, c := range counts {
		if c > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	v := SparseVector{IDs: ids, Counts: make([]float64, len(ids))}
	for i, id := range ids {
		v.Counts[i] = counts[id]
	}
	return v
}

// Len returns the number of nonzero entries.
func (v SparseVector) Len() int {
	return len(v.IDs)
}

// Count returns the count stored for id, or 0.
func (v SparseVector) Count(id int) float64 {
	i := sort.SearchInts(v.IDs, id)
	if i < len(v.IDs) && v.IDs[i] == id {
		return v.Counts[i]
	}
	return 0
}

// Total returns the sum of all counts.
func (v SparseVector) Total() float64 {
	var sum float64
	for _, c := range v.Counts {
		sum += c
	}
	return sum
}
