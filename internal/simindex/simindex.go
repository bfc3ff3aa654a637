// Package simindex holds the latent vectors of every corpus document and scores
// query vectors against them by cosine similarity.
//
// Entries carry their document name alongside the vector, so a score can never
// be attributed to the wrong document if the corpus is reordered between build
// and query.
package simindex

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/lsa"
	"github.com/chriscorrea/licmatch/internal/store"
	"github.com/chriscorrea/licmatch/internal/vectorize"
)

// Entry is one indexed document.
type Entry struct {
	Name   string
	Vector []float64
}

// Score is the similarity of a query to one indexed document.
type Score struct {
	Name  string
	Score float64
}

// Index is an ordered set of latent document vectors.
type Index struct {
	entries          []Entry
	dim              int
	modelFingerprint string
	vocabFingerprint string
}

// state is the persisted form of an Index.
type state struct {
	Names            []string
	Vectors          [][]float64
	Dim              int
	ModelFingerprint string
	VocabFingerprint string
}

// Build projects every document row through model and stores the results in
// order. names and rows must have the same length.
func Build(model lsa.Model, names []string, rows []vectorize.SparseVector) (*Index, error) {
	if len(names) != len(rows) {
		return nil, fmt.Errorf("%d names for %d document vectors", len(names), len(rows))
	}

	seen := make(map[string]struct{}, len(names))
	entries := make([]Entry, len(rows))
	for i, row := range rows {
		if _, dup := seen[names[i]]; dup {
			return nil, fmt.Errorf("index entry %q: %w", names[i], errs.ErrDuplicateDocument)
		}
		seen[names[i]] = struct{}{}
		entries[i] = Entry{Name: names[i], Vector: model.Transform(row)}
	}

	slog.Debug("Similarity index built", "documents", len(entries), "dim", model.Rank())
	return &Index{
		entries:          entries,
		dim:              model.Rank(),
		modelFingerprint: model.Fingerprint(),
		vocabFingerprint: model.VocabFingerprint(),
	}, nil
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Dim returns the latent dimension of the stored vectors.
func (idx *Index) Dim() int {
	return idx.dim
}

// Names returns the document names in index order.
func (idx *Index) Names() []string {
	names := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		names[i] = e.Name
	}
	return names
}

// ModelFingerprint identifies the model the index was built from.
func (idx *Index) ModelFingerprint() string {
	return idx.modelFingerprint
}

// VocabFingerprint identifies the vocabulary behind that model.
func (idx *Index) VocabFingerprint() string {
	return idx.vocabFingerprint
}

// Query scores vec against every entry, in index order.
func (idx *Index) Query(vec []float64) ([]Score, error) {
	if len(vec) != idx.dim {
		return nil, fmt.Errorf("query vector has %d dimensions, index has %d: %w",
			len(vec), idx.dim, errs.ErrDimensionMismatch)
	}

	scores := make([]Score, len(idx.entries))
	for i, e := range idx.entries {
		scores[i] = Score{Name: e.Name, Score: CosineSimilarity(vec, e.Vector)}
	}
	return scores, nil
}

// CosineSimilarity returns a.b / (|a| |b|), or 0 when either vector has zero
// norm or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Save writes the index to path.
func (idx *Index) Save(path string) error {
	st := state{
		Names:            idx.Names(),
		Vectors:          make([][]float64, len(idx.entries)),
		Dim:              idx.dim,
		ModelFingerprint: idx.modelFingerprint,
		VocabFingerprint: idx.vocabFingerprint,
	}
	for i, e := range idx.entries {
		st.Vectors[i] = e.Vector
	}
	return store.Save(path, store.KindIndex, st)
}

// Load reads an index written by Save.
func Load(path string) (*Index, error) {
	var st state
	if err := store.Load(path, store.KindIndex, &st); err != nil {
		return nil, err
	}
	if len(st.Names) != len(st.Vectors) {
		return nil, errs.Persistence("load", path,
			fmt.Errorf("%d names for %d vectors", len(st.Names), len(st.Vectors)))
	}

	entries := make([]Entry, len(st.Names))
	for i, name := range st.Names {
		if len(st.Vectors[i]) != st.Dim {
			return nil, errs.Persistence("load", path,
				fmt.Errorf("entry %q has %d dimensions, want %d", name, len(st.Vectors[i]), st.Dim))
		}
		entries[i] = Entry{Name: name, Vector: st.Vectors[i]}
	}

	return &Index{
		entries:          entries,
		dim:              st.Dim,
		modelFingerprint: st.ModelFingerprint,
		vocabFingerprint: st.VocabFingerprint,
	}, nil
}
