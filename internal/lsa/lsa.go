// Package lsa fits a latent semantic model: a rank-k truncated singular value
// decomposition of the term-document matrix.
//
// With A the terms x docs count matrix and A = U S V^T, the model keeps U_k, the
// first k left singular vectors, and projects a term vector v into the latent
// space as U_k^T v. Corpus documents and queries go through the same projection,
// so a query identical to a corpus document lands on exactly that document's
// latent vector.
//
// Singular vectors are only defined up to sign. Fit fixes each column of U_k so
// that its largest-magnitude entry is positive; the stored projection already
// carries that convention, so a loaded model transforms identically.
package lsa

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/store"
	"github.com/chriscorrea/licmatch/internal/vectorize"
)

// DefaultRank is the latent dimension used when none is configured.
const DefaultRank = 50

// Model projects sparse term vectors into a dense latent space.
// Implementations must be safe for concurrent Transform calls.
type Model interface {
	// Rank returns the latent dimension k.
	Rank() int
	// NumTerms returns the vocabulary size the model was fitted on.
	NumTerms() int
	// Transform projects v into the latent space. Ids outside [0, NumTerms) are dropped.
	Transform(v vectorize.SparseVector) []float64
	// Fingerprint identifies the fitted parameters.
	Fingerprint() string
	// VocabFingerprint identifies the vocabulary the model was fitted on.
	VocabFingerprint() string
	// Save persists the model to path.
	Save(path string) error
}

// SVDModel is a Model backed by a gonum singular value decomposition.
type SVDModel struct {
	projection  *mat.Dense // NumTerms x k, columns are U_k
	singular    []float64  // k singular values, descending
	vocabFP     string
	fingerprint string
}

var _ Model = (*SVDModel)(nil)

// state is the persisted form of an SVDModel.
type state struct {
	Terms            int
	Rank             int
	Projection       []float64 // row-major Terms x Rank
	Singular         []float64
	VocabFingerprint string
}

// MaxRank returns the largest valid rank for m: min(documents, terms).
func MaxRank(m *vectorize.Matrix) int {
	return min(m.NumDocs(), m.NumTerms)
}

// Fit computes a rank-k model of m. It fails with errs.ErrInvalidRank when k
// is outside [1, MaxRank(m)].
func Fit(m *vectorize.Matrix, k int) (*SVDModel, error) {
	maxRank := MaxRank(m)
	if k < 1 || k > maxRank {
		return nil, fmt.Errorf("rank %d outside [1, %d] for %d documents x %d terms: %w",
			k, maxRank, m.NumDocs(), m.NumTerms, errs.ErrInvalidRank)
	}

	docs, terms := m.NumDocs(), m.NumTerms
	a := mat.NewDense(terms, docs, nil)
	for doc, row := range m.Rows {
		for i, id := range row.IDs {
			if id < 0 || id >= terms {
				return nil, fmt.Errorf("document %d references term %d outside vocabulary of %d", doc, id, terms)
			}
			a.Set(id, doc, row.Counts[i])
		}
	}

	slog.Debug("Factorizing term-document matrix", "terms", terms, "documents", docs, "rank", k)

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd of %dx%d matrix: %w", terms, docs, errs.ErrFactorization)
	}

	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)

	projection := mat.NewDense(terms, k, nil)
	projection.Copy(u.Slice(0, terms, 0, k))
	fixSigns(projection)

	singular := make([]float64, k)
	copy(singular, values[:k])

	model := newSVDModel(projection, singular, m.VocabFingerprint)
	slog.Debug("Model fitted", "rank", k, "topSingularValue", singular[0])
	return model, nil
}

func newSVDModel(projection *mat.Dense, singular []float64, vocabFP string) *SVDModel {
	model := &SVDModel{
		projection: projection,
		singular:   singular,
		vocabFP:    vocabFP,
	}
	model.fingerprint = model.computeFingerprint()
	return model
}

// fixSigns negates every column whose largest-magnitude entry is negative.
// Ties go to the first (lowest row) entry.
func fixSigns(p *mat.Dense) {
	rows, cols := p.Dims()
	for j := 0; j < cols; j++ {
		best, bestAbs := 0.0, -1.0
		for i := 0; i < rows; i++ {
			v := p.At(i, j)
			if math.Abs(v) > bestAbs {
				best, bestAbs = v, math.Abs(v)
			}
		}
		if best < 0 {
			for i := 0; i < rows; i++ {
				p.Set(i, j, -p.At(i, j))
			}
		}
	}
}

// Rank returns k.
func (m *SVDModel) Rank() int {
	_, k := m.projection.Dims()
	return k
}

// NumTerms returns the vocabulary size the model was fitted on.
func (m *SVDModel) NumTerms() int {
	terms, _ := m.projection.Dims()
	return terms
}

// SingularValues returns a copy of the k retained singular values.
func (m *SVDModel) SingularValues() []float64 {
	return append([]float64(nil), m.singular...)
}

// Transform returns U_k^T v. Ids outside the fitted vocabulary are dropped.
func (m *SVDModel) Transform(v vectorize.SparseVector) []float64 {
	terms, k := m.projection.Dims()
	out := make([]float64, k)
	dropped := 0
	for i, id := range v.IDs {
		if id < 0 || id >= terms {
			dropped++
			continue
		}
		c := v.Counts[i]
		row := m.projection.RawRowView(id)
		for j := range out {
			out[j] += c * row[j]
		}
	}
	if dropped > 0 {
		slog.Debug("Out-of-range term ids dropped", "dropped", dropped, "terms", terms)
	}
	return out
}

// Fingerprint identifies the fitted parameters.
func (m *SVDModel) Fingerprint() string {
	return m.fingerprint
}

// VocabFingerprint identifies the vocabulary the model was fitted on.
func (m *SVDModel) VocabFingerprint() string {
	return m.vocabFP
}

func (m *SVDModel) computeFingerprint() string {
	terms, k := m.projection.Dims()
	h := sha256.New()
	h.Write([]byte(m.vocabFP))
	var buf [8]byte
	for _, n := range []int{terms, k} {
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	for i := 0; i < terms; i++ {
		for _, v := range m.projection.RawRowView(i) {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Save writes the model to path.
func (m *SVDModel) Save(path string) error {
	terms, k := m.projection.Dims()
	data := make([]float64, 0, terms*k)
	for i := 0; i < terms; i++ {
		data = append(data, m.projection.RawRowView(i)...)
	}
	return store.Save(path, store.KindModel, state{
		Terms:            terms,
		Rank:             k,
		Projection:       data,
		Singular:         m.singular,
		VocabFingerprint: m.vocabFP,
	})
}

// Load reads a model written by Save.
func Load(path string) (*SVDModel, error) {
	var st state
	if err := store.Load(path, store.KindModel, &st); err != nil {
		return nil, err
	}
	if st.Terms < 1 || st.Rank < 1 || len(st.Projection) != st.Terms*st.Rank || len(st.Singular) != st.Rank {
		return nil, errs.Persistence("load", path,
			fmt.Errorf("inconsistent model shape %dx%d with %d values", st.Terms, st.Rank, len(st.Projection)))
	}
	return newSVDModel(mat.NewDense(st.Terms, st.Rank, st.Projection), st.Singular, st.VocabFingerprint), nil
}
