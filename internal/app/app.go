// Package app contains the licmatch operations behind the CLI: building the
// artifact stores from a license catalog, re-fitting the model, matching a
// query document, and inspecting the stores.
package app

import (
	"fmt"
	"os"

	"github.com/chriscorrea/licmatch/internal/config"
	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/lsa"
	"github.com/chriscorrea/licmatch/internal/normalize"
	"github.com/chriscorrea/licmatch/internal/simindex"
	"github.com/chriscorrea/licmatch/internal/vectorize"
	"github.com/chriscorrea/licmatch/internal/vocab"
)

// OutputFormat defines how reports are printed.
type OutputFormat int

const (
	// Text is human-readable output (default).
	Text OutputFormat = iota
	// JSON output format
	JSON
)

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	switch f {
	case Text:
		return "Text"
	case JSON:
		return "JSON"
	default:
		return "Unknown"
	}
}

// newNormalizer builds the normalizer described by cfg. Build and Match must
// use the same settings.
func newNormalizer(cfg *config.Config) (*normalize.Normalizer, error) {
	if cfg.StopwordsFile == "" {
		return normalize.New(normalize.DefaultStopwords(), cfg.MinTokenLength), nil
	}

	f, err := os.Open(cfg.StopwordsFile)
	if err != nil {
		return nil, fmt.Errorf("opening stopwords file: %w", err)
	}
	defer f.Close()

	words, err := normalize.LoadStopwords(f)
	if err != nil {
		return nil, fmt.Errorf("reading stopwords file %q: %w", cfg.StopwordsFile, err)
	}
	return normalize.New(words, cfg.MinTokenLength), nil
}

// resolveRank turns the configured rank into a concrete one for m. Zero means
// DefaultRank capped to what the corpus supports.
func resolveRank(configured int, m *vectorize.Matrix) int {
	if configured == 0 {
		return min(lsa.DefaultRank, lsa.MaxRank(m))
	}
	return configured
}

// artifacts is a loaded set of stores.
type artifacts struct {
	vocabulary *vocab.Vocabulary
	matrix     *vectorize.Matrix
	model      *lsa.SVDModel
	index      *simindex.Index
}

// loadQueryArtifacts loads the stores needed to answer a query.
func loadQueryArtifacts(paths config.Artifacts) (*artifacts, error) {
	v, err := vocab.Load(paths.Vocabulary)
	if err != nil {
		return nil, err
	}
	model, err := lsa.Load(paths.Model)
	if err != nil {
		return nil, err
	}
	idx, err := simindex.Load(paths.Index)
	if err != nil {
		return nil, err
	}
	return &artifacts{vocabulary: v, model: model, index: idx}, nil
}

// loadCorpusArtifacts loads the vocabulary and matrix and checks they agree.
func loadCorpusArtifacts(paths config.Artifacts) (*artifacts, error) {
	a, err := loadCorpusStores(paths)
	if err != nil {
		return nil, err
	}
	if err := checkCorpus(paths, a); err != nil {
		return nil, err
	}
	return a, nil
}

// loadCorpusStores loads the vocabulary and matrix without comparing them.
func loadCorpusStores(paths config.Artifacts) (*artifacts, error) {
	v, err := vocab.Load(paths.Vocabulary)
	if err != nil {
		return nil, err
	}
	m, err := vectorize.LoadMatrix(paths.Matrix)
	if err != nil {
		return nil, err
	}
	return &artifacts{vocabulary: v, matrix: m}, nil
}

// checkCorpus returns ErrVocabularyMismatch when the matrix was counted
// against another vocabulary.
func checkCorpus(paths config.Artifacts, a *artifacts) error {
	if a.matrix.VocabFingerprint != a.vocabulary.Fingerprint() || a.matrix.NumTerms != a.vocabulary.Len() {
		return fmt.Errorf("matrix %s does not match vocabulary %s: %w",
			paths.Matrix, paths.Vocabulary, errs.ErrVocabularyMismatch)
	}
	return nil
}
