package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/chriscorrea/licmatch/internal/config"
	"github.com/chriscorrea/licmatch/internal/rank"
)

// Inspection describes the stored corpus and model.
type Inspection struct {
	Documents        []string  `json:"documents"`
	Terms            int       `json:"terms"`
	NonZero          int       `json:"non_zero"`
	Rank             int       `json:"rank"`
	SingularValues   []float64 `json:"singular_values"`
	VocabFingerprint string    `json:"vocabulary_fingerprint"`
	ModelFingerprint string    `json:"model_fingerprint"`
	// Problem is empty when matrix, model and index all match the vocabulary.
	Problem string `json:"problem,omitempty"`
}

// Inspect loads every store and reports their contents and consistency.
func Inspect(cfg *config.Config) (*Inspection, error) {
	paths := cfg.Artifacts()
	corpus, err := loadCorpusStores(paths)
	if err != nil {
		return nil, err
	}
	query, err := loadQueryArtifacts(paths)
	if err != nil {
		return nil, err
	}

	in := &Inspection{
		Documents:        corpus.matrix.Names,
		Terms:            corpus.vocabulary.Len(),
		NonZero:          corpus.matrix.NNZ(),
		Rank:             query.model.Rank(),
		SingularValues:   query.model.SingularValues(),
		VocabFingerprint: corpus.vocabulary.Fingerprint(),
		ModelFingerprint: query.model.Fingerprint(),
	}

	n, err := newNormalizer(cfg)
	if err != nil {
		return nil, err
	}
	if err := checkCorpus(paths, corpus); err != nil {
		in.Problem = err.Error()
	} else if _, err := rank.NewMatcher(n, query.vocabulary, query.model, query.index); err != nil {
		in.Problem = err.Error()
	}
	return in, nil
}

// WriteInspection prints in in format.
func WriteInspection(w io.Writer, in *Inspection, format OutputFormat) error {
	if format == JSON {
		return writeJSON(w, in)
	}

	fmt.Fprintf(w, "Documents:   %d\n", len(in.Documents))
	fmt.Fprintf(w, "Terms:       %d\n", in.Terms)
	fmt.Fprintf(w, "Non-zero:    %d\n", in.NonZero)
	fmt.Fprintf(w, "Rank:        %d\n", in.Rank)
	fmt.Fprintf(w, "Vocabulary:  %s\n", in.VocabFingerprint)
	fmt.Fprintf(w, "Model:       %s\n", in.ModelFingerprint)

	values := make([]string, len(in.SingularValues))
	for i, v := range in.SingularValues {
		values[i] = fmt.Sprintf("%.3f", v)
	}
	fmt.Fprintf(w, "Singular values: %s\n", strings.Join(values, " "))
	fmt.Fprintf(w, "Licenses: %s\n", strings.Join(in.Documents, ", "))

	if in.Problem != "" {
		fmt.Fprintf(w, "Problem: %s\n", in.Problem)
	} else {
		fmt.Fprintln(w, "Stores are consistent.")
	}
	return nil
}
