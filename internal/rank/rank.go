// Package rank runs a query document through the pipeline and orders the corpus
// by similarity to it.
//
// Pipeline: normalize -> vectorize -> model transform -> index query -> stable
// sort by descending score. Documents with equal scores keep their corpus order.
package rank

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/lsa"
	"github.com/chriscorrea/licmatch/internal/normalize"
	"github.com/chriscorrea/licmatch/internal/simindex"
	"github.com/chriscorrea/licmatch/internal/vectorize"
	"github.com/chriscorrea/licmatch/internal/vocab"
)

// Result is a ranked corpus document.
type Result struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Matcher ranks query texts against one consistent set of artifacts.
type Matcher struct {
	normalizer *normalize.Normalizer
	vocabulary *vocab.Vocabulary
	model      lsa.Model
	index      *simindex.Index
}

// NewMatcher checks that model and index derive from vocabulary (and index from
// model) before pairing them.
func NewMatcher(n *normalize.Normalizer, v *vocab.Vocabulary, model lsa.Model, idx *simindex.Index) (*Matcher, error) {
	if model.VocabFingerprint() != v.Fingerprint() || model.NumTerms() != v.Len() {
		return nil, fmt.Errorf("model fitted on vocabulary %.12s (%d terms), have %.12s (%d terms): %w",
			model.VocabFingerprint(), model.NumTerms(), v.Fingerprint(), v.Len(), errs.ErrVocabularyMismatch)
	}
	if idx.VocabFingerprint() != v.Fingerprint() {
		return nil, fmt.Errorf("index built on vocabulary %.12s, have %.12s: %w",
			idx.VocabFingerprint(), v.Fingerprint(), errs.ErrVocabularyMismatch)
	}
	if idx.ModelFingerprint() != model.Fingerprint() || idx.Dim() != model.Rank() {
		return nil, fmt.Errorf("index built from model %.12s, have %.12s: %w",
			idx.ModelFingerprint(), model.Fingerprint(), errs.ErrStaleIndex)
	}
	return &Matcher{normalizer: n, vocabulary: v, model: model, index: idx}, nil
}

// Rank scores query against every indexed document, best first.
func (m *Matcher) Rank(query string) ([]Result, error) {
	if m.index.Len() == 0 {
		return nil, fmt.Errorf("ranking query: %w", errs.ErrEmptyCorpus)
	}

	tokens := m.normalizer.Normalize(query)
	vec := vectorize.Vectorize(tokens, m.vocabulary)
	latent := m.model.Transform(vec)

	scores, err := m.index.Query(latent)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	slog.Debug("Query ranked", "tokens", len(tokens), "knownTerms", vec.Len(), "documents", len(scores))
	return Sort(scores), nil
}

// Sort pairs scores into results ordered by descending score, ties in input order.
func Sort(scores []simindex.Score) []Result {
	results := make([]Result, len(scores))
	for i, s := range scores {
		results[i] = Result{Name: s.Name, Score: s.Score}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Top returns the best result.
func Top(results []Result) (Result, error) {
	if len(results) == 0 {
		return Result{}, errs.ErrEmptyCorpus
	}
	return results[0], nil
}

// TopRules returns the best result with the rules text paired to its name.
func TopRules(results []Result, rules map[string]string) (Result, string, error) {
	top, err := Top(results)
	if err != nil {
		return Result{}, "", err
	}
	text, ok := rules[top.Name]
	if !ok {
		return top, "", fmt.Errorf("license %q: %w", top.Name, errs.ErrRulesNotFound)
	}
	return top, text, nil
}
