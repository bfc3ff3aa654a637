package rank

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/lsa"
	"github.com/chriscorrea/licmatch/internal/normalize"
	"github.com/chriscorrea/licmatch/internal/simindex"
	"github.com/chriscorrea/licmatch/internal/vectorize"
	"github.com/chriscorrea/licmatch/internal/vocab"
)

type doc struct {
	name, text string
}

type pipeline struct {
	normalizer *normalize.Normalizer
	vocabulary *vocab.Vocabulary
	model      *lsa.SVDModel
	index      *simindex.Index
	matrix     *vectorize.Matrix
}

// buildPipeline fits a model of rank k over docs, in order.
func buildPipeline(t *testing.T, docs []doc, k int) *pipeline {
	t.Helper()
	n := normalize.Default()

	tokens := make([][]string, len(docs))
	names := make([]string, len(docs))
	for i, d := range docs {
		tokens[i] = n.Normalize(d.text)
		names[i] = d.name
	}
	v := vocab.Build(tokens)

	m := &vectorize.Matrix{Names: names, NumTerms: v.Len(), VocabFingerprint: v.Fingerprint()}
	for _, toks := range tokens {
		m.Rows = append(m.Rows, vectorize.Vectorize(toks, v))
	}

	model, err := lsa.Fit(m, k)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	idx, err := simindex.Build(model, names, m.Rows)
	if err != nil {
		t.Fatalf("simindex.Build() error = %v", err)
	}
	return &pipeline{normalizer: n, vocabulary: v, model: model, index: idx, matrix: m}
}

func (p *pipeline) matcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher(p.normalizer, p.vocabulary, p.model, p.index)
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	return m
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("reading fixture %s: %v", name, err)
	}
	return string(b)
}

func licenseCorpus(t *testing.T) ([]doc, map[string]string) {
	t.Helper()
	docs := []doc{
		{name: "MIT", text: readFixture(t, "MIT.txt")},
		{name: "Apache-2.0", text: readFixture(t, "Apache-2.0.txt")},
	}
	rules := map[string]string{
		"MIT":        readFixture(t, "MIT-rules.txt"),
		"Apache-2.0": readFixture(t, "Apache-2.0-rules.txt"),
	}
	return docs, rules
}

func TestRankApacheExcerpt(t *testing.T) {
	docs, rules := licenseCorpus(t)
	m := buildPipeline(t, docs, 2).matcher(t)

	excerpt := `"Legal Entity" shall mean the union of the acting entity and all
      other entities that control, are controlled by, or are under common
      control with that entity.`

	results, err := m.Rank(excerpt)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Rank() returned %d results, want 2", len(results))
	}
	if results[0].Name != "Apache-2.0" {
		t.Fatalf("top result = %q, want Apache-2.0 (results %v)", results[0].Name, results)
	}
	if !(results[0].Score > results[1].Score) {
		t.Errorf("Apache-2.0 score %v not strictly above MIT score %v", results[0].Score, results[1].Score)
	}

	top, text, err := TopRules(results, rules)
	if err != nil {
		t.Fatalf("TopRules() error = %v", err)
	}
	if top.Name != "Apache-2.0" || top.Score != results[0].Score {
		t.Errorf("TopRules() = %v, want %v", top, results[0])
	}
	if text != rules["Apache-2.0"] {
		t.Errorf("TopRules() text = %q, want Apache-2.0 rules", text)
	}
}

func TestRankVerbatimDocument(t *testing.T) {
	docs, _ := licenseCorpus(t)
	m := buildPipeline(t, docs, 2).matcher(t)

	for _, d := range docs {
		t.Run(d.name, func(t *testing.T) {
			results, err := m.Rank(d.text)
			if err != nil {
				t.Fatalf("Rank() error = %v", err)
			}
			if results[0].Name != d.name {
				t.Errorf("top result = %q, want %q", results[0].Name, d.name)
			}
			if math.Abs(results[0].Score-1) > 1e-9 {
				t.Errorf("self score = %v, want 1", results[0].Score)
			}
		})
	}
}

func TestRankTiesKeepCorpusOrder(t *testing.T) {
	docs := []doc{
		{name: "zeta", text: "apple banana cherry"},
		{name: "alpha", text: "apple banana cherry"},
		{name: "middle", text: "delta echo foxtrot"},
	}
	m := buildPipeline(t, docs, 2).matcher(t)

	results, err := m.Rank("apple banana")
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	got := []string{results[0].Name, results[1].Name, results[2].Name}
	want := []string{"zeta", "alpha", "middle"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("result order = %v, want %v", got, want)
	}
	if results[0].Score != results[1].Score {
		t.Errorf("identical documents scored %v and %v", results[0].Score, results[1].Score)
	}
}

func TestRankOutOfVocabularyQuery(t *testing.T) {
	docs, _ := licenseCorpus(t)
	m := buildPipeline(t, docs, 2).matcher(t)

	results, err := m.Rank("zebra quokka xylophone 12345 !!!")
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Rank() returned %d results, want 2", len(results))
	}
	for i, r := range results {
		if r.Score != 0 || math.IsNaN(r.Score) {
			t.Errorf("%s scored %v, want 0", r.Name, r.Score)
		}
		if r.Name != docs[i].name {
			t.Errorf("results[%d] = %q, want corpus order %q", i, r.Name, docs[i].name)
		}
	}
}

func TestRankEmptyCorpus(t *testing.T) {
	docs, _ := licenseCorpus(t)
	p := buildPipeline(t, docs, 1)

	empty, err := simindex.Build(p.model, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMatcher(p.normalizer, p.vocabulary, p.model, empty)
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	if _, err := m.Rank("anything"); !errors.Is(err, errs.ErrEmptyCorpus) {
		t.Errorf("Rank() error = %v, want ErrEmptyCorpus", err)
	}
}

func TestNewMatcherMismatch(t *testing.T) {
	docs, _ := licenseCorpus(t)
	p := buildPipeline(t, docs, 2)

	t.Run("different vocabulary", func(t *testing.T) {
		other := buildPipeline(t, []doc{{name: "x", text: "apple banana"}, {name: "y", text: "cherry"}}, 1)
		_, err := NewMatcher(p.normalizer, other.vocabulary, p.model, p.index)
		if !errors.Is(err, errs.ErrVocabularyMismatch) {
			t.Errorf("NewMatcher() error = %v, want ErrVocabularyMismatch", err)
		}
	})

	t.Run("index from another model", func(t *testing.T) {
		refit, err := lsa.Fit(p.matrix, 1)
		if err != nil {
			t.Fatal(err)
		}
		_, err = NewMatcher(p.normalizer, p.vocabulary, refit, p.index)
		if !errors.Is(err, errs.ErrStaleIndex) {
			t.Errorf("NewMatcher() error = %v, want ErrStaleIndex", err)
		}
	})
}

func TestTop(t *testing.T) {
	if _, err := Top(nil); !errors.Is(err, errs.ErrEmptyCorpus) {
		t.Errorf("Top(nil) error = %v, want ErrEmptyCorpus", err)
	}

	results := []Result{{Name: "GPL-3.0", Score: 0.9}, {Name: "MIT", Score: 0.2}}
	top, err := Top(results)
	if err != nil || top != results[0] {
		t.Errorf("Top() = %v, %v; want %v", top, err, results[0])
	}

	_, _, err = TopRules(results, map[string]string{"MIT": "rules"})
	if !errors.Is(err, errs.ErrRulesNotFound) {
		t.Errorf("TopRules() error = %v, want ErrRulesNotFound", err)
	}
}

func TestSort(t *testing.T) {
	scores := []simindex.Score{
		{Name: "a", Score: 0.1},
		{Name: "b", Score: 0.5},
		{Name: "c", Score: 0.1},
		{Name: "d", Score: 0.9},
	}
	got := Sort(scores)
	want := []string{"d", "b", "a", "c"}
	for i, r := range got {
		if r.Name != want[i] {
			t.Errorf("Sort()[%d] = %q, want %q", i, r.Name, want[i])
		}
	}
}
