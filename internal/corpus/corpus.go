// Package corpus ingests named documents and turns them into a vocabulary and a
// term-document matrix.
package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/normalize"
	"github.com/chriscorrea/licmatch/internal/vectorize"
	"github.com/chriscorrea/licmatch/internal/vocab"
)

// DefaultWorkers bounds concurrent normalization when none is configured.
const DefaultWorkers = 4

type document struct {
	name    string
	content string
}

// Builder collects documents in insertion order.
type Builder struct {
	normalizer *normalize.Normalizer
	docs       []document
	seen       map[string]struct{}
}

// Corpus is a built corpus: document names, their normalized tokens, the
// vocabulary over those tokens, and the term-document matrix.
type Corpus struct {
	Names      []string
	Tokens     [][]string
	Vocabulary *vocab.Vocabulary
	Matrix     *vectorize.Matrix
}

// NewBuilder returns an empty Builder that normalizes with n.
func NewBuilder(n *normalize.Normalizer) *Builder {
	return &Builder{
		normalizer: n,
		seen:       make(map[string]struct{}),
	}
}

// Add appends a document. Names must be unique.
func (b *Builder) Add(name, content string) error {
	if name == "" {
		return fmt.Errorf("document name must not be empty")
	}
	if _, dup := b.seen[name]; dup {
		return fmt.Errorf("document %q: %w", name, errs.ErrDuplicateDocument)
	}
	b.seen[name] = struct{}{}
	b.docs = append(b.docs, document{name: name, content: content})
	return nil
}

// Len returns the number of documents added so far.
func (b *Builder) Len() int {
	return len(b.docs)
}

// Build normalizes every document with up to workers goroutines, then assigns
// vocabulary ids and counts terms in insertion order.
func (b *Builder) Build(ctx context.Context, workers int) (*Corpus, error) {
	if len(b.docs) == 0 {
		return nil, fmt.Errorf("building corpus: %w", errs.ErrEmptyCorpus)
	}
	if workers < 1 {
		workers = DefaultWorkers
	}

	tokens := make([][]string, len(b.docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range b.docs {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("normalizing %q: %w", d.name, err)
			}
			tokens[i] = b.normalizer.Normalize(d.content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v := vocab.Build(tokens)
	names := make([]string, len(b.docs))
	rows := make([]vectorize.SparseVector, len(b.docs))
	for i, d := range b.docs {
		names[i] = d.name
		rows[i] = vectorize.Vectorize(tokens[i], v)
		if rows[i].Len() == 0 {
			slog.Debug("Document has no indexable terms", "name", d.name)
		}
	}

	m := &vectorize.Matrix{
		Names:            names,
		NumTerms:         v.Len(),
		VocabFingerprint: v.Fingerprint(),
		Rows:             rows,
	}
	slog.Debug("Corpus built", "documents", len(names), "terms", v.Len(), "nnz", m.NNZ())
	return &Corpus{Names: names, Tokens: tokens, Vocabulary: v, Matrix: m}, nil
}
