package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chriscorrea/licmatch/internal/config"
	"github.com/chriscorrea/licmatch/internal/corpus"
	"github.com/chriscorrea/licmatch/internal/licenses"
	"github.com/chriscorrea/licmatch/internal/lsa"
	"github.com/chriscorrea/licmatch/internal/simindex"
	"github.com/chriscorrea/licmatch/internal/spinner"
	"github.com/chriscorrea/licmatch/internal/vectorize"
)

// BuildOptions controls Build and Refit.
type BuildOptions struct {
	// Progress, when non-nil, receives a spinner while the build runs.
	Progress io.Writer
}

// BuildReport summarizes written stores.
type BuildReport struct {
	Documents        int              `json:"documents"`
	Terms            int              `json:"terms"`
	NonZero          int              `json:"non_zero"`
	Rank             int              `json:"rank"`
	VocabFingerprint string           `json:"vocabulary_fingerprint"`
	ModelFingerprint string           `json:"model_fingerprint"`
	Artifacts        config.Artifacts `json:"artifacts"`
}

// Build reads the license catalog and writes all four stores.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*BuildReport, error) {
	sp := newProgress(ctx, opts.Progress, "Reading licenses...")
	sp.Start()
	defer sp.Stop()

	n, err := newNormalizer(cfg)
	if err != nil {
		return nil, err
	}

	catalog, err := licenses.Load(ctx, cfg.LicensesDir, cfg.RulesSuffix)
	if err != nil {
		return nil, err
	}

	b := corpus.NewBuilder(n)
	for _, name := range catalog.Names {
		if err := b.Add(name, catalog.Texts[name]); err != nil {
			return nil, err
		}
	}

	sp.Update(fmt.Sprintf("Normalizing %d licenses...", b.Len()))
	c, err := b.Build(ctx, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("building corpus from %s: %w", cfg.LicensesDir, err)
	}

	paths := cfg.Artifacts()
	if err := os.MkdirAll(cfg.ArtifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifacts directory: %w", err)
	}
	if err := c.Vocabulary.Save(paths.Vocabulary); err != nil {
		return nil, err
	}
	if err := vectorize.SaveMatrix(paths.Matrix, c.Matrix); err != nil {
		return nil, err
	}

	return fitAndIndex(ctx, sp, c.Matrix, cfg, paths)
}

// Refit re-fits the model and rebuilds the index from the stored vocabulary and
// matrix, leaving both unchanged.
func Refit(ctx context.Context, cfg *config.Config, opts BuildOptions) (*BuildReport, error) {
	sp := newProgress(ctx, opts.Progress, "Loading corpus...")
	sp.Start()
	defer sp.Stop()

	paths := cfg.Artifacts()
	a, err := loadCorpusArtifacts(paths)
	if err != nil {
		return nil, err
	}
	return fitAndIndex(ctx, sp, a.matrix, cfg, paths)
}

func fitAndIndex(ctx context.Context, sp *spinner.Spinner, m *vectorize.Matrix, cfg *config.Config, paths config.Artifacts) (*BuildReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := resolveRank(cfg.Rank, m)
	sp.Update(fmt.Sprintf("Fitting rank %d model...", k))
	model, err := lsa.Fit(m, k)
	if err != nil {
		return nil, err
	}

	sp.Update("Indexing...")
	idx, err := simindex.Build(model, m.Names, m.Rows)
	if err != nil {
		return nil, err
	}

	if err := model.Save(paths.Model); err != nil {
		return nil, err
	}
	if err := idx.Save(paths.Index); err != nil {
		return nil, err
	}

	slog.Debug("Stores written", "dir", cfg.ArtifactsDir, "documents", m.NumDocs(), "rank", k)
	return &BuildReport{
		Documents:        m.NumDocs(),
		Terms:            m.NumTerms,
		NonZero:          m.NNZ(),
		Rank:             k,
		VocabFingerprint: m.VocabFingerprint,
		ModelFingerprint: model.Fingerprint(),
		Artifacts:        paths,
	}, nil
}

func newProgress(ctx context.Context, w io.Writer, msg string) *spinner.Spinner {
	if w == nil {
		return nil
	}
	return spinner.New(ctx, w, msg)
}
