package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/chriscorrea/licmatch/internal/config"
	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/extract"
	"github.com/chriscorrea/licmatch/internal/fetch"
	"github.com/chriscorrea/licmatch/internal/licenses"
	"github.com/chriscorrea/licmatch/internal/rank"
)

// MatchOptions describes the query document.
type MatchOptions struct {
	Source     string // path, URL, or "-" for stdin
	Selector   string // CSS selector applied to HTML sources
	IncludeAll bool   // skip readability extraction for HTML sources
}

// MatchReport is the outcome of a match.
type MatchReport struct {
	Source string        `json:"source"`
	Best   rank.Result   `json:"best"`
	Rules  string        `json:"rules"`
	Ranked []rank.Result `json:"ranked"`
	// RulesMissing is set when the catalog has no rules file for Best.
	RulesMissing bool `json:"rules_missing,omitempty"`
}

// Match ranks the query document against the stored corpus and pairs the best
// match with its rules text. Ranked is cut to cfg.Top entries.
func Match(ctx context.Context, cfg *config.Config, opts MatchOptions) (*MatchReport, error) {
	text, err := readQuery(ctx, opts)
	if err != nil {
		return nil, err
	}

	a, err := loadQueryArtifacts(cfg.Artifacts())
	if err != nil {
		return nil, err
	}
	n, err := newNormalizer(cfg)
	if err != nil {
		return nil, err
	}
	matcher, err := rank.NewMatcher(n, a.vocabulary, a.model, a.index)
	if err != nil {
		return nil, fmt.Errorf("stores in %s are inconsistent, run build: %w", cfg.ArtifactsDir, err)
	}

	results, err := matcher.Rank(text)
	if err != nil {
		return nil, err
	}

	top, err := rank.Top(results)
	if err != nil {
		return nil, err
	}
	// Only the winner's rules file is read.
	rules := make(map[string]string, 1)
	ruleText, err := licenses.Rules(ctx, cfg.LicensesDir, cfg.RulesSuffix, top.Name)
	switch {
	case err == nil:
		rules[top.Name] = ruleText
	case !errors.Is(err, errs.ErrRulesNotFound):
		return nil, err
	}

	report := &MatchReport{Source: opts.Source, Ranked: results[:min(cfg.Top, len(results))]}
	best, ruleText, err := rank.TopRules(results, rules)
	switch {
	case errors.Is(err, errs.ErrRulesNotFound):
		slog.Debug("No rules for best match", "name", best.Name, "dir", cfg.LicensesDir)
		report.RulesMissing = true
	case err != nil:
		return nil, err
	}
	report.Best = best
	report.Rules = ruleText
	return report, nil
}

// readQuery fetches the query and extracts text from HTML.
func readQuery(ctx context.Context, opts MatchOptions) (string, error) {
	source := opts.Source
	if source == "" {
		source = "-"
	}
	src, err := fetch.Open(ctx, source)
	if err != nil {
		return "", err
	}
	defer src.Body.Close()

	raw, err := io.ReadAll(src.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", src.Name, err)
	}

	text, err := extract.Text(raw, src.MediaType, extract.Options{
		Selector:   opts.Selector,
		IncludeAll: opts.IncludeAll,
		BaseURL:    src.URL,
	})
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", src.Name, err)
	}
	slog.Debug("Query read", "source", src.Name, "mediaType", src.MediaType, "bytes", len(raw), "chars", len(text))
	return text, nil
}

// WriteMatch prints report in format.
func WriteMatch(w io.Writer, report *MatchReport, format OutputFormat) error {
	if format == JSON {
		return writeJSON(w, report)
	}

	fmt.Fprintf(w, "Best match: %s (score %.4f)\n\n", report.Best.Name, report.Best.Score)
	if report.RulesMissing {
		fmt.Fprintf(w, "No rules file for %s.\n\n", report.Best.Name)
	} else {
		fmt.Fprintf(w, "Rules:\n%s\n\n", strings.TrimRight(report.Rules, "\n"))
	}

	fmt.Fprintln(w, "Ranking:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, r := range report.Ranked {
		fmt.Fprintf(tw, "  %d.\t%s\t%.4f\n", i+1, r.Name, r.Score)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
