// Package licenses discovers a license catalog on disk.
//
// A catalog directory holds one NAME.txt file per license and, optionally, a
// NAME<suffix>.txt rules file for it (suffix "-rules" by default).
package licenses

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/fetch"
)

// DefaultRulesSuffix marks rules files.
const DefaultRulesSuffix = "-rules"

// Catalog maps license names to their texts and rules.
type Catalog struct {
	// Names lists license names in sorted order.
	Names []string
	Texts map[string]string
	Rules map[string]string
}

// Name returns the license name for a catalog file path and whether the file
// holds rules.
func Name(path, rulesSuffix string) (name string, isRules bool) {
	name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if rulesSuffix != "" && strings.HasSuffix(name, rulesSuffix) && len(name) > len(rulesSuffix) {
		return strings.TrimSuffix(name, rulesSuffix), true
	}
	return name, false
}

// Load reads every *.txt file in dir. Any unreadable file fails the whole load.
func Load(ctx context.Context, dir, rulesSuffix string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening license directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("license path %q is not a directory", dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", dir, err)
	}
	sort.Strings(paths)

	c := &Catalog{
		Texts: make(map[string]string),
		Rules: make(map[string]string),
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := fetch.ReadAll(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("reading license file: %w", err)
		}

		name, isRules := Name(path, rulesSuffix)
		target := c.Texts
		if isRules {
			target = c.Rules
		}
		if _, dup := target[name]; dup {
			return nil, fmt.Errorf("license %q defined twice in %q", name, dir)
		}
		target[name] = text
	}

	for name := range c.Texts {
		c.Names = append(c.Names, name)
	}
	sort.Strings(c.Names)

	for name := range c.Rules {
		if _, ok := c.Texts[name]; !ok {
			slog.Debug("Rules file without license text", "name", name)
		}
	}
	slog.Debug("License catalog loaded", "dir", dir, "licenses", len(c.Texts), "rules", len(c.Rules))
	return c, nil
}

// Rules reads the rules file for one license without touching the rest of the
// catalog. A missing file yields ErrRulesNotFound.
func Rules(ctx context.Context, dir, rulesSuffix, name string) (string, error) {
	path := filepath.Join(dir, name+rulesSuffix+".txt")
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("license %q: %w", name, errs.ErrRulesNotFound)
	case err != nil:
		return "", fmt.Errorf("opening rules file: %w", err)
	case info.IsDir():
		return "", fmt.Errorf("rules path %q is a directory", path)
	}

	text, err := fetch.ReadAll(ctx, path)
	if err != nil {
		return "", fmt.Errorf("reading rules file: %w", err)
	}
	return text, nil
}
