package corpus

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/normalize"
)

func TestBuilderAdd(t *testing.T) {
	b := NewBuilder(normalize.Default())

	if err := b.Add("MIT", "permission is hereby granted"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := b.Add("MIT", "other text"); !errors.Is(err, errs.ErrDuplicateDocument) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicateDocument", err)
	}
	if err := b.Add("", "text"); err == nil {
		t.Errorf("Add(empty name) expected error, got nil")
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}

func TestBuild(t *testing.T) {
	b := NewBuilder(normalize.Default())
	docs := []struct{ name, text string }{
		{"MIT", "Permission granted free of charge; permission notice."},
		{"ISC", "Permission to use, copy, modify."},
		{"Empty", "the and of 42"},
	}
	for _, d := range docs {
		if err := b.Add(d.name, d.text); err != nil {
			t.Fatal(err)
		}
	}

	c, err := b.Build(context.Background(), 2)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantNames := []string{"MIT", "ISC", "Empty"}
	if !reflect.DeepEqual(c.Names, wantNames) || !reflect.DeepEqual(c.Matrix.Names, wantNames) {
		t.Errorf("Names = %v / %v, want %v", c.Names, c.Matrix.Names, wantNames)
	}

	wantTokens := [][]string{
		{"permiss", "grant", "free", "charg", "permiss", "notic"},
		{"permiss", "use", "copi", "modifi"},
		{},
	}
	if !reflect.DeepEqual(c.Tokens, wantTokens) {
		t.Errorf("Tokens = %v, want %v", c.Tokens, wantTokens)
	}

	wantVocab := []string{"permiss", "grant", "free", "charg", "notic", "use", "copi", "modifi"}
	if !reflect.DeepEqual(c.Vocabulary.Tokens(), wantVocab) {
		t.Errorf("Vocabulary = %v, want %v", c.Vocabulary.Tokens(), wantVocab)
	}

	if c.Matrix.NumTerms != len(wantVocab) || c.Matrix.VocabFingerprint != c.Vocabulary.Fingerprint() {
		t.Errorf("Matrix terms/fingerprint = %d/%s", c.Matrix.NumTerms, c.Matrix.VocabFingerprint)
	}
	if got := c.Matrix.Rows[0].Count(0); got != 2 {
		t.Errorf("MIT count of %q = %v, want 2", "permiss", got)
	}
	if c.Matrix.Rows[2].Len() != 0 {
		t.Errorf("stopword-only document has %d terms, want 0", c.Matrix.Rows[2].Len())
	}
	if c.Matrix.NNZ() != 9 {
		t.Errorf("NNZ() = %d, want 9", c.Matrix.NNZ())
	}
}

func TestBuildDeterministic(t *testing.T) {
	build := func(workers int) []string {
		b := NewBuilder(normalize.Default())
		for _, d := range []struct{ name, text string }{
			{"a", "redistribution source binary forms"},
			{"b", "patent grant contributor"},
			{"c", "copyleft source distribution binary"},
			{"d", "warranty liability damages"},
		} {
			if err := b.Add(d.name, d.text); err != nil {
				t.Fatal(err)
			}
		}
		c, err := b.Build(context.Background(), workers)
		if err != nil {
			t.Fatal(err)
		}
		return c.Vocabulary.Tokens()
	}

	first := build(1)
	for _, workers := range []int{0, 2, 8} {
		if got := build(workers); !reflect.DeepEqual(got, first) {
			t.Errorf("Build(workers=%d) vocabulary = %v, want %v", workers, got, first)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	_, err := NewBuilder(normalize.Default()).Build(context.Background(), 1)
	if !errors.Is(err, errs.ErrEmptyCorpus) {
		t.Errorf("Build() error = %v, want ErrEmptyCorpus", err)
	}
}

func TestBuildCancelled(t *testing.T) {
	b := NewBuilder(normalize.Default())
	if err := b.Add("a", "some text"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Build(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}
