// Package normalize turns raw license text into the token sequence the rest of
// the pipeline counts.
//
// Normalization runs in a fixed order:
//  1. lowercase and strip markup tags
//  2. split on every non-letter rune (punctuation and digits disappear)
//  3. drop stop words and tokens shorter than the minimum length
//  4. stem with the Snowball English (Porter2) stemmer, repeating until the
//     stem stops changing ("agreed" -> "agre" -> "agr")
//  5. drop stems that are stop words or too short
//
// Steps 4 and 5 make the output a fixed point: normalizing the joined output
// of Normalize yields the same tokens again.
//
// Usage Example:
//
//	n := normalize.New(normalize.DefaultStopwords(), normalize.DefaultMinLength)
//	tokens := n.Normalize("Permission is hereby granted, free of charge")
//	// [permiss grant free charg]
package normalize

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// DefaultMinLength is the shortest token kept.
const DefaultMinLength = 3

//go:embed stopwords.txt
var defaultStopwordData string

var (
	defaultStopwords     map[string]struct{}
	defaultStopwordsOnce sync.Once
)

// tagRegex matches markup tags such as <p> or </copyright>
var tagRegex = regexp.MustCompile(`<[^>]*>`)

// Normalizer converts text into normalized tokens. It is safe for concurrent use.
type Normalizer struct {
	stopwords map[string]struct{}
	minLength int
}

// New creates a Normalizer using the given stop word set. A nil set disables
// stop word removal; minLength below 1 is treated as 1.
func New(stopwords map[string]struct{}, minLength int) *Normalizer {
	if minLength < 1 {
		minLength = 1
	}
	if stopwords == nil {
		stopwords = map[string]struct{}{}
	}
	return &Normalizer{stopwords: stopwords, minLength: minLength}
}

// Default returns a Normalizer with the embedded stop words and DefaultMinLength.
func Default() *Normalizer {
	return New(DefaultStopwords(), DefaultMinLength)
}

// Normalize returns the normalized tokens of text. Empty input yields an empty slice.
func (n *Normalizer) Normalize(text string) []string {
	tokens := []string{}
	if strings.TrimSpace(text) == "" {
		return tokens
	}

	text = tagRegex.ReplaceAllString(strings.ToLower(text), " ")
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, word := range words {
		if !n.keep(word) {
			continue
		}
		stemmed := stem(word)
		if !n.keep(stemmed) {
			continue
		}
		tokens = append(tokens, stemmed)
	}

	slog.Debug("Text normalized", "words", len(words), "tokens", len(tokens))
	return tokens
}

// stem applies the Porter2 stemmer until its output is stable. A pass never
// lengthens the word, so len(word) passes bound the loop.
func stem(word string) string {
	s := word
	for i := 0; i < len(word)+1; i++ {
		next := english.Stem(s, true)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// keep reports whether a word survives the length and stop word filters.
func (n *Normalizer) keep(word string) bool {
	if len([]rune(word)) < n.minLength {
		return false
	}
	_, stop := n.stopwords[word]
	return !stop
}

// DefaultStopwords returns the embedded English stop word set.
// The returned map is shared and must not be modified.
func DefaultStopwords() map[string]struct{} {
	defaultStopwordsOnce.Do(func() {
		words, err := LoadStopwords(strings.NewReader(defaultStopwordData))
		if err != nil {
			// embedded data is read from memory and cannot fail to scan
			panic(fmt.Sprintf("normalize: parsing embedded stop words: %v", err))
		}
		defaultStopwords = words
	})
	return defaultStopwords
}

// LoadStopwords reads a stop word list: one word per line, blank lines and
// lines starting with '#' ignored. Words are lowercased.
func LoadStopwords(r io.Reader) (map[string]struct{}, error) {
	words := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stop words: %w", err)
	}
	return words, nil
}
