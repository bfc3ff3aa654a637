// Package vocab assigns stable integer ids to normalized tokens.
//
// Ids are dense and 0-based, handed out in first-seen order while scanning a
// corpus in document order, so building twice from the same corpus yields the
// same mapping. A Vocabulary is immutable once built.
package vocab

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/store"
)

// Vocabulary maps tokens to ids and back.
type Vocabulary struct {
	tokens      []string       // id -> token
	ids         map[string]int // token -> id
	fingerprint string
}

// state is the persisted form; ids are implied by position.
type state struct {
	Tokens []string
}

// Build scans every document's tokens in order and assigns each unseen token the next id.
func Build(corpus [][]string) *Vocabulary {
	var tokens []string
	ids := make(map[string]int)
	for _, doc := range corpus {
		for _, tok := range doc {
			if _, seen := ids[tok]; seen {
				continue
			}
			ids[tok] = len(tokens)
			tokens = append(tokens, tok)
		}
	}

	v := newVocabulary(tokens, ids)
	slog.Debug("Vocabulary built", "documents", len(corpus), "size", v.Len())
	return v
}

// FromTokens creates a vocabulary whose ids are the positions in tokens.
// Duplicate tokens are rejected.
func FromTokens(tokens []string) (*Vocabulary, error) {
	ids := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		if _, dup := ids[tok]; dup {
			return nil, fmt.Errorf("duplicate token %q at id %d", tok, i)
		}
		ids[tok] = i
	}
	return newVocabulary(append([]string(nil), tokens...), ids), nil
}

func newVocabulary(tokens []string, ids map[string]int) *Vocabulary {
	if tokens == nil {
		tokens = []string{}
	}
	return &Vocabulary{
		tokens:      tokens,
		ids:         ids,
		fingerprint: fingerprint(tokens),
	}
}

// ID returns the id of tok and whether it is known.
func (v *Vocabulary) ID(tok string) (int, bool) {
	id, ok := v.ids[tok]
	return id, ok
}

// Token returns the token with the given id and whether the id is in range.
func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Len returns the number of distinct tokens.
func (v *Vocabulary) Len() int {
	return len(v.tokens)
}

// Tokens returns a copy of all tokens in id order.
func (v *Vocabulary) Tokens() []string {
	return append([]string(nil), v.tokens...)
}

// Fingerprint identifies this exact id<->token mapping. Artifacts derived from
// the vocabulary store it so a mismatched pairing can be detected.
func (v *Vocabulary) Fingerprint() string {
	return v.fingerprint
}

// Save writes the vocabulary to path.
func (v *Vocabulary) Save(path string) error {
	return store.Save(path, store.KindVocabulary, state{Tokens: v.tokens})
}

// Load reads a vocabulary written by Save.
func Load(path string) (*Vocabulary, error) {
	var st state
	if err := store.Load(path, store.KindVocabulary, &st); err != nil {
		return nil, err
	}
	v, err := FromTokens(st.Tokens)
	if err != nil {
		return nil, errs.Persistence("load", path, err)
	}
	return v, nil
}

// fingerprint hashes tokens in id order, each terminated by a newline.
func fingerprint(tokens []string) string {
	h := sha256.New()
	for _, tok := range tokens {
		h.Write([]byte(tok))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
