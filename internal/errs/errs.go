// Package errs defines the error kinds shared by the licmatch pipeline.
//
// Every failure is fatal for the operation that detects it: callers wrap these
// sentinels with context and return immediately. Use errors.Is to classify.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence indicates an artifact store could not be read or written,
	// or its content is corrupt or truncated.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidRank indicates a requested latent dimension outside [1, min(docs, terms)].
	ErrInvalidRank = errors.New("invalid rank")

	// ErrEmptyCorpus indicates there are no documents to rank against.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrVocabularyMismatch indicates a model, matrix or index was built from a
	// different vocabulary than the one supplied.
	ErrVocabularyMismatch = errors.New("vocabulary mismatch")

	// ErrStaleIndex indicates the similarity index was built from a different model.
	ErrStaleIndex = errors.New("index built from a different model")

	// ErrDuplicateDocument indicates a document name was added to a corpus twice.
	ErrDuplicateDocument = errors.New("duplicate document")

	// ErrDimensionMismatch indicates a vector whose length does not match the index.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrRulesNotFound indicates no rules text is paired with a license name.
	ErrRulesNotFound = errors.New("rules not found")

	// ErrFactorization indicates the singular value decomposition did not converge.
	ErrFactorization = errors.New("factorization failed")
)

// PersistenceError reports a failed artifact operation.
type PersistenceError struct {
	Op   string // "save" or "load"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is reports ErrPersistence so callers need not know the concrete type.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Persistence wraps err as a PersistenceError for the given operation and path.
func Persistence(op, path string, err error) error {
	return &PersistenceError{Op: op, Path: path, Err: err}
}
