package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestPersistenceError(t *testing.T) {
	err := Persistence("load", "/tmp/corpus.dict", fs.ErrNotExist)
	wrapped := fmt.Errorf("loading vocabulary: %w", err)

	if !errors.Is(wrapped, ErrPersistence) {
		t.Errorf("errors.Is(%v, ErrPersistence) = false, want true", wrapped)
	}
	if !errors.Is(wrapped, fs.ErrNotExist) {
		t.Errorf("errors.Is(%v, fs.ErrNotExist) = false, want true", wrapped)
	}
	if errors.Is(wrapped, ErrInvalidRank) {
		t.Errorf("errors.Is(%v, ErrInvalidRank) = true, want false", wrapped)
	}

	var pe *PersistenceError
	if !errors.As(wrapped, &pe) {
		t.Fatalf("errors.As() failed for %v", wrapped)
	}
	if pe.Path != "/tmp/corpus.dict" || pe.Op != "load" {
		t.Errorf("PersistenceError = %+v, want op load and path /tmp/corpus.dict", pe)
	}
}
