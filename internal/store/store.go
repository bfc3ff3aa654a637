// Package store persists licmatch artifacts (vocabulary, latent model, similarity index).
//
// Each artifact file holds a gob-encoded envelope:
//
//	header:  magic, artifact kind, format version, sha256 of the payload
//	payload: gzip-compressed gob encoding of the artifact state
//
// Writes go to a temporary file in the target directory and are renamed into
// place, so a crashed save never leaves a half-written artifact behind.
// Every failure is reported as an errs.PersistenceError.
package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chriscorrea/licmatch/internal/errs"
)

const (
	magic         = "licmatch"
	formatVersion = 1
)

// Artifact kinds.
const (
	KindVocabulary = "vocabulary"
	KindModel      = "lsi-model"
	KindIndex      = "similarity-index"
)

type header struct {
	Magic    string
	Kind     string
	Version  int
	Checksum string
}

type envelope struct {
	Header  header
	Payload []byte
}

// Save encodes state as an artifact of the given kind and writes it to path.
func Save(path, kind string, state any) error {
	var payload bytes.Buffer
	zw := gzip.NewWriter(&payload)
	if err := gob.NewEncoder(zw).Encode(state); err != nil {
		return errs.Persistence("save", path, fmt.Errorf("encoding %s: %w", kind, err))
	}
	if err := zw.Close(); err != nil {
		return errs.Persistence("save", path, fmt.Errorf("compressing %s: %w", kind, err))
	}

	env := envelope{
		Header: header{
			Magic:    magic,
			Kind:     kind,
			Version:  formatVersion,
			Checksum: checksum(payload.Bytes()),
		},
		Payload: payload.Bytes(),
	}

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(env); err != nil {
		return errs.Persistence("save", path, fmt.Errorf("encoding envelope: %w", err))
	}

	if err := WriteAtomic(path, out.Bytes()); err != nil {
		return errs.Persistence("save", path, err)
	}

	slog.Debug("Artifact saved", "kind", kind, "path", path, "bytes", out.Len())
	return nil
}

// Load reads the artifact at path, verifies its kind and checksum, and decodes
// the payload into state, which must be a pointer.
func Load(path, kind string, state any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Persistence("load", path, err)
	}

	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return errs.Persistence("load", path, fmt.Errorf("corrupt or truncated artifact: %w", err))
	}

	h := env.Header
	switch {
	case h.Magic != magic:
		return errs.Persistence("load", path, fmt.Errorf("not a licmatch artifact"))
	case h.Kind != kind:
		return errs.Persistence("load", path, fmt.Errorf("artifact kind %q, want %q", h.Kind, kind))
	case h.Version != formatVersion:
		return errs.Persistence("load", path, fmt.Errorf("unsupported format version %d", h.Version))
	case h.Checksum != checksum(env.Payload):
		return errs.Persistence("load", path, fmt.Errorf("checksum mismatch"))
	}

	zr, err := gzip.NewReader(bytes.NewReader(env.Payload))
	if err != nil {
		return errs.Persistence("load", path, fmt.Errorf("decompressing %s: %w", kind, err))
	}
	defer zr.Close()

	if err := gob.NewDecoder(zr).Decode(state); err != nil {
		return errs.Persistence("load", path, fmt.Errorf("decoding %s: %w", kind, err))
	}

	slog.Debug("Artifact loaded", "kind", kind, "path", path, "bytes", len(data))
	return nil
}

// WriteAtomic writes data to a temp file next to path, then renames it over path.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming: %w", err)
	}
	return nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
