package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscorrea/licmatch/internal/errs"
)

type sample struct {
	Names  []string
	Values []float64
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.bin")
	want := sample{
		Names:  []string{"MIT", "Apache-2.0"},
		Values: []float64{0.1, -2.5e-17, 1e300},
	}

	require.NoError(t, Save(path, KindModel, want))

	var got sample
	require.NoError(t, Load(path, KindModel, &got))
	assert.Equal(t, want, got)
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.bin")
	require.NoError(t, Save(valid, KindIndex, sample{Names: []string{"a"}}))
	data, err := os.ReadFile(valid)
	require.NoError(t, err)

	truncated := filepath.Join(dir, "truncated.bin")
	require.NoError(t, os.WriteFile(truncated, data[:len(data)/2], 0o644))

	garbage := filepath.Join(dir, "garbage.bin")
	require.NoError(t, os.WriteFile(garbage, []byte("not an artifact at all"), 0o644))

	flipped := filepath.Join(dir, "flipped.bin")
	corrupt := append([]byte(nil), data...)
	corrupt[len(corrupt)-3] ^= 0xFF
	require.NoError(t, os.WriteFile(flipped, corrupt, 0o644))

	tests := []struct {
		name string
		path string
		kind string
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.bin"), kind: KindIndex},
		{name: "truncated file", path: truncated, kind: KindIndex},
		{name: "garbage file", path: garbage, kind: KindIndex},
		{name: "corrupted payload", path: flipped, kind: KindIndex},
		{name: "wrong kind", path: valid, kind: KindVocabulary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sample
			err := Load(tt.path, tt.kind, &got)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrPersistence)
		})
	}
}

func TestSaveUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// parent "directory" is a regular file
	err := Save(filepath.Join(blocker, "artifact.bin"), KindModel, sample{})
	assert.ErrorIs(t, err, errs.ErrPersistence)
}
