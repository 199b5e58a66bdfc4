package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/numpy1314/domain-runtime/core/errs"
)

func TestFileLoaderLoadsNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	require.NoError(t, os.WriteFile(path, []byte("not an elf but non-empty"), 0o644))

	rec, err := FileLoader{}.Load(path)
	require.NoError(t, err)
	require.Equal(t, path, rec.FileName)
	require.Greater(t, rec.Size, int64(0))
}

func TestFileLoaderRejectsMissingFile(t *testing.T) {
	_, err := FileLoader{}.Load(filepath.Join(t.TempDir(), "nope.bin"))
	require.True(t, errors.Is(err, errs.ErrLoadFailure))
}

func TestFileLoaderRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := FileLoader{}.Load(path)
	require.True(t, errors.Is(err, errs.ErrLoadFailure))
}
