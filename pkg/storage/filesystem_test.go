package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveStreamAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	n, err := store.SaveStream("documents/TMF/doc-1.pdf", strings.NewReader("%PDF-1.4"), 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	file, err := store.Open("documents/TMF/doc-1.pdf")
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
}

func TestLocalStorageSaveStreamRejectsOversize(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream("documents/big.bin", strings.NewReader(strings.Repeat("x", 11)), 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, statErr := os.Stat(store.Path("documents/big.bin"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../escape.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = store.Open("/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("exports/old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("exports/new.csv", []byte("b"))
	require.NoError(t, err)
	_, err = store.Save("documents/keep.pdf", []byte("c"))
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "exports", "old.csv"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "documents", "keep.pdf"), old, old))

	deleted, err := store.CleanupOlderThan("exports", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("exports", "old.csv")}, deleted)
	assert.FileExists(t, filepath.Join(dir, "documents", "keep.pdf"))
}
