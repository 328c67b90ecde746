package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dest")

	m, err := NewManager(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, m.Dir())
	assert.Equal(t, 0, m.SavedCount())
}

func TestNewManagerScansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("y"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	m, err := NewManager(dir)
	require.NoError(t, err)

	assert.True(t, m.IsDownloaded("a.jpg"))
	assert.True(t, m.IsDownloaded("b.jpg"))
	assert.False(t, m.IsDownloaded("sub"), "directories do not count as saved files")
	assert.False(t, m.IsDownloaded("c.jpg"))
	assert.Equal(t, 2, m.SavedCount())
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.SaveFile(strings.NewReader("content"), "file.bin"))

	data, err := os.ReadFile(filepath.Join(dir, "file.bin"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	assert.True(t, m.IsDownloaded("file.bin"))
	assert.Equal(t, 1, m.SavedCount())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasSuffix(entry.Name(), ".tmp"), "no temp files left behind")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, os.ErrClosed
}

func TestSaveFileCleansUpOnReadError(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	require.Error(t, m.SaveFile(failingReader{}, "file.bin"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed write leaves nothing behind")
	assert.False(t, m.IsDownloaded("file.bin"))
}
