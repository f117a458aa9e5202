package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("pano.JPG"))
	assert.True(t, IsImageFile("dir/pano.tiff"))
	assert.True(t, IsImageFile("x.webp"))
	assert.False(t, IsImageFile("notes.txt"))
	assert.False(t, IsImageFile("noext"))
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.tif", "c.txt", "d.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.tif", "b.jpg", "d.png"}, files)

	_, err = ListImageFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestEnsureDirAndExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	assert.False(t, DirExists(dir))

	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, FileExists(dir))

	file := filepath.Join(dir, "f.jpg")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.True(t, FileExists(file))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/p", "Panotwist output", "a.jpg"), OutputPath("/p", "Panotwist output", "a.jpg"))
}
