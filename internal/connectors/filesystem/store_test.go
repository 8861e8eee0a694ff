package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

func TestNewStore(t *testing.T) {
	t.Run("rejects missing directory", func(t *testing.T) {
		_, err := NewStore(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("rejects regular file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		_, err := NewStore(path)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pricelist.txt"), []byte("цены"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# заметки"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "rules.pdf"), []byte("%PDF"), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	files, err := store.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 3)

	byID := make(map[string]domain.RemoteFile, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}

	assert.Equal(t, "text/plain", byID["pricelist.txt"].MIMEType)
	assert.Equal(t, "text/markdown", byID["notes.md"].MIMEType)
	assert.Equal(t, "application/pdf", byID[filepath.Join("sub", "rules.pdf")].MIMEType)
	assert.NotEmpty(t, byID["pricelist.txt"].ModifiedTime)
	assert.Contains(t, byID["pricelist.txt"].WebViewLink, "file://")
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("содержимое"), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)

	t.Run("returns local path", func(t *testing.T) {
		path, err := store.Download(context.Background(), domain.RemoteFile{ID: "doc.txt"})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "содержимое", string(data))
	})

	t.Run("missing file skipped without error", func(t *testing.T) {
		path, err := store.Download(context.Background(), domain.RemoteFile{ID: "gone.txt"})
		require.NoError(t, err)
		assert.Empty(t, path)
	})
}
