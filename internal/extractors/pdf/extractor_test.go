package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		e := New()
		assert.Equal(t, DefaultMaxPages, e.maxPages)
	})

	t.Run("custom max pages", func(t *testing.T) {
		e := New(WithMaxPages(5))
		assert.Equal(t, 5, e.maxPages)
	})

	t.Run("non-positive ignored", func(t *testing.T) {
		e := New(WithMaxPages(0))
		assert.Equal(t, DefaultMaxPages, e.maxPages)
	})
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"application/pdf"}, New().SupportedMIMETypes())
}

func TestExtract_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0600))

	_, err := New().Extract(context.Background(), path)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestExtract_BrokenXrefOffset(t *testing.T) {
	// Valid header but the startxref offset points past the end of the
	// file; the parser panics on this rather than returning an error.
	content := "%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\nstartxref\n9999\n%%EOF\n"
	path := filepath.Join(t.TempDir(), "badxref.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := New().Extract(context.Background(), path)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
}
