package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(0)

	for _, mt := range []string{
		"text/plain",
		"text/csv",
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	} {
		assert.True(t, r.Supported(mt), "expected %s to be supported", mt)
	}

	assert.False(t, r.Supported("image/png"))
	assert.False(t, r.Supported("application/vnd.google-apps.folder"))
}

func TestForMIMEType_NormalisesParameters(t *testing.T) {
	r := DefaultRegistry(0)

	e, ok := r.ForMIMEType("text/plain; charset=utf-8")
	require.True(t, ok)
	assert.Contains(t, e.SupportedMIMETypes(), "text/plain")

	e, ok = r.ForMIMEType("Application/PDF")
	require.True(t, ok)
	assert.Contains(t, e.SupportedMIMETypes(), "application/pdf")
}

func TestForMIMEType_Unsupported(t *testing.T) {
	r := NewRegistry()
	_, ok := r.ForMIMEType("application/pdf")
	assert.False(t, ok)
}
