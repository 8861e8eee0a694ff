package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(documentXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		doc.Write([]byte(documentXML))
	}

	w.Close()
	return buf.Bytes()
}

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestSupportedMIMETypes(t *testing.T) {
	e := New()
	mimeTypes := e.SupportedMIMETypes()
	require.Len(t, mimeTypes, 1)
	assert.Contains(t, mimeTypes, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
}

func TestExtract_Success(t *testing.T) {
	documentXML := `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<body>
<p><r><t>Комиссия партнёра составляет 3%.</t></r></p>
<p><r><t>Выплата в течение </t></r><r><t>10 рабочих дней.</t></r></p>
</body>
</document>`

	path := writeTempFile(t, createTestDOCX(documentXML))

	text, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Комиссия партнёра составляет 3%.\n\nВыплата в течение 10 рабочих дней.", text)
}

func TestExtract_MissingDocumentXML(t *testing.T) {
	path := writeTempFile(t, createTestDOCX(""))

	_, err := New().Extract(context.Background(), path)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestExtract_NoText(t *testing.T) {
	documentXML := `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<body><p><r></r></p></body>
</document>`

	path := writeTempFile(t, createTestDOCX(documentXML))

	_, err := New().Extract(context.Background(), path)
	assert.True(t, errors.Is(err, domain.ErrEmptyExtraction))
}

func TestExtract_NotAZip(t *testing.T) {
	path := writeTempFile(t, []byte("plain bytes, not a container"))

	_, err := New().Extract(context.Background(), path)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestParseDocumentXML_Invalid(t *testing.T) {
	assert.Empty(t, parseDocumentXML([]byte("<not-closed")))
}
