// Package pdf extracts text from PDF documents.
package pdf

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// DefaultMaxPages bounds how many pages are read from one document.
// Partner price lists and regulations rarely exceed this; anything longer is
// truncated rather than rejected.
const DefaultMaxPages = 50

// Extractor handles PDF documents using a pure-Go parser. Scanned PDFs
// without a text layer produce no output and are rejected with
// ErrEmptyExtraction; an OCR rendition uploaded alongside the original
// covers those.
type Extractor struct {
	maxPages int
}

// Option configures the PDF extractor.
type Option func(*Extractor)

// WithMaxPages caps the number of pages read per document.
func WithMaxPages(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxPages = n
		}
	}
}

// New creates a new PDF extractor with the given options.
func New(opts ...Option) *Extractor {
	e := &Extractor{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Extract reads up to maxPages of text from the PDF at path.
func (e *Extractor) Extract(_ context.Context, path string) (text string, err error) {
	// The parser panics on some malformed inputs (bad xref offsets)
	// instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.ErrInvalidInput
		}
	}()

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", domain.ErrInvalidInput
	}
	defer f.Close()

	pages := rdr.NumPage()
	if pages > e.maxPages {
		pages = e.maxPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	text = strings.TrimSpace(sb.String())
	if text == "" {
		// Scanned PDF without a text layer, or every page unreadable.
		return "", domain.ErrEmptyExtraction
	}
	return text, nil
}
