// Package extractors provides format-specific plain-text extraction and a
// MIME-keyed registry used by the document processor.
package extractors

import (
	"strings"

	"github.com/brokerhub/knowbot/internal/core/ports/driven"
	"github.com/brokerhub/knowbot/internal/extractors/docx"
	"github.com/brokerhub/knowbot/internal/extractors/pdf"
	"github.com/brokerhub/knowbot/internal/extractors/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps MIME types to extractors.
type Registry struct {
	byMIME map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string]driven.Extractor)}
}

// Register adds an extractor for all its supported MIME types.
// Later registrations win on conflict.
func (r *Registry) Register(e driven.Extractor) {
	for _, mt := range e.SupportedMIMETypes() {
		r.byMIME[strings.ToLower(mt)] = e
	}
}

// ForMIMEType returns the extractor for the given MIME type.
func (r *Registry) ForMIMEType(mimeType string) (driven.Extractor, bool) {
	e, ok := r.byMIME[normaliseMIME(mimeType)]
	return e, ok
}

// Supported reports whether any registered extractor handles the type.
func (r *Registry) Supported(mimeType string) bool {
	_, ok := r.byMIME[normaliseMIME(mimeType)]
	return ok
}

// normaliseMIME lowercases and strips parameters ("text/plain; charset=utf-8").
func normaliseMIME(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// DefaultRegistry returns a registry with all built-in extractors.
func DefaultRegistry(maxPDFPages int) *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(docx.New())
	r.Register(pdf.New(pdf.WithMaxPages(maxPDFPages)))
	return r
}
