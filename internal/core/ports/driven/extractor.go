package driven

import "context"

// Extractor converts one file format to plain text.
// Implementations live under internal/extractors.
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract reads the file at path and returns its plain text content.
	// Returns domain.ErrInvalidInput for corrupt content.
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorRegistry selects an extractor by MIME type.
type ExtractorRegistry interface {
	// ForMIMEType returns the extractor for the given MIME type, or
	// (nil, false) when the type is unsupported.
	ForMIMEType(mimeType string) (Extractor, bool)

	// Supported reports whether any registered extractor handles the type.
	Supported(mimeType string) bool
}
