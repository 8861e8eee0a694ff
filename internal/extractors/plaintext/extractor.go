// Package plaintext extracts text from plain-text formats.
package plaintext

import (
	"context"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// Extractor handles plain text documents. It is also the landing point for
// Google-native files pre-exported to text/plain or text/csv by the
// file-store collaborator.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/markdown",
		"text/x-markdown",
		"application/json",
	}
}

// Extract reads the file and returns its content with normalised newlines.
func (e *Extractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", domain.ErrInvalidInput
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.TrimSpace(content), nil
}
