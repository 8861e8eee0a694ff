package driven

import (
	"context"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// ContextCache is the optional remote prompt cache: raw documents uploaded
// once so the generation step can reference them by handle instead of
// resending content. Failures here never fail a refresh; the engine degrades
// to index-only operation.
type ContextCache interface {
	// Enabled reports whether the capability is configured. The no-op
	// implementation returns false.
	Enabled() bool

	// Create uploads the given documents and returns an opaque handle.
	Create(ctx context.Context, files []domain.RemoteFile, contents map[string]string) (string, error)

	// Delete removes a previously created handle. Best effort.
	Delete(ctx context.Context, handle string) error
}
