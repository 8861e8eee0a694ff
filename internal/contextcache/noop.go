// Package contextcache provides implementations of the remote prompt cache:
// a Gemini-backed cache for production and a no-op for index-only setups.
package contextcache

import (
	"context"

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driven"
)

var _ driven.ContextCache = (*Noop)(nil)

// Noop disables the remote prompt cache. The engine runs index-only.
type Noop struct{}

// NewNoop creates a disabled context cache.
func NewNoop() *Noop {
	return &Noop{}
}

// Enabled always reports false.
func (*Noop) Enabled() bool {
	return false
}

// Create always fails with ErrContextCacheUnavailable.
func (*Noop) Create(_ context.Context, _ []domain.RemoteFile, _ map[string]string) (string, error) {
	return "", domain.ErrContextCacheUnavailable
}

// Delete is a no-op.
func (*Noop) Delete(_ context.Context, _ string) error {
	return nil
}
