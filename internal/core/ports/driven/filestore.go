package driven

import (
	"context"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// FileStore lists and fetches documents from the watched remote folder.
// Implementations handle pagination, rate limiting and retries internally;
// the core only reacts to final success or failure.
type FileStore interface {
	// ListFiles returns metadata for every file in the watched folder.
	ListFiles(ctx context.Context) ([]domain.RemoteFile, error)

	// Download fetches a file's content to a local path and returns it.
	// Google-native document types are expected pre-exported to a
	// plain-text-extractable format. Returns an empty path and nil error
	// for files the store cannot materialise (deleted mid-listing).
	Download(ctx context.Context, file domain.RemoteFile) (string, error)

	// Close releases resources.
	Close() error
}

// Watcher is an optional capability of a FileStore: push notification when
// the underlying folder changes. The local filesystem store supports it.
type Watcher interface {
	// Watch emits an event whenever the folder content may have changed.
	// The channel is closed when the context is cancelled.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
