package driven

import (
	"context"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// FragmentStore is the durable fragment cache keyed by file-version hash.
// Entries have no TTL: a version change produces a new key, it never mutates
// an existing entry. Writes are durable before the call returns.
type FragmentStore interface {
	// GetFragments returns the cached fragments for a file version.
	// Returns domain.ErrNotFound on miss.
	GetFragments(ctx context.Context, fileHash string) ([]domain.Fragment, error)

	// PutFragments stores the ordered fragment set for a file version.
	PutFragments(ctx context.Context, fileHash, source string, fragments []domain.Fragment) error
}

// ResponseCache is the bounded cache of previously produced context strings,
// keyed by normalised query text. Eviction is strict LRU and removes the
// entry from both the in-memory front and the durable backing store.
type ResponseCache interface {
	// GetResponse returns the cached context for a normalised query.
	// Returns domain.ErrNotFound on miss.
	GetResponse(ctx context.Context, query string) (string, error)

	// PutResponse stores a produced context string, evicting the least
	// recently used entry first when the cache is full.
	PutResponse(ctx context.Context, query, response string) error
}

// StoreStats reports persistent store contents for diagnostics.
type StoreStats struct {
	// FragmentEntries is the number of cached file versions.
	FragmentEntries int

	// Fragments is the total number of cached fragments.
	Fragments int

	// Responses is the number of cached responses.
	Responses int
}

// Store bundles the two caches backed by one durable database.
type Store interface {
	FragmentStore
	ResponseCache

	// Stats returns entry counts.
	Stats(ctx context.Context) (StoreStats, error)

	// Close closes the underlying database.
	Close() error
}
