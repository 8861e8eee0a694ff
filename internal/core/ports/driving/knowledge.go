package driving

import (
	"context"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// KnowledgeService is the outward surface of the knowledge engine.
type KnowledgeService interface {
	// GetRelevantContext returns a separator-joined block of
	// "SOURCE: <name> (Link: <url>)\nCONTENT: <text>" entries for the
	// query, or an empty string when nothing is relevant.
	GetRelevantContext(ctx context.Context, query string, topK, windowSize int) (string, error)

	// Search returns ranked fragments without formatting. Used by the
	// TUI and MCP adapters.
	Search(ctx context.Context, query string, topK int, filters domain.SearchFilters) ([]domain.RankedFragment, error)

	// RefreshCache synchronises the index with the remote folder.
	// Idempotent: a no-op when the remote listing is unchanged, and
	// concurrent calls coalesce into the in-flight cycle.
	RefreshCache(ctx context.Context) error

	// GetCacheName returns the remote context cache handle while it is
	// within its TTL, or an empty string.
	GetCacheName(ctx context.Context) string

	// InvalidateCache tears down the remote context cache handle. The
	// local index is unaffected.
	InvalidateCache(ctx context.Context)

	// GetFileLinks maps source file names to their web URLs for citation.
	GetFileLinks() map[string]string

	// Status reports engine state for diagnostics.
	Status(ctx context.Context) (Status, error)
}

// Status is a snapshot of engine state.
type Status struct {
	// IndexedFragments is the current index size.
	IndexedFragments int

	// TrackedFiles is the number of files in the last successful listing.
	TrackedFiles int

	// LastUpdate is the wall-clock time of the last successful refresh,
	// RFC 3339, empty if never refreshed.
	LastUpdate string

	// Updating reports whether a refresh cycle is in flight.
	Updating bool

	// CacheHandle is the live remote context cache handle, if any.
	CacheHandle string

	// StoreStats reports persistent store contents.
	FragmentEntries int
	Fragments       int
	Responses       int
}
