package driven

import (
	"github.com/brokerhub/knowbot/internal/core/domain"
)

// SearchIndex holds the current fragment corpus and answers ranked queries.
// Backed by the in-memory hybrid index in internal/index. Queries issued
// while a rebuild is in flight observe the previous complete corpus.
type SearchIndex interface {
	// AddFragments appends fragments and rebuilds the derived structures
	// over the full current corpus.
	AddFragments(fragments []domain.Fragment)

	// Clear drops all fragments and derived structures.
	Clear()

	// Replace atomically swaps the whole corpus, equivalent to Clear
	// followed by AddFragments but without an observable empty window.
	Replace(fragments []domain.Fragment)

	// Search returns the top-k fragments ranked by fused score. An empty
	// corpus or an impossible filter yields an empty slice, never an error.
	Search(query string, topK int, filters domain.SearchFilters) []domain.RankedFragment

	// Size returns the number of indexed fragments.
	Size() int

	// SaveSnapshot serialises the corpus for fast cold start.
	SaveSnapshot(path string) error

	// LoadSnapshot restores a previously saved corpus.
	LoadSnapshot(path string) error
}

// Processor turns a downloaded file into fragments. Fails closed: an
// unsupported or corrupt file yields an empty list and no error upstream
// beyond a log line.
type Processor interface {
	// Process extracts text from the file at path and splits it into
	// fragments attributed to source.
	Process(path, mimeType, source string) ([]domain.Fragment, error)
}
