package domain

// Fragment is the unit of retrieval: a bounded slice of text carved out of a
// source document. Fragments are immutable once created; re-ingesting a source
// replaces its whole fragment set rather than mutating entries in place.
type Fragment struct {
	// ID is the unique identifier for the fragment.
	ID string

	// Content is the indexed text. Bounded by the chunking configuration.
	Content string

	// Source is the originating file name. OCR-derived files are recorded
	// under their original name so citations stay stable.
	Source string

	// ChunkIndex is the ordinal position within the source.
	ChunkIndex int

	// TotalChunks is the number of fragments produced from the source.
	TotalChunks int

	// ParentContent is the paragraph the fragment was carved from. For
	// fragments that fit a whole paragraph it equals Content. Kept for
	// parent-document retrieval: callers can widen the returned context.
	ParentContent string

	// IsOCR marks fragments extracted from an OCR-derived sibling of the
	// original document.
	IsOCR bool
}

// RankedFragment is a fragment annotated with its fused relevance score.
type RankedFragment struct {
	Fragment Fragment

	// Score is the fused relevance score (similarity + keyword).
	Score float64

	// WindowContent is the parent paragraph when it differs from the
	// fragment's own content, empty otherwise. Callers include it to give
	// the generation step surrounding context.
	WindowContent string
}

// SearchFilters restricts scoring to a subset of the corpus. A nil or empty
// filter matches everything. Filtering never reorders matching fragments:
// excluded fragments are forced below every included one before fusion.
type SearchFilters struct {
	// Sources limits results to fragments from the named files.
	Sources []string

	// Categories limits results to fragments whose source maps to one of
	// the given document categories.
	Categories []Category
}

// Empty reports whether the filter matches the whole corpus.
func (f SearchFilters) Empty() bool {
	return len(f.Sources) == 0 && len(f.Categories) == 0
}

// Category is a coarse document-type bucket derived from the file name and
// MIME type, used for metadata filtering at query time.
type Category string

const (
	// CategoryPricing covers price lists and commercial terms.
	CategoryPricing Category = "pricing"

	// CategoryPromo covers promotion and discount announcements.
	CategoryPromo Category = "promo"

	// CategoryRegulation covers partner-network rules and procedures.
	CategoryRegulation Category = "regulation"

	// CategoryGeneral is the fallback bucket.
	CategoryGeneral Category = "general"
)
