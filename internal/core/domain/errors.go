package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no extractor or export
	// path handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmptyExtraction indicates a file yielded no text at all. Typical
	// for scanned PDFs without a text layer.
	ErrEmptyExtraction = errors.New("extracted text below minimum length")

	// ErrRefreshInProgress indicates a refresh cycle is already running.
	// Callers treat this as success: the in-flight cycle does the work.
	ErrRefreshInProgress = errors.New("refresh in progress")

	// ErrContextCacheUnavailable indicates the remote context cache is not
	// configured. The engine runs index-only in that case.
	ErrContextCacheUnavailable = errors.New("context cache unavailable")

	// ErrStoreClosed indicates the persistent store has been closed.
	ErrStoreClosed = errors.New("store closed")

	// ErrNoIndex indicates a snapshot was requested before any index was
	// ever built.
	ErrNoIndex = errors.New("no index built")
)
