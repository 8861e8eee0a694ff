// Package driven defines the interfaces the core calls out through:
// the remote file store, format extractors, the persistent fragment and
// response caches, and the optional remote context cache.
package driven
