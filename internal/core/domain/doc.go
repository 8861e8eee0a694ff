// Package domain contains the core types of the knowledge engine:
// fragments, remote file descriptors, search options and domain errors.
// It has no dependencies on adapters or external services.
package domain
