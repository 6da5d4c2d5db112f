// Package store persists diagram documents, mermaid artifacts, uploaded
// inputs, and immutable approved versions, keyed by an opaque diagram
// identifier.
//
// This package defines the Store interface with implementations for
// different backends:
//   - memory: In-memory storage for development/testing
//   - file: File-based storage, the default deployment mode
//   - redis: Redis-backed storage for multi-instance deployments
//   - mongo: MongoDB-backed storage for document-database deployments
//
// # Semantics
//
// Documents and artifacts have full-overwrite semantics with no partial
// merge. Versions are append-only and never mutated after creation; version
// keys embed a high-resolution timestamp plus a process-local sequence so
// that rapid approvals stay distinguishable. No concurrency control is
// layered on top of the backend: two simultaneous writes to the same
// identifier race at the last-write-wins level.
//
// Reads of absent keys fail with errors.ErrCodeNotFound; write failures
// surface as errors.ErrCodeStorage and are never retried.
package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/matzehuels/diagramflow/pkg/document"
)

// Upload is a raw uploaded input resolved from storage.
type Upload struct {
	// Filename is the original client-supplied name.
	Filename string

	// Location is a human-readable locator for the stored bytes. For the
	// file backend this is the on-disk path; other backends use a
	// backend-prefixed pseudo-path.
	Location string

	// Data is the raw uploaded content.
	Data []byte
}

// Store persists all state for diagram review. Implementations must be safe
// for concurrent use; individual operations are not serialized against each
// other beyond what the backend provides.
type Store interface {
	// PutDocument overwrites the current document for id.
	PutDocument(ctx context.Context, id string, doc document.Document) error

	// GetDocument returns the current document for id.
	GetDocument(ctx context.Context, id string) (document.Document, error)

	// PutArtifact overwrites the cached mermaid text for id.
	PutArtifact(ctx context.Context, id, text string) error

	// GetArtifact returns the cached mermaid text for id.
	GetArtifact(ctx context.Context, id string) (string, error)

	// SnapshotVersion appends an immutable copy of doc and returns its
	// version key. Prior versions are never overwritten.
	SnapshotVersion(ctx context.Context, id string, doc document.Document) (string, error)

	// LatestVersion returns the most recently snapshotted document for id.
	LatestVersion(ctx context.Context, id string) (document.Document, error)

	// ListVersions returns all version keys for id, ascending by creation
	// order.
	ListVersions(ctx context.Context, id string) ([]string, error)

	// RegisterUpload stores raw uploaded bytes under id.
	RegisterUpload(ctx context.Context, id, filename string, data []byte) (Upload, error)

	// ResolveUpload finds the stored upload for id. When several exist the
	// choice is implementation-defined but deterministic.
	ResolveUpload(ctx context.Context, id string) (Upload, error)

	// Close releases backend resources.
	Close() error
}

// versionSeq disambiguates version keys minted within the same clock tick.
var versionSeq atomic.Uint64

// NewVersionKey mints a sortable version key: a UTC timestamp at nanosecond
// resolution plus a fixed-width process-local sequence suffix. Lexicographic
// order of keys from one process matches creation order even when the clock
// ticks coarser than the approval rate.
func NewVersionKey(now time.Time) string {
	return fmt.Sprintf("%s-%06d", now.UTC().Format("20060102T150405.000000000"), versionSeq.Add(1))
}
