package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matzehuels/diagramflow/pkg/document"
	"github.com/matzehuels/diagramflow/pkg/errors"
)

// MemoryStore is an in-memory Store for development and testing. Documents
// are deep-copied on the way in and out so callers never share backing
// state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	docs      map[string]document.Document
	artifacts map[string]string
	uploads   map[string]Upload
	versions  map[string][]versionEntry
}

type versionEntry struct {
	key string
	doc document.Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]document.Document),
		artifacts: make(map[string]string),
		uploads:   make(map[string]Upload),
		versions:  make(map[string][]versionEntry),
	}
}

// PutDocument overwrites the current document for id.
func (s *MemoryStore) PutDocument(ctx context.Context, id string, doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = doc.Clone()
	return nil
}

// GetDocument returns the current document for id.
func (s *MemoryStore) GetDocument(ctx context.Context, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return document.Document{}, errors.New(errors.ErrCodeNotFound, "diagram %s not found", id)
	}
	return doc.Clone(), nil
}

// PutArtifact overwrites the cached mermaid text for id.
func (s *MemoryStore) PutArtifact(ctx context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[id] = text
	return nil
}

// GetArtifact returns the cached mermaid text for id.
func (s *MemoryStore) GetArtifact(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.artifacts[id]
	if !ok {
		return "", errors.New(errors.ErrCodeNotFound, "artifact for %s not found", id)
	}
	return text, nil
}

// SnapshotVersion appends an immutable version snapshot and returns its key.
func (s *MemoryStore) SnapshotVersion(ctx context.Context, id string, doc document.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := NewVersionKey(time.Now())
	s.versions[id] = append(s.versions[id], versionEntry{key: key, doc: doc.Clone()})
	return key, nil
}

// LatestVersion returns the most recently snapshotted document for id.
func (s *MemoryStore) LatestVersion(ctx context.Context, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.versions[id]
	if len(entries) == 0 {
		return document.Document{}, errors.New(errors.ErrCodeNotFound, "no versions for %s", id)
	}
	return entries[len(entries)-1].doc.Clone(), nil
}

// ListVersions returns all version keys for id, ascending by creation order.
func (s *MemoryStore) ListVersions(ctx context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.versions[id]))
	for _, e := range s.versions[id] {
		keys = append(keys, e.key)
	}
	sort.Strings(keys)
	return keys, nil
}

// RegisterUpload stores raw uploaded bytes under id.
func (s *MemoryStore) RegisterUpload(ctx context.Context, id, filename string, data []byte) (Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	up := Upload{
		Filename: filename,
		Location: "memory://input/" + id + "_" + filename,
		Data:     append([]byte(nil), data...),
	}
	s.uploads[id] = up
	return up, nil
}

// ResolveUpload finds the stored upload for id.
func (s *MemoryStore) ResolveUpload(ctx context.Context, id string) (Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	up, ok := s.uploads[id]
	if !ok {
		return Upload{}, errors.New(errors.ErrCodeNotFound, "no upload for %s", id)
	}
	return up, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
