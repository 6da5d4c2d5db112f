package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/diagramflow/pkg/document"
	"github.com/matzehuels/diagramflow/pkg/errors"
)

// FileStore is the file-backed Store. It lays out three areas under a
// single root directory:
//
//	<root>/input/<id>_<filename>   raw uploaded bytes
//	<root>/output/<id>.json        current document
//	<root>/output/<id>.mmd         current mermaid artifact
//	<root>/versions/<id>_<key>.json  append-only version snapshots
type FileStore struct {
	root string
}

// NewFileStore creates the storage directories once and verifies the root
// is writable, failing fast with a STORAGE_ERROR otherwise. The call is
// idempotent.
func NewFileStore(root string) (*FileStore, error) {
	for _, dir := range []string{inputDir(root), outputDir(root), versionsDir(root)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "create storage dir %s", dir)
		}
	}

	probe := filepath.Join(root, ".writable")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "storage root %s is not writable", root)
	}
	_ = os.Remove(probe)

	return &FileStore{root: root}, nil
}

func inputDir(root string) string    { return filepath.Join(root, "input") }
func outputDir(root string) string   { return filepath.Join(root, "output") }
func versionsDir(root string) string { return filepath.Join(root, "versions") }

func (s *FileStore) documentPath(id string) string {
	return filepath.Join(outputDir(s.root), id+".json")
}

func (s *FileStore) artifactPath(id string) string {
	return filepath.Join(outputDir(s.root), id+".mmd")
}

// writeFileAtomic writes via a temp file and rename so a failed write never
// clobbers prior state.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// PutDocument overwrites the current document for id.
func (s *FileStore) PutDocument(ctx context.Context, id string, doc document.Document) error {
	data, err := document.Encode(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "encode document %s", id)
	}
	if err := writeFileAtomic(s.documentPath(id), data); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write document %s", id)
	}
	return nil
}

// GetDocument returns the current document for id.
func (s *FileStore) GetDocument(ctx context.Context, id string) (document.Document, error) {
	data, err := os.ReadFile(s.documentPath(id))
	if os.IsNotExist(err) {
		return document.Document{}, errors.New(errors.ErrCodeNotFound, "diagram %s not found", id)
	}
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "read document %s", id)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "decode document %s", id)
	}
	return doc, nil
}

// PutArtifact overwrites the cached mermaid text for id.
func (s *FileStore) PutArtifact(ctx context.Context, id, text string) error {
	if err := writeFileAtomic(s.artifactPath(id), []byte(text)); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write artifact %s", id)
	}
	return nil
}

// GetArtifact returns the cached mermaid text for id.
func (s *FileStore) GetArtifact(ctx context.Context, id string) (string, error) {
	data, err := os.ReadFile(s.artifactPath(id))
	if os.IsNotExist(err) {
		return "", errors.New(errors.ErrCodeNotFound, "artifact for %s not found", id)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "read artifact %s", id)
	}
	return string(data), nil
}

// SnapshotVersion appends an immutable version snapshot and returns its key.
func (s *FileStore) SnapshotVersion(ctx context.Context, id string, doc document.Document) (string, error) {
	data, err := document.Encode(doc)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "encode version of %s", id)
	}
	key := NewVersionKey(time.Now())
	path := filepath.Join(versionsDir(s.root), id+"_"+key+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "write version %s of %s", key, id)
	}
	return key, nil
}

// versionFiles returns the snapshot paths for id, sorted ascending. Key
// format is fixed-width, so lexical order is creation order.
func (s *FileStore) versionFiles(id string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(versionsDir(s.root), id+"_*.json"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list versions of %s", id)
	}
	sort.Strings(matches)
	return matches, nil
}

// LatestVersion returns the snapshot with the greatest key.
func (s *FileStore) LatestVersion(ctx context.Context, id string) (document.Document, error) {
	matches, err := s.versionFiles(id)
	if err != nil {
		return document.Document{}, err
	}
	if len(matches) == 0 {
		return document.Document{}, errors.New(errors.ErrCodeNotFound, "no versions for %s", id)
	}
	data, err := os.ReadFile(matches[len(matches)-1])
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "read version of %s", id)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return document.Document{}, errors.Wrap(errors.ErrCodeStorage, err, "decode version of %s", id)
	}
	return doc, nil
}

// ListVersions returns all version keys for id, ascending.
func (s *FileStore) ListVersions(ctx context.Context, id string) ([]string, error) {
	matches, err := s.versionFiles(id)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(matches))
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		keys = append(keys, strings.TrimPrefix(name, id+"_"))
	}
	return keys, nil
}

// RegisterUpload stores raw uploaded bytes as <input>/<id>_<filename>.
func (s *FileStore) RegisterUpload(ctx context.Context, id, filename string, data []byte) (Upload, error) {
	// Uploaded names can carry path separators; keep only the base name.
	filename = filepath.Base(filename)
	path := filepath.Join(inputDir(s.root), id+"_"+filename)
	if err := writeFileAtomic(path, data); err != nil {
		return Upload{}, errors.Wrap(errors.ErrCodeStorage, err, "write upload %s", id)
	}
	return Upload{Filename: filename, Location: path, Data: data}, nil
}

// ResolveUpload finds the stored upload for id. When several files match,
// the lexically first one wins so repeated calls agree.
func (s *FileStore) ResolveUpload(ctx context.Context, id string) (Upload, error) {
	matches, err := filepath.Glob(filepath.Join(inputDir(s.root), id+"_*"))
	if err != nil {
		return Upload{}, errors.Wrap(errors.ErrCodeStorage, err, "resolve upload %s", id)
	}
	if len(matches) == 0 {
		return Upload{}, errors.New(errors.ErrCodeNotFound, "no upload for %s", id)
	}
	sort.Strings(matches)
	path := matches[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, errors.Wrap(errors.ErrCodeStorage, err, "read upload %s", id)
	}
	filename := strings.TrimPrefix(filepath.Base(path), id+"_")
	return Upload{Filename: filename, Location: path, Data: data}, nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
