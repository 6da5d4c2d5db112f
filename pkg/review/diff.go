package review

import (
	"context"
	"encoding/json"

	rdiff "github.com/r3labs/diff/v3"

	"github.com/matzehuels/diagramflow/pkg/document"
	"github.com/matzehuels/diagramflow/pkg/errors"
)

// NoVersionsMessage explains an empty diff when a diagram has never been
// approved.
const NoVersionsMessage = "No previous versions"

// DiffResult is the structural comparison between the latest approved
// version and the current document.
type DiffResult struct {
	Changes rdiff.Changelog `json:"changes"`
	Message string          `json:"message,omitempty"`
}

// Diff compares the latest approved version against the current document.
// A diagram without any versions yields an empty diff with
// [NoVersionsMessage] instead of an error. Sequences are compared
// order-insensitively.
func (s *Service) Diff(ctx context.Context, id string) (DiffResult, error) {
	current, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return DiffResult{}, err
	}

	previous, err := s.store.LatestVersion(ctx, id)
	if errors.Is(err, errors.ErrCodeNotFound) {
		return DiffResult{Changes: rdiff.Changelog{}, Message: NoVersionsMessage}, nil
	}
	if err != nil {
		return DiffResult{}, err
	}

	prevTree, err := toTree(previous)
	if err != nil {
		return DiffResult{}, err
	}
	curTree, err := toTree(current)
	if err != nil {
		return DiffResult{}, err
	}

	// SliceOrdering defaults to false, so sequences compare
	// order-insensitively.
	changes, err := rdiff.Diff(prevTree, curTree)
	if err != nil {
		return DiffResult{}, errors.Wrap(errors.ErrCodeInternal, err, "compute diff for %s", id)
	}
	if changes == nil {
		changes = rdiff.Changelog{}
	}
	return DiffResult{Changes: changes}, nil
}

// toTree flattens a document into a generic JSON-like tree so the diff
// sees provider extra fields the same way it sees modeled ones.
func toTree(doc document.Document) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode document for diff")
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode document for diff")
	}
	return tree, nil
}
