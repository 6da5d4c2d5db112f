// Package review orchestrates the diagram review workflow: extraction,
// reviewer edits, artifact regeneration, approvals, and version diffing.
//
// The service holds no in-memory state across calls; every operation
// re-reads from the store. Edits regenerate the mermaid artifact
// synchronously before returning, so a caller that sees a success response
// is guaranteed the artifact reflects the edit. The single exception is
// extraction, which schedules regeneration fire-and-forget so the response
// is not delayed by artifact I/O.
package review

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diagramflow/pkg/confidence"
	"github.com/matzehuels/diagramflow/pkg/document"
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/extract"
	"github.com/matzehuels/diagramflow/pkg/mermaid"
	"github.com/matzehuels/diagramflow/pkg/store"
)

// Extractor is the narrow interface the workflow needs from the
// structure-extraction client.
type Extractor interface {
	Extract(ctx context.Context, up store.Upload, provider extract.Provider, prompt string) (document.Document, error)
}

// Config assembles a Service.
type Config struct {
	Store     store.Store
	Extractor Extractor

	// DefaultProvider is used when a request names no provider.
	DefaultProvider extract.Provider

	// Threshold flags nodes for review; zero uses
	// [confidence.DefaultThreshold].
	Threshold float64

	// Logger receives fire-and-forget failures. Nil uses log.Default().
	Logger *log.Logger
}

// Service implements the review workflow over a Store and an Extractor.
type Service struct {
	store     store.Store
	extractor Extractor
	provider  extract.Provider
	threshold float64
	logger    *log.Logger
}

// NewService creates a review service.
func NewService(cfg Config) *Service {
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = extract.ProviderOpenAI
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = confidence.DefaultThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Service{
		store:     cfg.Store,
		extractor: cfg.Extractor,
		provider:  cfg.DefaultProvider,
		threshold: cfg.Threshold,
		logger:    cfg.Logger,
	}
}

// Extract runs structure extraction for a previously uploaded input,
// persists the resulting document, and returns it. The mermaid artifact is
// regenerated in the background; its failure is logged and never surfaced.
func (s *Service) Extract(ctx context.Context, id, provider, prompt string) (document.Document, error) {
	up, err := s.store.ResolveUpload(ctx, id)
	if err != nil {
		return document.Document{}, err
	}

	selected := s.provider
	if provider != "" {
		selected = extract.Normalize(provider)
	}

	doc, err := s.extractor.Extract(ctx, up, selected, prompt)
	if err != nil {
		return document.Document{}, err
	}
	if doc.IsZero() {
		return document.Document{}, errors.New(errors.ErrCodeEmptyResult, "empty response from structure API")
	}

	if err := s.store.PutDocument(ctx, id, doc); err != nil {
		return document.Document{}, err
	}

	// Detached from the request context so the response is never held up
	// and a cancelled request does not abort the write.
	bg := context.WithoutCancel(ctx)
	snapshot := doc.Clone()
	go func() {
		if err := s.store.PutArtifact(bg, id, mermaid.Generate(snapshot)); err != nil {
			s.logger.Error("background artifact regeneration failed", "diagram_id", id, "err", err)
		}
	}()

	return doc, nil
}

// regenerate persists a fresh artifact for doc and returns its text.
func (s *Service) regenerate(ctx context.Context, id string, doc document.Document) (string, error) {
	text := mermaid.Generate(doc)
	if err := s.store.PutArtifact(ctx, id, text); err != nil {
		return "", err
	}
	return text, nil
}

// GenerateArtifact regenerates and persists the mermaid artifact from the
// current document.
func (s *Service) GenerateArtifact(ctx context.Context, id string) (string, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	return s.regenerate(ctx, id, doc)
}

// SetNodeField updates a node's label and/or its confidence score.
//
// The label write requires the node to exist. The confidence write, when a
// value is supplied, happens unconditionally even for unknown node ids.
// When neither a node matched nor a confidence value was supplied the call
// fails with NOT_FOUND. On success the document is persisted and the artifact
// regenerated synchronously.
func (s *Service) SetNodeField(ctx context.Context, id, nodeID string, label *string, conf *float64) (document.Document, string, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return document.Document{}, "", err
	}

	updated := false
	if n := doc.FindNode(nodeID); n != nil {
		if label != nil {
			n.Label = *label
		}
		updated = true
	}
	if conf != nil {
		doc.SetConfidence(nodeID, *conf)
		updated = true
	}
	if !updated {
		return document.Document{}, "", errors.New(errors.ErrCodeNotFound, "node %s not found in diagram %s", nodeID, id)
	}

	if err := s.store.PutDocument(ctx, id, doc); err != nil {
		return document.Document{}, "", err
	}
	text, err := s.regenerate(ctx, id, doc)
	if err != nil {
		return document.Document{}, "", err
	}
	return doc, text, nil
}

// SetEdgeField updates the relation of the first edge matching both
// endpoints in stored order. An unmatched edge fails with NOT_FOUND.
func (s *Service) SetEdgeField(ctx context.Context, id, fromID, toID string, relation *string) (document.Document, string, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return document.Document{}, "", err
	}

	e := doc.FindEdge(fromID, toID)
	if e == nil {
		return document.Document{}, "", errors.New(errors.ErrCodeNotFound, "edge %s->%s not found in diagram %s", fromID, toID, id)
	}
	if relation != nil {
		e.Relation = *relation
	}

	if err := s.store.PutDocument(ctx, id, doc); err != nil {
		return document.Document{}, "", err
	}
	text, err := s.regenerate(ctx, id, doc)
	if err != nil {
		return document.Document{}, "", err
	}
	return doc, text, nil
}

// ReplaceDocument unconditionally overwrites the stored document, with no
// existence check, and synchronously regenerates the artifact, returning
// its text.
func (s *Service) ReplaceDocument(ctx context.Context, id string, doc document.Document) (string, error) {
	if err := s.store.PutDocument(ctx, id, doc); err != nil {
		return "", err
	}
	return s.regenerate(ctx, id, doc)
}

// Approve snapshots the current document as an immutable version and
// returns the version key.
func (s *Service) Approve(ctx context.Context, id string) (string, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.SnapshotVersion(ctx, id, doc)
}

// Page is everything the review screen needs for one diagram.
type Page struct {
	DiagramID      string
	Document       document.Document
	Mermaid        string
	Ranked         []confidence.Entry
	BelowThreshold []confidence.Entry
	Versions       []string
}

// RenderReview assembles the review page model. The mermaid text comes
// from the stored artifact when present; otherwise it is generated fresh
// without being persisted.
func (s *Service) RenderReview(ctx context.Context, id string) (Page, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return Page{}, err
	}

	text, err := s.store.GetArtifact(ctx, id)
	if errors.Is(err, errors.ErrCodeNotFound) {
		text = mermaid.Generate(doc)
	} else if err != nil {
		return Page{}, err
	}

	versions, err := s.store.ListVersions(ctx, id)
	if err != nil {
		return Page{}, err
	}

	return Page{
		DiagramID:      id,
		Document:       doc,
		Mermaid:        text,
		Ranked:         confidence.Ranked(doc),
		BelowThreshold: confidence.BelowThreshold(doc, s.threshold),
		Versions:       versions,
	}, nil
}
