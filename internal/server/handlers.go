package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/diagramflow/pkg/document"
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/render"
)

// maxUploadBytes caps an uploaded diagram image.
const maxUploadBytes = 32 << 20

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message":         "Diagram reviewer is running",
		"upload_endpoint": "/upload",
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read multipart file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read upload body"))
		return
	}

	id := uuid.NewString()
	up, err := s.store.RegisterUpload(r.Context(), id, header.Filename, data)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"diagram_id": id,
		"filename":   header.Filename,
		"saved_path": up.Location,
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DiagramID string `json:"diagram_id"`
		Provider  string `json:"provider"`
		Prompt    string `json:"prompt"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.DiagramID == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "diagram_id is required"))
		return
	}

	doc, err := s.service.Extract(r.Context(), req.DiagramID, req.Provider, req.Prompt)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"diagram_id": req.DiagramID,
		"json":       doc,
	})
}

func (s *Server) handleGenerateMermaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DiagramID string `json:"diagram_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	text, err := s.service.GenerateArtifact(r.Context(), req.DiagramID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"diagram_id": req.DiagramID,
		"mermaid":    text,
	})
}

func (s *Server) handleReviewPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagramID")

	page, err := s.service.RenderReview(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	docJSON, err := document.Encode(page.Document)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reviewTemplate.Execute(w, reviewPageData{
		DiagramID:      page.DiagramID,
		DocumentJSON:   string(docJSON),
		Mermaid:        page.Mermaid,
		Ranked:         page.Ranked,
		BelowThreshold: page.BelowThreshold,
		Versions:       page.Versions,
	}); err != nil {
		s.logger.Error("render review page", "diagram_id", id, "err", err)
	}
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DiagramID  string   `json:"diagram_id"`
		NodeID     string   `json:"node_id"`
		Label      *string  `json:"label"`
		Confidence *float64 `json:"confidence"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	doc, text, err := s.service.SetNodeField(r.Context(), req.DiagramID, req.NodeID, req.Label, req.Confidence)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"mermaid": text,
		"diagram": doc,
	})
}

func (s *Server) handleUpdateEdge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DiagramID string  `json:"diagram_id"`
		FromID    string  `json:"from_id"`
		ToID      string  `json:"to_id"`
		Relation  *string `json:"relation"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	doc, text, err := s.service.SetEdgeField(r.Context(), req.DiagramID, req.FromID, req.ToID, req.Relation)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"mermaid": text,
		"diagram": doc,
	})
}

func (s *Server) handleUpdateJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DiagramID string            `json:"diagram_id"`
		Payload   document.Document `json:"payload"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.DiagramID == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "diagram_id is required"))
		return
	}

	text, err := s.service.ReplaceDocument(r.Context(), req.DiagramID, req.Payload)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"mermaid": text,
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagramID")

	version, err := s.service.Approve(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version,
	})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagramID")

	res, err := s.service.Diff(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	payload := map[string]any{
		"status": "ok",
		"diff":   res.Changes,
	}
	if res.Message != "" {
		payload["message"] = res.Message
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRenderSVG(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagramID")

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	svg, err := render.SVG(r.Context(), render.ToDOT(doc))
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := w.Write(svg); err != nil {
		s.logger.Error("write svg response", "diagram_id", id, "err", err)
	}
}
