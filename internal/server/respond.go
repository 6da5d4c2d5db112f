package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/diagramflow/pkg/errors"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, errors.HTTPStatus(err), map[string]any{
		"error": errors.UserMessage(err),
		"code":  errors.GetCode(err),
	})
}

// decodeJSON reads a request body into dst, mapping failures to
// INVALID_INPUT.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}
