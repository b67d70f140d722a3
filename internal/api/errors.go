// ABOUTME: Maps resource errors onto HTTP status codes and JSON error bodies
// ABOUTME: Unexpected failures are logged with the entity tag and answered as 500

package api

import (
	"errors"
	"net/http"

	"github.com/2389/storeadmin/internal/resource"
)

// writeError is the single place resource errors become HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, s *resource.Schema, method string, err error) {
	var verr *resource.ValidationError
	switch {
	case errors.As(err, &verr):
		sendJSONError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, resource.ErrUnauthenticated):
		sendJSONError(w, http.StatusUnauthorized, "Unauthenticated")
	case errors.Is(err, resource.ErrForbidden):
		sendJSONError(w, http.StatusForbidden, "Unauthorized")
	case errors.Is(err, resource.ErrMissingScope):
		sendJSONError(w, http.StatusBadRequest, "Store id is required")
	case errors.Is(err, resource.ErrMissingID):
		sendJSONError(w, http.StatusBadRequest, s.Singular+" id is required")
	case errors.Is(err, resource.ErrReferenced):
		h.logger.Warn("delete rejected by references", "tag", s.Tag+"_"+method, "error", err)
		sendJSONError(w, http.StatusConflict, s.DependentsHint)
	case errors.Is(err, resource.ErrNotFound):
		sendJSONError(w, http.StatusNotFound, "Store not found")
	default:
		h.logger.Error("request failed", "tag", s.Tag+"_"+method, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "Internal error")
	}
}
