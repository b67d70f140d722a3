// ABOUTME: Cross-origin headers and preflight answers for storefront-facing routes
// ABOUTME: Only schemas flagged CORS (stores, contacts) and page routes send the headers

package api

import (
	"net/http"

	"github.com/2389/storeadmin/internal/resource"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
)

func (h *Handler) writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", h.corsOrigin)
	w.Header().Set("Access-Control-Allow-Methods", corsMethods)
	w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
}

func (h *Handler) setCORS(w http.ResponseWriter, s *resource.Schema) {
	if s.CORS {
		h.writeCORS(w)
	}
}

func (h *Handler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	h.writeCORS(w)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) handleEntityPreflight(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFor(w, r)
	if !ok {
		return
	}
	if !s.CORS {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.handlePreflight(w, r)
}
