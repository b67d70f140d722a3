// ABOUTME: Storefront pages rendered from a store's markdown settings
// ABOUTME: privacy, terms, about and contact; converted to HTML with goldmark

package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/2389/storeadmin/internal/resource"
)

type pageSource struct {
	title  string
	fields []string
}

var pages = map[string]pageSource{
	"privacy": {title: "Privacy Policy", fields: []string{"privacyPolicy"}},
	"terms":   {title: "Terms and Conditions", fields: []string{"termsAndConditions"}},
	"about":   {title: "About Us", fields: []string{"aboutUsDescription", "aboutUsOurStory"}},
	"contact": {title: "Contact Us", fields: []string{"contactUsDescription"}},
}

// pageResponse is the body of GET /api/{storeId}/pages/{page}.
type pageResponse struct {
	Page  string `json:"page"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	h.writeCORS(w)

	name := r.PathValue("page")
	src, ok := pages[name]
	if !ok {
		sendJSONError(w, http.StatusNotFound, "Page not found")
		return
	}

	store, err := h.svc.Get(r.Context(), resource.Stores, "", r.PathValue("storeId"))
	if errors.Is(err, resource.ErrNotFound) {
		sendJSONError(w, http.StatusNotFound, "Store not found")
		return
	}
	if err != nil {
		h.writeError(w, resource.Stores, r.Method, err)
		return
	}

	html, err := h.renderPage(store, src)
	if err != nil {
		h.logger.Error("failed to convert markdown", "page", name, "store", store.ID, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Page: name, Title: src.title, HTML: html})
}

func (h *Handler) renderPage(store *resource.Record, src pageSource) (string, error) {
	var parts []string
	for _, field := range src.fields {
		if md := strings.TrimSpace(store.String(field)); md != "" {
			parts = append(parts, md)
		}
	}
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(strings.Join(parts, "\n\n")), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
