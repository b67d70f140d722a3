// ABOUTME: Generic CRUD handlers: decode body, call the resource service, encode the result
// ABOUTME: Write handlers take the caller from the auth context; reads are public

package api

import (
	"errors"
	"net/http"

	"github.com/2389/storeadmin/internal/auth"
	"github.com/2389/storeadmin/internal/resource"
)

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFor(w, r)
	if !ok {
		return
	}
	h.list(w, r, s, r.PathValue("storeId"))
}

func (h *Handler) handleListStores(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, resource.Stores, auth.UserID(r.Context()))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, s *resource.Schema, scopeID string) {
	h.setCORS(w, s)
	records, err := h.svc.List(r.Context(), s, scopeID, resource.ParseQuery(s, r.URL.Query()))
	if err != nil {
		h.writeError(w, s, r.Method, err)
		return
	}
	if records == nil {
		records = []*resource.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFor(w, r)
	if !ok {
		return
	}
	h.setCORS(w, s)
	rec, err := h.svc.Get(r.Context(), s, r.PathValue("storeId"), r.PathValue("id"))
	h.writeRecord(w, s, r.Method, rec, err)
}

func (h *Handler) handleGetStore(w http.ResponseWriter, r *http.Request) {
	h.setCORS(w, resource.Stores)
	rec, err := h.svc.Get(r.Context(), resource.Stores, "", r.PathValue("storeId"))
	h.writeRecord(w, resource.Stores, r.Method, rec, err)
}

// writeRecord answers a single read; a missing record is JSON null.
func (h *Handler) writeRecord(w http.ResponseWriter, s *resource.Schema, method string, rec *resource.Record, err error) {
	if errors.Is(err, resource.ErrNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		h.writeError(w, s, method, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFor(w, r)
	if !ok {
		return
	}
	h.create(w, r, s, r.PathValue("storeId"), "")
}

func (h *Handler) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, resource.Stores, "", "")
}

func (h *Handler) handleCreateSubCategory(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, resource.Categories, r.PathValue("storeId"), r.PathValue("categoryId"))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, s *resource.Schema, scopeID, parentID string) {
	h.setCORS(w, s)
	userID := auth.UserID(r.Context())
	// Authentication is checked before the body is even parsed.
	if userID == "" && !s.PublicCreate {
		h.writeError(w, s, r.Method, resource.ErrUnauthenticated)
		return
	}

	in, err := h.decode(w, r, s)
	if err != nil {
		h.writeError(w, s, r.Method, err)
		return
	}

	var rec *resource.Record
	if parentID != "" {
		rec, err = h.svc.CreateChild(r.Context(), s, userID, scopeID, parentID, in)
	} else {
		rec, err = h.svc.Create(r.Context(), s, userID, scopeID, in)
	}
	if err != nil {
		h.writeError(w, s, r.Method, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFor(w, r)
	if !ok {
		return
	}
	h.update(w, r, s, r.PathValue("storeId"), r.PathValue("id"))
}

func (h *Handler) handleUpdateStore(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, resource.Stores, "", r.PathValue("storeId"))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, s *resource.Schema, scopeID, id string) {
	h.setCORS(w, s)
	userID := auth.UserID(r.Context())
	if userID == "" {
		h.writeError(w, s, r.Method, resource.ErrUnauthenticated)
		return
	}
	in, err := h.decode(w, r, s)
	if err != nil {
		h.writeError(w, s, r.Method, err)
		return
	}
	n, err := h.svc.Update(r.Context(), s, userID, scopeID, id, in)
	if err != nil {
		h.writeError(w, s, r.Method, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFor(w, r)
	if !ok {
		return
	}
	h.delete(w, r, s, r.PathValue("storeId"), r.PathValue("id"))
}

func (h *Handler) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, resource.Stores, "", r.PathValue("storeId"))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, s *resource.Schema, scopeID, id string) {
	h.setCORS(w, s)
	n, err := h.svc.Delete(r.Context(), s, auth.UserID(r.Context()), scopeID, id)
	if err != nil {
		h.writeError(w, s, r.Method, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *Handler) handleGetSubCategory(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetChild(r.Context(), resource.Categories,
		r.PathValue("storeId"), r.PathValue("categoryId"), r.PathValue("subCategoryId"))
	h.writeRecord(w, resource.Categories, r.Method, rec, err)
}

// handleDeleteSubCategory deletes the child only when it hangs off the
// named parent; otherwise nothing matches and the count is zero.
func (h *Handler) handleDeleteSubCategory(w http.ResponseWriter, r *http.Request) {
	s := resource.Categories
	userID := auth.UserID(r.Context())
	if userID == "" {
		h.writeError(w, s, r.Method, resource.ErrUnauthenticated)
		return
	}
	storeID := r.PathValue("storeId")
	_, err := h.svc.GetChild(r.Context(), s, storeID, r.PathValue("categoryId"), r.PathValue("subCategoryId"))
	if errors.Is(err, resource.ErrNotFound) {
		writeJSON(w, http.StatusOK, countResponse{})
		return
	}
	if err != nil {
		h.writeError(w, s, r.Method, err)
		return
	}
	h.delete(w, r, s, storeID, r.PathValue("subCategoryId"))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, s *resource.Schema) (resource.Input, error) {
	body, err := readBody(w, r)
	if err != nil {
		return resource.Input{}, &resource.ValidationError{Message: "Invalid request body"}
	}
	return resource.DecodeJSON(s, body)
}
