// ABOUTME: REST endpoints for every resource schema on one ServeMux
// ABOUTME: Routes /api/{storeId}/{entity}[/{id}] through the generic service, plus store and page routes

package api

import (
	"io"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/yuin/goldmark"

	"github.com/2389/storeadmin/internal/auth"
	"github.com/2389/storeadmin/internal/resource"
)

// maxBodyBytes caps request bodies; product bodies carry image URLs only.
const maxBodyBytes = 1 << 20

// Options configures a Handler.
type Options struct {
	// CORSOrigin is sent as Access-Control-Allow-Origin on CORS-enabled routes.
	CORSOrigin string
	Logger     *slog.Logger
	// Middleware wraps the routed mux, innermost first. Used for metrics.
	Middleware []func(http.Handler) http.Handler
}

// Handler serves the resource API.
type Handler struct {
	svc        *resource.Service
	corsOrigin string
	logger     *slog.Logger
	markdown   goldmark.Markdown
	handler    http.Handler
}

// New builds the API. Requests are authenticated optionally from a bearer
// token; each write checks the identity itself.
func New(svc *resource.Service, users auth.UserLookup, verifier auth.TokenVerifier, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origin := opts.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	h := &Handler{
		svc:        svc,
		corsOrigin: origin,
		logger:     logger.With("component", "api"),
		markdown:   goldmark.New(),
	}

	mux := http.NewServeMux()
	h.routes(mux)

	var handler http.Handler = mux
	for _, mw := range opts.Middleware {
		handler = mw(handler)
	}
	// Auth sits outside the middleware so that the request the mux stamps
	// with its pattern is the one the middleware observes.
	h.handler = auth.OptionalAuthMiddleware(users, verifier)(handler)
	return h
}

func (h *Handler) routes(mux *http.ServeMux) {
	// Stores are user-scoped and have their own collection.
	mux.HandleFunc("GET /api/stores", h.handleListStores)
	mux.HandleFunc("POST /api/stores", h.handleCreateStore)
	mux.HandleFunc("OPTIONS /api/stores", h.handlePreflight)
	mux.HandleFunc("GET /api/stores/{storeId}", h.handleGetStore)
	mux.HandleFunc("PATCH /api/stores/{storeId}", h.handleUpdateStore)
	mux.HandleFunc("DELETE /api/stores/{storeId}", h.handleDeleteStore)
	mux.HandleFunc("OPTIONS /api/stores/{storeId}", h.handlePreflight)

	// Storefront pages rendered from store markdown fields.
	mux.HandleFunc("GET /api/{storeId}/pages/{page}", h.handlePage)
	mux.HandleFunc("OPTIONS /api/{storeId}/pages/{page}", h.handlePreflight)

	// Generic store-scoped entities.
	mux.HandleFunc("GET /api/{storeId}/{entity}", h.handleList)
	mux.HandleFunc("POST /api/{storeId}/{entity}", h.handleCreate)
	mux.HandleFunc("OPTIONS /api/{storeId}/{entity}", h.handleEntityPreflight)
	mux.HandleFunc("GET /api/{storeId}/{entity}/{id}", h.handleGet)
	mux.HandleFunc("PATCH /api/{storeId}/{entity}/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/{storeId}/{entity}/{id}", h.handleDelete)
	mux.HandleFunc("OPTIONS /api/{storeId}/{entity}/{id}", h.handleEntityPreflight)

	// Sub-categories.
	mux.HandleFunc("POST /api/{storeId}/categories/{categoryId}", h.handleCreateSubCategory)
	mux.HandleFunc("GET /api/{storeId}/categories/{categoryId}/{subCategoryId}", h.handleGetSubCategory)
	mux.HandleFunc("DELETE /api/{storeId}/categories/{categoryId}/{subCategoryId}", h.handleDeleteSubCategory)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// schemaFor resolves the {entity} path segment to a store-scoped schema.
func (h *Handler) schemaFor(w http.ResponseWriter, r *http.Request) (*resource.Schema, bool) {
	s, ok := h.svc.Registry().Lookup(r.PathValue("entity"))
	if !ok || s.Scope != resource.ScopeStore {
		sendJSONError(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	return s, true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// countResponse is the body of PATCH and DELETE.
type countResponse struct {
	Count int64 `json:"count"`
}
