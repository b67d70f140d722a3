// ABOUTME: End-to-end tests for the REST endpoints over a temp SQLite store
// ABOUTME: Status codes, error messages, ownership no-ops, filters, CORS, pages and sub-categories

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storeadmin/internal/auth"
	"github.com/2389/storeadmin/internal/metrics"
	"github.com/2389/storeadmin/internal/resource"
	"github.com/2389/storeadmin/internal/store"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

type testEnv struct {
	handler  *Handler
	store    *store.SQLStore
	verifier *auth.JWTVerifier
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registry := resource.DefaultRegistry()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"), registry)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	verifier, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)

	m := metrics.New()
	svc := resource.NewService(s, registry, nil, s, m)
	h := New(svc, s, verifier, Options{
		CORSOrigin: "https://shop.example",
		Middleware: []func(http.Handler) http.Handler{m.Middleware},
	})
	return &testEnv{handler: h, store: s, verifier: verifier, metrics: m}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.verifier.Generate(userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), "body: %s", rec.Body.String())
	return m
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list), "body: %s", rec.Body.String())
	return list
}

// mustCreate posts body and returns the created record's id.
func (e *testEnv) mustCreate(t *testing.T, path, token string, body map[string]any) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, path, token, body)
	require.Equal(t, http.StatusOK, rec.Code, "POST %s: %s", path, rec.Body.String())
	id, _ := decodeMap(t, rec)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

type catalog struct {
	storeID, billboardID, categoryID, colorID, sizeID string
}

func (e *testEnv) seedCatalog(t *testing.T, token string) catalog {
	t.Helper()
	var c catalog
	c.storeID = e.mustCreate(t, "/api/stores", token, map[string]any{"name": "Shop"})
	base := "/api/" + c.storeID
	c.billboardID = e.mustCreate(t, base+"/billboards", token, map[string]any{"label": "Summer", "imageUrl": "https://img/summer.png"})
	c.categoryID = e.mustCreate(t, base+"/categories", token, map[string]any{"name": "Shirts", "billboardId": c.billboardID})
	c.colorID = e.mustCreate(t, base+"/colors", token, map[string]any{"name": "Red", "value": "#ff0000"})
	c.sizeID = e.mustCreate(t, base+"/sizes", token, map[string]any{"name": "Medium", "value": "M"})
	return c
}

func (c catalog) product(name string, featured bool) map[string]any {
	return map[string]any{
		"name":        name,
		"price":       "19.99",
		"description": "Plain cotton tee",
		"categoryId":  c.categoryID,
		"sizeId":      c.sizeID,
		"colorId":     c.colorID,
		"images":      []map[string]string{{"url": "https://img/" + name + "-b.png"}, {"url": "https://img/" + name + "-a.png"}},
		"isFeatured":  featured,
	}
}

func TestCreate_MissingFieldIsNamed(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)

	tests := []struct {
		entity string
		body   map[string]any
		want   string
	}{
		{"billboards", map[string]any{"label": "Only label"}, "Image URL is required"},
		{"categories", map[string]any{"billboardId": c.billboardID}, "Name is required"},
		{"colors", map[string]any{"name": "Red", "value": ""}, "Value is required"},
		{"colors", map[string]any{"name": "Red", "value": "ff0000"}, "String must be a valid hex code"},
		{"sizes", map[string]any{"name": "S"}, "Value is required"},
		{"products", map[string]any{"name": "Tee", "price": "1"}, "Description is required"},
	}
	for _, tt := range tests {
		t.Run(tt.entity+"/"+tt.want, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/"+c.storeID+"/"+tt.entity, tok, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeMap(t, rec)["error"])
		})
	}
}

func TestCreate_ProductImagesRequired(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)

	body := c.product("tee", false)
	delete(body, "images")
	rec := env.do(t, http.MethodPost, "/api/"+c.storeID+"/products", tok, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Images are required", decodeMap(t, rec)["error"])
}

func TestWrites_RequireAuthentication(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCatalog(t, env.token(t, "alice"))
	path := "/api/" + c.storeID + "/sizes/" + c.sizeID

	for _, method := range []string{http.MethodPatch, http.MethodDelete} {
		rec := env.do(t, method, path, "", map[string]any{"name": "L", "value": "L"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, method)
		assert.Equal(t, "Unauthenticated", decodeMap(t, rec)["error"])
	}

	rec := env.do(t, http.MethodPost, "/api/"+c.storeID+"/sizes", "", map[string]any{"name": "L", "value": "L"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPatch, path, "not-a-jwt", map[string]any{"name": "L", "value": "L"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreate_InStoreOwnedByAnother(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCatalog(t, env.token(t, "alice"))

	rec := env.do(t, http.MethodPost, "/api/"+c.storeID+"/sizes", env.token(t, "mallory"), map[string]any{"name": "L", "value": "L"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unauthorized", decodeMap(t, rec)["error"])
}

func TestWrites_OwnerMismatchIsSilentNoOp(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCatalog(t, env.token(t, "alice"))
	mallory := env.token(t, "mallory")
	path := "/api/" + c.storeID + "/sizes/" + c.sizeID

	rec := env.do(t, http.MethodPatch, path, mallory, map[string]any{"name": "Hacked", "value": "H"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, path, mallory, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Medium", decodeMap(t, rec)["name"])
}

func TestUpdate_Owner(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)
	path := "/api/" + c.storeID + "/sizes/" + c.sizeID

	rec := env.do(t, http.MethodPatch, path, tok, map[string]any{"name": "Large", "value": "L"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	assert.Equal(t, "Large", decodeMap(t, env.do(t, http.MethodGet, path, "", nil))["name"])
}

func TestDelete_ReferencedEntityFails(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)

	rec := env.do(t, http.MethodDelete, "/api/"+c.storeID+"/billboards/"+c.billboardID, tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Make sure you removed all categories using this billboard.", decodeMap(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/api/"+c.storeID+"/categories/"+c.categoryID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, c.billboardID, decodeMap(t, rec)["billboardId"], "dependent untouched")

	rec = env.do(t, http.MethodDelete, "/api/"+c.storeID+"/categories/"+c.categoryID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
}

func TestProducts_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)

	id := env.mustCreate(t, "/api/"+c.storeID+"/products", tok, c.product("tee", true))

	got := decodeMap(t, env.do(t, http.MethodGet, "/api/"+c.storeID+"/products/"+id, "", nil))
	assert.Equal(t, "tee", got["name"])
	assert.Equal(t, "19.99", got["price"])
	assert.Equal(t, "Plain cotton tee", got["description"])
	assert.Equal(t, true, got["isFeatured"])
	assert.Equal(t, false, got["isArchived"])
	assert.Equal(t, c.storeID, got["storeId"])

	category := got["category"].(map[string]any)
	assert.Equal(t, "Shirts", category["name"])
	assert.Equal(t, "Summer", category["billboard"].(map[string]any)["label"])
	assert.Equal(t, "Red", got["color"].(map[string]any)["name"])
	assert.Equal(t, "Medium", got["size"].(map[string]any)["name"])

	images := got["images"].([]any)
	require.Len(t, images, 2)
	assert.Equal(t, "https://img/tee-a.png", images[0].(map[string]any)["url"], "images sorted by url")
}

func TestUpdate_ProductReplacesImages(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)
	path := "/api/" + c.storeID + "/products/" + env.mustCreate(t, "/api/"+c.storeID+"/products", tok, c.product("tee", false))

	body := c.product("tee", false)
	body["images"] = []any{"https://img/new.png"}
	rec := env.do(t, http.MethodPatch, path, tok, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	images := decodeMap(t, env.do(t, http.MethodGet, path, "", nil))["images"].([]any)
	require.Len(t, images, 1)
	assert.Equal(t, "https://img/new.png", images[0].(map[string]any)["url"])
}

func TestGet_MissingIsNull(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCatalog(t, env.token(t, "alice"))

	rec := env.do(t, http.MethodGet, "/api/"+c.storeID+"/colors/does-not-exist", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestProducts_FilterCombinationNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)
	base := "/api/" + c.storeID

	blue := env.mustCreate(t, base+"/colors", tok, map[string]any{"name": "Blue", "value": "#0000ff"})

	first := env.mustCreate(t, base+"/products", tok, c.product("first", true))
	env.mustCreate(t, base+"/products", tok, c.product("plain", false))
	other := c.product("blue", true)
	other["colorId"] = blue
	env.mustCreate(t, base+"/products", tok, other)
	archived := c.product("archived", true)
	archived["isArchived"] = true
	env.mustCreate(t, base+"/products", tok, archived)
	last := env.mustCreate(t, base+"/products", tok, c.product("last", true))

	list := decodeList(t, env.do(t, http.MethodGet, base+"/products?colorId="+c.colorID+"&isFeatured=true", "", nil))
	require.Len(t, list, 2)
	assert.Equal(t, last, list[0]["id"])
	assert.Equal(t, first, list[1]["id"])

	all := decodeList(t, env.do(t, http.MethodGet, base+"/products", "", nil))
	assert.Len(t, all, 4, "archived products are hidden")
}

func TestList_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCatalog(t, env.token(t, "alice"))

	rec := env.do(t, http.MethodGet, "/api/"+c.storeID+"/products", "", nil)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestUnknownEntity(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/s/widgets", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStores_ScopedToCaller(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "alice")
	env.seedCatalog(t, alice)
	env.seedCatalog(t, env.token(t, "bob"))

	stores := decodeList(t, env.do(t, http.MethodGet, "/api/stores", alice, nil))
	require.Len(t, stores, 1)
	assert.Equal(t, "alice", stores[0]["userId"])

	rec := env.do(t, http.MethodGet, "/api/stores", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/stores", alice, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name is required", decodeMap(t, rec)["error"])
}

func TestStores_DeleteWithChildrenFails(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)

	rec := env.do(t, http.MethodDelete, "/api/stores/"+c.storeID, tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Make sure you removed all products and categories first.", decodeMap(t, rec)["error"])

	rec = env.do(t, http.MethodDelete, "/api/stores/"+c.storeID, env.token(t, "bob"), nil)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())
}

func TestContacts_PublicWithCORS(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCatalog(t, env.token(t, "alice"))
	path := "/api/" + c.storeID + "/contacts"

	rec := env.do(t, http.MethodPost, path, "", map[string]any{"email": "a@b.c", "title": "Hello", "message": "Do you ship?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodPost, "/api/missing-store/contacts", "", map[string]any{"email": "a@b.c", "title": "Hello", "message": "Hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodOptions, path, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = env.do(t, http.MethodOptions, "/api/"+c.storeID+"/billboards", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPages_RenderMarkdown(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)

	rec := env.do(t, http.MethodPatch, "/api/stores/"+c.storeID, tok, map[string]any{
		"name":          "Shop",
		"privacyPolicy": "# Privacy\n\nWe keep **nothing**.",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/"+c.storeID+"/pages/privacy", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeMap(t, rec)
	assert.Equal(t, "Privacy Policy", page["title"])
	assert.Contains(t, page["html"], "<h1>Privacy</h1>")
	assert.Contains(t, page["html"], "<strong>nothing</strong>")

	rec = env.do(t, http.MethodGet, "/api/"+c.storeID+"/pages/careers", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/missing/pages/privacy", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubCategories(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	c := env.seedCatalog(t, tok)
	base := "/api/" + c.storeID + "/categories/"

	rec := env.do(t, http.MethodPost, base+c.categoryID, tok, map[string]any{"name": "Polos", "billboardId": c.billboardID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	child := decodeMap(t, rec)
	childID := child["id"].(string)
	assert.Equal(t, c.categoryID, child["parentCategoryId"])
	assert.Equal(t, "Shirts", child["parentCategory"].(map[string]any)["name"])

	rec = env.do(t, http.MethodGet, base+c.categoryID+"/"+childID, "", nil)
	assert.Equal(t, "Polos", decodeMap(t, rec)["name"])

	roots := decodeList(t, env.do(t, http.MethodGet, "/api/"+c.storeID+"/categories?parentCategoryId=none", "", nil))
	require.Len(t, roots, 1)
	assert.Equal(t, c.categoryID, roots[0]["id"])

	rec = env.do(t, http.MethodDelete, base+c.categoryID, tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "parent is referenced by its child")

	rec = env.do(t, http.MethodDelete, base+childID+"/"+c.categoryID, tok, nil)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String(), "wrong parent matches nothing")

	rec = env.do(t, http.MethodDelete, base+c.categoryID+"/"+childID, tok, nil)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
}

func TestMetrics_CountRoutes(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCatalog(t, env.token(t, "alice"))
	env.do(t, http.MethodGet, "/api/"+c.storeID+"/sizes", "", nil)

	rec := httptest.NewRecorder()
	env.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `route="POST /api/{storeId}/{entity}"`)
	assert.Contains(t, body, `route="GET /api/{storeId}/{entity}"`)
	assert.Contains(t, body, `storeadmin_resource_writes_total{action="created",entity="billboards"} 1`)
}
