// ABOUTME: Admin web UI for the store dashboard
// ABOUTME: Provides authentication, session management, store setup and the admin routes

package webadmin

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/storeadmin/internal/auth"
	"github.com/2389/storeadmin/internal/resource"
	"github.com/2389/storeadmin/internal/store"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "storeadmin_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "storeadmin_csrf"

	// FlashCookieName carries a one-shot notification across a redirect
	FlashCookieName = "storeadmin_flash"

	// DefaultSessionDuration is how long sessions last when not configured
	DefaultSessionDuration = 7 * 24 * time.Hour
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const userContextKey contextKey = "admin_user"
const csrfContextKey contextKey = "csrf_token"

// Config holds admin UI configuration
type Config struct {
	SessionDuration time.Duration
	// SecureCookies forces the Secure flag even behind a TLS-terminating proxy.
	SecureCookies bool
}

// Store is the persistence the admin UI needs beyond the resource service.
type Store interface {
	store.UserStore
	ListAuditLog(ctx context.Context, filter store.AuditFilter) ([]*store.AuditEntry, error)
}

// Admin handles admin UI routes and authentication
type Admin struct {
	store  Store
	svc    *resource.Service
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new Admin handler
func New(st Store, svc *resource.Service, cfg Config) *Admin {
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = DefaultSessionDuration
	}
	return &Admin{
		store:  st,
		svc:    svc,
		config: cfg,
		logger: slog.Default().With("component", "admin"),
		now:    time.Now,
	}
}

// RegisterRoutes registers all admin routes on the given mux
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	// Public routes (no auth required)
	mux.HandleFunc("GET /admin/login", a.handleLoginPage)
	mux.HandleFunc("POST /admin/login", a.handleLogin)

	// Protected routes (auth required)
	mux.HandleFunc("GET /admin", a.requireAuth(a.handleHome))
	mux.HandleFunc("GET /admin/{$}", a.requireAuth(a.handleHome))
	mux.HandleFunc("POST /admin/logout", a.requireAuth(a.handleLogout))
	mux.HandleFunc("POST /admin/stores", a.requireAuth(a.handleCreateStore))

	// Store scoped pages
	mux.HandleFunc("GET /admin/{storeId}", a.requireStore(a.handleDashboard))
	mux.HandleFunc("GET /admin/{storeId}/settings", a.requireStore(a.handleSettingsPage))
	mux.HandleFunc("POST /admin/{storeId}/settings", a.requireStore(a.handleSettingsSave))
	mux.HandleFunc("GET /admin/{storeId}/settings/delete", a.requireStore(a.handleStoreDeletePage))
	mux.HandleFunc("POST /admin/{storeId}/settings/delete", a.requireStore(a.handleStoreDelete))

	// Generic entity pages
	mux.HandleFunc("GET /admin/{storeId}/{entity}", a.requireStore(a.handleList))
	mux.HandleFunc("GET /admin/{storeId}/{entity}/new", a.requireStore(a.handleNewPage))
	mux.HandleFunc("POST /admin/{storeId}/{entity}/new", a.requireStore(a.handleCreate))
	mux.HandleFunc("GET /admin/{storeId}/{entity}/{id}", a.requireStore(a.handleEditPage))
	mux.HandleFunc("POST /admin/{storeId}/{entity}/{id}", a.requireStore(a.handleUpdate))
	mux.HandleFunc("GET /admin/{storeId}/{entity}/{id}/delete", a.requireStore(a.handleDeletePage))
	mux.HandleFunc("POST /admin/{storeId}/{entity}/{id}/delete", a.requireStore(a.handleDelete))

	a.logger.Info("admin routes registered")
}

// requireAuth wraps a handler to require authentication
func (a *Admin) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := a.getUserFromSession(r)
		if err != nil {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}

		// The resource service reads the caller from the auth context.
		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = auth.WithAuth(ctx, &auth.AuthContext{UserID: user.ID, Username: user.Username})
		next(w, r.WithContext(ctx))
	}
}

type storeHandler func(w http.ResponseWriter, r *http.Request, shop *resource.Record)

// requireStore authenticates and loads the {storeId} store. A store the
// caller does not own is treated as missing.
func (a *Admin) requireStore(next storeHandler) http.HandlerFunc {
	return a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := getUserFromContext(r)
		shop, err := a.svc.Get(r.Context(), resource.Stores, "", r.PathValue("storeId"))
		if err != nil || shop.ScopeID != user.ID {
			if err != nil && !errors.Is(err, resource.ErrNotFound) {
				a.logger.Error("failed to load store", "store", r.PathValue("storeId"), "error", err)
			}
			http.Redirect(w, r, "/admin/", http.StatusSeeOther)
			return
		}
		next(w, r, shop)
	})
}

// getUserFromSession retrieves the authenticated user from the session cookie
func (a *Admin) getUserFromSession(r *http.Request) (*store.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, err
	}

	session, err := a.store.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}

	return a.store.GetUser(r.Context(), session.UserID)
}

// getUserFromContext retrieves the authenticated user from the request context
func getUserFromContext(r *http.Request) *store.User {
	user, _ := r.Context().Value(userContextKey).(*store.User)
	return user
}

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (a *Admin) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	// Try to get existing token from cookie
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   a.secure(r),
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie
func (a *Admin) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// checkForm parses the form and validates the CSRF token. On failure the
// user is sent back to referrer with a notification.
func (a *Admin) checkForm(w http.ResponseWriter, r *http.Request, back string) bool {
	if err := r.ParseForm(); err != nil || !a.validateCSRF(r) {
		a.logger.Warn("form rejected", "path", r.URL.Path, "reason", "csrf")
		a.redirectWithNotice(w, r, back, noticeError, msgSomethingWrong)
		return false
	}
	return true
}

func (a *Admin) secure(r *http.Request) bool {
	return a.config.SecureCookies || r.TLS != nil
}

// createSession creates a new session for a user and sets the cookie
func (a *Admin) createSession(w http.ResponseWriter, r *http.Request, userID string) error {
	sessionID, err := generateSecureToken(32)
	if err != nil {
		return err
	}

	now := a.now()
	session := &store.Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(a.config.SessionDuration),
	}

	if err := a.store.CreateSession(r.Context(), session); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/admin",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   a.secure(r),
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// handleLoginPage renders the login page
func (a *Admin) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := a.getUserFromSession(r); err == nil {
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		return
	}

	_, csrfToken := a.ensureCSRFToken(w, r)
	a.renderLoginPage(w, "", csrfToken)
}

// handleLogin processes login form submission
func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Invalid form data", csrfToken)
		return
	}

	if !a.validateCSRF(r) {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Invalid request, please try again", csrfToken)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Username and password required", csrfToken)
		return
	}

	user, err := a.store.GetUserByUsername(r.Context(), username)

	// Dummy hash keeps the timing of unknown usernames in line with real ones
	dummyHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			_, csrfToken := a.ensureCSRFToken(w, r)
			a.renderLoginPage(w, "Invalid username or password", csrfToken)
			return
		}
		a.logger.Error("failed to get user", "error", err)
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "An error occurred", csrfToken)
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "Invalid username or password", csrfToken)
		return
	}

	if err := a.createSession(w, r, user.ID); err != nil {
		a.logger.Error("failed to create session", "error", err)
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, "An error occurred", csrfToken)
		return
	}

	a.logger.Info("admin login successful", "username", username)
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

// handleLogout logs out the current user
func (a *Admin) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		// Logout is not blocked on a bad token; the session is dropped either way.
		if !a.validateCSRF(r) {
			a.logger.Warn("logout request with invalid CSRF token")
		}
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		_ = a.store.DeleteSession(r.Context(), cookie.Value)
	}

	for _, name := range []string{SessionCookieName, CSRFCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/admin",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}

	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// handleHome sends the user to their newest store, or shows the setup
// modal when they have none.
func (a *Admin) handleHome(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	stores, err := a.svc.List(r.Context(), resource.Stores, user.ID, resource.Query{})
	if err != nil {
		a.logger.Error("failed to list stores", "user", user.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	setup := newSetupState(len(stores))
	if !setup.Open() {
		http.Redirect(w, r, "/admin/"+stores[0].ID, http.StatusSeeOther)
		return
	}

	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderSetup(w, r, user, setup, newFormView(resource.Stores, resource.NewInput(), nil, nil), csrfToken)
}

// handleCreateStore submits the setup form.
func (a *Admin) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	if !a.checkForm(w, r, "/admin/") {
		return
	}
	user := getUserFromContext(r)

	name := strings.TrimSpace(r.FormValue("name"))
	in := resource.NewInput()
	in.Set("name", name)

	if errs := resource.Validate(resource.Stores, in, resource.ModeEndpoint); len(errs) > 0 {
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderSetup(w, r, user, newSetupState(0), newFormView(resource.Stores, in, errs.ByField(), nil), csrfToken)
		return
	}

	var sub submission
	var shop *resource.Record
	err := sub.run(func() error {
		var err error
		shop, err = a.svc.Create(r.Context(), resource.Stores, user.ID, "", in)
		return err
	})
	defer sub.reset()
	if err != nil {
		a.logger.Error("failed to create store", "tag", resource.Stores.Tag+"_POST", "error", err)
		a.redirectWithNotice(w, r, "/admin/", noticeError, msgSomethingWrong)
		return
	}
	a.redirectWithNotice(w, r, "/admin/"+shop.ID, noticeSuccess, createdMessage(resource.Stores))
}

// handleDashboard shows entity counts and recent activity for a store.
func (a *Admin) handleDashboard(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	var counts []entityCount
	for _, s := range a.svc.Registry().All() {
		if s.Scope != resource.ScopeStore {
			continue
		}
		n, err := a.svc.Count(r.Context(), s, shop.ID)
		if err != nil {
			a.logger.Error("failed to count", "entity", s.Entity, "store", shop.ID, "error", err)
			continue
		}
		counts = append(counts, entityCount{Schema: s, Count: n})
	}

	activity, err := a.store.ListAuditLog(r.Context(), store.AuditFilter{ScopeID: shop.ID, Limit: 10})
	if err != nil {
		a.logger.Error("failed to list activity", "store", shop.ID, "error", err)
	}

	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderDashboard(w, r, shop, counts, activity, csrfToken)
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// encodeFlash and decodeFlash keep cookie values free of separators.
func encodeFlash(kind noticeKind, msg string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(string(kind) + "|" + msg))
}

func decodeFlash(v string) (*notice, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, false
	}
	kind, msg, ok := strings.Cut(string(raw), "|")
	if !ok || msg == "" {
		return nil, false
	}
	return &notice{Kind: noticeKind(kind), Message: msg}, true
}
