// ABOUTME: HTTP middleware for JWT authentication on API endpoints
// ABOUTME: Extracts JWT from Authorization header and adds the user to context

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/2389/storeadmin/internal/store"
)

// UserLookup resolves a token subject to a local account.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// resolve verifies the token and, when users is non-nil, attaches the
// local account name. A subject with no local account is still accepted:
// tokens may come from an external identity provider.
func resolve(ctx context.Context, users UserLookup, verifier TokenVerifier, token string) (*AuthContext, error) {
	userID, err := verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	authCtx := &AuthContext{UserID: userID}
	if users == nil {
		return authCtx, nil
	}
	user, err := users.GetUser(ctx, userID)
	switch {
	case err == nil:
		authCtx.Username = user.Username
	case errors.Is(err, store.ErrUserNotFound):
	default:
		return nil, err
	}
	return authCtx, nil
}

// OptionalAuthMiddleware attempts JWT auth but allows unauthenticated requests.
// Collection reads and contact submissions are public; writes check
// the identity themselves and answer 401.
func OptionalAuthMiddleware(users UserLookup, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				next.ServeHTTP(w, r) // Continue as anonymous
				return
			}

			authCtx, err := resolve(r.Context(), users, verifier, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}
