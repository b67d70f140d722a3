// Package auth provides authentication for the store dashboard.
//
// # Authentication Methods
//
//   - JWT Tokens: API clients send "Authorization: Bearer <token>". Tokens
//     are HS256 signed with the configured jwt_secret (at least 32 bytes)
//     and carry the user id in the sub claim.
//
//   - Sessions: the web UI signs users in with username and password
//     (bcrypt) and keeps a session cookie; see package webadmin.
//
// Both paths end in an AuthContext stored on the request context:
//
//	ctx = auth.WithAuth(ctx, &auth.AuthContext{UserID: id})
//	userID := auth.UserID(ctx) // "" when anonymous
//
// # Middleware
//
// OptionalAuthMiddleware attaches the caller when a valid token is present
// and lets anonymous requests through. Public reads and contact submissions
// rely on that; every other write checks the caller itself and answers 401.
//
// A token subject with no local account is accepted so tokens issued by an
// external identity provider keep working.
package auth
