// Package middleware adapts the engine to net/http.
//
// [Authenticate] is non-blocking: it attaches a principal when a valid
// bearer access token is present and otherwise passes the request through
// unchanged. Enforcement is left to [RequireAuthenticated], [RequireRole] and
// [RequireFreshIdentity], which respond with a JSON error body.
//
// The package does not parse tokens itself; everything goes through
// authcore.Authenticator and authcore.IdentityResolver.
package middleware
