// Package federation implements the OAuth2 authorization-code login flow.
//
// The in-flight authorization request is carried in a signed, HttpOnly
// cookie scoped to the auth path, so no server-side session is needed.
// The cookie expires after three minutes and is cleared on every callback.
package federation
