// Package server exposes the authentication engine over HTTP.
//
// Routes:
//
//	POST /auth/register
//	POST /auth/login
//	POST /auth/refresh
//	POST /auth/logout
//	GET  /auth/me
//	GET  /auth/oauth2/authorize/{provider}
//	GET  /auth/oauth2/callback/{provider}
//	GET  /healthz
//	GET  /metrics
//
// Every JSON error body has the shape {"error": "...", "kind": "..."}.
package server
