// Package authcore is the authentication core for the booking backend: it
// issues and validates HS256 access and refresh tokens, runs the
// register/login/refresh flows, and reconciles local and federated (Google)
// identities into one user record.
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// authcore exposes [Engine], [Builder], [Config], the [Error] taxonomy and the
// [IdentityStore] / [CredentialVerifier] contracts. Flow orchestration lives in
// internal/flows. Store implementations live under store/, HTTP concerns under
// middleware/ and federation/.
//
// # What this package must NOT do
//
//   - Keep server-side session state. Tokens are self-describing.
//   - Distinguish unknown email from wrong password in any returned error.
//   - Import store/, middleware/ or federation/.
package authcore
