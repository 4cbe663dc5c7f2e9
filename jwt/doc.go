// Package jwt issues and verifies the HS256 access and refresh tokens used by
// the authentication engine.
//
// Decoding and expiry are separate: Decode rejects forged,
// malformed or foreign-algorithm tokens, while Expired and Validate apply the
// clock. Only one signing key is active at a time.
package jwt
