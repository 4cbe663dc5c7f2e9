// Package identity holds the user record shared by local and federated
// authentication, the request principal, and the store contract.
//
// It has no dependencies on the rest of the module so that stores, flows and
// the engine can all import it.
package identity
