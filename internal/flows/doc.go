// Package flows contains the orchestration for each engine operation:
// register, login, refresh and federated identity resolution.
//
// Each Run function takes a typed dependency struct and returns a result
// carrying a FailureKind instead of an error sentinel, so the root package
// owns the mapping to its public error taxonomy.
//
// Flows hold no state between calls and must not import the root package.
package flows
