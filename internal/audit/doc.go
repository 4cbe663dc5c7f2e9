// Package audit relays authentication events to a caller-supplied sink
// on a background goroutine.
//
// The engine decides which events to emit. This package only buffers and
// delivers them; it keeps nothing once a sink has returned.
package audit
