package nfc

import "context"

// ReadHandler is called for each tag read delivered by an active scan.
type ReadHandler func(msg *Message)

// ErrorHandler is called when the scan reports a failure.
type ErrorHandler func(err error)

// Capability is a proximity scanner a Session can drive. The production
// implementation talks to a reader agent over websocket (internal/agent);
// tests inject fakes.
type Capability interface {
	// Available reports whether a scanner is reachable on this host.
	Available() bool
	// Scan asks the scanner to begin scanning. It returns once scanning has
	// begun, or with the fault that prevented it. After a nil return the
	// handlers are invoked for each read until ctx is cancelled.
	Scan(ctx context.Context, onRead ReadHandler, onError ErrorHandler) error
}
