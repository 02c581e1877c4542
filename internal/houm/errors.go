package houm

import "errors"

// Domain-specific errors for the houm package.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMissingSiteKey is returned when a controller is constructed
	// without a site key. The controller stays inert in that case; the
	// error is logged, not propagated.
	ErrMissingSiteKey = errors.New("houm: site key is required")

	// ErrNetwork wraps any transport-level failure of the snapshot
	// fetch (timeout, DNS, connection refused).
	ErrNetwork = errors.New("houm: network error")

	// ErrNotConnected is returned when emitting on a socket that is
	// not connected.
	ErrNotConnected = errors.New("houm: socket not connected")

	// ErrAlreadyConnected is returned when connecting a socket twice.
	ErrAlreadyConnected = errors.New("houm: socket already connected")

	// ErrPollerRunning is returned when starting a poller that is
	// already running.
	ErrPollerRunning = errors.New("houm: poller already running")

	// ErrInertController is returned by operations on a controller
	// that was constructed without a site key.
	ErrInertController = errors.New("houm: controller is inert (no site key)")
)
