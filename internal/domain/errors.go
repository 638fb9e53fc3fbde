package domain

import "errors"

// Domain errors represent error conditions in the seriallog domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("seriallog: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("seriallog: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("seriallog: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("seriallog: invalid configuration")

	// ErrQueueClosed is returned when enqueueing after the shutdown item.
	ErrQueueClosed = errors.New("seriallog: work queue closed")

	// ErrTransportUnavailable is returned when the byte source cannot be opened.
	ErrTransportUnavailable = errors.New("seriallog: transport unavailable")
)
