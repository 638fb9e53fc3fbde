package ports

// ByteSource delivers raw bytes from the instrument transport.
type ByteSource interface {
	// TryRead returns whatever bytes are available without blocking.
	// It returns nil, nil when nothing is pending and io.EOF once the
	// stream has ended. Any other error is terminal.
	TryRead() ([]byte, error)
}
