package ports

import (
	"context"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
)

// LogStore is the hour-rotated sample log. Only the persistence worker
// calls it, so implementations need not be safe for concurrent use.
type LogStore interface {
	// Append writes the batch to the file for the hour bucket of now,
	// rotating first if the bucket changed, and makes it durable before
	// returning.
	Append(batch domain.Batch, now time.Time) error

	// Rotated reports whether the next Append at now opens a new file.
	Rotated(now time.Time) bool

	// Current returns the path of the open file, or "" if none is open.
	Current() string

	// Close closes the open file, if any.
	Close() error
}

// ExportStore is the append-only export file.
type ExportStore interface {
	// Append writes the batch, opening the file on first use.
	Append(batch domain.Batch) error

	// IsOpen reports whether the file handle is open.
	IsOpen() bool

	// Close closes the file handle, if open. A later Append reopens it in
	// append mode.
	Close() error
}

// StatusRepository persists the pipeline status snapshot.
type StatusRepository interface {
	// Load retrieves the last saved status.
	// Returns an empty status and nil error if none exists.
	Load(ctx context.Context) (domain.Status, error)

	// Save persists the status atomically.
	Save(ctx context.Context, status domain.Status) error
}
