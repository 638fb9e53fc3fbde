package domain

import "time"

// Status is a point-in-time view of the pipeline, persisted to status.json
// so operators can inspect a running logger without attaching to it.
type Status struct {
	Paused         bool      `json:"paused"`
	ExportEnabled  bool      `json:"export_enabled"`
	LogFile        string    `json:"log_file"`
	ExportOpen     bool      `json:"export_open"`
	BatchesWritten uint64    `json:"batches_written"`
	SamplesWritten uint64    `json:"samples_written"`
	ExportBatches  uint64    `json:"export_batches"`
	WriteErrors    uint64    `json:"write_errors"`
	QueueDepth     int       `json:"queue_depth"`
	Dropped        uint64    `json:"dropped_batches"`
	SamplesPerSec  int       `json:"samples_per_sec"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsEmpty returns true if the status has never been written.
func (s Status) IsEmpty() bool {
	return s.UpdatedAt.IsZero()
}
