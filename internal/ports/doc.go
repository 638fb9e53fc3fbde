// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [BatchSink]: Receives every sealed batch (rendering collaborators)
//   - [RateReporter]: Receives samples-per-second reports
//   - [LogStore]: Hour-rotated sample log used by the persistence worker
//   - [ExportStore]: Toggleable export file used by the persistence worker
//   - [StatusRepository]: Persists the pipeline status snapshot
//   - [Logger]: Structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// file system, MQTT and zerolog backed types.
package ports
