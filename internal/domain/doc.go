// Package domain contains the core domain entities and value objects for seriallog.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (file system, MQTT, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Sample]: A single 12-bit reading decoded from the instrument stream
//   - [Batch]: A fixed-length, immutable run of samples handed to persistence
//   - [Status]: Snapshot of the pipeline for the status file
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
