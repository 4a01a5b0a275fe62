// Package tasks defines the asynq task type identifiers and payloads
// shared between whatever enqueues a task and the worker that handles it.
package tasks

const (
	// TypeEventLogCompaction trims event-log rows older than the
	// configured retention window, across every room. No payload: the
	// handler reads the cutoff from its own configuration.
	TypeEventLogCompaction = "eventlog:compact"
)
