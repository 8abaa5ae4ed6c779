package models

import "time"

// OperationState is the queue lifecycle state of an operation.
type OperationState string

const (
	StatePending  OperationState = "pending"
	StateInFlight OperationState = "in_flight"
	StateFailed   OperationState = "failed"
)

// Operation is a single pending mutation awaiting delivery to the backend.
// The ID is assigned at enqueue time and stays stable across retries; the
// payload is opaque to the engine and delivered to the backend verbatim.
type Operation struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Payload    []byte         `json:"payload"`
	State      OperationState `json:"state"`
	Attempts   int            `json:"attempts"`
	LastError  *string        `json:"last_error,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// QueueCounts is a point-in-time breakdown of the operation queue.
type QueueCounts struct {
	Pending  int `json:"pending"`
	InFlight int `json:"in_flight"`
	Failed   int `json:"failed"`
}

// Total returns the full queue size across all states.
func (c QueueCounts) Total() int {
	return c.Pending + c.InFlight + c.Failed
}
