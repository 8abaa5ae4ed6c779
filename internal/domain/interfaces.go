package domain

import (
	"context"

	"alarmsync/internal/models"
)

// OperationQueue is the durable store of pending mutations. The sync
// coordinator is its sole mutator; everyone else only reads counts.
type OperationQueue interface {
	Enqueue(ctx context.Context, kind string, payload []byte) (string, error)
	MarkInFlight(ctx context.Context, id string) (*models.Operation, error)
	Acknowledge(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, cause string, ceiling int) (models.OperationState, error)
	Fail(ctx context.Context, id string, cause string) error
	RequeueFailed(ctx context.Context) (int, error)
	ListPending(ctx context.Context) ([]models.Operation, error)
	ListFailed(ctx context.Context) ([]models.Operation, error)
	GetOperation(ctx context.Context, id string) (*models.Operation, error)
	Counts() models.QueueCounts
}

// Backend delivers a single operation to the authoritative server. The
// returned error is classified: a models.PermanentError is never retried,
// anything else is treated as transient.
type Backend interface {
	Deliver(ctx context.Context, op models.Operation) error
}

// ProbeResult is what the background alarm scheduler reports about itself.
type ProbeResult struct {
	Initialized    bool
	ScheduledCount int
	Capabilities   models.BackgroundCapabilities
}

// BackgroundContext is the external background execution context that can
// fire alarms while the foreground is suspended.
type BackgroundContext interface {
	Probe(ctx context.Context) (ProbeResult, error)
	RequestPermission(ctx context.Context) (models.PermissionState, error)
}

// ConnectivityChecker is the platform online/offline signal source.
type ConnectivityChecker interface {
	Check(ctx context.Context) bool
}

// DeadLetterSink receives operations that failed permanently, for
// out-of-band inspection and replay.
type DeadLetterSink interface {
	Push(ctx context.Context, op models.Operation) error
}
