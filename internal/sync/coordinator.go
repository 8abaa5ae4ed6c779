// Package sync orchestrates the drain of the operation queue against the
// backend, reconciling connectivity, queue state and drain progress into a
// single published SyncStatus.
package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"alarmsync/internal/connectivity"
	"alarmsync/internal/domain"
	"alarmsync/internal/events"
	"alarmsync/internal/metrics"
	"alarmsync/internal/models"

	"github.com/rs/zerolog"
)

// Options configures a Coordinator.
type Options struct {
	Interval        time.Duration
	RetryCeiling    int
	DeliveryTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.Interval == 0 {
		o.Interval = models.DefaultSyncInterval
	}
	if o.RetryCeiling == 0 {
		o.RetryCeiling = models.DefaultRetryCeiling
	}
	if o.DeliveryTimeout == 0 {
		o.DeliveryTimeout = models.DefaultDeliveryTimeout
	}
}

// Coordinator is a two-state machine: Idle, or Draining exactly once at a
// time. Drains are triggered by a ToOnline edge, a periodic timer while
// online, or a manual request; concurrent triggers coalesce into one pass.
type Coordinator struct {
	queue      domain.OperationQueue
	backend    domain.Backend
	monitor    *connectivity.Monitor
	deadLetter domain.DeadLetterSink
	publisher  *events.Publisher[models.SyncStatus]
	opts       Options
	logger     zerolog.Logger

	draining atomic.Bool
	trigger  chan string

	mu       sync.Mutex
	lastSync *time.Time
}

func NewCoordinator(
	queue domain.OperationQueue,
	backend domain.Backend,
	monitor *connectivity.Monitor,
	deadLetter domain.DeadLetterSink,
	publisher *events.Publisher[models.SyncStatus],
	opts Options,
	logger *zerolog.Logger,
) *Coordinator {
	opts.applyDefaults()
	c := &Coordinator{
		queue:      queue,
		backend:    backend,
		monitor:    monitor,
		deadLetter: deadLetter,
		publisher:  publisher,
		opts:       opts,
		logger:     logger.With().Str("component", "sync").Logger(),
		trigger:    make(chan string, 1),
	}

	// Coming back online is the sole edge that forces an immediate drain.
	monitor.OnTransition(connectivity.ToOnline, func(bool) {
		metrics.ConnectivityEdges.WithLabelValues("to_online").Inc()
		c.requestDrain("connectivity")
	})
	monitor.OnTransition(connectivity.ToOffline, func(bool) {
		metrics.ConnectivityEdges.WithLabelValues("to_offline").Inc()
		c.PublishStatus()
	})

	// Seed the publisher so a subscriber registered before Start still
	// receives a snapshot immediately.
	c.PublishStatus()

	return c
}

// Start runs the drain loop until ctx is done. Shutdown lets the operation
// currently being delivered finish, then halts before starting the next.
func (c *Coordinator) Start(ctx context.Context) {
	c.logger.Info().Dur("interval", c.opts.Interval).Msg("sync coordinator started")
	defer c.logger.Info().Msg("sync coordinator stopped")

	c.PublishStatus()

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.monitor.Current() {
				c.requestDrain("timer")
			}
		case trigger := <-c.trigger:
			c.drain(ctx, trigger)
		}
	}
}

// ManualSync asks for an immediate drain pass. A request arriving while a
// pass is already running is coalesced, not queued up behind it twice.
func (c *Coordinator) ManualSync() {
	c.requestDrain("manual")
}

func (c *Coordinator) requestDrain(trigger string) {
	select {
	case c.trigger <- trigger:
	default:
		// A drain is already pending or running; this trigger folds into it.
	}
}

// SyncInProgress reports whether a drain pass is currently executing.
func (c *Coordinator) SyncInProgress() bool {
	return c.draining.Load()
}

// LastSync returns the time of the last fully successful drain.
func (c *Coordinator) LastSync() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}

// Status assembles the current engine snapshot. It is a pure read.
func (c *Coordinator) Status() models.SyncStatus {
	counts := c.queue.Counts()
	return models.SyncStatus{
		IsOnline:       c.monitor.Current(),
		SyncInProgress: c.draining.Load(),
		PendingCount:   counts.Pending,
		InFlightCount:  counts.InFlight,
		FailedCount:    counts.Failed,
		LastSync:       c.LastSync(),
	}
}

// PublishStatus pushes a fresh snapshot to subscribers and updates the
// queue depth gauges.
func (c *Coordinator) PublishStatus() {
	status := c.Status()
	metrics.ObserveQueueDepth(status.PendingCount, status.InFlightCount, status.FailedCount)
	if c.publisher != nil {
		c.publisher.Publish(status)
	}
}

// drain delivers the pending snapshot sequentially, in submission order.
// A transient failure stops the pass so a retryable operation is never
// skipped over; a permanent failure is recorded and the pass continues.
func (c *Coordinator) drain(ctx context.Context, trigger string) {
	if !c.draining.CompareAndSwap(false, true) {
		return
	}
	defer c.draining.Store(false)

	metrics.DrainsTotal.WithLabelValues(trigger).Inc()
	started := time.Now()
	defer func() {
		metrics.DrainDuration.Observe(time.Since(started).Seconds())
		c.PublishStatus()
	}()

	c.PublishStatus()

	ops, err := c.queue.ListPending(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to snapshot pending operations")
		return
	}
	if len(ops) == 0 {
		c.markSynced()
		return
	}

	c.logger.Info().Str("trigger", trigger).Int("pending", len(ops)).Msg("drain started")

	clean := true
	for i := range ops {
		select {
		case <-ctx.Done():
			// Shutdown between operations: leave the rest pending.
			return
		default:
		}

		if stop := c.deliverOne(ctx, &ops[i], &clean); stop {
			c.logger.Info().Str("operation_id", ops[i].ID).Msg("drain stopped on transient failure")
			return
		}
	}

	if clean {
		c.markSynced()
	}
	c.logger.Info().Int("delivered", len(ops)).Msg("drain finished")
}

// deliverOne handles a single operation. Returns true when the pass must
// stop (transient failure of this operation).
func (c *Coordinator) deliverOne(ctx context.Context, op *models.Operation, clean *bool) bool {
	claimed, err := c.queue.MarkInFlight(ctx, op.ID)
	if err != nil {
		if errors.Is(err, models.ErrOperationNotFound) || errors.Is(err, models.ErrAlreadyInFlight) {
			// Acknowledged or claimed since the snapshot; nothing to do.
			return false
		}
		c.logger.Error().Err(err).Str("operation_id", op.ID).Msg("failed to claim operation")
		*clean = false
		return true
	}

	// The delivery deliberately does not inherit the run context: an
	// in-flight delivery is allowed to finish naturally even during
	// shutdown or a connectivity drop.
	deliverCtx, cancel := context.WithTimeout(context.Background(), c.opts.DeliveryTimeout)
	deliverErr := c.backend.Deliver(deliverCtx, *claimed)
	cancel()

	// Recording the outcome must also survive shutdown. The delivery
	// already reached the backend; losing the transition here would leave
	// the operation in flight and redeliver it after crash recovery.
	recordCtx := context.Background()

	switch {
	case deliverErr == nil:
		metrics.DeliveriesTotal.WithLabelValues("ack").Inc()
		if err := c.queue.Acknowledge(recordCtx, op.ID); err != nil {
			c.logger.Error().Err(err).Str("operation_id", op.ID).Msg("failed to acknowledge operation")
		}
		c.PublishStatus()
		return false

	case models.IsPermanent(deliverErr):
		metrics.DeliveriesTotal.WithLabelValues("permanent").Inc()
		c.logger.Warn().Err(deliverErr).Str("operation_id", op.ID).Str("kind", op.Kind).Msg("operation failed permanently")
		if err := c.queue.Fail(recordCtx, op.ID, deliverErr.Error()); err != nil {
			c.logger.Error().Err(err).Str("operation_id", op.ID).Msg("failed to mark operation failed")
		}
		c.pushDeadLetter(recordCtx, op.ID)
		*clean = false
		c.PublishStatus()
		return false

	default:
		metrics.DeliveriesTotal.WithLabelValues("transient").Inc()
		c.logger.Warn().Err(deliverErr).Str("operation_id", op.ID).Str("kind", op.Kind).Msg("operation failed transiently")
		state, err := c.queue.Retry(recordCtx, op.ID, deliverErr.Error(), c.opts.RetryCeiling)
		if err != nil {
			c.logger.Error().Err(err).Str("operation_id", op.ID).Msg("failed to retry operation")
			*clean = false
			c.PublishStatus()
			return true
		}
		*clean = false
		if state == models.StateFailed {
			// Ceiling exhaustion is a permanent outcome: the operation is
			// out of the pending set, so the pass moves past it.
			c.logger.Warn().Str("operation_id", op.ID).Int("ceiling", c.opts.RetryCeiling).Msg("retry ceiling exceeded")
			c.pushDeadLetter(recordCtx, op.ID)
			c.PublishStatus()
			return false
		}
		c.PublishStatus()
		return true
	}
}

func (c *Coordinator) pushDeadLetter(ctx context.Context, id string) {
	if c.deadLetter == nil {
		return
	}
	op, err := c.queue.GetOperation(ctx, id)
	if err != nil {
		return
	}
	if err := c.deadLetter.Push(ctx, *op); err != nil {
		c.logger.Warn().Err(err).Str("operation_id", id).Msg("dead-letter push failed")
	}
}

func (c *Coordinator) markSynced() {
	now := time.Now().UTC()
	c.mu.Lock()
	c.lastSync = &now
	c.mu.Unlock()
}
