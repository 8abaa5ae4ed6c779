// Package service exposes the engine facade consumers program against:
// enqueue, status/health subscriptions, manual sync and the notification
// permission request. Nothing else is part of the consumer surface.
package service

import (
	"context"
	"sync"

	"alarmsync/internal/connectivity"
	"alarmsync/internal/domain"
	"alarmsync/internal/events"
	"alarmsync/internal/liveness"
	"alarmsync/internal/metrics"
	"alarmsync/internal/models"
	syncpkg "alarmsync/internal/sync"

	"github.com/rs/zerolog"
)

// Engine is the explicitly constructed service instance owning the sync
// subsystem. There is no global singleton; callers hold the reference and
// control its lifetime.
type Engine struct {
	queue        domain.OperationQueue
	coordinator  *syncpkg.Coordinator
	connectivity *connectivity.Monitor
	liveness     *liveness.Monitor
	statusPub    *events.Publisher[models.SyncStatus]
	healthPub    *events.Publisher[models.BackgroundHealth]
	logger       zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func NewEngine(
	queue domain.OperationQueue,
	coordinator *syncpkg.Coordinator,
	connMonitor *connectivity.Monitor,
	livenessMonitor *liveness.Monitor,
	statusPub *events.Publisher[models.SyncStatus],
	healthPub *events.Publisher[models.BackgroundHealth],
	logger *zerolog.Logger,
) *Engine {
	return &Engine{
		queue:        queue,
		coordinator:  coordinator,
		connectivity: connMonitor,
		liveness:     livenessMonitor,
		statusPub:    statusPub,
		healthPub:    healthPub,
		logger:       logger.With().Str("component", "engine").Logger(),
	}
}

// Run starts the monitors and the drain loop, blocking until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		e.connectivity.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		e.liveness.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		e.coordinator.Start(ctx)
	}()
	wg.Wait()

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.logger.Info().Msg("engine stopped")
}

// Enqueue durably records a mutation for eventual delivery and returns its
// id. The operation survives a crash the moment this returns; delivery
// happens on the next drain.
func (e *Engine) Enqueue(ctx context.Context, kind string, payload []byte) (string, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", models.ErrEngineClosed
	}
	e.mu.Unlock()

	id, err := e.queue.Enqueue(ctx, kind, payload)
	if err != nil {
		return "", err
	}
	metrics.OperationsEnqueued.WithLabelValues(kind).Inc()
	e.coordinator.PublishStatus()
	return id, nil
}

// SubscribeStatus delivers the current SyncStatus immediately, then every
// change. The returned func unsubscribes.
func (e *Engine) SubscribeStatus(handler func(models.SyncStatus)) func() {
	return e.statusPub.Subscribe(handler)
}

// SubscribeHealth mirrors SubscribeStatus for BackgroundHealth.
func (e *Engine) SubscribeHealth(handler func(models.BackgroundHealth)) func() {
	return e.healthPub.Subscribe(handler)
}

// ManualSync requests an immediate drain pass. Requests during an active
// pass coalesce.
func (e *Engine) ManualSync() {
	e.coordinator.ManualSync()
}

// RequestNotificationPermission proxies to the liveness monitor; a decided
// permission is served from cache.
func (e *Engine) RequestNotificationPermission(ctx context.Context) (models.PermissionState, error) {
	return e.liveness.RequestNotificationPermission(ctx)
}

// Status returns the current snapshot without subscribing.
func (e *Engine) Status() models.SyncStatus {
	return e.coordinator.Status()
}

// Health returns the last background health snapshot without probing.
func (e *Engine) Health() models.BackgroundHealth {
	return e.liveness.Health()
}

// Capabilities returns the last confirmed background capability flags.
func (e *Engine) Capabilities() models.BackgroundCapabilities {
	return e.liveness.Capabilities()
}

// FailedOperations lists operations that exhausted their retries or were
// rejected permanently, newest first.
func (e *Engine) FailedOperations(ctx context.Context) ([]models.Operation, error) {
	return e.queue.ListFailed(ctx)
}

// RequeueFailed moves all failed operations back to pending with fresh
// attempt budgets, then asks for a drain.
func (e *Engine) RequeueFailed(ctx context.Context) (int, error) {
	n, err := e.queue.RequeueFailed(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.coordinator.PublishStatus()
		e.coordinator.ManualSync()
	}
	return n, nil
}
