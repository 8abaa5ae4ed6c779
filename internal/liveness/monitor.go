// Package liveness supervises the background alarm scheduler: the external
// context that keeps firing alarms while the foreground is suspended.
package liveness

import (
	"context"
	"sync"
	"time"

	"alarmsync/internal/domain"
	"alarmsync/internal/events"
	"alarmsync/internal/metrics"
	"alarmsync/internal/models"

	"github.com/rs/zerolog"
)

// Monitor probes the background context on a fixed interval and on demand.
// Probe failures are routine: they are folded into BackgroundHealth instead
// of surfacing as errors, and a capability lost to a failed check stays
// lost until a later check explicitly confirms it.
type Monitor struct {
	background domain.BackgroundContext
	interval   time.Duration
	publisher  *events.Publisher[models.BackgroundHealth]
	logger     zerolog.Logger

	mu         sync.Mutex
	health     models.BackgroundHealth
	permission models.PermissionState
}

func NewMonitor(background domain.BackgroundContext, interval time.Duration, publisher *events.Publisher[models.BackgroundHealth], logger *zerolog.Logger) *Monitor {
	m := &Monitor{
		background: background,
		interval:   interval,
		publisher:  publisher,
		logger:     logger.With().Str("component", "liveness").Logger(),
		health: models.BackgroundHealth{
			NotificationPermission: models.PermissionUnset,
		},
		permission: models.PermissionUnset,
	}
	// Seed the publisher so a subscriber registered before the first check
	// still receives a snapshot immediately.
	if publisher != nil {
		publisher.Publish(m.health)
	}
	return m
}

// Start runs periodic health checks until ctx is done. Each check is a
// fresh, independent probe; there is no retry schedule for checks.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info().Dur("interval", m.interval).Msg("liveness monitor started")
	defer m.logger.Info().Msg("liveness monitor stopped")

	m.HealthCheck(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.HealthCheck(ctx)
		}
	}
}

// HealthCheck probes the background context and returns the resulting
// snapshot. It never returns an error; a failed probe is reported through
// the snapshot's Error field with Initialized=false.
func (m *Monitor) HealthCheck(ctx context.Context) models.BackgroundHealth {
	result, err := m.background.Probe(ctx)
	now := time.Now().UTC()

	m.mu.Lock()
	if err != nil {
		metrics.HealthChecksTotal.WithLabelValues("error").Inc()
		m.logger.Warn().Err(err).Msg("background probe failed")
		m.health.Initialized = false
		m.health.Error = (&models.ProbeError{Err: err}).Error()
		// A failed check cannot confirm any capability.
		m.health.Capabilities = models.BackgroundCapabilities{}
	} else {
		metrics.HealthChecksTotal.WithLabelValues("ok").Inc()
		m.health.Initialized = result.Initialized
		m.health.ScheduledCount = result.ScheduledCount
		m.health.Capabilities = result.Capabilities
		m.health.Error = ""
	}
	m.health.NotificationPermission = m.permission
	m.health.LastHealthCheck = &now
	snapshot := m.health
	m.mu.Unlock()

	if m.publisher != nil {
		m.publisher.Publish(snapshot)
	}
	return snapshot
}

// Capabilities returns the last confirmed capability flags without probing.
func (m *Monitor) Capabilities() models.BackgroundCapabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health.Capabilities
}

// Health returns the last health snapshot without probing.
func (m *Monitor) Health() models.BackgroundHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

// RequestNotificationPermission triggers the platform prompt at most once
// per undecided state. Once a decision exists it is returned from cache
// without re-prompting.
func (m *Monitor) RequestNotificationPermission(ctx context.Context) (models.PermissionState, error) {
	m.mu.Lock()
	if m.permission != models.PermissionUnset {
		cached := m.permission
		m.mu.Unlock()
		return cached, nil
	}
	m.mu.Unlock()

	decision, err := m.background.RequestPermission(ctx)
	if err != nil {
		return models.PermissionUnset, err
	}

	m.mu.Lock()
	m.permission = decision
	m.health.NotificationPermission = decision
	snapshot := m.health
	m.mu.Unlock()

	m.logger.Info().Str("decision", string(decision)).Msg("notification permission decided")
	if m.publisher != nil {
		m.publisher.Publish(snapshot)
	}
	return decision, nil
}
