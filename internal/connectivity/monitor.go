// Package connectivity turns a polled reachability signal into
// de-duplicated online/offline edges.
package connectivity

import (
	"context"
	"sync"
	"time"

	"alarmsync/internal/domain"

	"github.com/rs/zerolog"
)

// Direction identifies an edge of the connectivity signal.
type Direction int

const (
	ToOnline Direction = iota
	ToOffline
)

func (d Direction) String() string {
	if d == ToOnline {
		return "to_online"
	}
	return "to_offline"
}

// Handler reacts to a connectivity edge.
type Handler func(online bool)

// Monitor polls a checker and invokes handlers exactly once per edge. The
// underlying signal may report the same state repeatedly; consecutive
// identical observations are collapsed before handlers run.
type Monitor struct {
	checker  domain.ConnectivityChecker
	interval time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	online   bool
	handlers map[Direction][]Handler
}

func NewMonitor(checker domain.ConnectivityChecker, interval time.Duration, logger *zerolog.Logger) *Monitor {
	m := &Monitor{
		checker:  checker,
		interval: interval,
		logger:   logger.With().Str("component", "connectivity").Logger(),
		handlers: make(map[Direction][]Handler),
	}
	// Initial state comes from the platform at startup, not an assumption.
	m.online = checker.Check(context.Background())
	return m
}

// Current returns the last observed state.
func (m *Monitor) Current() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnTransition registers a handler for one edge direction. Registration
// must happen before Start; handlers run on the monitor goroutine.
func (m *Monitor) OnTransition(dir Direction, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[dir] = append(m.handlers[dir], handler)
}

// Start polls until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info().Bool("online", m.Current()).Dur("interval", m.interval).Msg("connectivity monitor started")
	defer m.logger.Info().Msg("connectivity monitor stopped")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Observe(m.checker.Check(ctx))
		}
	}
}

// Observe feeds one reading of the platform signal into the monitor.
// Exposed so event-driven signal sources can push instead of being polled.
func (m *Monitor) Observe(online bool) {
	m.mu.Lock()
	if online == m.online {
		m.mu.Unlock()
		return
	}
	m.online = online
	dir := ToOffline
	if online {
		dir = ToOnline
	}
	handlers := append([]Handler(nil), m.handlers[dir]...)
	m.mu.Unlock()

	m.logger.Info().Bool("online", online).Msg("connectivity edge")
	for _, h := range handlers {
		h(online)
	}
}
