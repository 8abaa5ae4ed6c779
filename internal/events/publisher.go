// Package events provides the fan-out surface observers use to follow
// engine state without polling.
package events

import "sync"

// Publisher broadcasts snapshots of T to subscribers. Each subscriber gets
// the current snapshot immediately on subscribe and every later change,
// delivered on its own goroutine so a slow observer never blocks the
// engine. Delivery is last-write-wins: intermediate snapshots may be
// skipped, only the latest is guaranteed. Handlers for one subscriber are
// never invoked concurrently.
type Publisher[T any] struct {
	mu      sync.Mutex
	current T
	seeded  bool
	nextID  int
	subs    map[int]*subscriber[T]
	equal   func(a, b T) bool
}

type subscriber[T any] struct {
	handler func(T)
	pending chan T
	done    chan struct{}
}

// NewPublisher constructs a publisher. equal suppresses notifications for
// snapshots identical to the last published one; pass nil to deliver every
// publish.
func NewPublisher[T any](equal func(a, b T) bool) *Publisher[T] {
	return &Publisher[T]{
		subs:  make(map[int]*subscriber[T]),
		equal: equal,
	}
}

// Subscribe registers a handler and returns an unsubscribe func. The
// handler is invoked once with the current snapshot before any change
// notifications, provided a snapshot has been published.
func (p *Publisher[T]) Subscribe(handler func(T)) func() {
	sub := &subscriber[T]{
		handler: handler,
		pending: make(chan T, 1),
		done:    make(chan struct{}),
	}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = sub
	if p.seeded {
		sub.pending <- p.current
	}
	p.mu.Unlock()

	go sub.run()

	return func() {
		p.mu.Lock()
		s, ok := p.subs[id]
		delete(p.subs, id)
		p.mu.Unlock()
		if ok {
			close(s.done)
		}
	}
}

// Publish records snapshot as current and notifies subscribers. A snapshot
// equal to the previous one is dropped, so observers never see duplicate
// notifications for the same state.
func (p *Publisher[T]) Publish(snapshot T) {
	p.mu.Lock()
	if p.seeded && p.equal != nil && p.equal(p.current, snapshot) {
		p.mu.Unlock()
		return
	}
	p.current = snapshot
	p.seeded = true
	subs := make([]*subscriber[T], 0, len(p.subs))
	for _, s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	for _, s := range subs {
		s.offer(snapshot)
	}
}

// Current returns the latest published snapshot.
func (p *Publisher[T]) Current() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.seeded
}

// offer replaces any undelivered snapshot with the newer one.
func (s *subscriber[T]) offer(snapshot T) {
	for {
		select {
		case s.pending <- snapshot:
			return
		default:
			select {
			case <-s.pending:
			default:
			}
		}
	}
}

func (s *subscriber[T]) run() {
	for {
		select {
		case <-s.done:
			return
		case snapshot := <-s.pending:
			s.handler(snapshot)
		}
	}
}
