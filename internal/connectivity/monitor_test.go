package connectivity

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeChecker struct {
	online atomic.Bool
}

func (f *fakeChecker) Check(ctx context.Context) bool {
	return f.online.Load()
}

func newTestMonitor(initial bool) (*Monitor, *fakeChecker) {
	checker := &fakeChecker{}
	checker.online.Store(initial)
	logger := zerolog.New(io.Discard)
	return NewMonitor(checker, time.Hour, &logger), checker
}

func TestCurrentInitializedFromChecker(t *testing.T) {
	m, _ := newTestMonitor(true)
	assert.True(t, m.Current())

	m2, _ := newTestMonitor(false)
	assert.False(t, m2.Current())
}

func TestEdgeDeduplication(t *testing.T) {
	m, _ := newTestMonitor(false)

	var onlineEdges, offlineEdges int
	m.OnTransition(ToOnline, func(bool) { onlineEdges++ })
	m.OnTransition(ToOffline, func(bool) { offlineEdges++ })

	// The platform signal may repeat the same state; handlers fire once per edge.
	m.Observe(false)
	m.Observe(false)
	assert.Equal(t, 0, onlineEdges)
	assert.Equal(t, 0, offlineEdges)

	m.Observe(true)
	m.Observe(true)
	m.Observe(true)
	assert.Equal(t, 1, onlineEdges)
	assert.True(t, m.Current())

	m.Observe(false)
	assert.Equal(t, 1, offlineEdges)
	assert.False(t, m.Current())

	m.Observe(true)
	assert.Equal(t, 2, onlineEdges)
}

func TestMultipleHandlersPerEdge(t *testing.T) {
	m, _ := newTestMonitor(false)

	var a, b int
	m.OnTransition(ToOnline, func(bool) { a++ })
	m.OnTransition(ToOnline, func(bool) { b++ })

	m.Observe(true)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestStartPollsChecker(t *testing.T) {
	checker := &fakeChecker{}
	logger := zerolog.New(io.Discard)
	m := NewMonitor(checker, 10*time.Millisecond, &logger)

	edge := make(chan bool, 1)
	m.OnTransition(ToOnline, func(online bool) {
		select {
		case edge <- online:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	checker.online.Store(true)
	select {
	case online := <-edge:
		assert.True(t, online)
	case <-time.After(time.Second):
		t.Fatal("expected ToOnline edge from polling")
	}
}

func TestHTTPChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL, time.Second)
	assert.True(t, checker.Check(context.Background()))

	srv.Close()
	assert.False(t, checker.Check(context.Background()))
}
