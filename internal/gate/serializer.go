// Package gate serializes work per key (customer phone, order id) in strict
// arrival order with a bounded queue.
package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/apperrors"
	"github.com/Ananth-NQI/dinepe-backend/internal/metrics"
)

// Serializer grants at most one holder per key. Waiters are served FIFO.
type Serializer struct {
	mu       sync.Mutex
	queues   map[string][]*ticket
	maxQueue int
	timeout  time.Duration
	metrics  *metrics.Collector
}

type ticket struct {
	ready chan struct{}
}

// OrderKey is the key every writer of an existing order holds.
func OrderKey(id uint) string {
	return fmt.Sprintf("order:%d", id)
}

// New creates a serializer. maxQueue bounds waiters per key (excluding the
// holder); timeout bounds how long Acquire waits. Zero timeout waits for ctx only.
func New(maxQueue int, timeout time.Duration, m *metrics.Collector) *Serializer {
	if maxQueue < 0 {
		maxQueue = 0
	}
	return &Serializer{
		queues:   make(map[string][]*ticket),
		maxQueue: maxQueue,
		timeout:  timeout,
		metrics:  m,
	}
}

// Acquire blocks until the caller holds key. The returned release func must be
// called exactly once; extra calls are ignored.
func (s *Serializer) Acquire(ctx context.Context, key string) (func(), error) {
	start := time.Now()

	s.mu.Lock()
	q := s.queues[key]
	if len(q) > 0 && len(q)-1 >= s.maxQueue {
		s.mu.Unlock()
		s.metrics.GateRejected("overflow")
		return nil, apperrors.New(apperrors.KindQueueOverflow, "gate.Acquire",
			fmt.Sprintf("%d messages already queued for %s", len(q)-1, key), nil)
	}
	t := &ticket{ready: make(chan struct{})}
	s.queues[key] = append(q, t)
	if len(q) == 0 {
		close(t.ready)
	}
	s.mu.Unlock()

	var timeoutC <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case <-t.ready:
		s.metrics.GateWait(time.Since(start))
		return s.releaser(key, t), nil
	case <-timeoutC:
	case <-ctx.Done():
	}

	if s.abandon(key, t) {
		// granted while we were giving up; pass it on
		s.release(key, t)
	}
	s.metrics.GateRejected("timeout")
	return nil, apperrors.New(apperrors.KindConcurrencyTimeout, "gate.Acquire",
		fmt.Sprintf("waited %s for %s", time.Since(start).Round(time.Millisecond), key), ctx.Err())
}

// abandon removes a waiting ticket. It reports true when the ticket had already
// been granted and so still holds the key.
func (s *Serializer) abandon(key string, t *ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-t.ready:
		return true
	default:
	}

	q := s.queues[key]
	for i, other := range q {
		if other == t {
			s.queues[key] = append(q[:i:i], q[i+1:]...)
			break
		}
	}
	if len(s.queues[key]) == 0 {
		delete(s.queues, key)
	}
	return false
}

func (s *Serializer) releaser(key string, t *ticket) func() {
	var once sync.Once
	return func() {
		once.Do(func() { s.release(key, t) })
	}
}

func (s *Serializer) release(key string, t *ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[key]
	if len(q) == 0 || q[0] != t {
		return
	}
	q = q[1:]
	if len(q) == 0 {
		delete(s.queues, key)
		return
	}
	s.queues[key] = q
	close(q[0].ready)
}

// Pending returns the number of holders plus waiters for key.
func (s *Serializer) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[key])
}
