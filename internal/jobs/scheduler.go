// Package jobs runs delayed side effects keyed by an idempotency key.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Func is the work run when a job fires. ctx is cancelled when the scheduler stops.
type Func func(ctx context.Context)

// Scheduler runs each job key at most once. Scheduling a key that is pending
// or has already fired is a no-op until the key is forgotten; a pending key
// can be cancelled.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	fired   map[string]struct{}
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger zerolog.Logger
}

func NewScheduler(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pending: make(map[string]*time.Timer),
		fired:   make(map[string]struct{}),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Schedule arranges fn to run after delay. It reports whether a new job was armed.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn Func) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if _, ok := s.pending[key]; ok {
		return false
	}
	if _, ok := s.fired[key]; ok {
		return false
	}
	if delay < 0 {
		delay = 0
	}
	s.pending[key] = time.AfterFunc(delay, func() { s.run(key, fn) })
	s.logger.Debug().Str("job", key).Dur("delay", delay).Msg("job scheduled")
	return true
}

func (s *Scheduler) run(key string, fn Func) {
	s.mu.Lock()
	if _, ok := s.pending[key]; !ok || s.stopped {
		// Cancelled after the timer had already started.
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.fired[key] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job", key).Interface("panic", r).Msg("job panicked")
		}
	}()
	fn(s.ctx)
}

// Cancel removes a pending job. It reports false when the key was not pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.pending, key)
	s.logger.Debug().Str("job", key).Msg("job cancelled")
	return true
}

// Pending returns the number of armed jobs.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Forget drops the record that key fired, once a durable store holds that
// fact instead. A forgotten key can be scheduled again.
func (s *Scheduler) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fired, key)
}

// Fired reports whether key has already run.
func (s *Scheduler) Fired(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fired[key]
	return ok
}

// Stop disarms all pending jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for key, t := range s.pending {
		t.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
