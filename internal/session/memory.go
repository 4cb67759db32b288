package session

import (
	"context"
	"sync"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/rs/zerolog"
)

// MemoryStore keeps sessions in a map and sweeps expired ones periodically.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
	logger   zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, mainly for TTL tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

func WithLogger(logger zerolog.Logger) MemoryOption {
	return func(m *MemoryStore) { m.logger = logger }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
		logger:   zerolog.Nop(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*models.Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[key]
	m.mu.RUnlock()

	if !ok || sess.Expired(m.now()) {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, sess *models.Session, ttl time.Duration) error {
	stored := sess.Clone()
	stored.ExpiresAt = m.now().Add(ttl)
	sess.ExpiresAt = stored.ExpiresAt

	m.mu.Lock()
	m.sessions[sess.CustomerKey] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Active(ctx context.Context) (int, error) {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sess := range m.sessions {
		if !sess.Expired(now) {
			count++
		}
	}
	return count, nil
}

// Cleanup drops expired sessions and returns how many were removed.
func (m *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed, nil
}

// StartCleanup runs Cleanup every interval until Close.
func (m *MemoryStore) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed, _ := m.Cleanup(context.Background()); removed > 0 {
					m.logger.Debug().Int("removed", removed).Msg("🧹 expired sessions cleaned up")
				}
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}
