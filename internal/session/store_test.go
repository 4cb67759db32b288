package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// storeFactory builds a store bound to the given clock.
type storeFactory func(t *testing.T, clock *fakeClock) Store

func implementations() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, clock *fakeClock) Store {
			return NewMemoryStore(WithClock(clock.Now))
		},
		"bolt": func(t *testing.T, clock *fakeClock) Store {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "sessions.db"))
			require.NoError(t, err)
			s.now = clock.Now
			return s
		},
	}
}

func sampleSession(key string, now time.Time) *models.Session {
	sess := models.NewSession(key, now)
	sess.AppendTurn(models.Turn{Role: models.RoleUser, Message: "2 burgers for delivery", At: now}, 20)
	sess.Draft = models.NewDraft(models.DraftOrder, "ck-1", now)
	sess.Draft.Order.SetType(models.OrderTypeDelivery)
	sess.Draft.Order.MergeItem(models.LineItem{Name: "Burger", Quantity: 2, UnitPrice: 550})
	return sess
}

func TestStoreRoundTrip(t *testing.T) {
	for name, factory := range implementations() {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
			store := factory(t, clock)
			defer store.Close()
			ctx := context.Background()

			_, err := store.Get(ctx, "+92300")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Put(ctx, sampleSession("+92300", clock.Now()), time.Hour))

			got, err := store.Get(ctx, "+92300")
			require.NoError(t, err)
			require.NotNil(t, got.Draft)
			assert.Equal(t, models.OrderTypeDelivery, got.Draft.Order.Type)
			assert.Len(t, got.Turns, 1)
			assert.Equal(t, clock.Now().Add(time.Hour), got.ExpiresAt.UTC())

			active, err := store.Active(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, active)

			require.NoError(t, store.Delete(ctx, "+92300"))
			_, err = store.Get(ctx, "+92300")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreTTLBoundary(t *testing.T) {
	for name, factory := range implementations() {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
			store := factory(t, clock)
			defer store.Close()
			ctx := context.Background()

			require.NoError(t, store.Put(ctx, sampleSession("k", clock.Now()), time.Hour))

			clock.Advance(time.Hour - time.Second)
			_, err := store.Get(ctx, "k")
			require.NoError(t, err, "still alive just before the TTL")

			clock.Advance(time.Second + time.Millisecond)
			_, err = store.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			removed, err := store.Cleanup(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, removed)
		})
	}
}

func TestPutSlidesTheTTL(t *testing.T) {
	for name, factory := range implementations() {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
			store := factory(t, clock)
			defer store.Close()
			ctx := context.Background()

			sess := sampleSession("k", clock.Now())
			require.NoError(t, store.Put(ctx, sess, time.Hour))

			clock.Advance(50 * time.Minute)
			got, err := store.Get(ctx, "k")
			require.NoError(t, err)
			require.NoError(t, store.Put(ctx, got, time.Hour))

			clock.Advance(50 * time.Minute)
			_, err = store.Get(ctx, "k")
			assert.NoError(t, err, "activity at 50m extends expiry to 110m")
		})
	}
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := sampleSession("k", time.Now())
	require.NoError(t, store.Put(ctx, sess, time.Hour))
	sess.Draft.Order.Items[0].Quantity = 40

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Draft.Order.Items[0].Quantity)

	got.Draft = nil
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, again.Draft)
}
