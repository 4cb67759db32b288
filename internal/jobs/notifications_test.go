package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

type recordingRequester struct {
	mu   sync.Mutex
	jobs []models.FeedbackJob
}

func (r *recordingRequester) RequestFeedback(ctx context.Context, job models.FeedbackJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingRequester) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func completedOrder(t *testing.T, store storage.Store) *models.Order {
	t.Helper()
	order, err := store.CreateOrder(context.Background(), &models.Order{
		CommitKey:     "commit-1",
		CustomerID:    1,
		CustomerPhone: "+923001234567",
		Type:          models.OrderTypeTakeaway,
		Status:        models.OrderStatusCompleted,
	})
	require.NoError(t, err)
	return order
}

func TestEnqueueTwiceFiresOnce(t *testing.T) {
	store := storage.NewMemoryStore()
	requester := &recordingRequester{}
	f := NewFeedbackScheduler(store, requester, 20*time.Millisecond)
	defer f.Stop()

	order := completedOrder(t, store)

	armed, err := f.Enqueue(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, armed)

	armed, err = f.Enqueue(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, armed)

	assert.Eventually(t, func() bool { return requester.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, requester.count())
	assert.Equal(t, "+923001234567", requester.jobs[0].CustomerPhone)

	scheduled, err := store.ListScheduledFeedbackJobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scheduled)
}

func TestFiredJobIsHandedOffToLedger(t *testing.T) {
	store := storage.NewMemoryStore()
	requester := &recordingRequester{}
	f := NewFeedbackScheduler(store, requester, time.Millisecond)
	defer f.Stop()

	order := completedOrder(t, store)
	armed, err := f.Enqueue(context.Background(), order)
	require.NoError(t, err)
	require.True(t, armed)

	key := FeedbackKey(order.ID)
	assert.Eventually(t, func() bool { return requester.count() == 1 && !f.scheduler.Fired(key) },
		time.Second, 5*time.Millisecond)

	// With the in-process record gone the ledger still refuses a second job.
	armed, err = f.Enqueue(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, armed)

	n, err := f.Recover(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, requester.count())
	assert.Equal(t, 0, f.Pending())
}

func TestCancelStopsPendingFeedback(t *testing.T) {
	store := storage.NewMemoryStore()
	requester := &recordingRequester{}
	f := NewFeedbackScheduler(store, requester, 30*time.Millisecond)
	defer f.Stop()

	order := completedOrder(t, store)
	_, err := f.Enqueue(context.Background(), order)
	require.NoError(t, err)

	require.NoError(t, f.Cancel(context.Background(), order.ID))
	assert.Equal(t, 0, f.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, requester.count())

	// Cancelling an unknown order is a no-op.
	assert.NoError(t, f.Cancel(context.Background(), 999))
}

func TestRecoverRearmsScheduledJobs(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Now()
	require.NoError(t, store.CreateFeedbackJob(context.Background(), &models.FeedbackJob{
		OrderID: 7, CustomerPhone: "+923001111111", DueAt: now.Add(-time.Minute),
	}))
	require.NoError(t, store.CreateFeedbackJob(context.Background(), &models.FeedbackJob{
		OrderID: 8, CustomerPhone: "+923002222222", DueAt: now.Add(time.Hour),
	}))

	requester := &recordingRequester{}
	f := NewFeedbackScheduler(store, requester, 30*time.Minute)
	defer f.Stop()

	n, err := f.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Eventually(t, func() bool { return requester.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint(7), requester.jobs[0].OrderID)
	assert.Equal(t, 1, f.Pending())
}

func TestFeedbackKey(t *testing.T) {
	assert.Equal(t, "feedback:42", FeedbackKey(42))
}
