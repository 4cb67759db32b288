package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DatabaseStore)(nil)
)

func TestGetOrCreateCustomerIsStableUnderConcurrency(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]uint, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := store.GetOrCreateCustomer(ctx, "+923001112222")
			require.NoError(t, err)
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	customers, err := store.ListCustomers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, customers, 1)
}

func TestCreateOrderRejectsDuplicateCommitKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.CreateOrder(ctx, &models.Order{CommitKey: "ck-1", CustomerID: 1, Type: models.OrderTypeTakeaway})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, first.Status)
	assert.NotEmpty(t, first.Reference)

	_, err = store.CreateOrder(ctx, &models.Order{CommitKey: "ck-1", CustomerID: 1})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := store.GetOrderByCommitKey(ctx, "ck-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestReturnedOrdersAreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	o, err := store.CreateOrder(ctx, &models.Order{
		CommitKey: "ck", CustomerID: 1,
		Items: []models.LineItem{{Name: "Burger", Quantity: 1}},
	})
	require.NoError(t, err)
	o.Items[0].Quantity = 99
	o.Status = models.OrderStatusCompleted

	stored, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Items[0].Quantity)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestLatestActiveOrderSkipsTerminal(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.GetLatestActiveOrder(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	a, _ := store.CreateOrder(ctx, &models.Order{CommitKey: "a", CustomerID: 7})
	b, _ := store.CreateOrder(ctx, &models.Order{CommitKey: "b", CustomerID: 7})
	b.Status = models.OrderStatusCompleted
	require.NoError(t, store.UpdateOrder(ctx, b))

	latest, err := store.GetLatestActiveOrder(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, a.ID, latest.ID)
}

func TestAppendTurnIsIdempotentByKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	turn := &models.ConversationTurn{TurnKey: "SM1:in", CustomerID: 1, Role: models.RoleUser, Message: "hi"}
	require.NoError(t, store.AppendTurn(ctx, turn))
	err := store.AppendTurn(ctx, &models.ConversationTurn{TurnKey: "SM1:in", CustomerID: 1, Role: models.RoleUser, Message: "hi"})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, store.AppendTurn(ctx, &models.ConversationTurn{TurnKey: "SM1:out", CustomerID: 1, Role: models.RoleAssistant, Message: "hello"}))
	require.NoError(t, store.AppendTurn(ctx, &models.ConversationTurn{TurnKey: "SM2:in", CustomerID: 1, Role: models.RoleUser, Message: "menu"}))

	turns, err := store.GetConversation(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Message)
	assert.Equal(t, "menu", turns[1].Message)
}

func TestFeedbackJobLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	due := time.Now().Add(30 * time.Minute)

	require.NoError(t, store.CreateFeedbackJob(ctx, &models.FeedbackJob{OrderID: 3, DueAt: due}))
	assert.ErrorIs(t, store.CreateFeedbackJob(ctx, &models.FeedbackJob{OrderID: 3, DueAt: due}), ErrDuplicate)

	jobs, err := store.ListScheduledFeedbackJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, store.UpdateFeedbackJobStatus(ctx, 3, models.FeedbackJobFired, time.Now()))
	jobs, err = store.ListScheduledFeedbackJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	assert.ErrorIs(t, store.UpdateFeedbackJobStatus(ctx, 99, models.FeedbackJobFired, time.Now()), ErrNotFound)
}

func TestComplaintLookup(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, err := store.CreateComplaint(ctx, &models.Complaint{CommitKey: "c1", CustomerID: 1, Description: "cold food"})
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusOpen, c.Status)

	open, err := store.ListComplaints(ctx, models.ComplaintStatusOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	c.Status = models.ComplaintStatusResolved
	require.NoError(t, store.UpdateComplaint(ctx, c))
	open, err = store.ListComplaints(ctx, models.ComplaintStatusOpen)
	require.NoError(t, err)
	assert.Empty(t, open)
}
