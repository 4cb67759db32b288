package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/dinepe-backend/internal/gate"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

func TestFeedbackService_SendsOncePerOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	messenger := NewLogMessenger(zerolog.Nop())
	svc := NewFeedbackService(store, messenger, gate.New(4, time.Second, nil), zerolog.Nop())
	ctx := context.Background()

	customer, err := store.GetOrCreateCustomer(ctx, "+923001234567")
	require.NoError(t, err)
	customer.Name = "Ayesha"
	require.NoError(t, store.UpdateCustomer(ctx, customer))

	order := createOrder(t, store, "k1")
	job := models.FeedbackJob{OrderID: order.ID, CustomerPhone: "+923001234567"}

	require.NoError(t, svc.RequestFeedback(ctx, job))
	require.NoError(t, svc.RequestFeedback(ctx, job))

	sent := messenger.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "+923001234567", sent[0].To)
	assert.Contains(t, sent[0].Body, "Hi Ayesha!")
	assert.Contains(t, sent[0].Body, order.Reference)

	stored, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.FeedbackRequested)
}

func TestFeedbackService_SkipsDeletedOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	messenger := NewLogMessenger(zerolog.Nop())
	svc := NewFeedbackService(store, messenger, gate.New(4, time.Second, nil), zerolog.Nop())

	err := svc.RequestFeedback(context.Background(), models.FeedbackJob{OrderID: 7, CustomerPhone: "+923001234567"})
	require.NoError(t, err)
	assert.Empty(t, messenger.Sent())
}
