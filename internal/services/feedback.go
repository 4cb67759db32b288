package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/gate"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

// FeedbackService sends the delayed feedback prompt. It checks the order's
// FeedbackRequested flag so a job replayed after a crash sends nothing twice.
type FeedbackService struct {
	store     storage.Store
	messenger Messenger
	gate      *gate.Serializer
	logger    zerolog.Logger
}

// NewFeedbackService shares the order gate with OrderService so the flag
// update never races a status change.
func NewFeedbackService(store storage.Store, messenger Messenger, g *gate.Serializer, logger zerolog.Logger) *FeedbackService {
	return &FeedbackService{store: store, messenger: messenger, gate: g, logger: logger}
}

func (f *FeedbackService) RequestFeedback(ctx context.Context, job models.FeedbackJob) error {
	release, err := f.gate.Acquire(ctx, orderKey(job.OrderID))
	if err != nil {
		return fmt.Errorf("acquire order %d: %w", job.OrderID, err)
	}
	defer release()

	order, err := f.store.GetOrder(ctx, job.OrderID)
	if errors.Is(err, storage.ErrNotFound) {
		f.logger.Info().Uint("order_id", job.OrderID).Msg("order gone, skipping feedback request")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load order %d: %w", job.OrderID, err)
	}
	if order.FeedbackRequested {
		f.logger.Info().Uint("order_id", order.ID).Msg("feedback already requested")
		return nil
	}

	customer, err := f.store.GetCustomerByPhone(ctx, job.CustomerPhone)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		f.logger.Warn().Err(err).Msg("customer lookup failed, sending without name")
	}

	if err := f.messenger.SendText(ctx, job.CustomerPhone, FeedbackRequestText(order, customer)); err != nil {
		return fmt.Errorf("send feedback request: %w", err)
	}

	order.FeedbackRequested = true
	if err := f.store.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("mark feedback requested on order %d: %w", order.ID, err)
	}
	return nil
}
