package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/apperrors"
	"github.com/Ananth-NQI/dinepe-backend/internal/gate"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

// FeedbackQueue schedules and cancels the per-order feedback request.
type FeedbackQueue interface {
	Enqueue(ctx context.Context, order *models.Order) (bool, error)
	Cancel(ctx context.Context, orderID uint) error
}

// OrderService applies staff-driven status transitions to committed orders.
type OrderService struct {
	store    storage.Store
	gate     *gate.Serializer
	feedback FeedbackQueue
	now      func() time.Time
	logger   zerolog.Logger
}

func NewOrderService(store storage.Store, g *gate.Serializer, feedback FeedbackQueue, logger zerolog.Logger) *OrderService {
	return &OrderService{store: store, gate: g, feedback: feedback, now: time.Now, logger: logger}
}

func orderKey(id uint) string {
	return gate.OrderKey(id)
}

// UpdateStatus moves an order to next. Repeating the current status is a
// no-op; entering COMPLETED enqueues the feedback request exactly once.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, next models.OrderStatus) (*models.Order, error) {
	const op = "orders.UpdateStatus"

	release, err := s.gate.Acquire(ctx, orderKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, op, fmt.Sprintf("order %d not found", id), err)
	}
	if err != nil {
		return nil, apperrors.Upstream(op, "load order", err)
	}

	logger := s.logger.With().Uint("order_id", id).Str("reference", order.Reference).Logger()

	if order.Status == next {
		logger.Info().Str("status", string(next)).Msg("status unchanged, ignoring duplicate transition")
		if next == models.OrderStatusCompleted {
			// A replayed completion must not create a second job; Enqueue is keyed by order id.
			s.enqueueFeedback(ctx, order, logger)
		}
		return order, nil
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, apperrors.New(apperrors.KindInvalidTransition, op,
			fmt.Sprintf("cannot move order %s from %s to %s", order.Reference, order.Status, next), nil)
	}

	prev := order.Status
	order.Status = next
	if next == models.OrderStatusCompleted {
		now := s.now()
		order.CompletedAt = &now
	}
	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, apperrors.Upstream(op, "save order", err)
	}
	logger.Info().Str("from", string(prev)).Str("to", string(next)).Msg("order status updated")

	switch next {
	case models.OrderStatusCompleted:
		s.enqueueFeedback(ctx, order, logger)
	case models.OrderStatusCancelled:
		if err := s.feedback.Cancel(ctx, order.ID); err != nil {
			logger.Warn().Err(err).Msg("failed to cancel feedback request")
		}
	}
	return order, nil
}

func (s *OrderService) enqueueFeedback(ctx context.Context, order *models.Order, logger zerolog.Logger) {
	if _, err := s.feedback.Enqueue(ctx, order); err != nil {
		logger.Error().Err(err).Msg("failed to schedule feedback request")
	}
}

// Delete removes an order and cancels its pending feedback request.
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	const op = "orders.Delete"

	release, err := s.gate.Acquire(ctx, orderKey(id))
	if err != nil {
		return err
	}
	defer release()

	if err := s.feedback.Cancel(ctx, id); err != nil {
		s.logger.Warn().Err(err).Uint("order_id", id).Msg("failed to cancel feedback request")
	}
	err = s.store.DeleteOrder(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(apperrors.KindNotFound, op, fmt.Sprintf("order %d not found", id), err)
	}
	if err != nil {
		return apperrors.Upstream(op, "delete order", err)
	}
	s.logger.Info().Uint("order_id", id).Msg("order deleted")
	return nil
}
