package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/metrics"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

// FeedbackRequester sends the feedback prompt for a completed order. It may be
// invoked again for the same order after a crash and must tolerate that.
type FeedbackRequester interface {
	RequestFeedback(ctx context.Context, job models.FeedbackJob) error
}

// FeedbackKey is the scheduler key for an order's feedback request.
func FeedbackKey(orderID uint) string {
	return fmt.Sprintf("feedback:%d", orderID)
}

// FeedbackScheduler persists one feedback job per order and fires it after the
// configured delay. The ledger's unique order id makes enqueue idempotent
// across restarts; the in-process scheduler covers the window before that.
type FeedbackScheduler struct {
	scheduler *Scheduler
	store     storage.Store
	requester FeedbackRequester
	delay     time.Duration
	now       func() time.Time
	logger    zerolog.Logger
	metrics   *metrics.Collector
}

type FeedbackOption func(*FeedbackScheduler)

func WithFeedbackClock(now func() time.Time) FeedbackOption {
	return func(f *FeedbackScheduler) { f.now = now }
}

func WithFeedbackLogger(logger zerolog.Logger) FeedbackOption {
	return func(f *FeedbackScheduler) { f.logger = logger }
}

func WithFeedbackMetrics(m *metrics.Collector) FeedbackOption {
	return func(f *FeedbackScheduler) { f.metrics = m }
}

func NewFeedbackScheduler(store storage.Store, requester FeedbackRequester, delay time.Duration, opts ...FeedbackOption) *FeedbackScheduler {
	f := &FeedbackScheduler{
		store:     store,
		requester: requester,
		delay:     delay,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.scheduler = NewScheduler(f.logger)
	return f
}

// Enqueue schedules the feedback request for a completed order. It returns
// false without error when a job already exists for the order.
func (f *FeedbackScheduler) Enqueue(ctx context.Context, order *models.Order) (bool, error) {
	job := &models.FeedbackJob{
		OrderID:       order.ID,
		CustomerPhone: order.CustomerPhone,
		DueAt:         f.now().Add(f.delay),
		Status:        models.FeedbackJobScheduled,
	}
	err := f.store.CreateFeedbackJob(ctx, job)
	if errors.Is(err, storage.ErrDuplicate) {
		f.logger.Info().Uint("order_id", order.ID).Msg("feedback job already exists, not scheduling again")
		f.metrics.FeedbackJob("duplicate")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("record feedback job for order %d: %w", order.ID, err)
	}

	armed := f.arm(*job, f.delay)
	if armed {
		f.metrics.FeedbackJob("scheduled")
		f.logger.Info().Uint("order_id", order.ID).Time("due_at", job.DueAt).Msg("feedback request scheduled")
	}
	return armed, nil
}

// Cancel disarms the job for an order, e.g. when the order is deleted.
func (f *FeedbackScheduler) Cancel(ctx context.Context, orderID uint) error {
	if !f.scheduler.Cancel(FeedbackKey(orderID)) {
		return nil
	}
	f.metrics.FeedbackJob("cancelled")
	f.logger.Info().Uint("order_id", orderID).Msg("feedback request cancelled")
	err := f.store.UpdateFeedbackJobStatus(ctx, orderID, models.FeedbackJobCancelled, f.now())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("cancel feedback job for order %d: %w", orderID, err)
	}
	return nil
}

// Recover re-arms jobs that were scheduled but had not fired before a restart.
// Overdue jobs fire immediately.
func (f *FeedbackScheduler) Recover(ctx context.Context) (int, error) {
	jobs, err := f.store.ListScheduledFeedbackJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scheduled feedback jobs: %w", err)
	}
	now := f.now()
	recovered := 0
	for _, job := range jobs {
		if f.arm(*job, job.DueAt.Sub(now)) {
			recovered++
			f.metrics.FeedbackJob("recovered")
		}
	}
	if recovered > 0 {
		f.logger.Info().Int("count", recovered).Msg("recovered pending feedback jobs")
	}
	return recovered, nil
}

func (f *FeedbackScheduler) Pending() int {
	return f.scheduler.Pending()
}

func (f *FeedbackScheduler) Stop() {
	f.scheduler.Stop()
}

func (f *FeedbackScheduler) arm(job models.FeedbackJob, delay time.Duration) bool {
	return f.scheduler.Schedule(FeedbackKey(job.OrderID), delay, func(ctx context.Context) {
		f.fire(ctx, job)
	})
}

func (f *FeedbackScheduler) fire(ctx context.Context, job models.FeedbackJob) {
	logger := f.logger.With().Uint("order_id", job.OrderID).Logger()

	if err := f.requester.RequestFeedback(ctx, job); err != nil {
		f.metrics.FeedbackJob("failed")
		logger.Error().Err(err).Msg("feedback request failed")
	} else {
		f.metrics.FeedbackJob("fired")
		logger.Info().Msg("feedback request sent")
	}

	if err := f.store.UpdateFeedbackJobStatus(ctx, job.OrderID, models.FeedbackJobFired, f.now()); err != nil {
		logger.Warn().Err(err).Msg("failed to mark feedback job fired")
		return
	}
	// The ledger now dedupes this order, so the in-process record can go.
	f.scheduler.Forget(FeedbackKey(job.OrderID))
}
