package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/apperrors"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

// ComplaintService applies staff-driven complaint status changes.
type ComplaintService struct {
	store  storage.Store
	now    func() time.Time
	logger zerolog.Logger
}

func NewComplaintService(store storage.Store, logger zerolog.Logger) *ComplaintService {
	return &ComplaintService{store: store, now: time.Now, logger: logger}
}

func (s *ComplaintService) UpdateStatus(ctx context.Context, id uint, next models.ComplaintStatus, resolution string) (*models.Complaint, error) {
	const op = "complaints.UpdateStatus"

	c, err := s.store.GetComplaint(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, op, fmt.Sprintf("complaint %d not found", id), err)
	}
	if err != nil {
		return nil, apperrors.Upstream(op, "load complaint", err)
	}
	if c.Status == next {
		return c, nil
	}
	if !c.Status.CanTransitionTo(next) {
		return nil, apperrors.New(apperrors.KindInvalidTransition, op,
			fmt.Sprintf("cannot move complaint %s from %s to %s", c.Reference, c.Status, next), nil)
	}

	c.Status = next
	if r := strings.TrimSpace(resolution); r != "" {
		c.Resolution = r
	}
	if next == models.ComplaintStatusResolved {
		now := s.now()
		c.ResolvedAt = &now
	}
	if err := s.store.UpdateComplaint(ctx, c); err != nil {
		return nil, apperrors.Upstream(op, "save complaint", err)
	}
	s.logger.Info().Uint("complaint_id", id).Str("status", string(next)).Msg("complaint status updated")
	return c, nil
}
