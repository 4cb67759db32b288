package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/apperrors"
	"github.com/Ananth-NQI/dinepe-backend/internal/gate"
	"github.com/Ananth-NQI/dinepe-backend/internal/intent"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
	"github.com/Ananth-NQI/dinepe-backend/internal/utils"
)

// step carries the state of one reconciliation while actions are applied.
type step struct {
	r         *Reconciler
	ctx       context.Context
	customer  *models.Customer
	sess      *models.Session
	now       time.Time
	logger    zerolog.Logger
	discarded models.DraftKind
}

func (s *step) apply(a intent.Action) (Directive, error) {
	switch a := a.(type) {
	case intent.StartOrder:
		s.ensureDraft(models.DraftOrder)
		return progress(), nil
	case intent.AddItem:
		return s.addItem(a)
	case intent.SetOrderType:
		s.ensureDraft(models.DraftOrder).Order.SetType(a.Type)
		return progress(), nil
	case intent.SetDeliveryInfo:
		return s.setDeliveryInfo(a)
	case intent.ConfirmOrder:
		return s.confirm(models.DraftOrder)
	case intent.CancelDraft:
		if s.sess.Draft != nil {
			s.logger.Info().Str("draft", string(s.sess.Draft.Kind)).Msg("draft cancelled by customer")
		}
		s.sess.Draft = nil
		return Directive{Kind: DirectiveDraftCancelled}, nil
	case intent.StartReservation:
		s.ensureDraft(models.DraftReservation)
		return progress(), nil
	case intent.SetReservationField:
		return s.setReservationField(a)
	case intent.ConfirmReservation:
		return s.confirm(models.DraftReservation)
	case intent.FileComplaint:
		d := s.ensureDraft(models.DraftComplaint)
		if desc := strings.TrimSpace(a.Description); desc != "" {
			d.Complaint.Description = desc
		}
		if !d.Complete() {
			return progress(), nil
		}
		return s.commitComplaint(d)
	case intent.AskOrderStatus:
		return s.orderStatus()
	case intent.SubmitFeedback:
		return s.submitFeedback(a)
	case intent.SetCustomerName:
		return s.setName(a)
	case intent.Freeform:
		if a.Reason != "" {
			return clarify(a.Reason), nil
		}
		return Directive{Kind: DirectiveDeferToAI, Note: a.Text}, nil
	}
	return Directive{}, apperrors.New(apperrors.KindInternal, "reconciler.apply", fmt.Sprintf("unhandled action %T", a), nil)
}

// ensureDraft returns the session draft of kind, replacing a draft of any
// other kind. Replacement loses the old draft and is always logged.
func (s *step) ensureDraft(kind models.DraftKind) *models.Draft {
	if d := s.sess.Draft; d != nil {
		if d.Kind == kind {
			return d
		}
		s.logger.Warn().
			Str("discarded", string(d.Kind)).
			Str("replacement", string(kind)).
			Interface("missing", d.MissingFields()).
			Time("started_at", d.StartedAt).
			Msg("replacing draft of a different kind")
		s.r.metrics.DraftDiscarded(string(d.Kind), string(kind))
		s.discarded = d.Kind
	}
	s.sess.Draft = models.NewDraft(kind, utils.NewCommitKey(), s.now)
	return s.sess.Draft
}

func (s *step) addItem(a intent.AddItem) (Directive, error) {
	item := a.Item
	if s.r.menu != nil {
		if p := s.r.menu.Profile(); p != nil {
			entry, ok := p.Lookup(item.Name)
			if !ok {
				return clarify(fmt.Sprintf("%q is not on the menu", item.Name)), nil
			}
			item.Name = entry.Name
			item.UnitPrice = entry.Price
		}
	}
	s.ensureDraft(models.DraftOrder).Order.MergeItem(item)
	return progress(), nil
}

func (s *step) setDeliveryInfo(a intent.SetDeliveryInfo) (Directive, error) {
	d := s.sess.Draft
	if d == nil || d.Kind != models.DraftOrder {
		// Outside an order this is a profile update only.
		if err := s.updateProfileDelivery(a); err != nil {
			return Directive{}, err
		}
		return Directive{Kind: DirectiveProfileUpdated}, nil
	}
	if a.Address != "" {
		d.Order.SetAddress(a.Address)
	}
	if a.Location != nil {
		d.Order.SetLocation(*a.Location)
		if err := s.updateProfileDelivery(intent.SetDeliveryInfo{Location: a.Location}); err != nil {
			return Directive{}, err
		}
	}
	return progress(), nil
}

func (s *step) updateProfileDelivery(a intent.SetDeliveryInfo) error {
	changed := false
	if addr := strings.TrimSpace(a.Address); addr != "" && addr != s.customer.Address {
		s.customer.Address = addr
		changed = true
	}
	if a.Location != nil {
		s.customer.SetLocation(*a.Location)
		changed = true
	}
	if !changed {
		return nil
	}
	if err := s.r.ledger.UpdateCustomer(s.ctx, s.customer); err != nil {
		return apperrors.Upstream("reconciler.updateProfile", "update customer", err)
	}
	return nil
}

func (s *step) setReservationField(a intent.SetReservationField) (Directive, error) {
	d := s.ensureDraft(models.DraftReservation)
	switch a.Field {
	case models.FieldDateTime:
		if !a.At.After(s.now) {
			return clarify("reservation time is in the past"), nil
		}
		at := a.At
		d.Reservation.At = &at
	case models.FieldPartySize:
		d.Reservation.PartySize = a.PartySize
	case models.FieldSpecialReqs:
		d.Reservation.SpecialRequests = strings.TrimSpace(a.Text)
	default:
		return clarify(fmt.Sprintf("unknown reservation field %q", a.Field)), nil
	}
	return progress(), nil
}

func (s *step) confirm(kind models.DraftKind) (Directive, error) {
	d := s.sess.Draft
	if d == nil || d.Kind != kind {
		return clarify(fmt.Sprintf("there is no %s to confirm", kind)), nil
	}
	if !d.Complete() {
		s.logger.Info().Str("draft", string(kind)).Interface("missing", d.MissingFields()).Msg("confirm rejected, draft incomplete")
		return Directive{Kind: DirectiveRequestField, Rejected: true}, nil
	}
	switch kind {
	case models.DraftOrder:
		return s.commitOrder(d)
	case models.DraftReservation:
		return s.commitReservation(d)
	}
	return s.commitComplaint(d)
}

func (s *step) commitOrder(d *models.Draft) (Directive, error) {
	const op = "reconciler.commitOrder"
	eta := s.now.Add(d.Order.Type.PrepTime())
	order := &models.Order{
		CommitKey:        d.CommitKey,
		CustomerID:       s.customer.ID,
		CustomerPhone:    s.customer.Phone,
		Type:             d.Order.Type,
		Items:            append([]models.LineItem(nil), d.Order.Items...),
		Status:           models.OrderStatusPending,
		EstimatedReadyAt: &eta,
	}
	if d.Order.Type == models.OrderTypeDelivery {
		lat, lon := d.Order.Location.Latitude, d.Order.Location.Longitude
		order.DeliveryAddress = d.Order.Address
		order.DeliveryLatitude = &lat
		order.DeliveryLongitude = &lon
	}
	order.CalculateTotal()

	created, err := s.r.ledger.CreateOrder(s.ctx, order)
	if errors.Is(err, storage.ErrDuplicate) {
		created, err = s.r.ledger.GetOrderByCommitKey(s.ctx, d.CommitKey)
		if err != nil {
			return Directive{}, apperrors.Upstream(op, "load committed order", err)
		}
		s.logger.Warn().Err(apperrors.New(apperrors.KindDuplicateCommit, op, "order already committed", nil)).
			Str("reference", created.Reference).Msg("duplicate commit rejected")
		s.r.metrics.Commit("order", "duplicate")
	} else if err != nil {
		s.r.metrics.Commit("order", "error")
		return Directive{}, apperrors.Upstream(op, "create order", err)
	} else {
		s.r.metrics.Commit("order", "created")
		s.logger.Info().Str("reference", created.Reference).Float64("total", created.Total).Msg("order committed")
	}

	if d.Order.Type == models.OrderTypeDelivery && s.customer.Address != d.Order.Address {
		s.customer.Address = d.Order.Address
		if err := s.r.ledger.UpdateCustomer(s.ctx, s.customer); err != nil {
			s.logger.Warn().Err(err).Msg("failed to save delivery address to profile")
		}
	}

	s.sess.Draft = nil
	return Directive{Kind: DirectiveCommitted, DraftKind: models.DraftOrder, Order: created}, nil
}

func (s *step) commitReservation(d *models.Draft) (Directive, error) {
	const op = "reconciler.commitReservation"
	if !d.Reservation.At.After(s.now) {
		d.Reservation.At = nil
		return clarify("reservation time is in the past"), nil
	}
	res := &models.Reservation{
		CommitKey:       d.CommitKey,
		CustomerID:      s.customer.ID,
		CustomerPhone:   s.customer.Phone,
		ReservedFor:     *d.Reservation.At,
		PartySize:       d.Reservation.PartySize,
		SpecialRequests: d.Reservation.SpecialRequests,
		Status:          models.ReservationStatusConfirmed,
	}

	created, err := s.r.ledger.CreateReservation(s.ctx, res)
	if errors.Is(err, storage.ErrDuplicate) {
		created, err = s.r.ledger.GetReservationByCommitKey(s.ctx, d.CommitKey)
		if err != nil {
			return Directive{}, apperrors.Upstream(op, "load committed reservation", err)
		}
		s.logger.Warn().Str("reference", created.Reference).Msg("duplicate reservation commit rejected")
		s.r.metrics.Commit("reservation", "duplicate")
	} else if err != nil {
		s.r.metrics.Commit("reservation", "error")
		return Directive{}, apperrors.Upstream(op, "create reservation", err)
	} else {
		s.r.metrics.Commit("reservation", "created")
		s.logger.Info().Str("reference", created.Reference).Time("reserved_for", created.ReservedFor).Msg("reservation committed")
	}

	s.sess.Draft = nil
	return Directive{Kind: DirectiveCommitted, DraftKind: models.DraftReservation, Reservation: created}, nil
}

func (s *step) commitComplaint(d *models.Draft) (Directive, error) {
	const op = "reconciler.commitComplaint"
	c := &models.Complaint{
		CommitKey:     d.CommitKey,
		CustomerID:    s.customer.ID,
		CustomerPhone: s.customer.Phone,
		Description:   d.Complaint.Description,
		Status:        models.ComplaintStatusOpen,
	}

	created, err := s.r.ledger.CreateComplaint(s.ctx, c)
	if errors.Is(err, storage.ErrDuplicate) {
		created, err = s.r.ledger.GetComplaintByCommitKey(s.ctx, d.CommitKey)
		if err != nil {
			return Directive{}, apperrors.Upstream(op, "load committed complaint", err)
		}
		s.logger.Warn().Str("reference", created.Reference).Msg("duplicate complaint commit rejected")
		s.r.metrics.Commit("complaint", "duplicate")
	} else if err != nil {
		s.r.metrics.Commit("complaint", "error")
		return Directive{}, apperrors.Upstream(op, "create complaint", err)
	} else {
		s.r.metrics.Commit("complaint", "created")
		s.logger.Info().Str("reference", created.Reference).Msg("complaint filed")
	}

	s.sess.Draft = nil
	return Directive{Kind: DirectiveCommitted, DraftKind: models.DraftComplaint, Complaint: created}, nil
}

func (s *step) orderStatus() (Directive, error) {
	order, err := s.r.ledger.GetLatestActiveOrder(s.ctx, s.customer.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return Directive{Kind: DirectiveOrderStatus}, nil
	}
	if err != nil {
		return Directive{}, apperrors.Upstream("reconciler.orderStatus", "load latest order", err)
	}
	return Directive{Kind: DirectiveOrderStatus, Order: order}, nil
}

func (s *step) submitFeedback(a intent.SubmitFeedback) (Directive, error) {
	const op = "reconciler.submitFeedback"
	order, err := s.r.ledger.GetLatestAwaitingFeedback(s.ctx, s.customer.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return Directive{Kind: DirectiveDeferToAI, Note: a.Text}, nil
	}
	if err != nil {
		return Directive{}, apperrors.Upstream(op, "load order awaiting feedback", err)
	}
	if s.r.orders != nil {
		release, err := s.r.orders.Acquire(s.ctx, gate.OrderKey(order.ID))
		if err != nil {
			return Directive{}, err
		}
		defer release()

		// Reload under the gate; an admin may have deleted it meanwhile.
		order, err = s.r.ledger.GetOrder(s.ctx, order.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return Directive{Kind: DirectiveDeferToAI, Note: a.Text}, nil
		}
		if err != nil {
			return Directive{}, apperrors.Upstream(op, "reload order", err)
		}
	}
	order.Feedback = strings.TrimSpace(a.Text)
	err = s.r.ledger.UpdateOrder(s.ctx, order)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Info().Uint("order_id", order.ID).Msg("order gone before feedback was saved")
		return Directive{Kind: DirectiveDeferToAI, Note: a.Text}, nil
	}
	if err != nil {
		return Directive{}, apperrors.Upstream(op, "save feedback", err)
	}
	s.logger.Info().Str("reference", order.Reference).Msg("feedback recorded")
	return Directive{Kind: DirectiveFeedbackRecorded, Order: order}, nil
}

func (s *step) setName(a intent.SetCustomerName) (Directive, error) {
	name := strings.TrimSpace(a.Name)
	if name == "" || name == s.customer.Name {
		return Directive{Kind: DirectiveProfileUpdated}, nil
	}
	s.customer.Name = name
	if err := s.r.ledger.UpdateCustomer(s.ctx, s.customer); err != nil {
		return Directive{}, apperrors.Upstream("reconciler.setName", "update customer", err)
	}
	return Directive{Kind: DirectiveProfileUpdated}, nil
}

// finalize resolves progress into the next field to request and attaches the
// read-only draft snapshot for response composition.
func (s *step) finalize(d Directive) Directive {
	if d.Kind == "" {
		d.Kind = DirectiveDeferToAI
	}
	draft := s.sess.Draft
	if draft != nil {
		if d.Kind != DirectiveCommitted {
			d.DraftKind = draft.Kind
		}
		d.Missing = draft.MissingFields()
		d.Field = draft.NextField()
		d.Draft = draft.Clone()
		if d.progress() && !d.Rejected {
			if draft.Complete() {
				d.Kind = DirectiveAwaitConfirmation
			} else {
				d.Kind = DirectiveRequestField
			}
		}
	} else if d.progress() {
		d.Kind = DirectiveDeferToAI
	}
	d.Discarded = s.discarded
	return d
}
