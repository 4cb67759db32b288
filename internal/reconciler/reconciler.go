// Package reconciler applies normalized actions to a customer's session and
// the entity ledger. It is the only writer of sessions and conversation turns.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/apperrors"
	"github.com/Ananth-NQI/dinepe-backend/internal/catalog"
	"github.com/Ananth-NQI/dinepe-backend/internal/gate"
	"github.com/Ananth-NQI/dinepe-backend/internal/intent"
	"github.com/Ananth-NQI/dinepe-backend/internal/metrics"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/session"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

// MenuSource provides the current menu for item validation and pricing.
type MenuSource interface {
	Profile() *catalog.Profile
}

type Config struct {
	TTL        time.Duration
	WindowSize int
}

// Result is the outcome of reconciling one inbound message.
type Result struct {
	Customer  *models.Customer
	Session   *models.Session
	Directive Directive
	// Duplicate is set for a redelivered message id; nothing was written.
	Duplicate bool
}

// Reply is the outbound message recorded against the inbound one.
type Reply struct {
	Text         string
	TokensInput  int
	TokensOutput int
	CostLocal    float64
}

type Reconciler struct {
	sessions session.Store
	ledger   storage.Store
	menu     MenuSource
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger
	metrics  *metrics.Collector
	orders   *gate.Serializer
}

type Option func(*Reconciler)

func WithMenu(menu MenuSource) Option {
	return func(r *Reconciler) { r.menu = menu }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithOrderGate serializes feedback writes with admin status changes and
// deletes on the same order. It must not share keys with the customer gate
// the caller holds.
func WithOrderGate(g *gate.Serializer) Option {
	return func(r *Reconciler) { r.orders = g }
}

func New(sessions session.Store, ledger storage.Store, cfg Config, opts ...Option) *Reconciler {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}
	r := &Reconciler{
		sessions: sessions,
		ledger:   ledger,
		cfg:      cfg,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile applies actions for one inbound message. The caller must hold the
// customer's gate. On error no session state is written.
func (r *Reconciler) Reconcile(ctx context.Context, in models.InboundMessage, actions []intent.Action) (*Result, error) {
	const op = "reconciler.Reconcile"
	if in.CustomerKey == "" || in.MessageID == "" {
		return nil, apperrors.Validation(op, "customer key and message id are required")
	}
	start := r.now()
	defer func() { r.metrics.ReconcileDuration(r.now().Sub(start)) }()

	logger := r.logger.With().Str("customer", in.CustomerKey).Str("message_id", in.MessageID).Logger()

	customer, err := r.ledger.GetOrCreateCustomer(ctx, in.CustomerKey)
	if err != nil {
		return nil, apperrors.Upstream(op, "resolve customer", err)
	}

	sess, err := r.sessions.Get(ctx, in.CustomerKey)
	switch {
	case errors.Is(err, session.ErrNotFound):
		sess = models.NewSession(in.CustomerKey, start)
		logger.Debug().Msg("starting new session")
	case err != nil:
		return nil, apperrors.Upstream(op, "load session", err)
	}

	if sess.HasProcessed(in.MessageID) {
		logger.Info().Msg("duplicate delivery ignored")
		return &Result{Customer: customer, Session: sess, Duplicate: true}, nil
	}

	at := in.ReceivedAt
	if at.IsZero() {
		at = start
	}
	sess.AppendTurn(models.Turn{Role: models.RoleUser, Message: in.Content(), Type: in.Type, At: at}, r.cfg.WindowSize)
	sess.MarkProcessed(in.MessageID, r.cfg.WindowSize)

	st := &step{r: r, ctx: ctx, customer: customer, sess: sess, now: start, logger: logger}
	var d Directive
	for _, a := range actions {
		r.metrics.Action(string(a.Kind()))
		next, err := st.apply(a)
		if err != nil {
			logger.Error().Err(err).Str("action", string(a.Kind())).Msg("reconciliation failed, session left untouched")
			return nil, err
		}
		d = combine(d, next)
	}
	d = st.finalize(d)

	if err := r.sessions.Put(ctx, sess, r.cfg.TTL); err != nil {
		return nil, apperrors.Upstream(op, "persist session", err)
	}

	logger.Debug().
		Str("directive", string(d.Kind)).
		Str("draft", string(d.DraftKind)).
		Str("next_field", string(d.Field)).
		Msg("message reconciled")
	return &Result{Customer: st.customer, Session: sess, Directive: d}, nil
}

// RecordExchange appends the reply to the session window and writes the
// inbound/outbound pair to durable history. Turn keys make it safe to repeat.
func (r *Reconciler) RecordExchange(ctx context.Context, in models.InboundMessage, res *Result, reply Reply) error {
	const op = "reconciler.RecordExchange"
	now := r.now()

	res.Session.AppendTurn(models.Turn{Role: models.RoleAssistant, Message: reply.Text, Type: models.MessageTypeText, At: now}, r.cfg.WindowSize)
	if err := r.sessions.Put(ctx, res.Session, r.cfg.TTL); err != nil {
		return apperrors.Upstream(op, "persist session", err)
	}

	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}
	turns := []*models.ConversationTurn{
		{
			TurnKey:     models.InboundTurnKey(in.MessageID),
			CustomerID:  res.Customer.ID,
			Role:        models.RoleUser,
			Message:     in.Content(),
			MessageType: string(in.Type),
			CreatedAt:   receivedAt,
		},
		{
			TurnKey:      models.OutboundTurnKey(in.MessageID),
			CustomerID:   res.Customer.ID,
			Role:         models.RoleAssistant,
			Message:      reply.Text,
			MessageType:  string(models.MessageTypeText),
			TokensInput:  reply.TokensInput,
			TokensOutput: reply.TokensOutput,
			CostLocal:    reply.CostLocal,
			CreatedAt:    now,
		},
	}

	var errs []error
	for _, turn := range turns {
		err := r.ledger.AppendTurn(ctx, turn)
		if errors.Is(err, storage.ErrDuplicate) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("append %s: %w", turn.TurnKey, err))
		}
	}
	if len(errs) > 0 {
		return apperrors.Upstream(op, "append conversation history", errors.Join(errs...))
	}
	return nil
}
