package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/apperrors"
	"github.com/Ananth-NQI/dinepe-backend/internal/gate"
	"github.com/Ananth-NQI/dinepe-backend/internal/intent"
	"github.com/Ananth-NQI/dinepe-backend/internal/metrics"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/reconciler"
	"github.com/Ananth-NQI/dinepe-backend/internal/session"
)

// contextTurns is how many recent turns the intent extractor sees.
const contextTurns = 6

// WhatsAppService runs one inbound message through interpretation, the
// per-customer gate, reconciliation, reply composition and delivery.
type WhatsAppService struct {
	sessions    session.Store
	interpreter *intent.Interpreter
	gate        *gate.Serializer
	reconciler  *reconciler.Reconciler
	responder   *Responder
	messenger   Messenger
	menu        reconciler.MenuSource
	logger      zerolog.Logger
	metrics     *metrics.Collector
}

// WhatsAppDeps groups the collaborators of WhatsAppService.
type WhatsAppDeps struct {
	Sessions    session.Store
	Interpreter *intent.Interpreter
	Gate        *gate.Serializer
	Reconciler  *reconciler.Reconciler
	Responder   *Responder
	Messenger   Messenger
	Menu        reconciler.MenuSource
	Logger      zerolog.Logger
	Metrics     *metrics.Collector
}

// NewWhatsAppService creates a new WhatsApp service
func NewWhatsAppService(deps WhatsAppDeps) *WhatsAppService {
	return &WhatsAppService{
		sessions:    deps.Sessions,
		interpreter: deps.Interpreter,
		gate:        deps.Gate,
		reconciler:  deps.Reconciler,
		responder:   deps.Responder,
		messenger:   deps.Messenger,
		menu:        deps.Menu,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// ProcessMessage handles one inbound message. The customer always gets a
// reply except for redelivered messages, which were answered the first time.
// The returned error is informational; a reply has already been attempted.
func (w *WhatsAppService) ProcessMessage(ctx context.Context, in models.InboundMessage) (Reply, error) {
	in.CustomerKey = strings.TrimPrefix(in.CustomerKey, "whatsapp:")
	logger := w.logger.With().Str("customer", in.CustomerKey).Str("message_id", in.MessageID).Logger()

	actions := w.interpreter.Interpret(ctx, in, w.extractorContext(ctx, in.CustomerKey))

	release, err := w.gate.Acquire(ctx, in.CustomerKey)
	if err != nil {
		kind := apperrors.KindOf(err)
		logger.Warn().Err(err).Str("kind", string(kind)).Msg("customer gate unavailable")
		w.metrics.Message("gate_rejected")
		reply := Reply{Text: ReplyTemplates["retry_later"].Body}
		return reply, errors.Join(err, w.send(ctx, in.CustomerKey, reply, logger))
	}

	res, err := w.reconciler.Reconcile(ctx, in, actions)
	if err != nil {
		release()
		logger.Error().Err(err).Msg("reconciliation failed")
		w.metrics.Message("failed")
		reply := Reply{Text: ReplyTemplates["generic_apology"].Body}
		return reply, errors.Join(err, w.send(ctx, in.CustomerKey, reply, logger))
	}
	if res.Duplicate {
		release()
		w.metrics.Message("duplicate")
		return Reply{}, nil
	}

	reply := w.responder.Compose(ctx, in, res)
	err = w.reconciler.RecordExchange(ctx, in, res, reconciler.Reply{
		Text:         reply.Text,
		TokensInput:  reply.Usage.InputTokens,
		TokensOutput: reply.Usage.OutputTokens,
		CostLocal:    reply.Usage.CostLocal,
	})
	release()
	if err != nil {
		// History is best effort; the reply still goes out.
		logger.Warn().Err(err).Msg("failed to record conversation exchange")
	}

	w.metrics.Message(string(res.Directive.Kind))
	logger.Info().
		Str("directive", string(res.Directive.Kind)).
		Bool("request_location", reply.RequestLocation).
		Msg("message processed")
	return reply, w.send(ctx, in.CustomerKey, reply, logger)
}

func (w *WhatsAppService) extractorContext(ctx context.Context, key string) intent.Context {
	var menu []string
	if w.menu != nil {
		if p := w.menu.Profile(); p != nil {
			menu = p.Names()
		}
	}
	sess, err := w.sessions.Get(ctx, key)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		w.logger.Warn().Err(err).Str("customer", key).Msg("session snapshot unavailable for intent context")
	}
	return intent.ContextFromSession(sess, menu, contextTurns)
}

func (w *WhatsAppService) send(ctx context.Context, to string, reply Reply, logger zerolog.Logger) error {
	var err error
	if reply.RequestLocation {
		err = w.messenger.SendLocationRequest(ctx, to, reply.Text)
	} else {
		err = w.messenger.SendText(ctx, to, reply.Text)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to send reply")
	}
	return err
}
