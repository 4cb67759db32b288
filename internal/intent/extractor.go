package intent

import (
	"context"
	"strings"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/rs/zerolog"
)

// Context is the read-only view of the session an extractor may use to
// interpret short replies such as "yes" or a bare address.
type Context struct {
	DraftKind   models.DraftKind
	NextField   models.DraftField
	MenuItems   []string
	RecentTurns []models.Turn
}

// ContextFromSession builds an extractor context. sess may be nil.
func ContextFromSession(sess *models.Session, menu []string, turns int) Context {
	c := Context{MenuItems: menu}
	if sess == nil {
		return c
	}
	if sess.Draft != nil {
		c.DraftKind = sess.Draft.Kind
		c.NextField = sess.Draft.NextField()
	}
	if turns > 0 && len(sess.Turns) > turns {
		c.RecentTurns = append([]models.Turn(nil), sess.Turns[len(sess.Turns)-turns:]...)
	} else {
		c.RecentTurns = append([]models.Turn(nil), sess.Turns...)
	}
	return c
}

// Extractor is the NLU collaborator.
type Extractor interface {
	Extract(ctx context.Context, text string, c Context) (RawIntent, error)
}

// Interpreter runs extraction and normalization, degrading to Freeform when the
// extractor is unavailable.
type Interpreter struct {
	extractor  Extractor
	normalizer *Normalizer
	logger     zerolog.Logger
}

func NewInterpreter(extractor Extractor, normalizer *Normalizer, logger zerolog.Logger) *Interpreter {
	return &Interpreter{extractor: extractor, normalizer: normalizer, logger: logger}
}

// Interpret returns the action batch for an inbound message. It never fails.
func (i *Interpreter) Interpret(ctx context.Context, msg models.InboundMessage, c Context) []Action {
	if msg.Type == models.MessageTypeLocation && msg.Location != nil {
		return i.normalizer.NormalizeLocation(*msg.Location, msg.Content())
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return []Action{Freeform{Reason: "empty message"}}
	}

	raw, err := i.extractor.Extract(ctx, text, c)
	if err != nil {
		i.logger.Warn().Err(err).
			Str("customer", msg.CustomerKey).
			Str("message_id", msg.MessageID).
			Msg("intent extraction failed, treating message as freeform")
		return []Action{Freeform{Text: text}}
	}
	raw.Text = text
	actions := i.normalizer.Normalize(raw)

	i.logger.Debug().
		Str("customer", msg.CustomerKey).
		Str("intent", raw.Kind).
		Int("actions", len(actions)).
		Msg("message interpreted")
	return actions
}
