package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/catalog"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/reconciler"
)

// Reply is the composed outbound message for one inbound message.
type Reply struct {
	Text            string
	RequestLocation bool
	Usage           Usage
}

// Responder turns reconciler directives into customer-facing text. Only
// defer-to-AI directives reach the reply model; everything else is templated.
type Responder struct {
	menu    reconciler.MenuSource
	replier Replier
	costs   *CostTracker
	loc     *time.Location
	logger  zerolog.Logger
}

// NewResponder creates a responder. replier and costs may be nil.
func NewResponder(menu reconciler.MenuSource, replier Replier, costs *CostTracker, loc *time.Location, logger zerolog.Logger) *Responder {
	if loc == nil {
		loc = time.Local
	}
	return &Responder{menu: menu, replier: replier, costs: costs, loc: loc, logger: logger}
}

func (r *Responder) profile() *catalog.Profile {
	if r.menu != nil {
		if p := r.menu.Profile(); p != nil {
			return p
		}
	}
	return catalog.Default()
}

func (r *Responder) Compose(ctx context.Context, in models.InboundMessage, res *reconciler.Result) Reply {
	d := res.Directive
	var parts []string
	if d.Discarded != "" {
		parts = append(parts, fmt.Sprintf("I've dropped your unfinished %s.", d.Discarded))
	}

	reply := Reply{}
	switch d.Kind {
	case reconciler.DirectiveRequestField:
		if d.Rejected {
			parts = append(parts, r.render("confirm_rejected", nil))
		}
		if d.Note != "" {
			parts = append(parts, r.render("clarify", map[string]string{"reason": ": " + d.Note}))
		}
		text, loc := r.fieldPrompt(d.Field)
		parts = append(parts, text)
		reply.RequestLocation = loc
	case reconciler.DirectiveAwaitConfirmation:
		if d.Note != "" {
			parts = append(parts, r.render("clarify", map[string]string{"reason": ": " + d.Note}))
		}
		parts = append(parts, r.summary(d.Draft))
	case reconciler.DirectiveCommitted:
		parts = append(parts, r.committed(d))
	case reconciler.DirectiveOrderStatus:
		parts = append(parts, r.orderStatus(d.Order))
	case reconciler.DirectiveDraftCancelled:
		parts = append(parts, r.render("draft_cancelled", nil))
	case reconciler.DirectiveFeedbackRecorded:
		parts = append(parts, r.render("feedback_thanks", map[string]string{"reference": d.Order.Reference}))
	case reconciler.DirectiveProfileUpdated:
		parts = append(parts, r.render("profile_updated", map[string]string{"name": namePart(res.Customer)}))
		if d.Field != "" {
			text, loc := r.fieldPrompt(d.Field)
			parts = append(parts, text)
			reply.RequestLocation = loc
		}
	case reconciler.DirectiveClarify:
		reason := ""
		if d.Note != "" {
			reason = ": " + d.Note
		}
		parts = append(parts, r.render("clarify", map[string]string{"reason": reason}))
		if d.Field != "" {
			text, loc := r.fieldPrompt(d.Field)
			parts = append(parts, text)
			reply.RequestLocation = loc
		}
	default:
		text, usage := r.deferToAI(ctx, in, res)
		parts = append(parts, text)
		reply.Usage = usage
	}

	reply.Text = strings.Join(parts, "\n\n")
	return reply
}

func (r *Responder) deferToAI(ctx context.Context, in models.InboundMessage, res *reconciler.Result) (string, Usage) {
	d := res.Directive
	if r.replier != nil {
		history := res.Session.Turns
		if n := len(history); n > 0 {
			// The last turn is the message itself.
			history = history[:n-1]
		}
		name := ""
		if res.Customer != nil {
			name = res.Customer.Name
		}
		ai, err := r.replier.Reply(ctx, ReplyRequest{
			Profile:      r.profile(),
			CustomerName: name,
			History:      history,
			Message:      in.Content(),
			DraftState:   draftState(d),
		})
		if err == nil {
			var usage Usage
			if r.costs != nil {
				usage = r.costs.Track(ai.InputTokens, ai.OutputTokens)
			}
			return ai.Text, usage
		}
		r.logger.Warn().Err(err).Str("customer", in.CustomerKey).Msg("AI reply failed, using template")
	}

	text := r.render("greeting", map[string]string{"restaurant": r.profile().Name})
	if d.Field != "" {
		prompt, _ := r.fieldPrompt(d.Field)
		text += "\n\n" + prompt
	}
	return text, Usage{}
}

func draftState(d reconciler.Directive) string {
	if d.DraftKind == "" || d.Draft == nil {
		return "none"
	}
	if d.Field == "" {
		return fmt.Sprintf("%s draft, complete and waiting for confirmation", d.DraftKind)
	}
	return fmt.Sprintf("%s draft, next missing field: %s", d.DraftKind, d.Field)
}

// fieldPrompt returns the question for a missing field and whether it needs
// a location request.
func (r *Responder) fieldPrompt(field models.DraftField) (string, bool) {
	switch field {
	case models.FieldOrderType:
		return r.render("ask_order_type", nil), false
	case models.FieldItems:
		return r.render("ask_items", map[string]string{"menu": r.profile().FormatMenu()}), false
	case models.FieldAddress:
		return r.render("ask_address", nil), false
	case models.FieldLocation:
		return r.render("ask_location", nil), true
	case models.FieldDateTime:
		return r.render("ask_date_time", nil), false
	case models.FieldPartySize:
		return r.render("ask_party_size", nil), false
	case models.FieldDescription:
		return r.render("ask_description", nil), false
	}
	return "", false
}

func (r *Responder) summary(d *models.Draft) string {
	if d == nil {
		return ""
	}
	switch d.Kind {
	case models.DraftOrder:
		order := &models.Order{Type: d.Order.Type, Items: d.Order.Items}
		delivery := ""
		if d.Order.Type == models.OrderTypeDelivery {
			delivery = "\nDeliver to: " + d.Order.Address
		}
		return r.render("order_summary", map[string]string{
			"items":      itemLines(order.Items),
			"order_type": displayOrderType(d.Order.Type),
			"delivery":   delivery,
			"currency":   r.profile().Currency,
			"total":      money(order.CalculateTotal()),
		})
	case models.DraftReservation:
		requests := ""
		if d.Reservation.SpecialRequests != "" {
			requests = " (" + d.Reservation.SpecialRequests + ")"
		}
		return r.render("reservation_summary", map[string]string{
			"party_size": fmt.Sprintf("%d", d.Reservation.PartySize),
			"date_time":  r.formatTime(*d.Reservation.At),
			"requests":   requests,
		})
	}
	return ""
}

func (r *Responder) committed(d reconciler.Directive) string {
	switch {
	case d.Order != nil:
		eta := "soon"
		if d.Order.EstimatedReadyAt != nil {
			eta = d.Order.EstimatedReadyAt.In(r.loc).Format("3:04 PM")
		}
		return r.render("order_confirmed", map[string]string{
			"reference": d.Order.Reference,
			"items":     itemLines(d.Order.Items),
			"currency":  r.profile().Currency,
			"total":     money(d.Order.Total),
			"eta":       eta,
		})
	case d.Reservation != nil:
		return r.render("reservation_confirmed", map[string]string{
			"reference":  d.Reservation.Reference,
			"party_size": fmt.Sprintf("%d", d.Reservation.PartySize),
			"date_time":  r.formatTime(d.Reservation.ReservedFor),
			"restaurant": r.profile().Name,
		})
	case d.Complaint != nil:
		return r.render("complaint_filed", map[string]string{"reference": d.Complaint.Reference})
	}
	return ""
}

func (r *Responder) orderStatus(order *models.Order) string {
	if order == nil {
		return r.render("no_active_order", nil)
	}
	eta := ""
	if order.EstimatedReadyAt != nil && order.Status != models.OrderStatusReady {
		eta = " Estimated ready by " + order.EstimatedReadyAt.In(r.loc).Format("3:04 PM") + "."
	}
	return r.render("order_status", map[string]string{
		"reference": order.Reference,
		"items":     order.ItemSummary(),
		"status":    strings.ToUpper(string(order.Status)),
		"eta":       eta,
	})
}

// FeedbackRequestText renders the delayed feedback prompt for an order.
func FeedbackRequestText(order *models.Order, customer *models.Customer) string {
	text, err := RenderTemplate("feedback_request", map[string]string{
		"name":      namePart(customer),
		"reference": order.Reference,
		"items":     order.ItemSummary(),
	})
	if err != nil {
		return "How was your order? We'd love to hear your feedback."
	}
	return text
}

func (r *Responder) render(name string, params map[string]string) string {
	text, err := RenderTemplate(name, params)
	if err != nil {
		r.logger.Error().Err(err).Str("template", name).Msg("failed to render reply template")
		return ReplyTemplates["generic_apology"].Body
	}
	return text
}

func (r *Responder) formatTime(t time.Time) string {
	return t.In(r.loc).Format("Mon 2 Jan, 3:04 PM")
}

func namePart(c *models.Customer) string {
	if c == nil || c.Name == "" {
		return ""
	}
	return " " + c.Name
}

func itemLines(items []models.LineItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("• %dx %s - %s", item.Quantity, item.Name, money(item.Subtotal())))
	}
	return strings.Join(lines, "\n")
}

func displayOrderType(t models.OrderType) string {
	switch t {
	case models.OrderTypeDineIn:
		return "Dine in"
	case models.OrderTypeTakeaway:
		return "Takeaway"
	case models.OrderTypeDelivery:
		return "Delivery"
	}
	return string(t)
}

func money(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
