package intent

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
)

// Raw intent kinds produced by extractors.
const (
	RawOrder              = "order"
	RawAddItems           = "add_items"
	RawSetOrderType       = "set_order_type"
	RawDeliveryAddress    = "delivery_address"
	RawConfirmOrder       = "confirm_order"
	RawCancel             = "cancel"
	RawReservation        = "reservation"
	RawReservationDetails = "reservation_details"
	RawConfirmReservation = "confirm_reservation"
	RawComplaint          = "complaint"
	RawOrderStatus        = "order_status"
	RawFeedback           = "feedback"
	RawSetName            = "set_name"
	RawSmalltalk          = "smalltalk"
)

const (
	maxItemQuantity = 50
	maxPartySize    = 50
)

// RawIntent is the structured output of an NLU extractor.
type RawIntent struct {
	Kind       string         `json:"intent"`
	Slots      map[string]any `json:"slots"`
	Confidence float64        `json:"confidence"`
	Text       string         `json:"-"`
}

// Normalizer maps raw intents to validated action batches. It never touches
// session or ledger state.
type Normalizer struct {
	minConfidence float64
	loc           *time.Location
}

func NewNormalizer(minConfidence float64, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{minConfidence: minConfidence, loc: loc}
}

// Normalize turns one raw intent into a batch of actions. Invalid slot values
// become Freeform actions carrying the reason; valid slots still apply.
func (n *Normalizer) Normalize(raw RawIntent) []Action {
	kind := strings.ToLower(strings.TrimSpace(raw.Kind))
	if raw.Confidence > 0 && raw.Confidence < n.minConfidence {
		return []Action{Freeform{Text: raw.Text}}
	}

	b := &batch{text: raw.Text}
	switch kind {
	case RawOrder:
		b.add(StartOrder{})
		n.orderSlots(b, raw.Slots)
	case RawAddItems:
		n.orderSlots(b, raw.Slots)
		b.requireAny("no items or order details found")
	case RawSetOrderType:
		n.orderTypeSlot(b, raw.Slots, true)
	case RawDeliveryAddress:
		n.addressSlot(b, raw.Slots, true)
	case RawConfirmOrder:
		b.add(ConfirmOrder{})
	case RawCancel:
		b.add(CancelDraft{})
	case RawReservation:
		b.add(StartReservation{})
		n.reservationSlots(b, raw.Slots)
	case RawReservationDetails:
		n.reservationSlots(b, raw.Slots)
		b.requireAny("no reservation details found")
	case RawConfirmReservation:
		b.add(ConfirmReservation{})
	case RawComplaint:
		desc := stringSlot(raw.Slots, "description")
		if desc == "" {
			desc = strings.TrimSpace(raw.Text)
		}
		b.add(FileComplaint{Description: desc})
	case RawOrderStatus:
		b.add(AskOrderStatus{})
	case RawFeedback:
		text := stringSlot(raw.Slots, "feedback")
		if text == "" {
			text = strings.TrimSpace(raw.Text)
		}
		if text == "" {
			b.fail("feedback text is empty")
		} else {
			b.add(SubmitFeedback{Text: text})
		}
	case RawSetName:
		name := stringSlot(raw.Slots, "name")
		if name == "" {
			b.fail("name is empty")
		} else {
			b.add(SetCustomerName{Name: name})
		}
	default:
		b.add(Freeform{Text: raw.Text})
	}
	return b.actions()
}

// NormalizeLocation maps a shared WhatsApp location to the delivery GPS sub-slot.
func (n *Normalizer) NormalizeLocation(p models.GeoPoint, text string) []Action {
	if !p.Valid() || (p.Latitude == 0 && p.Longitude == 0) {
		return []Action{Freeform{Text: text, Reason: "shared location is out of range"}}
	}
	return []Action{SetDeliveryInfo{Location: &p}}
}

func (n *Normalizer) orderSlots(b *batch, slots map[string]any) {
	if raw, ok := slots["items"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			b.fail("items must be a list")
		}
		for _, entry := range list {
			item, err := parseItem(entry)
			if err != nil {
				b.fail(err.Error())
				continue
			}
			b.add(AddItem{Item: item})
		}
	}
	n.orderTypeSlot(b, slots, false)
	n.addressSlot(b, slots, false)
}

func (n *Normalizer) orderTypeSlot(b *batch, slots map[string]any, required bool) {
	raw := stringSlot(slots, "order_type")
	if raw == "" {
		if required {
			b.fail("order type missing")
		}
		return
	}
	t, ok := models.ParseOrderType(raw)
	if !ok {
		b.fail(fmt.Sprintf("unknown order type %q", raw))
		return
	}
	b.add(SetOrderType{Type: t})
}

func (n *Normalizer) addressSlot(b *batch, slots map[string]any, required bool) {
	address := stringSlot(slots, "address")
	if address == "" {
		if required {
			b.fail("delivery address missing")
		}
		return
	}
	if len(address) < 5 {
		b.fail(fmt.Sprintf("delivery address %q is too short", address))
		return
	}
	b.add(SetDeliveryInfo{Address: address})
}

func (n *Normalizer) reservationSlots(b *batch, slots map[string]any) {
	if raw := stringSlot(slots, "date_time"); raw != "" {
		at, err := n.parseTime(raw)
		if err != nil {
			b.fail(err.Error())
		} else {
			b.add(SetReservationField{Field: models.FieldDateTime, At: at})
		}
	}
	if raw, ok := slots["party_size"]; ok && raw != nil {
		size, err := parseCount(raw)
		switch {
		case err != nil:
			b.fail("party size: " + err.Error())
		case size < 1 || size > maxPartySize:
			b.fail(fmt.Sprintf("party size %d out of range", size))
		default:
			b.add(SetReservationField{Field: models.FieldPartySize, PartySize: size})
		}
	}
	if req := stringSlot(slots, "special_requests"); req != "" {
		b.add(SetReservationField{Field: models.FieldSpecialReqs, Text: req})
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func (n *Normalizer) parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, n.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised reservation time %q", raw)
}

func parseItem(entry any) (models.LineItem, error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return models.LineItem{}, fmt.Errorf("item %v is not an object", entry)
	}
	name := stringSlot(m, "name")
	if name == "" {
		return models.LineItem{}, fmt.Errorf("item without a name")
	}
	qty := 1
	if raw, ok := m["quantity"]; ok && raw != nil {
		q, err := parseCount(raw)
		if err != nil {
			return models.LineItem{}, fmt.Errorf("quantity for %s: %w", name, err)
		}
		qty = q
	}
	if qty < 1 || qty > maxItemQuantity {
		return models.LineItem{}, fmt.Errorf("quantity %d for %s out of range", qty, name)
	}
	var price float64
	if raw, ok := m["unit_price"]; ok && raw != nil {
		p, ok := raw.(float64)
		if !ok || p < 0 {
			return models.LineItem{}, fmt.Errorf("invalid price for %s", name)
		}
		price = p
	}
	return models.LineItem{Name: name, Quantity: qty, UnitPrice: price}, nil
}

func parseCount(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int(v), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return i, nil
	}
	return 0, fmt.Errorf("unsupported value %v", raw)
}

func stringSlot(slots map[string]any, key string) string {
	if slots == nil {
		return ""
	}
	s, _ := slots[key].(string)
	return strings.TrimSpace(s)
}

// batch collects actions, appending validation failures after the valid ones.
type batch struct {
	text     string
	valid    []Action
	problems []string
}

func (b *batch) add(a Action) { b.valid = append(b.valid, a) }

func (b *batch) fail(reason string) { b.problems = append(b.problems, reason) }

func (b *batch) requireAny(reason string) {
	if len(b.valid) == 0 && len(b.problems) == 0 {
		b.fail(reason)
	}
}

func (b *batch) actions() []Action {
	out := b.valid
	for _, p := range b.problems {
		out = append(out, Freeform{Text: b.text, Reason: p})
	}
	return out
}
