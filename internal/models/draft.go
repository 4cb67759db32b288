package models

import (
	"strings"
	"time"
)

type DraftKind string

const (
	DraftOrder       DraftKind = "order"
	DraftReservation DraftKind = "reservation"
	DraftComplaint   DraftKind = "complaint"
)

// DraftField names a required slot of a draft.
type DraftField string

const (
	FieldOrderType   DraftField = "order_type"
	FieldItems       DraftField = "items"
	FieldAddress     DraftField = "address"
	FieldLocation    DraftField = "location"
	FieldDateTime    DraftField = "date_time"
	FieldPartySize   DraftField = "party_size"
	FieldSpecialReqs DraftField = "special_requests"
	FieldDescription DraftField = "description"
)

// Draft is an in-progress transaction held in the session. Exactly one of
// Order, Reservation or Complaint is set, matching Kind.
type Draft struct {
	Kind        DraftKind         `json:"kind"`
	CommitKey   string            `json:"commit_key"`
	StartedAt   time.Time         `json:"started_at"`
	Order       *OrderDraft       `json:"order,omitempty"`
	Reservation *ReservationDraft `json:"reservation,omitempty"`
	Complaint   *ComplaintDraft   `json:"complaint,omitempty"`
}

type OrderDraft struct {
	Type     OrderType  `json:"order_type,omitempty"`
	Items    []LineItem `json:"items,omitempty"`
	Address  string     `json:"address,omitempty"`
	Location *GeoPoint  `json:"location,omitempty"`
}

type ReservationDraft struct {
	At              *time.Time `json:"at,omitempty"`
	PartySize       int        `json:"party_size,omitempty"`
	SpecialRequests string     `json:"special_requests,omitempty"`
}

type ComplaintDraft struct {
	Description string `json:"description,omitempty"`
}

// NewDraft creates an empty draft of the given kind.
func NewDraft(kind DraftKind, commitKey string, now time.Time) *Draft {
	d := &Draft{Kind: kind, CommitKey: commitKey, StartedAt: now}
	switch kind {
	case DraftOrder:
		d.Order = &OrderDraft{}
	case DraftReservation:
		d.Reservation = &ReservationDraft{}
	case DraftComplaint:
		d.Complaint = &ComplaintDraft{}
	}
	return d
}

// RequiredFields lists the fields needed to commit, in declaration order.
// Delivery orders additionally need both the typed address and the GPS pin.
func (d *Draft) RequiredFields() []DraftField {
	switch d.Kind {
	case DraftOrder:
		fields := []DraftField{FieldOrderType, FieldItems}
		if d.Order != nil && d.Order.Type == OrderTypeDelivery {
			fields = append(fields, FieldAddress, FieldLocation)
		}
		return fields
	case DraftReservation:
		return []DraftField{FieldDateTime, FieldPartySize}
	case DraftComplaint:
		return []DraftField{FieldDescription}
	}
	return nil
}

// MissingFields returns the required fields that are still empty, in declaration order.
func (d *Draft) MissingFields() []DraftField {
	var missing []DraftField
	for _, f := range d.RequiredFields() {
		if !d.has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func (d *Draft) Complete() bool {
	return len(d.MissingFields()) == 0
}

// NextField is the first missing field, or "" when complete.
func (d *Draft) NextField() DraftField {
	if m := d.MissingFields(); len(m) > 0 {
		return m[0]
	}
	return ""
}

func (d *Draft) has(f DraftField) bool {
	switch f {
	case FieldOrderType:
		return d.Order != nil && d.Order.Type != ""
	case FieldItems:
		return d.Order != nil && len(d.Order.Items) > 0
	case FieldAddress:
		return d.Order != nil && strings.TrimSpace(d.Order.Address) != ""
	case FieldLocation:
		return d.Order != nil && d.Order.Location != nil
	case FieldDateTime:
		return d.Reservation != nil && d.Reservation.At != nil
	case FieldPartySize:
		return d.Reservation != nil && d.Reservation.PartySize > 0
	case FieldDescription:
		return d.Complaint != nil && strings.TrimSpace(d.Complaint.Description) != ""
	}
	return false
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	c := *d
	if d.Order != nil {
		o := *d.Order
		o.Items = append([]LineItem(nil), d.Order.Items...)
		if d.Order.Location != nil {
			loc := *d.Order.Location
			o.Location = &loc
		}
		c.Order = &o
	}
	if d.Reservation != nil {
		r := *d.Reservation
		if d.Reservation.At != nil {
			at := *d.Reservation.At
			r.At = &at
		}
		c.Reservation = &r
	}
	if d.Complaint != nil {
		cd := *d.Complaint
		c.Complaint = &cd
	}
	return &c
}

// SetType merges the order type. Returns false when nothing changed.
func (o *OrderDraft) SetType(t OrderType) bool {
	if o.Type == t {
		return false
	}
	o.Type = t
	return true
}

// MergeItem sets the quantity of an item, matching by case-insensitive name.
func (o *OrderDraft) MergeItem(item LineItem) bool {
	for i, existing := range o.Items {
		if strings.EqualFold(existing.Name, item.Name) {
			if existing.Quantity == item.Quantity && existing.UnitPrice == item.UnitPrice {
				return false
			}
			o.Items[i] = item
			return true
		}
	}
	o.Items = append(o.Items, item)
	return true
}

func (o *OrderDraft) SetAddress(address string) bool {
	address = strings.TrimSpace(address)
	if o.Address == address {
		return false
	}
	o.Address = address
	return true
}

func (o *OrderDraft) SetLocation(p GeoPoint) bool {
	if o.Location != nil && *o.Location == p {
		return false
	}
	o.Location = &p
	return true
}
