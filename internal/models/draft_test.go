package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderDraftMissingFieldsInDeclarationOrder(t *testing.T) {
	d := NewDraft(DraftOrder, "k1", time.Now())
	assert.Equal(t, []DraftField{FieldOrderType, FieldItems}, d.MissingFields())

	d.Order.SetType(OrderTypeDelivery)
	assert.Equal(t, []DraftField{FieldItems, FieldAddress, FieldLocation}, d.MissingFields())

	d.Order.MergeItem(LineItem{Name: "Burger", Quantity: 2})
	assert.Equal(t, FieldAddress, d.NextField())
	assert.False(t, d.Complete())
}

func TestDeliveryNeedsAddressAndLocation(t *testing.T) {
	d := NewDraft(DraftOrder, "k1", time.Now())
	d.Order.SetType(OrderTypeDelivery)
	d.Order.MergeItem(LineItem{Name: "Burger", Quantity: 2})

	d.Order.SetAddress("12 Mall Road")
	assert.False(t, d.Complete(), "address alone is not enough")
	assert.Equal(t, []DraftField{FieldLocation}, d.MissingFields())

	d.Order.Address = ""
	d.Order.SetLocation(GeoPoint{Latitude: 31.5, Longitude: 74.3})
	assert.False(t, d.Complete(), "location alone is not enough")

	d.Order.SetAddress("12 Mall Road")
	assert.True(t, d.Complete())
}

func TestTakeawayIgnoresDeliveryFields(t *testing.T) {
	d := NewDraft(DraftOrder, "k1", time.Now())
	d.Order.SetType(OrderTypeTakeaway)
	d.Order.MergeItem(LineItem{Name: "Fries", Quantity: 1})
	assert.True(t, d.Complete())
}

func TestMergeIsIdempotent(t *testing.T) {
	o := &OrderDraft{}
	assert.True(t, o.SetType(OrderTypeDelivery))
	assert.False(t, o.SetType(OrderTypeDelivery))

	assert.True(t, o.MergeItem(LineItem{Name: "Burger", Quantity: 2}))
	assert.False(t, o.MergeItem(LineItem{Name: "burger", Quantity: 2}))
	require.Len(t, o.Items, 1)

	assert.True(t, o.MergeItem(LineItem{Name: "Burger", Quantity: 3}))
	assert.Equal(t, 3, o.Items[0].Quantity)

	p := GeoPoint{Latitude: 1, Longitude: 2}
	assert.True(t, o.SetLocation(p))
	assert.False(t, o.SetLocation(p))
}

func TestReservationAndComplaintRequirements(t *testing.T) {
	r := NewDraft(DraftReservation, "k2", time.Now())
	assert.Equal(t, []DraftField{FieldDateTime, FieldPartySize}, r.MissingFields())
	at := time.Now().Add(24 * time.Hour)
	r.Reservation.At = &at
	r.Reservation.PartySize = 4
	assert.True(t, r.Complete())

	c := NewDraft(DraftComplaint, "k3", time.Now())
	assert.Equal(t, FieldDescription, c.NextField())
	c.Complaint.Description = "  "
	assert.False(t, c.Complete())
}

func TestDraftCloneIsDeep(t *testing.T) {
	d := NewDraft(DraftOrder, "k1", time.Now())
	d.Order.MergeItem(LineItem{Name: "Burger", Quantity: 1})
	d.Order.SetLocation(GeoPoint{Latitude: 1, Longitude: 1})

	c := d.Clone()
	c.Order.Items[0].Quantity = 5
	c.Order.Location.Latitude = 9

	assert.Equal(t, 1, d.Order.Items[0].Quantity)
	assert.Equal(t, 1.0, d.Order.Location.Latitude)
}
