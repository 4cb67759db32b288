package intent

import (
	"testing"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(0.4, time.UTC)
}

func TestNormalizeOrderExpandsSlots(t *testing.T) {
	actions := newTestNormalizer().Normalize(RawIntent{
		Kind: RawOrder,
		Slots: map[string]any{
			"items":      []any{map[string]any{"name": "Burger", "quantity": float64(2)}},
			"order_type": "delivery",
		},
		Confidence: 0.9,
	})

	require.Len(t, actions, 3)
	assert.Equal(t, StartOrder{}, actions[0])
	assert.Equal(t, AddItem{Item: models.LineItem{Name: "Burger", Quantity: 2}}, actions[1])
	assert.Equal(t, SetOrderType{Type: models.OrderTypeDelivery}, actions[2])
}

func TestNormalizeMalformedSlotsBecomeFreeform(t *testing.T) {
	actions := newTestNormalizer().Normalize(RawIntent{
		Kind: RawAddItems,
		Slots: map[string]any{
			"items": []any{
				map[string]any{"name": "Fries", "quantity": "1"},
				map[string]any{"name": "Burger", "quantity": 2.5},
				map[string]any{"quantity": 1.0},
			},
			"order_type": "teleport",
		},
		Text: "fries, 2.5 burgers, by teleport",
	})

	require.Len(t, actions, 4)
	assert.Equal(t, AddItem{Item: models.LineItem{Name: "Fries", Quantity: 1}}, actions[0])
	for _, a := range actions[1:] {
		ff, ok := a.(Freeform)
		require.True(t, ok, "expected freeform, got %T", a)
		assert.NotEmpty(t, ff.Reason)
		assert.Equal(t, "fries, 2.5 burgers, by teleport", ff.Text)
	}
}

func TestNormalizeUnknownKindIsFreeform(t *testing.T) {
	actions := newTestNormalizer().Normalize(RawIntent{Kind: "weather", Text: "is it raining?"})
	assert.Equal(t, []Action{Freeform{Text: "is it raining?"}}, actions)
}

func TestNormalizeLowConfidenceIsFreeform(t *testing.T) {
	actions := newTestNormalizer().Normalize(RawIntent{Kind: RawCancel, Confidence: 0.1, Text: "hmm"})
	assert.Equal(t, []Action{Freeform{Text: "hmm"}}, actions)
}

func TestNormalizeEmptyAddItemsAsksForClarification(t *testing.T) {
	actions := newTestNormalizer().Normalize(RawIntent{Kind: RawAddItems, Text: "more"})
	require.Len(t, actions, 1)
	assert.Equal(t, KindFreeform, actions[0].Kind())
	assert.NotEmpty(t, actions[0].(Freeform).Reason)
}

func TestNormalizeReservation(t *testing.T) {
	actions := newTestNormalizer().Normalize(RawIntent{
		Kind: RawReservation,
		Slots: map[string]any{
			"date_time":        "2025-03-01 20:00",
			"party_size":       float64(4),
			"special_requests": "window seat",
		},
	})

	require.Len(t, actions, 4)
	assert.Equal(t, StartReservation{}, actions[0])
	assert.Equal(t, SetReservationField{Field: models.FieldDateTime, At: time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)}, actions[1])
	assert.Equal(t, SetReservationField{Field: models.FieldPartySize, PartySize: 4}, actions[2])
	assert.Equal(t, SetReservationField{Field: models.FieldSpecialReqs, Text: "window seat"}, actions[3])
}

func TestNormalizeReservationRejectsBadValues(t *testing.T) {
	actions := newTestNormalizer().Normalize(RawIntent{
		Kind:  RawReservationDetails,
		Slots: map[string]any{"date_time": "next blue moon", "party_size": float64(400)},
	})
	require.Len(t, actions, 2)
	assert.Equal(t, KindFreeform, actions[0].Kind())
	assert.Equal(t, KindFreeform, actions[1].Kind())
}

func TestNormalizeComplaintFallsBackToText(t *testing.T) {
	actions := newTestNormalizer().Normalize(RawIntent{Kind: RawComplaint, Text: "my food was cold"})
	assert.Equal(t, []Action{FileComplaint{Description: "my food was cold"}}, actions)
}

func TestNormalizeLocation(t *testing.T) {
	n := newTestNormalizer()
	p := models.GeoPoint{Latitude: 31.52, Longitude: 74.35}
	assert.Equal(t, []Action{SetDeliveryInfo{Location: &p}}, n.NormalizeLocation(p, "[Location shared]"))

	bad := n.NormalizeLocation(models.GeoPoint{Latitude: 123, Longitude: 0}, "x")
	require.Len(t, bad, 1)
	assert.Equal(t, KindFreeform, bad[0].Kind())
}

func TestNormalizeIsPure(t *testing.T) {
	raw := RawIntent{Kind: RawSetOrderType, Slots: map[string]any{"order_type": "delivery"}}
	n := newTestNormalizer()
	assert.Equal(t, n.Normalize(raw), n.Normalize(raw))
}
