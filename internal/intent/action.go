package intent

import (
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
)

// Kind names an action for logs and metrics.
type Kind string

const (
	KindStartOrder          Kind = "start_order"
	KindAddItem             Kind = "add_item"
	KindSetOrderType        Kind = "set_order_type"
	KindSetDeliveryInfo     Kind = "set_delivery_info"
	KindConfirmOrder        Kind = "confirm_order"
	KindCancelDraft         Kind = "cancel_draft"
	KindStartReservation    Kind = "start_reservation"
	KindSetReservationField Kind = "set_reservation_field"
	KindConfirmReservation  Kind = "confirm_reservation"
	KindFileComplaint       Kind = "file_complaint"
	KindAskOrderStatus      Kind = "ask_order_status"
	KindSubmitFeedback      Kind = "submit_feedback"
	KindSetCustomerName     Kind = "set_customer_name"
	KindFreeform            Kind = "freeform"
)

// Action is a normalized, validated instruction for the reconciler. The set of
// implementations is closed to this package.
type Action interface {
	Kind() Kind
	action()
}

type StartOrder struct{}

type AddItem struct {
	Item models.LineItem
}

type SetOrderType struct {
	Type models.OrderType
}

// SetDeliveryInfo carries exactly one of the two delivery sub-slots.
type SetDeliveryInfo struct {
	Address  string
	Location *models.GeoPoint
}

type ConfirmOrder struct{}

type CancelDraft struct{}

type StartReservation struct{}

// SetReservationField sets one reservation slot; only the value matching Field is used.
type SetReservationField struct {
	Field     models.DraftField
	At        time.Time
	PartySize int
	Text      string
}

type ConfirmReservation struct{}

type FileComplaint struct {
	Description string
}

type AskOrderStatus struct{}

type SubmitFeedback struct {
	Text string
}

type SetCustomerName struct {
	Name string
}

// Freeform is anything that is not a state transition. Reason is set when a
// slot failed validation and the customer should be asked to clarify.
type Freeform struct {
	Text   string
	Reason string
}

func (StartOrder) Kind() Kind          { return KindStartOrder }
func (AddItem) Kind() Kind             { return KindAddItem }
func (SetOrderType) Kind() Kind        { return KindSetOrderType }
func (SetDeliveryInfo) Kind() Kind     { return KindSetDeliveryInfo }
func (ConfirmOrder) Kind() Kind        { return KindConfirmOrder }
func (CancelDraft) Kind() Kind         { return KindCancelDraft }
func (StartReservation) Kind() Kind    { return KindStartReservation }
func (SetReservationField) Kind() Kind { return KindSetReservationField }
func (ConfirmReservation) Kind() Kind  { return KindConfirmReservation }
func (FileComplaint) Kind() Kind       { return KindFileComplaint }
func (AskOrderStatus) Kind() Kind      { return KindAskOrderStatus }
func (SubmitFeedback) Kind() Kind      { return KindSubmitFeedback }
func (SetCustomerName) Kind() Kind     { return KindSetCustomerName }
func (Freeform) Kind() Kind            { return KindFreeform }

func (StartOrder) action()          {}
func (AddItem) action()             {}
func (SetOrderType) action()        {}
func (SetDeliveryInfo) action()     {}
func (ConfirmOrder) action()        {}
func (CancelDraft) action()         {}
func (StartReservation) action()    {}
func (SetReservationField) action() {}
func (ConfirmReservation) action()  {}
func (FileComplaint) action()       {}
func (AskOrderStatus) action()      {}
func (SubmitFeedback) action()      {}
func (SetCustomerName) action()     {}
func (Freeform) action()            {}
