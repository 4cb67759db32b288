package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/utils"
	"gorm.io/gorm"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

// ParseOrderType accepts the canonical values plus the spellings customers use.
func ParseOrderType(s string) (OrderType, bool) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "dine_in", "dinein", "dine in", "dine", "eat in":
		return OrderTypeDineIn, true
	case "takeaway", "take_away", "take away", "takeout", "take out", "pickup", "pick up":
		return OrderTypeTakeaway, true
	case "delivery", "deliver", "home delivery":
		return OrderTypeDelivery, true
	}
	return "", false
}

// PrepTime is the estimated time from confirmation until the order is ready.
func (t OrderType) PrepTime() time.Duration {
	switch t {
	case OrderTypeDineIn:
		return 20 * time.Minute
	case OrderTypeTakeaway:
		return 15 * time.Minute
	case OrderTypeDelivery:
		return 45 * time.Minute
	}
	return 30 * time.Minute
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var statusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusPreparing: 1,
	OrderStatusReady:     2,
	OrderStatusCompleted: 3,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := statusRank[st]; ok || st == OrderStatusCancelled {
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo allows forward moves along pending → preparing → ready → completed
// and cancellation from any non-terminal state. Staying in place is not a transition.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || s == next {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	return ok && to > from
}

// LineItem is one menu item and quantity on an order.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

func (li LineItem) Subtotal() float64 {
	return float64(li.Quantity) * li.UnitPrice
}

// Order represents a committed customer order
type Order struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	Reference     string      `gorm:"uniqueIndex;not null" json:"reference"`
	CommitKey     string      `gorm:"uniqueIndex;not null" json:"-"`
	CustomerID    uint        `gorm:"index;not null" json:"customer_id"`
	CustomerPhone string      `gorm:"index" json:"customer_phone"`
	Type          OrderType   `gorm:"type:varchar(20);not null" json:"order_type"`
	Items         []LineItem  `gorm:"serializer:json" json:"items"`
	Total         float64     `json:"total"`
	Status        OrderStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	DeliveryAddress   string   `json:"delivery_address,omitempty"`
	DeliveryLatitude  *float64 `json:"delivery_latitude,omitempty"`
	DeliveryLongitude *float64 `json:"delivery_longitude,omitempty"`

	EstimatedReadyAt  *time.Time `json:"estimated_ready_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	FeedbackRequested bool       `gorm:"default:false" json:"feedback_requested"`
	Feedback          string     `json:"feedback,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CalculateTotal sums line items into Total.
func (o *Order) CalculateTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	o.Total = total
	return total
}

// ItemSummary renders items as "2x Burger, 1x Fries".
func (o *Order) ItemSummary() string {
	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}
	return strings.Join(parts, ", ")
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.Reference == "" {
		o.Reference = utils.GenerateReference("ORD")
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}
