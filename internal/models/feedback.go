package models

import "time"

// FeedbackJob records that a feedback request was scheduled for an order.
// The unique OrderID is the idempotency key for the job.
type FeedbackJob struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	OrderID       uint       `gorm:"uniqueIndex;not null" json:"order_id"`
	CustomerPhone string     `json:"customer_phone"`
	DueAt         time.Time  `gorm:"index" json:"due_at"`
	Status        string     `gorm:"type:varchar(20);default:'scheduled'" json:"status"`
	FiredAt       *time.Time `json:"fired_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

const (
	FeedbackJobScheduled = "scheduled"
	FeedbackJobFired     = "fired"
	FeedbackJobCancelled = "cancelled"
)
