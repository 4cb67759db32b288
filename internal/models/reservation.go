package models

import (
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/utils"
	"gorm.io/gorm"
)

// Reservation represents a table booking
type Reservation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Reference       string    `gorm:"uniqueIndex;not null" json:"reference"`
	CommitKey       string    `gorm:"uniqueIndex;not null" json:"-"`
	CustomerID      uint      `gorm:"index;not null" json:"customer_id"`
	CustomerPhone   string    `gorm:"index" json:"customer_phone"`
	ReservedFor     time.Time `gorm:"index" json:"reserved_for"`
	PartySize       int       `gorm:"default:2" json:"party_size"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	Status          string    `gorm:"default:'pending'" json:"status"` // pending, confirmed, cancelled
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
)

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.Reference == "" {
		r.Reference = utils.GenerateReference("RSV")
	}
	if r.Status == "" {
		r.Status = ReservationStatusPending
	}
	return nil
}
