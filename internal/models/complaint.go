package models

import (
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/utils"
	"gorm.io/gorm"
)

type Complaint struct {
	gorm.Model
	Reference     string          `gorm:"uniqueIndex;not null" json:"reference"`
	CommitKey     string          `gorm:"uniqueIndex;not null" json:"-"`
	CustomerID    uint            `gorm:"index;not null" json:"customer_id"`
	CustomerPhone string          `gorm:"index" json:"customer_phone"`
	Description   string          `json:"description"`
	Status        ComplaintStatus `gorm:"type:varchar(20);default:'open'" json:"status"`
	Resolution    string          `json:"resolution,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
}

type ComplaintStatus string

const (
	ComplaintStatusOpen       ComplaintStatus = "open"
	ComplaintStatusInProgress ComplaintStatus = "in_progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
)

// CanTransitionTo allows open → in_progress → resolved, including open → resolved.
func (s ComplaintStatus) CanTransitionTo(next ComplaintStatus) bool {
	switch s {
	case ComplaintStatusOpen:
		return next == ComplaintStatusInProgress || next == ComplaintStatusResolved
	case ComplaintStatusInProgress:
		return next == ComplaintStatusResolved
	}
	return false
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.Reference == "" {
		c.Reference = utils.GenerateReference("CMP")
	}
	if c.Status == "" {
		c.Status = ComplaintStatusOpen
	}
	return nil
}
