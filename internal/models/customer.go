package models

import "time"

// Customer is keyed by the WhatsApp phone number the conversation arrives from.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Phone     string    `gorm:"uniqueIndex;not null" json:"phone"`
	Name      string    `json:"name,omitempty"`
	Address   string    `json:"address,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GeoPoint is a shared WhatsApp location.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point is inside WGS84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// SetLocation stores the last location the customer shared.
func (c *Customer) SetLocation(p GeoPoint) {
	lat, lon := p.Latitude, p.Longitude
	c.Latitude = &lat
	c.Longitude = &lon
}
