package models

import (
	"fmt"
	"time"
)

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeLocation MessageType = "location"
)

// InboundMessage is a transport-neutral inbound WhatsApp message.
type InboundMessage struct {
	CustomerKey string      `json:"customer_key"`
	MessageID   string      `json:"message_id"`
	Type        MessageType `json:"type"`
	Text        string      `json:"text"`
	Location    *GeoPoint   `json:"location,omitempty"`
	ReceivedAt  time.Time   `json:"received_at"`
}

// Content renders the message as it is kept in conversation history.
func (m InboundMessage) Content() string {
	if m.Type == MessageTypeLocation && m.Location != nil {
		return fmt.Sprintf("[Location shared: %.6f, %.6f]", m.Location.Latitude, m.Location.Longitude)
	}
	return m.Text
}
