package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is the durable record of one inbound or outbound message.
// TurnKey is unique so a redelivered webhook never writes the same turn twice.
type ConversationTurn struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TurnKey      string    `gorm:"uniqueIndex;not null" json:"-"`
	CustomerID   uint      `gorm:"index;not null" json:"customer_id"`
	Role         string    `gorm:"type:varchar(20);not null" json:"role"`
	Message      string    `gorm:"type:text" json:"message"`
	MessageType  string    `gorm:"type:varchar(20);default:'text'" json:"message_type"`
	TokensInput  int       `gorm:"default:0" json:"tokens_input"`
	TokensOutput int       `gorm:"default:0" json:"tokens_output"`
	CostLocal    float64   `gorm:"default:0" json:"cost_local"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// InboundTurnKey and OutboundTurnKey derive the idempotency keys for a message pair.
func InboundTurnKey(messageID string) string  { return messageID + ":in" }
func OutboundTurnKey(messageID string) string { return messageID + ":out" }
