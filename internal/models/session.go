package models

import "time"

// Turn is one entry of the session's conversation window.
type Turn struct {
	Role    string      `json:"role"`
	Message string      `json:"message"`
	Type    MessageType `json:"type,omitempty"`
	At      time.Time   `json:"at"`
}

// Session is the ephemeral per-customer conversation state.
type Session struct {
	CustomerKey       string    `json:"customer_key"`
	Turns             []Turn    `json:"turns"`
	Draft             *Draft    `json:"draft,omitempty"`
	ProcessedMessages []string  `json:"processed_messages,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivity      time.Time `json:"last_activity"`
	ExpiresAt         time.Time `json:"expires_at"`
}

func NewSession(customerKey string, now time.Time) *Session {
	return &Session{
		CustomerKey:  customerKey,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// AppendTurn adds a turn and evicts the oldest beyond limit.
func (s *Session) AppendTurn(t Turn, limit int) {
	s.Turns = append(s.Turns, t)
	if limit > 0 && len(s.Turns) > limit {
		s.Turns = append([]Turn(nil), s.Turns[len(s.Turns)-limit:]...)
	}
	s.LastActivity = t.At
}

// HasProcessed reports whether the inbound message id was already reconciled.
func (s *Session) HasProcessed(messageID string) bool {
	if messageID == "" {
		return false
	}
	for _, id := range s.ProcessedMessages {
		if id == messageID {
			return true
		}
	}
	return false
}

func (s *Session) MarkProcessed(messageID string, limit int) {
	if messageID == "" || s.HasProcessed(messageID) {
		return
	}
	s.ProcessedMessages = append(s.ProcessedMessages, messageID)
	if limit > 0 && len(s.ProcessedMessages) > limit {
		s.ProcessedMessages = append([]string(nil), s.ProcessedMessages[len(s.ProcessedMessages)-limit:]...)
	}
}

// Expired reports whether the TTL has elapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy so stored sessions never share memory with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	c.ProcessedMessages = append([]string(nil), s.ProcessedMessages...)
	c.Draft = s.Draft.Clone()
	return &c
}
