package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/dinepe-backend/internal/config"
)

// Messenger delivers outbound WhatsApp messages. Implementations own retries
// of transient send failures.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	// SendLocationRequest asks the customer to share a GPS pin.
	SendLocationRequest(ctx context.Context, to, body string) error
}

type TwilioService struct {
	client *twilio.RestClient
	from   string // Format: "whatsapp:+14155238886"
	logger zerolog.Logger
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(cfg config.TwilioConfig, logger zerolog.Logger) (*TwilioService, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{
		client: client,
		from:   cfg.WhatsAppFrom,
		logger: logger,
	}, nil
}

// SendText sends a WhatsApp message via Twilio
func (t *TwilioService) SendText(ctx context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(whatsappAddress(to))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		t.logger.Error().Err(err).Str("to", to).Msg("failed to send WhatsApp message")
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	t.logger.Debug().Str("to", to).Str("sid", sid).Msg("WhatsApp message sent")
	return nil
}

// SendLocationRequest sends the prompt with instructions for sharing a pin.
// Twilio has no native location-request message for WhatsApp sessions.
func (t *TwilioService) SendLocationRequest(ctx context.Context, to, body string) error {
	return t.SendText(ctx, to, body+"\n\n"+locationInstructions)
}

const locationInstructions = "📍 Tap the 📎 attachment icon, choose *Location* and send your current location."

func whatsappAddress(phone string) string {
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}

// OutboundMessage is a message captured by LogMessenger.
type OutboundMessage struct {
	To              string `json:"to"`
	Body            string `json:"body"`
	RequestLocation bool   `json:"request_location"`
}

// LogMessenger logs outbound messages instead of sending them. It is used
// when Twilio is not configured and in tests.
type LogMessenger struct {
	logger zerolog.Logger

	mu   sync.Mutex
	sent []OutboundMessage
}

func NewLogMessenger(logger zerolog.Logger) *LogMessenger {
	return &LogMessenger{logger: logger}
}

func (l *LogMessenger) SendText(ctx context.Context, to, body string) error {
	l.record(OutboundMessage{To: to, Body: body})
	return nil
}

func (l *LogMessenger) SendLocationRequest(ctx context.Context, to, body string) error {
	l.record(OutboundMessage{To: to, Body: body, RequestLocation: true})
	return nil
}

func (l *LogMessenger) record(m OutboundMessage) {
	l.mu.Lock()
	l.sent = append(l.sent, m)
	l.mu.Unlock()
	l.logger.Info().Str("to", m.To).Bool("request_location", m.RequestLocation).Str("body", m.Body).Msg("outbound message (not sent)")
}

// Sent returns a copy of the captured messages.
func (l *LogMessenger) Sent() []OutboundMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]OutboundMessage(nil), l.sent...)
}
