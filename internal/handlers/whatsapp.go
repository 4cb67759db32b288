package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/services"
)

// MessageProcessor is the conversation pipeline behind the webhook.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, in models.InboundMessage) (services.Reply, error)
}

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	processor MessageProcessor
	logger    zerolog.Logger
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(processor MessageProcessor, logger zerolog.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{processor: processor, logger: logger}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid  string `form:"MessageSid"`
	AccountSid  string `form:"AccountSid"`
	From        string `form:"From"` // WhatsApp number (whatsapp:+923001234567)
	To          string `form:"To"`   // Your Twilio number
	Body        string `form:"Body"` // Message text
	MessageType string `form:"MessageType"`
	Latitude    string `form:"Latitude"`
	Longitude   string `form:"Longitude"`
	ProfileName string `form:"ProfileName"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		h.logger.Warn().Err(err).Msg("invalid webhook payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	in, ok, err := payload.toInbound(time.Now())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !ok {
		// Status callbacks and media-only messages carry nothing to reconcile.
		return c.SendStatus(fiber.StatusOK)
	}

	if _, err := h.processor.ProcessMessage(c.UserContext(), in); err != nil {
		h.logger.Warn().Err(err).Str("message_id", in.MessageID).Msg("message processed with errors")
	}

	// Acknowledge webhook receipt
	return c.SendStatus(fiber.StatusOK)
}

func (p TwilioWebhookPayload) toInbound(now time.Time) (models.InboundMessage, bool, error) {
	from := strings.TrimPrefix(p.From, "whatsapp:")
	if from == "" || p.MessageSid == "" {
		return models.InboundMessage{}, false, nil
	}
	in := models.InboundMessage{
		CustomerKey: from,
		MessageID:   p.MessageSid,
		Type:        models.MessageTypeText,
		Text:        p.Body,
		ReceivedAt:  now,
	}

	if p.Latitude != "" || p.Longitude != "" || strings.EqualFold(p.MessageType, "location") {
		lat, err := strconv.ParseFloat(p.Latitude, 64)
		if err != nil {
			return in, false, fiber.NewError(fiber.StatusBadRequest, "invalid latitude")
		}
		lon, err := strconv.ParseFloat(p.Longitude, 64)
		if err != nil {
			return in, false, fiber.NewError(fiber.StatusBadRequest, "invalid longitude")
		}
		in.Type = models.MessageTypeLocation
		in.Location = &models.GeoPoint{Latitude: lat, Longitude: lon}
		return in, true, nil
	}
	return in, strings.TrimSpace(p.Body) != "", nil
}

// TestWebhookPayload is the JSON body of the development webhook.
type TestWebhookPayload struct {
	From      string   `json:"from"`
	Message   string   `json:"message"`
	MessageID string   `json:"message_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// HandleTestWebhook processes test WhatsApp messages (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil || payload.From == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	in := models.InboundMessage{
		CustomerKey: strings.TrimPrefix(payload.From, "whatsapp:"),
		MessageID:   payload.MessageID,
		Type:        models.MessageTypeText,
		Text:        payload.Message,
		ReceivedAt:  time.Now(),
	}
	if in.MessageID == "" {
		in.MessageID = "test-" + uuid.NewString()
	}
	if payload.Latitude != nil && payload.Longitude != nil {
		in.Type = models.MessageTypeLocation
		in.Location = &models.GeoPoint{Latitude: *payload.Latitude, Longitude: *payload.Longitude}
	}

	h.logger.Debug().Str("from", in.CustomerKey).Str("message", in.Content()).Msg("test webhook received")

	reply, err := h.processor.ProcessMessage(c.UserContext(), in)
	resp := fiber.Map{
		"success":          err == nil,
		"message_id":       in.MessageID,
		"response":         reply.Text,
		"request_location": reply.RequestLocation,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.JSON(resp)
}
