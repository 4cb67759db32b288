package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/services"
)

type recordingProcessor struct {
	mu    sync.Mutex
	got   []models.InboundMessage
	reply services.Reply
	err   error
}

func (p *recordingProcessor) ProcessMessage(ctx context.Context, in models.InboundMessage) (services.Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, in)
	return p.reply, p.err
}

func newWebhookApp(p *recordingProcessor) *fiber.App {
	h := NewWhatsAppHandler(p, zerolog.Nop())
	app := fiber.New()
	app.Post("/webhook/whatsapp", h.HandleWebhook)
	app.Post("/test/whatsapp", h.HandleTestWebhook)
	return app
}

func postForm(t *testing.T, app *fiber.App, form url.Values) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestHandleWebhook_TextMessage(t *testing.T) {
	p := &recordingProcessor{}
	app := newWebhookApp(p)

	code := postForm(t, app, url.Values{
		"MessageSid": {"SM123"},
		"From":       {"whatsapp:+923001234567"},
		"To":         {"whatsapp:+14155238886"},
		"Body":       {"2 biryani for takeaway"},
	})

	assert.Equal(t, fiber.StatusOK, code)
	require.Len(t, p.got, 1)
	assert.Equal(t, "+923001234567", p.got[0].CustomerKey)
	assert.Equal(t, "SM123", p.got[0].MessageID)
	assert.Equal(t, models.MessageTypeText, p.got[0].Type)
	assert.Equal(t, "2 biryani for takeaway", p.got[0].Text)
}

func TestHandleWebhook_LocationMessage(t *testing.T) {
	p := &recordingProcessor{}
	app := newWebhookApp(p)

	code := postForm(t, app, url.Values{
		"MessageSid":  {"SM124"},
		"From":        {"whatsapp:+923001234567"},
		"MessageType": {"location"},
		"Latitude":    {"31.5204"},
		"Longitude":   {"74.3587"},
	})

	assert.Equal(t, fiber.StatusOK, code)
	require.Len(t, p.got, 1)
	assert.Equal(t, models.MessageTypeLocation, p.got[0].Type)
	require.NotNil(t, p.got[0].Location)
	assert.InDelta(t, 31.5204, p.got[0].Location.Latitude, 1e-9)
	assert.InDelta(t, 74.3587, p.got[0].Location.Longitude, 1e-9)
}

func TestHandleWebhook_InvalidCoordinates(t *testing.T) {
	p := &recordingProcessor{}
	app := newWebhookApp(p)

	code := postForm(t, app, url.Values{
		"MessageSid": {"SM125"},
		"From":       {"whatsapp:+923001234567"},
		"Latitude":   {"north"},
		"Longitude":  {"74.3587"},
	})

	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Empty(t, p.got)
}

func TestHandleWebhook_IgnoresStatusCallbacks(t *testing.T) {
	p := &recordingProcessor{}
	app := newWebhookApp(p)

	code := postForm(t, app, url.Values{
		"MessageSid":    {"SM126"},
		"From":          {"whatsapp:+923001234567"},
		"MessageStatus": {"delivered"},
	})

	assert.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, p.got)
}

func TestHandleWebhook_AcksEvenWhenProcessingFails(t *testing.T) {
	p := &recordingProcessor{err: errors.New("ledger unavailable")}
	app := newWebhookApp(p)

	code := postForm(t, app, url.Values{
		"MessageSid": {"SM127"},
		"From":       {"whatsapp:+923001234567"},
		"Body":       {"hello"},
	})

	assert.Equal(t, fiber.StatusOK, code)
	assert.Len(t, p.got, 1)
}

func TestHandleTestWebhook(t *testing.T) {
	p := &recordingProcessor{reply: services.Reply{Text: "Please share your location pin", RequestLocation: true}}
	app := newWebhookApp(p)

	req := httptest.NewRequest("POST", "/test/whatsapp", strings.NewReader(`{"from":"+923001234567","message":"House 5, Gulberg"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out struct {
		Success         bool   `json:"success"`
		MessageID       string `json:"message_id"`
		Response        string `json:"response"`
		RequestLocation bool   `json:"request_location"`
	}
	require.NoError(t, json.Unmarshal(body, &out))

	assert.True(t, out.Success)
	assert.True(t, strings.HasPrefix(out.MessageID, "test-"))
	assert.Equal(t, "Please share your location pin", out.Response)
	assert.True(t, out.RequestLocation)

	require.Len(t, p.got, 1)
	assert.Equal(t, out.MessageID, p.got[0].MessageID)
}

func TestHandleTestWebhook_RequiresSender(t *testing.T) {
	app := newWebhookApp(&recordingProcessor{})

	req := httptest.NewRequest("POST", "/test/whatsapp", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
