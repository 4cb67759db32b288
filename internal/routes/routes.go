package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/config"
	"github.com/Ananth-NQI/dinepe-backend/internal/handlers"
	"github.com/Ananth-NQI/dinepe-backend/internal/metrics"
	"github.com/Ananth-NQI/dinepe-backend/internal/middleware"
)

// Deps holds everything the routes need.
type Deps struct {
	Config   *config.Config
	Health   *handlers.HealthHandler
	WhatsApp *handlers.WhatsAppHandler
	Admin    *handlers.AdminHandler
	Metrics  *metrics.Collector
	Logger   zerolog.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to DinePe Backend!",
			"version": deps.Health.Version,
			"endpoints": fiber.Map{
				"health":        "/health",
				"metrics":       "/metrics",
				"webhook":       "/webhook/whatsapp",
				"test_whatsapp": "/test/whatsapp",
				"admin":         "/admin",
			},
		})
	})

	app.Get("/health", deps.Health.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{})))

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")
	if cfg.Server.SkipWebhookValidation {
		// Development: Skip validation for ngrok
		deps.Logger.Warn().Msg("WhatsApp webhook signature validation DISABLED")
		webhooks.Post("/whatsapp", deps.WhatsApp.HandleWebhook)
	} else {
		webhooks.Post("/whatsapp",
			middleware.ValidateTwilioSignature(cfg.Twilio.AuthToken, cfg.Server.PublicURL, deps.Logger),
			deps.WhatsApp.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if cfg.Server.IsDevelopment() {
		app.Post("/test/whatsapp", deps.WhatsApp.HandleTestWebhook)
	}

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin")
	admin.Get("/orders", deps.Admin.ListOrders)
	admin.Get("/orders/:id", deps.Admin.GetOrder)
	admin.Patch("/orders/:id/status", deps.Admin.UpdateOrderStatus)
	admin.Delete("/orders/:id", deps.Admin.DeleteOrder)

	admin.Get("/complaints", deps.Admin.ListComplaints)
	admin.Patch("/complaints/:id/status", deps.Admin.UpdateComplaintStatus)

	admin.Get("/reservations", deps.Admin.ListReservations)
	admin.Get("/customers", deps.Admin.ListCustomers)
	admin.Get("/conversations/:phone", deps.Admin.GetConversation)

	admin.Get("/sessions", deps.Admin.SessionStats)
	admin.Get("/sessions/:phone", deps.Admin.GetSession)

	admin.Get("/costs/daily", deps.Admin.DailyCosts)
	admin.Get("/costs/monthly", deps.Admin.MonthlyCosts)

	admin.Get("/restaurant-info", deps.Admin.RestaurantInfo)
	admin.Post("/reload-profile", deps.Admin.ReloadProfile)
}
