package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/dinepe-backend/internal/apperrors"
	"github.com/Ananth-NQI/dinepe-backend/internal/catalog"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/services"
	"github.com/Ananth-NQI/dinepe-backend/internal/session"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

// AdminHandler handles restaurant staff operations
type AdminHandler struct {
	store      storage.Store
	sessions   session.Store
	orders     *services.OrderService
	complaints *services.ComplaintService
	costs      *services.CostTracker
	profile    *catalog.Holder
	logger     zerolog.Logger
}

// AdminDeps groups the collaborators of AdminHandler.
type AdminDeps struct {
	Store      storage.Store
	Sessions   session.Store
	Orders     *services.OrderService
	Complaints *services.ComplaintService
	Costs      *services.CostTracker
	Profile    *catalog.Holder
	Logger     zerolog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	return &AdminHandler{
		store:      deps.Store,
		sessions:   deps.Sessions,
		orders:     deps.Orders,
		complaints: deps.Complaints,
		costs:      deps.Costs,
		profile:    deps.Profile,
		logger:     deps.Logger,
	}
}

// ListOrders lists orders, optionally filtered by ?status=
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	var status models.OrderStatus
	if s := c.Query("status"); s != "" {
		parsed, ok := models.ParseOrderStatus(s)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown order status"})
		}
		status = parsed
	}

	orders, err := h.store.ListOrders(c.UserContext(), status)
	if err != nil {
		return h.fail(c, err, "Failed to fetch orders")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	order, err := h.store.GetOrder(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "Failed to fetch order")
	}
	return c.JSON(fiber.Map{"success": true, "order": order})
}

// UpdateOrderStatus moves an order along pending → preparing → ready → completed
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	status, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown order status"})
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), id, status)
	if err != nil {
		return h.fail(c, err, "Failed to update order")
	}
	return c.JSON(fiber.Map{"success": true, "order": order})
}

func (h *AdminHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.orders.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err, "Failed to delete order")
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *AdminHandler) ListComplaints(c *fiber.Ctx) error {
	status := models.ComplaintStatus(c.Query("status"))
	complaints, err := h.store.ListComplaints(c.UserContext(), status)
	if err != nil {
		return h.fail(c, err, "Failed to fetch complaints")
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"complaints": complaints,
		"count":      len(complaints),
	})
}

func (h *AdminHandler) UpdateComplaintStatus(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req struct {
		Status     string `json:"status"` // "in_progress" or "resolved"
		Resolution string `json:"resolution"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	complaint, err := h.complaints.UpdateStatus(c.UserContext(), id, models.ComplaintStatus(req.Status), req.Resolution)
	if err != nil {
		return h.fail(c, err, "Failed to update complaint")
	}
	return c.JSON(fiber.Map{"success": true, "complaint": complaint})
}

func (h *AdminHandler) ListReservations(c *fiber.Ctx) error {
	reservations, err := h.store.ListReservations(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Failed to fetch reservations")
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"reservations": reservations,
		"count":        len(reservations),
	})
}

func (h *AdminHandler) ListCustomers(c *fiber.Ctx) error {
	customers, err := h.store.ListCustomers(c.UserContext(), c.QueryInt("limit", 100))
	if err != nil {
		return h.fail(c, err, "Failed to fetch customers")
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"customers": customers,
		"count":     len(customers),
	})
}

// GetConversation returns durable history for a phone number
func (h *AdminHandler) GetConversation(c *fiber.Ctx) error {
	customer, err := h.store.GetCustomerByPhone(c.UserContext(), c.Params("phone"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch customer")
	}
	turns, err := h.store.GetConversation(c.UserContext(), customer.ID, c.QueryInt("limit", 50))
	if err != nil {
		return h.fail(c, err, "Failed to fetch conversation")
	}

	var totalCost float64
	for _, t := range turns {
		totalCost += t.CostLocal
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"customer":   customer,
		"turns":      turns,
		"count":      len(turns),
		"cost_local": totalCost,
	})
}

// GetSession shows the live session for a phone number, read-only
func (h *AdminHandler) GetSession(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c.UserContext(), c.Params("phone"))
	if errors.Is(err, session.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active session"})
	}
	if err != nil {
		return h.fail(c, err, "Failed to fetch session")
	}
	resp := fiber.Map{"success": true, "session": sess}
	if sess.Draft != nil {
		resp["missing_fields"] = sess.Draft.MissingFields()
	}
	return c.JSON(resp)
}

func (h *AdminHandler) SessionStats(c *fiber.Ctx) error {
	active, err := h.sessions.Active(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Failed to count sessions")
	}
	return c.JSON(fiber.Map{"success": true, "active_sessions": active})
}

func (h *AdminHandler) DailyCosts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "stats": h.costs.Daily(c.Query("date"))})
}

func (h *AdminHandler) MonthlyCosts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "stats": h.costs.Monthly(c.Query("month"))})
}

func (h *AdminHandler) RestaurantInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "restaurant": h.profile.Profile()})
}

// ReloadProfile re-reads the restaurant profile file
func (h *AdminHandler) ReloadProfile(c *fiber.Ctx) error {
	p, err := h.profile.Reload()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to reload restaurant profile")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	h.logger.Info().Str("restaurant", p.Name).Int("menu_items", len(p.Menu)).Msg("restaurant profile reloaded")
	return c.JSON(fiber.Map{"success": true, "restaurant": p})
}

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return uint(id), nil
}

// fail maps domain errors to HTTP status codes.
func (h *AdminHandler) fail(c *fiber.Ctx, err error, message string) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = fiber.StatusNotFound
	default:
		switch apperrors.KindOf(err) {
		case apperrors.KindNotFound:
			status = fiber.StatusNotFound
		case apperrors.KindInvalidTransition:
			status = fiber.StatusConflict
		case apperrors.KindValidation:
			status = fiber.StatusBadRequest
		case apperrors.KindConcurrencyTimeout, apperrors.KindQueueOverflow, apperrors.KindUpstreamUnavailable:
			status = fiber.StatusServiceUnavailable
		}
	}
	if status >= fiber.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg(message)
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   message,
		"details": err.Error(),
	})
}
