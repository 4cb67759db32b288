package handlers

import (
	"context"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/dinepe-backend/internal/catalog"
	"github.com/Ananth-NQI/dinepe-backend/internal/gate"
	"github.com/Ananth-NQI/dinepe-backend/internal/jobs"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/services"
	"github.com/Ananth-NQI/dinepe-backend/internal/session"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

type nopRequester struct{}

func (nopRequester) RequestFeedback(ctx context.Context, job models.FeedbackJob) error { return nil }

func newAdminApp(t *testing.T) (*fiber.App, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	sessions := session.NewMemoryStore()
	t.Cleanup(func() { _ = sessions.Close() })

	scheduler := jobs.NewFeedbackScheduler(store, nopRequester{}, time.Hour)
	t.Cleanup(scheduler.Stop)

	h := NewAdminHandler(AdminDeps{
		Store:      store,
		Sessions:   sessions,
		Orders:     services.NewOrderService(store, gate.New(4, time.Second, nil), scheduler, zerolog.Nop()),
		Complaints: services.NewComplaintService(store, zerolog.Nop()),
		Costs:      services.NewCostTracker(services.Pricing{}, nil),
		Profile:    catalog.NewHolder("", catalog.Default()),
		Logger:     zerolog.Nop(),
	})

	app := fiber.New()
	app.Get("/health", NewHealthHandler("test", store, sessions).Check)
	app.Get("/admin/orders", h.ListOrders)
	app.Patch("/admin/orders/:id/status", h.UpdateOrderStatus)
	app.Delete("/admin/orders/:id", h.DeleteOrder)
	app.Patch("/admin/complaints/:id/status", h.UpdateComplaintStatus)
	app.Get("/admin/sessions/:phone", h.GetSession)
	app.Get("/admin/restaurant-info", h.RestaurantInfo)
	return app, store
}

func do(t *testing.T, app *fiber.App, method, path, body string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAdmin_UpdateOrderStatus(t *testing.T) {
	app, store := newAdminApp(t)
	order, err := store.CreateOrder(context.Background(), &models.Order{
		CommitKey:     "k1",
		CustomerID:    1,
		CustomerPhone: "+923001234567",
		Type:          models.OrderTypeDineIn,
	})
	require.NoError(t, err)
	path := "/admin/orders/" + itoa(order.ID) + "/status"

	assert.Equal(t, fiber.StatusOK, do(t, app, "PATCH", path, `{"status":"ready"}`))
	assert.Equal(t, fiber.StatusConflict, do(t, app, "PATCH", path, `{"status":"pending"}`))
	assert.Equal(t, fiber.StatusBadRequest, do(t, app, "PATCH", path, `{"status":"teleported"}`))
	assert.Equal(t, fiber.StatusOK, do(t, app, "PATCH", path, `{"status":"completed"}`))
	assert.Equal(t, fiber.StatusOK, do(t, app, "PATCH", path, `{"status":"completed"}`))

	scheduled, err := store.ListScheduledFeedbackJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, scheduled, 1)
}

func TestAdmin_UnknownOrder(t *testing.T) {
	app, _ := newAdminApp(t)

	assert.Equal(t, fiber.StatusNotFound, do(t, app, "PATCH", "/admin/orders/99/status", `{"status":"ready"}`))
	assert.Equal(t, fiber.StatusNotFound, do(t, app, "DELETE", "/admin/orders/99", ""))
	assert.Equal(t, fiber.StatusBadRequest, do(t, app, "DELETE", "/admin/orders/abc", ""))
}

func TestAdmin_ComplaintStatus(t *testing.T) {
	app, store := newAdminApp(t)
	c, err := store.CreateComplaint(context.Background(), &models.Complaint{
		CommitKey:   "c1",
		CustomerID:  1,
		Description: "late delivery",
	})
	require.NoError(t, err)
	path := "/admin/complaints/" + itoa(c.ID) + "/status"

	assert.Equal(t, fiber.StatusOK, do(t, app, "PATCH", path, `{"status":"resolved","resolution":"voucher issued"}`))
	assert.Equal(t, fiber.StatusConflict, do(t, app, "PATCH", path, `{"status":"in_progress"}`))
}

func TestAdmin_ListOrdersRejectsUnknownStatus(t *testing.T) {
	app, _ := newAdminApp(t)

	assert.Equal(t, fiber.StatusOK, do(t, app, "GET", "/admin/orders?status=pending", ""))
	assert.Equal(t, fiber.StatusBadRequest, do(t, app, "GET", "/admin/orders?status=lost", ""))
}

func TestAdmin_SessionAndHealth(t *testing.T) {
	app, _ := newAdminApp(t)

	assert.Equal(t, fiber.StatusNotFound, do(t, app, "GET", "/admin/sessions/+923001234567", ""))
	assert.Equal(t, fiber.StatusOK, do(t, app, "GET", "/admin/restaurant-info", ""))
	assert.Equal(t, fiber.StatusOK, do(t, app, "GET", "/health", ""))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
