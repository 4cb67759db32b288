package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (commit key, turn key, job order) already exists.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the durable entity ledger.
type Store interface {
	// Customer operations
	GetOrCreateCustomer(ctx context.Context, phone string) (*models.Customer, error)
	GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
	ListCustomers(ctx context.Context, limit int) ([]*models.Customer, error)

	// Order operations
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	GetOrderByCommitKey(ctx context.Context, commitKey string) (*models.Order, error)
	GetLatestActiveOrder(ctx context.Context, customerID uint) (*models.Order, error)
	GetLatestAwaitingFeedback(ctx context.Context, customerID uint) (*models.Order, error)
	ListOrders(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id uint) error

	// Reservation operations
	CreateReservation(ctx context.Context, r *models.Reservation) (*models.Reservation, error)
	GetReservationByCommitKey(ctx context.Context, commitKey string) (*models.Reservation, error)
	ListReservations(ctx context.Context) ([]*models.Reservation, error)

	// Complaint operations
	CreateComplaint(ctx context.Context, c *models.Complaint) (*models.Complaint, error)
	GetComplaint(ctx context.Context, id uint) (*models.Complaint, error)
	GetComplaintByCommitKey(ctx context.Context, commitKey string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, status models.ComplaintStatus) ([]*models.Complaint, error)
	UpdateComplaint(ctx context.Context, c *models.Complaint) error

	// Conversation history
	AppendTurn(ctx context.Context, turn *models.ConversationTurn) error
	GetConversation(ctx context.Context, customerID uint, limit int) ([]*models.ConversationTurn, error)

	// Feedback jobs
	CreateFeedbackJob(ctx context.Context, job *models.FeedbackJob) error
	UpdateFeedbackJobStatus(ctx context.Context, orderID uint, status string, at time.Time) error
	ListScheduledFeedbackJobs(ctx context.Context) ([]*models.FeedbackJob, error)

	Ping(ctx context.Context) error
}
