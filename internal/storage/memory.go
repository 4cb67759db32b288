package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"github.com/Ananth-NQI/dinepe-backend/internal/utils"
)

// MemoryStore holds all ledger data in memory, for tests and local runs
type MemoryStore struct {
	customers    map[uint]*models.Customer
	orders       map[uint]*models.Order
	reservations map[uint]*models.Reservation
	complaints   map[uint]*models.Complaint
	turns        []*models.ConversationTurn
	turnKeys     map[string]bool
	feedbackJobs map[uint]*models.FeedbackJob

	// Mutexes for thread safety
	customerMu    sync.RWMutex
	orderMu       sync.RWMutex
	reservationMu sync.RWMutex
	complaintMu   sync.RWMutex
	turnMu        sync.RWMutex
	jobMu         sync.RWMutex

	// Counters for ID generation
	customerCounter    uint
	orderCounter       uint
	reservationCounter uint
	complaintCounter   uint
	turnCounter        uint
	jobCounter         uint
}

// NewMemoryStore creates a new in-memory ledger
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:    make(map[uint]*models.Customer),
		orders:       make(map[uint]*models.Order),
		reservations: make(map[uint]*models.Reservation),
		complaints:   make(map[uint]*models.Complaint),
		turnKeys:     make(map[string]bool),
		feedbackJobs: make(map[uint]*models.FeedbackJob),
	}
}

// Customer operations
func (m *MemoryStore) GetOrCreateCustomer(ctx context.Context, phone string) (*models.Customer, error) {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	for _, c := range m.customers {
		if c.Phone == phone {
			return copyCustomer(c), nil
		}
	}

	m.customerCounter++
	now := time.Now()
	c := &models.Customer{ID: m.customerCounter, Phone: phone, CreatedAt: now, UpdatedAt: now}
	m.customers[c.ID] = c
	return copyCustomer(c), nil
}

func (m *MemoryStore) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	for _, c := range m.customers {
		if c.Phone == phone {
			return copyCustomer(c), nil
		}
	}
	return nil, fmt.Errorf("customer %s: %w", phone, ErrNotFound)
}

func (m *MemoryStore) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	if _, exists := m.customers[customer.ID]; !exists {
		return fmt.Errorf("customer %d: %w", customer.ID, ErrNotFound)
	}
	customer.UpdatedAt = time.Now()
	m.customers[customer.ID] = copyCustomer(customer)
	return nil
}

func (m *MemoryStore) ListCustomers(ctx context.Context, limit int) ([]*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	out := make([]*models.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, copyCustomer(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Order operations
func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	for _, o := range m.orders {
		if o.CommitKey == order.CommitKey {
			return nil, fmt.Errorf("order commit %s: %w", order.CommitKey, ErrDuplicate)
		}
	}

	m.orderCounter++
	now := time.Now()
	order.ID = m.orderCounter
	if order.Reference == "" {
		order.Reference = utils.GenerateReference("ORD")
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	m.orders[order.ID] = copyOrder(order)
	return copyOrder(order), nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	o, exists := m.orders[id]
	if !exists {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return copyOrder(o), nil
}

func (m *MemoryStore) GetOrderByCommitKey(ctx context.Context, commitKey string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	for _, o := range m.orders {
		if o.CommitKey == commitKey {
			return copyOrder(o), nil
		}
	}
	return nil, fmt.Errorf("order commit %s: %w", commitKey, ErrNotFound)
}

func (m *MemoryStore) GetLatestActiveOrder(ctx context.Context, customerID uint) (*models.Order, error) {
	return m.latestOrder(customerID, func(o *models.Order) bool {
		return !o.Status.IsTerminal()
	})
}

func (m *MemoryStore) GetLatestAwaitingFeedback(ctx context.Context, customerID uint) (*models.Order, error) {
	return m.latestOrder(customerID, func(o *models.Order) bool {
		return o.Status == models.OrderStatusCompleted && o.FeedbackRequested && o.Feedback == ""
	})
}

func (m *MemoryStore) latestOrder(customerID uint, match func(*models.Order) bool) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var latest *models.Order
	for _, o := range m.orders {
		if o.CustomerID != customerID || !match(o) {
			continue
		}
		if latest == nil || o.ID > latest.ID {
			latest = o
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("order for customer %d: %w", customerID, ErrNotFound)
	}
	return copyOrder(latest), nil
}

func (m *MemoryStore) ListOrders(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	out := make([]*models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if _, exists := m.orders[order.ID]; !exists {
		return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
	}
	order.UpdatedAt = time.Now()
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *MemoryStore) DeleteOrder(ctx context.Context, id uint) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if _, exists := m.orders[id]; !exists {
		return fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	delete(m.orders, id)
	return nil
}

// Reservation operations
func (m *MemoryStore) CreateReservation(ctx context.Context, r *models.Reservation) (*models.Reservation, error) {
	m.reservationMu.Lock()
	defer m.reservationMu.Unlock()

	for _, existing := range m.reservations {
		if existing.CommitKey == r.CommitKey {
			return nil, fmt.Errorf("reservation commit %s: %w", r.CommitKey, ErrDuplicate)
		}
	}

	m.reservationCounter++
	now := time.Now()
	r.ID = m.reservationCounter
	if r.Reference == "" {
		r.Reference = utils.GenerateReference("RSV")
	}
	if r.Status == "" {
		r.Status = models.ReservationStatusPending
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	stored := *r
	m.reservations[r.ID] = &stored
	out := stored
	return &out, nil
}

func (m *MemoryStore) GetReservationByCommitKey(ctx context.Context, commitKey string) (*models.Reservation, error) {
	m.reservationMu.RLock()
	defer m.reservationMu.RUnlock()

	for _, r := range m.reservations {
		if r.CommitKey == commitKey {
			out := *r
			return &out, nil
		}
	}
	return nil, fmt.Errorf("reservation commit %s: %w", commitKey, ErrNotFound)
}

func (m *MemoryStore) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	m.reservationMu.RLock()
	defer m.reservationMu.RUnlock()

	out := make([]*models.Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedFor.Before(out[j].ReservedFor) })
	return out, nil
}

// Complaint operations
func (m *MemoryStore) CreateComplaint(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	m.complaintMu.Lock()
	defer m.complaintMu.Unlock()

	for _, existing := range m.complaints {
		if existing.CommitKey == c.CommitKey {
			return nil, fmt.Errorf("complaint commit %s: %w", c.CommitKey, ErrDuplicate)
		}
	}

	m.complaintCounter++
	now := time.Now()
	c.ID = m.complaintCounter
	if c.Reference == "" {
		c.Reference = utils.GenerateReference("CMP")
	}
	if c.Status == "" {
		c.Status = models.ComplaintStatusOpen
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	stored := *c
	m.complaints[c.ID] = &stored
	out := stored
	return &out, nil
}

func (m *MemoryStore) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	m.complaintMu.RLock()
	defer m.complaintMu.RUnlock()

	c, exists := m.complaints[id]
	if !exists {
		return nil, fmt.Errorf("complaint %d: %w", id, ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (m *MemoryStore) GetComplaintByCommitKey(ctx context.Context, commitKey string) (*models.Complaint, error) {
	m.complaintMu.RLock()
	defer m.complaintMu.RUnlock()

	for _, c := range m.complaints {
		if c.CommitKey == commitKey {
			out := *c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("complaint commit %s: %w", commitKey, ErrNotFound)
}

func (m *MemoryStore) ListComplaints(ctx context.Context, status models.ComplaintStatus) ([]*models.Complaint, error) {
	m.complaintMu.RLock()
	defer m.complaintMu.RUnlock()

	out := make([]*models.Complaint, 0, len(m.complaints))
	for _, c := range m.complaints {
		if status == "" || c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateComplaint(ctx context.Context, c *models.Complaint) error {
	m.complaintMu.Lock()
	defer m.complaintMu.Unlock()

	if _, exists := m.complaints[c.ID]; !exists {
		return fmt.Errorf("complaint %d: %w", c.ID, ErrNotFound)
	}
	c.UpdatedAt = time.Now()
	stored := *c
	m.complaints[c.ID] = &stored
	return nil
}

// Conversation history
func (m *MemoryStore) AppendTurn(ctx context.Context, turn *models.ConversationTurn) error {
	m.turnMu.Lock()
	defer m.turnMu.Unlock()

	if m.turnKeys[turn.TurnKey] {
		return fmt.Errorf("turn %s: %w", turn.TurnKey, ErrDuplicate)
	}
	m.turnCounter++
	turn.ID = m.turnCounter
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	stored := *turn
	m.turns = append(m.turns, &stored)
	m.turnKeys[turn.TurnKey] = true
	return nil
}

// GetConversation returns the most recent turns in chronological order.
func (m *MemoryStore) GetConversation(ctx context.Context, customerID uint, limit int) ([]*models.ConversationTurn, error) {
	m.turnMu.RLock()
	defer m.turnMu.RUnlock()

	var out []*models.ConversationTurn
	for _, t := range m.turns {
		if t.CustomerID == customerID {
			c := *t
			out = append(out, &c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Feedback jobs
func (m *MemoryStore) CreateFeedbackJob(ctx context.Context, job *models.FeedbackJob) error {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()

	if _, exists := m.feedbackJobs[job.OrderID]; exists {
		return fmt.Errorf("feedback job for order %d: %w", job.OrderID, ErrDuplicate)
	}
	m.jobCounter++
	job.ID = m.jobCounter
	if job.Status == "" {
		job.Status = models.FeedbackJobScheduled
	}
	job.CreatedAt = time.Now()
	stored := *job
	m.feedbackJobs[job.OrderID] = &stored
	return nil
}

func (m *MemoryStore) UpdateFeedbackJobStatus(ctx context.Context, orderID uint, status string, at time.Time) error {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()

	job, exists := m.feedbackJobs[orderID]
	if !exists {
		return fmt.Errorf("feedback job for order %d: %w", orderID, ErrNotFound)
	}
	job.Status = status
	if status == models.FeedbackJobFired {
		job.FiredAt = &at
	}
	return nil
}

func (m *MemoryStore) ListScheduledFeedbackJobs(ctx context.Context) ([]*models.FeedbackJob, error) {
	m.jobMu.RLock()
	defer m.jobMu.RUnlock()

	var out []*models.FeedbackJob
	for _, job := range m.feedbackJobs {
		if job.Status == models.FeedbackJobScheduled {
			c := *job
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func copyCustomer(c *models.Customer) *models.Customer {
	out := *c
	if c.Latitude != nil {
		lat := *c.Latitude
		out.Latitude = &lat
	}
	if c.Longitude != nil {
		lon := *c.Longitude
		out.Longitude = &lon
	}
	return &out
}

func copyOrder(o *models.Order) *models.Order {
	out := *o
	out.Items = append([]models.LineItem(nil), o.Items...)
	return &out
}
