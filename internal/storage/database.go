package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
	"gorm.io/gorm"
)

// DatabaseStore is the PostgreSQL-backed ledger. The *gorm.DB must be opened
// with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Models lists every table the ledger owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.Customer{},
		&models.Order{},
		&models.Reservation{},
		&models.Complaint{},
		&models.ConversationTurn{},
		&models.FeedbackJob{},
	}
}

func mapErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Customer operations
func (s *DatabaseStore) GetOrCreateCustomer(ctx context.Context, phone string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.WithContext(ctx).
		Where(models.Customer{Phone: phone}).
		FirstOrCreate(&c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a create race with a concurrent first message
		err = s.db.WithContext(ctx).Where("phone = ?", phone).First(&c).Error
	}
	if err != nil {
		return nil, mapErr(err, "get or create customer "+phone)
	}
	return &c, nil
}

func (s *DatabaseStore) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&c).Error; err != nil {
		return nil, mapErr(err, "customer "+phone)
	}
	return &c, nil
}

func (s *DatabaseStore) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return s.update(ctx, &models.Customer{}, customer.ID, customer, fmt.Sprintf("customer %d", customer.ID))
}

func (s *DatabaseStore) ListCustomers(ctx context.Context, limit int) ([]*models.Customer, error) {
	var out []*models.Customer
	q := s.db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, mapErr(err, "list customers")
	}
	return out, nil
}

// Order operations
func (s *DatabaseStore) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, mapErr(err, "create order "+order.CommitKey)
	}
	return order, nil
}

func (s *DatabaseStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := s.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, mapErr(err, fmt.Sprintf("order %d", id))
	}
	return &o, nil
}

func (s *DatabaseStore) GetOrderByCommitKey(ctx context.Context, commitKey string) (*models.Order, error) {
	var o models.Order
	if err := s.db.WithContext(ctx).Where("commit_key = ?", commitKey).First(&o).Error; err != nil {
		return nil, mapErr(err, "order commit "+commitKey)
	}
	return &o, nil
}

func (s *DatabaseStore) GetLatestActiveOrder(ctx context.Context, customerID uint) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND status NOT IN ?", customerID,
			[]models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusCancelled}).
		Order("id desc").
		First(&o).Error
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("active order for customer %d", customerID))
	}
	return &o, nil
}

func (s *DatabaseStore) GetLatestAwaitingFeedback(ctx context.Context, customerID uint) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND status = ? AND feedback_requested = ? AND (feedback IS NULL OR feedback = '')",
			customerID, models.OrderStatusCompleted, true).
		Order("completed_at desc").
		First(&o).Error
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("order awaiting feedback for customer %d", customerID))
	}
	return &o, nil
}

func (s *DatabaseStore) ListOrders(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	var out []*models.Order
	q := s.db.WithContext(ctx).Order("id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, mapErr(err, "list orders")
	}
	return out, nil
}

func (s *DatabaseStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	return s.update(ctx, &models.Order{}, order.ID, order, fmt.Sprintf("order %d", order.ID))
}

func (s *DatabaseStore) DeleteOrder(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Order{}, id)
	if res.Error != nil {
		return mapErr(res.Error, fmt.Sprintf("delete order %d", id))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return nil
}

// update writes every column of value onto the existing row. Unlike Save it
// never falls back to an insert, so a row deleted in the meantime stays
// deleted and the caller gets ErrNotFound.
func (s *DatabaseStore) update(ctx context.Context, model interface{}, id uint, value interface{}, what string) error {
	res := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Select("*").Updates(value)
	if res.Error != nil {
		return mapErr(res.Error, "update "+what)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// Reservation operations
func (s *DatabaseStore) CreateReservation(ctx context.Context, r *models.Reservation) (*models.Reservation, error) {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, mapErr(err, "create reservation "+r.CommitKey)
	}
	return r, nil
}

func (s *DatabaseStore) GetReservationByCommitKey(ctx context.Context, commitKey string) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.db.WithContext(ctx).Where("commit_key = ?", commitKey).First(&r).Error; err != nil {
		return nil, mapErr(err, "reservation commit "+commitKey)
	}
	return &r, nil
}

func (s *DatabaseStore) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	var out []*models.Reservation
	if err := s.db.WithContext(ctx).Order("reserved_for asc").Find(&out).Error; err != nil {
		return nil, mapErr(err, "list reservations")
	}
	return out, nil
}

// Complaint operations
func (s *DatabaseStore) CreateComplaint(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, mapErr(err, "create complaint "+c.CommitKey)
	}
	return c, nil
}

func (s *DatabaseStore) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, mapErr(err, fmt.Sprintf("complaint %d", id))
	}
	return &c, nil
}

func (s *DatabaseStore) GetComplaintByCommitKey(ctx context.Context, commitKey string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.db.WithContext(ctx).Where("commit_key = ?", commitKey).First(&c).Error; err != nil {
		return nil, mapErr(err, "complaint commit "+commitKey)
	}
	return &c, nil
}

func (s *DatabaseStore) ListComplaints(ctx context.Context, status models.ComplaintStatus) ([]*models.Complaint, error) {
	var out []*models.Complaint
	q := s.db.WithContext(ctx).Order("id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, mapErr(err, "list complaints")
	}
	return out, nil
}

func (s *DatabaseStore) UpdateComplaint(ctx context.Context, c *models.Complaint) error {
	return s.update(ctx, &models.Complaint{}, c.ID, c, fmt.Sprintf("complaint %d", c.ID))
}

// Conversation history
func (s *DatabaseStore) AppendTurn(ctx context.Context, turn *models.ConversationTurn) error {
	return mapErr(s.db.WithContext(ctx).Create(turn).Error, "append turn "+turn.TurnKey)
}

func (s *DatabaseStore) GetConversation(ctx context.Context, customerID uint, limit int) ([]*models.ConversationTurn, error) {
	var out []*models.ConversationTurn
	q := s.db.WithContext(ctx).Where("customer_id = ?", customerID).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, mapErr(err, fmt.Sprintf("conversation for customer %d", customerID))
	}
	// newest-first from the query, callers want chronological
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Feedback jobs
func (s *DatabaseStore) CreateFeedbackJob(ctx context.Context, job *models.FeedbackJob) error {
	return mapErr(s.db.WithContext(ctx).Create(job).Error, fmt.Sprintf("feedback job for order %d", job.OrderID))
}

func (s *DatabaseStore) UpdateFeedbackJobStatus(ctx context.Context, orderID uint, status string, at time.Time) error {
	updates := map[string]interface{}{"status": status}
	if status == models.FeedbackJobFired {
		updates["fired_at"] = at
	}
	res := s.db.WithContext(ctx).Model(&models.FeedbackJob{}).Where("order_id = ?", orderID).Updates(updates)
	if res.Error != nil {
		return mapErr(res.Error, fmt.Sprintf("update feedback job for order %d", orderID))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("feedback job for order %d: %w", orderID, ErrNotFound)
	}
	return nil
}

func (s *DatabaseStore) ListScheduledFeedbackJobs(ctx context.Context) ([]*models.FeedbackJob, error) {
	var out []*models.FeedbackJob
	err := s.db.WithContext(ctx).
		Where("status = ?", models.FeedbackJobScheduled).
		Order("due_at asc").
		Find(&out).Error
	if err != nil {
		return nil, mapErr(err, "list scheduled feedback jobs")
	}
	return out, nil
}

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
