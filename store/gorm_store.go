package store

import (
	"context"
	"errors"
	"time"

	"duebook-backend/models"
	"duebook-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore is the Postgres-backed LedgerStore. It relies on the connection
// being opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *GormStore) FindOverdueCustomers(ctx context.Context, ownerID uuid.UUID, now time.Time) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND next_due_date < ?", ownerID, true, now).
		Find(&customers).Error
	return customers, err
}

func (s *GormStore) FindCustomersWithBalance(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND amount_due > 0", ownerID, true).
		Find(&customers).Error
	return customers, err
}

func (s *GormStore) ApplyCycleAdvance(ctx context.Context, customer *models.Customer, prevDueDate *time.Time, fee *models.Transaction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guard on the pre-image due date so two sweeps that read the same
		// customer cannot both post the fee.
		query := tx.Model(&models.Customer{}).Where("id = ?", customer.ID)
		if prevDueDate == nil {
			query = query.Where("next_due_date IS NULL")
		} else {
			query = query.Where("next_due_date = ?", prevDueDate)
		}
		result := query.Updates(map[string]interface{}{
			"amount_due":    customer.AmountDue,
			"next_due_date": customer.NextDueDate,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCycleAlreadyAdvanced
		}
		return tx.Create(fee).Error
	})
}

func (s *GormStore) RecordPayment(ctx context.Context, customerID, ownerID uuid.UUID, amount float64, notes string, at time.Time) (*models.Transaction, error) {
	// Ledger amounts are signed: fees positive, payments negative.
	payment := &models.Transaction{
		CustomerID: customerID,
		UserID:     ownerID,
		Amount:     -amount,
		Type:       models.TxPayment,
		Date:       at,
		Notes:      notes,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Customer{}).
			Where("id = ? AND user_id = ?", customerID, ownerID).
			UpdateColumn("amount_due", gorm.Expr("amount_due - ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(payment).Error
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *GormStore) FindReminderOn(ctx context.Context, customerID uuid.UUID, day time.Time) (*models.Reminder, error) {
	start := utils.BeginningOfDay(day)
	end := start.AddDate(0, 0, 1)

	var reminder models.Reminder
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND scheduled_at >= ? AND scheduled_at < ?", customerID, start, end).
		First(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reminder, nil
}

func (s *GormStore) CreateReminder(ctx context.Context, reminder *models.Reminder) error {
	if err := s.db.WithContext(ctx).Create(reminder).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyRemindedToday
		}
		return err
	}
	return nil
}

func (s *GormStore) GetReminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := s.db.WithContext(ctx).First(&reminder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reminder, nil
}

func (s *GormStore) UpdateReminder(ctx context.Context, reminder *models.Reminder) error {
	return s.db.WithContext(ctx).Save(reminder).Error
}

func (s *GormStore) ListUndeliveredReminders(ctx context.Context) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.ReminderStatus{models.ReminderPending, models.ReminderQueued}).
		Order("scheduled_at").
		Find(&reminders).Error
	return reminders, err
}

func (s *GormStore) ListAutoReminderBusinesses(ctx context.Context) ([]models.Business, error) {
	var businesses []models.Business
	err := s.db.WithContext(ctx).
		Where("auto_reminders_enabled = ?", true).
		Find(&businesses).Error
	return businesses, err
}

func (s *GormStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}
