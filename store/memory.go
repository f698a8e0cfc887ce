package store

import (
	"context"
	"sync"
	"time"

	"duebook-backend/models"
	"duebook-backend/utils"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory LedgerStore. It backs tests and the local
// no-database mode, and mirrors the atomicity the Postgres store gets from
// transactions and the (customer, day) unique index.
type MemoryStore struct {
	mu sync.Mutex

	customers    map[uuid.UUID]models.Customer
	transactions []models.Transaction
	reminders    map[uuid.UUID]models.Reminder
	reminderDays map[string]uuid.UUID // customerID|YYYY-MM-DD -> reminder ID
	businesses   map[uuid.UUID]models.Business
	auditLogs    []models.AuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:    make(map[uuid.UUID]models.Customer),
		reminders:    make(map[uuid.UUID]models.Reminder),
		reminderDays: make(map[string]uuid.UUID),
		businesses:   make(map[uuid.UUID]models.Business),
	}
}

func reminderDayKey(customerID uuid.UUID, day time.Time) string {
	return customerID.String() + "|" + utils.BeginningOfDay(day).Format("2006-01-02")
}

func sameDuePointer(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// PutCustomer inserts or replaces a customer.
func (s *MemoryStore) PutCustomer(customer models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	s.customers[customer.ID] = customer
}

// PutBusiness inserts or replaces a business.
func (s *MemoryStore) PutBusiness(business models.Business) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if business.ID == uuid.Nil {
		business.ID = uuid.New()
	}
	s.businesses[business.ID] = business
}

func (s *MemoryStore) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &customer, nil
}

func (s *MemoryStore) FindOverdueCustomers(ctx context.Context, ownerID uuid.UUID, now time.Time) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Customer
	for _, customer := range s.customers {
		if customer.UserID == ownerID && customer.IsActive &&
			customer.NextDueDate != nil && customer.NextDueDate.Before(now) {
			out = append(out, customer)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindCustomersWithBalance(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Customer
	for _, customer := range s.customers {
		if customer.UserID == ownerID && customer.IsActive && customer.AmountDue > 0 {
			out = append(out, customer)
		}
	}
	return out, nil
}

func (s *MemoryStore) ApplyCycleAdvance(ctx context.Context, customer *models.Customer, prevDueDate *time.Time, fee *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.customers[customer.ID]
	if !ok {
		return ErrNotFound
	}
	if !sameDuePointer(stored.NextDueDate, prevDueDate) {
		return ErrCycleAlreadyAdvanced
	}
	stored.AmountDue = customer.AmountDue
	stored.NextDueDate = customer.NextDueDate
	s.customers[customer.ID] = stored

	if fee.ID == uuid.Nil {
		fee.ID = uuid.New()
	}
	s.transactions = append(s.transactions, *fee)
	return nil
}

func (s *MemoryStore) RecordPayment(ctx context.Context, customerID, ownerID uuid.UUID, amount float64, notes string, at time.Time) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[customerID]
	if !ok || customer.UserID != ownerID {
		return nil, ErrNotFound
	}
	customer.AmountDue -= amount
	s.customers[customerID] = customer

	payment := models.Transaction{
		ID:         uuid.New(),
		CustomerID: customerID,
		UserID:     ownerID,
		Amount:     -amount,
		Type:       models.TxPayment,
		Date:       at,
		Notes:      notes,
	}
	s.transactions = append(s.transactions, payment)
	return &payment, nil
}

func (s *MemoryStore) FindReminderOn(ctx context.Context, customerID uuid.UUID, day time.Time) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.reminderDays[reminderDayKey(customerID, day)]
	if !ok {
		return nil, ErrNotFound
	}
	reminder := s.reminders[id]
	return &reminder, nil
}

func (s *MemoryStore) CreateReminder(ctx context.Context, reminder *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reminder.ID == uuid.Nil {
		reminder.ID = uuid.New()
	}
	if reminder.ScheduledOn.IsZero() {
		reminder.ScheduledOn = utils.BeginningOfDay(reminder.ScheduledAt)
	}
	key := reminderDayKey(reminder.CustomerID, reminder.ScheduledOn)
	if _, exists := s.reminderDays[key]; exists {
		return ErrAlreadyRemindedToday
	}
	s.reminderDays[key] = reminder.ID
	s.reminders[reminder.ID] = *reminder
	return nil
}

func (s *MemoryStore) GetReminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminder, ok := s.reminders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &reminder, nil
}

func (s *MemoryStore) UpdateReminder(ctx context.Context, reminder *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[reminder.ID]; !ok {
		return ErrNotFound
	}
	s.reminders[reminder.ID] = *reminder
	return nil
}

func (s *MemoryStore) ListUndeliveredReminders(ctx context.Context) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reminder
	for _, reminder := range s.reminders {
		if reminder.Status == models.ReminderPending || reminder.Status == models.ReminderQueued {
			out = append(out, reminder)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAutoReminderBusinesses(ctx context.Context) ([]models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Business
	for _, business := range s.businesses {
		if business.AutoRemindersEnabled {
			out = append(out, business)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.auditLogs = append(s.auditLogs, *entry)
	return nil
}

// Transactions returns a copy of all ledger entries, oldest first.
func (s *MemoryStore) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Reminders returns a copy of all reminder rows.
func (s *MemoryStore) Reminders() []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Reminder, 0, len(s.reminders))
	for _, reminder := range s.reminders {
		out = append(out, reminder)
	}
	return out
}

// AuditLogs returns a copy of recorded audit entries.
func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditLog, len(s.auditLogs))
	copy(out, s.auditLogs)
	return out
}
