package store

import (
	"context"
	"errors"
	"time"

	"duebook-backend/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyRemindedToday is returned by CreateReminder when a reminder
	// for the same customer and calendar day already exists, regardless of
	// that reminder's status. Callers treat it as "handled today", not as a
	// failure.
	ErrAlreadyRemindedToday = errors.New("reminder already exists for this customer today")
	// ErrCycleAlreadyAdvanced is returned by ApplyCycleAdvance when the
	// customer's stored due date no longer matches the caller's pre-image: a
	// concurrent sweep advanced the cycle first. Nothing was written.
	ErrCycleAlreadyAdvanced = errors.New("billing cycle already advanced by a concurrent sweep")
)

// LedgerStore is the persistence boundary of the billing and reminder engine.
// It is the single source of truth: dedup and fee-posting correctness depend
// on the store's atomicity, not on in-process locks.
type LedgerStore interface {
	// Customers
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	// FindOverdueCustomers returns active customers whose next due date has
	// passed: candidates for cycle advancement.
	FindOverdueCustomers(ctx context.Context, ownerID uuid.UUID, now time.Time) ([]models.Customer, error)
	// FindCustomersWithBalance returns active customers owing money:
	// candidates for reminders, independent of cycle state.
	FindCustomersWithBalance(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error)

	// ApplyCycleAdvance persists the customer's new balance and due date
	// together with the FEE transaction. Both succeed or neither is visible.
	// The write is conditional on prevDueDate, the due date the caller read
	// before advancing; a mismatch means another sweep won the race and
	// ErrCycleAlreadyAdvanced is returned with nothing written.
	ApplyCycleAdvance(ctx context.Context, customer *models.Customer, prevDueDate *time.Time, fee *models.Transaction) error
	// RecordPayment atomically decrements the customer's balance and appends
	// the PAYMENT transaction.
	RecordPayment(ctx context.Context, customerID, ownerID uuid.UUID, amount float64, notes string, at time.Time) (*models.Transaction, error)

	// Reminders
	FindReminderOn(ctx context.Context, customerID uuid.UUID, day time.Time) (*models.Reminder, error)
	// CreateReminder is a conditional insert keyed on (customer, calendar
	// day); it fails with ErrAlreadyRemindedToday on a dedup conflict.
	CreateReminder(ctx context.Context, reminder *models.Reminder) error
	GetReminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error)
	UpdateReminder(ctx context.Context, reminder *models.Reminder) error
	// ListUndeliveredReminders returns PENDING and QUEUED reminders across
	// all owners, for requeueing after a restart.
	ListUndeliveredReminders(ctx context.Context) ([]models.Reminder, error)

	// Businesses
	ListAutoReminderBusinesses(ctx context.Context) ([]models.Business, error)

	// Audit
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}
