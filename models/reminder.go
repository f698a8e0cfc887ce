package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "PENDING"
	ReminderQueued  ReminderStatus = "QUEUED"
	ReminderSent    ReminderStatus = "SENT"
	ReminderFailed  ReminderStatus = "FAILED"
)

// reminderTransitions is the closed transition table for reminder statuses.
// PENDING may jump straight to SENT for manually recorded reminders, which
// bypass the delivery queue.
var reminderTransitions = map[ReminderStatus][]ReminderStatus{
	ReminderPending: {ReminderQueued, ReminderSent},
	ReminderQueued:  {ReminderSent, ReminderFailed},
	ReminderSent:    {},
	ReminderFailed:  {},
}

func (s ReminderStatus) CanTransitionTo(next ReminderStatus) bool {
	for _, allowed := range reminderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the reminder will never change status again.
func (s ReminderStatus) IsTerminal() bool {
	return s == ReminderSent || s == ReminderFailed
}

type ReminderChannel string

const (
	ChannelWhatsApp ReminderChannel = "WHATSAPP"
	ChannelSMS      ReminderChannel = "SMS"
)

type Reminder struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_customer_reminder_day,priority:1"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null"`

	// Amount is a snapshot of the customer's due amount at schedule time.
	Amount      float64   `gorm:"type:decimal(10,2);not null"`
	ScheduledAt time.Time `gorm:"index;not null"`
	// ScheduledOn is ScheduledAt truncated to the local calendar day. The
	// unique index on (customer_id, scheduled_on) is what guarantees at most
	// one reminder per customer per day, even across concurrent sweeps.
	ScheduledOn time.Time `gorm:"type:date;not null;uniqueIndex:idx_customer_reminder_day,priority:2"`

	Status  ReminderStatus  `gorm:"type:varchar(10);default:'PENDING'"`
	Channel ReminderChannel `gorm:"type:varchar(10);default:'WHATSAPP'"`

	AttemptCount  int `gorm:"default:0"`
	LastAttemptAt *time.Time
	ErrorMessage  string `gorm:"type:text"`
	NextRetryAt   *time.Time
	Notes         string

	gorm.Model
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ScheduledOn.IsZero() {
		year, month, day := r.ScheduledAt.Date()
		r.ScheduledOn = time.Date(year, month, day, 0, 0, 0, 0, r.ScheduledAt.Location())
	}
	return
}
