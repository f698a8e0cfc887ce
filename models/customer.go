package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillingCycle string

const (
	CycleMonthly BillingCycle = "MONTHLY"
	CycleWeekly  BillingCycle = "WEEKLY"
	// CycleFixed plans have no recurring charge; NextDueDate stays unset.
	CycleFixed BillingCycle = "FIXED"
)

type Customer struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_owner_phone,priority:1"`

	Name  string `gorm:"not null"`
	Phone string `gorm:"not null;uniqueIndex:idx_owner_phone,priority:2"`
	Notes string

	// AmountDue is signed: fees add, payments subtract. A negative value is a
	// credit and is never silently reset.
	AmountDue       float64      `gorm:"type:decimal(10,2);default:0.0"`
	BillingCycle    BillingCycle `gorm:"type:varchar(10);default:'MONTHLY'"`
	BillingDuration int          `gorm:"default:1"`
	MonthlyFee      float64      `gorm:"type:decimal(10,2);default:0.0"`

	StartDate   time.Time
	NextDueDate *time.Time `gorm:"index"`
	ExpiryDate  *time.Time

	IsActive bool `gorm:"default:true"`

	Transactions []Transaction `gorm:"foreignKey:CustomerID"`
	Reminders    []Reminder    `gorm:"foreignKey:CustomerID"`

	gorm.Model
}

func (c *Customer) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
