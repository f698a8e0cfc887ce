package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TxFee     TransactionType = "FEE"
	TxPayment TransactionType = "PAYMENT"
)

// Transaction is an append-only ledger entry. Rows are never updated or
// deleted once created.
type Transaction struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null"`

	Amount float64         `gorm:"type:decimal(10,2);not null"`
	Type   TransactionType `gorm:"type:varchar(10);not null"`
	Date   time.Time       `gorm:"index;not null"`
	Notes  string

	CreatedAt time.Time
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
