// models/audit_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records a domain event raised by the billing or reminder pipeline.
type AuditLog struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null"`

	Action     string    `gorm:"type:varchar(40);not null"` // e.g. FEE_POSTED, REMINDER_SENT
	EntityType string    `gorm:"type:varchar(20)"`
	EntityID   uuid.UUID `gorm:"type:uuid"`
	Detail     string    `gorm:"type:text"`

	CreatedAt time.Time
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
