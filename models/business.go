package models

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Business holds owner-level configuration. The reminder engine only reads it.
type Business struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	BusinessName string `gorm:"not null"`
	Address      string
	Currency     string `gorm:"type:varchar(8);default:'INR'"`

	AutoRemindersEnabled bool `gorm:"default:false"`
	// ReminderTime is "HH:mm". The periodic sweep acts for this business only
	// during the matching hour; minutes are ignored.
	ReminderTime string `gorm:"type:varchar(5);default:'08:00'"`

	gorm.Model
}

func (b *Business) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// ReminderHour parses the hour out of ReminderTime. Malformed values fall back
// to 8, the same default the field carries.
func (b *Business) ReminderHour() int {
	hourStr, _, _ := strings.Cut(b.ReminderTime, ":")
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return 8
	}
	return hour
}
