// services/audit.go
package services

import (
	"context"

	"duebook-backend/models"
	"duebook-backend/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	AuditFeePosted         = "FEE_POSTED"
	AuditPaymentRecorded   = "PAYMENT_RECORDED"
	AuditReminderScheduled = "REMINDER_SCHEDULED"
	AuditReminderSent      = "REMINDER_SENT"
	AuditReminderFailed    = "REMINDER_FAILED"
	AuditReminderManual    = "REMINDER_MANUAL"
)

type AuditEvent struct {
	OwnerID    uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Detail     string
}

// AuditSink receives domain events from the billing and reminder pipeline.
// Callers invoke it directly; there is no process-wide event bus.
// Implementations must be safe for concurrent use.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}

// StoreAuditSink persists events through the ledger store. Failures are
// logged, never propagated; auditing must not break the pipeline.
type StoreAuditSink struct {
	store store.LedgerStore
}

func NewStoreAuditSink(ledger store.LedgerStore) *StoreAuditSink {
	return &StoreAuditSink{store: ledger}
}

func (s *StoreAuditSink) Record(ctx context.Context, event AuditEvent) {
	entry := &models.AuditLog{
		UserID:     event.OwnerID,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Detail:     event.Detail,
	}
	if err := s.store.CreateAuditLog(ctx, entry); err != nil {
		logrus.WithFields(logrus.Fields{
			"owner_id": event.OwnerID,
			"action":   event.Action,
		}).WithError(err).Error("Failed to write audit log")
	}
}

// NopAuditSink discards events.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, AuditEvent) {}
