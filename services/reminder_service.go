// services/reminder_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"duebook-backend/models"
	"duebook-backend/store"
	"duebook-backend/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// onDemandInterval rate-limits the on-demand sweep so frequent customer-list
// reads stay cheap.
const onDemandInterval = time.Minute

// Enqueuer hands scheduled reminders to the delivery queue.
type Enqueuer interface {
	Enqueue(reminderID uuid.UUID) error
}

// ReminderService orchestrates due detection, per-day deduplication and
// reminder scheduling for both triggers: the hourly periodic sweep and the
// on-demand sweep fired by customer-list reads.
type ReminderService struct {
	store   store.LedgerStore
	billing *BillingService
	queue   Enqueuer
	audit   AuditSink
	clock   Clock

	cronEngine *cron.Cron

	mu           sync.Mutex
	lastOnDemand map[uuid.UUID]time.Time
}

func NewReminderService(ledger store.LedgerStore, billing *BillingService, queue Enqueuer, audit AuditSink, clock Clock) *ReminderService {
	return &ReminderService{
		store:        ledger,
		billing:      billing,
		queue:        queue,
		audit:        audit,
		clock:        clock,
		lastOnDemand: make(map[uuid.UUID]time.Time),
	}
}

// StartScheduler begins the periodic sweep, e.g. cronSpec "0 * * * *" for
// hourly. The per-business hour gate decides which businesses actually run.
func (s *ReminderService) StartScheduler(cronSpec string) error {
	engine := cron.New(cron.WithLocation(time.Local))
	_, err := engine.AddFunc(cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.RunPeriodicSweep(ctx); err != nil {
			logrus.WithError(err).Error("Periodic reminder sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("add sweep cron job: %w", err)
	}
	engine.Start()
	s.cronEngine = engine
	logrus.WithField("cron", cronSpec).Info("Reminder scheduler started")
	return nil
}

// StopScheduler cancels the periodic timer and waits for an in-flight sweep
// to finish.
func (s *ReminderService) StopScheduler() {
	if s.cronEngine == nil {
		return
	}
	<-s.cronEngine.Stop().Done()
	logrus.Info("Reminder scheduler stopped")
}

// RunPeriodicSweep processes every business with auto-reminders enabled whose
// configured reminder hour matches the current hour. Returns the number of
// reminders scheduled across all businesses.
func (s *ReminderService) RunPeriodicSweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	s.pruneOnDemandEntries(now)
	businesses, err := s.store.ListAutoReminderBusinesses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list businesses: %w", err)
	}

	total := 0
	for i := range businesses {
		business := &businesses[i]
		if now.Hour() != business.ReminderHour() {
			continue
		}
		count, err := s.sweepOwner(ctx, business.UserID, now)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"owner_id": business.UserID,
				"business": business.BusinessName,
			}).WithError(err).Error("Reminder sweep failed for business")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"owner_id":  business.UserID,
			"business":  business.BusinessName,
			"scheduled": count,
		}).Info("Reminder sweep completed for business")
		total += count
	}
	logrus.WithField("scheduled", total).Info("Periodic reminder sweep finished")
	return total, nil
}

// RunOnDemandSweep advances billing cycles for one owner, keeping due amounts
// fresh without waiting for the periodic job. Best-effort: errors are logged,
// never surfaced to the interactive caller.
func (s *ReminderService) RunOnDemandSweep(ctx context.Context, ownerID uuid.UUID) {
	now := s.clock.Now()
	s.mu.Lock()
	if last, ok := s.lastOnDemand[ownerID]; ok && now.Sub(last) < onDemandInterval {
		s.mu.Unlock()
		return
	}
	s.lastOnDemand[ownerID] = now
	s.mu.Unlock()

	if _, err := s.billing.ProcessAutoDues(ctx, ownerID); err != nil {
		logrus.WithField("owner_id", ownerID).WithError(err).Warn("On-demand due sweep failed")
	}
}

// pruneOnDemandEntries drops rate-limit entries old enough to no longer gate
// anything, keeping the per-owner map from growing for the process lifetime.
func (s *ReminderService) pruneOnDemandEntries(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ownerID, last := range s.lastOnDemand {
		if now.Sub(last) >= onDemandInterval {
			delete(s.lastOnDemand, ownerID)
		}
	}
}

// RecordManualReminder logs an operator-sent reminder as SENT directly. It
// bypasses the delivery queue entirely and has no retry semantics.
func (s *ReminderService) RecordManualReminder(ctx context.Context, ownerID, customerID uuid.UUID, amount float64) (*models.Reminder, error) {
	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	if amount <= 0 {
		amount = customer.AmountDue
	}

	now := s.clock.Now()
	reminder := &models.Reminder{
		CustomerID:    customer.ID,
		UserID:        ownerID,
		Amount:        amount,
		ScheduledAt:   now,
		ScheduledOn:   utils.BeginningOfDay(now),
		Status:        models.ReminderSent,
		Channel:       models.ChannelWhatsApp,
		AttemptCount:  1,
		LastAttemptAt: &now,
		Notes:         "Sent manually by operator",
	}
	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEvent{
		OwnerID:    ownerID,
		Action:     AuditReminderManual,
		EntityType: "reminder",
		EntityID:   reminder.ID,
		Detail:     fmt.Sprintf("Manual reminder of %.2f for customer %s", amount, customer.ID),
	})
	return reminder, nil
}

// sweepOwner runs the full sweep for one owner: catch up elapsed billing
// cycles, then schedule one reminder per indebted customer not already
// reminded today.
func (s *ReminderService) sweepOwner(ctx context.Context, ownerID uuid.UUID, now time.Time) (int, error) {
	// Advance elapsed cycles first so reminder amounts include today's fees.
	if _, err := s.billing.ProcessAutoDues(ctx, ownerID); err != nil {
		logrus.WithField("owner_id", ownerID).WithError(err).Warn("Due processing failed; sweeping with stored balances")
	}

	customers, err := s.store.FindCustomersWithBalance(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("find customers with balance: %w", err)
	}

	scheduled := 0
	for i := range customers {
		err := s.scheduleReminder(ctx, &customers[i], now)
		if errors.Is(err, store.ErrAlreadyRemindedToday) {
			continue
		}
		if err != nil {
			// One customer failing must not abort the sweep for the rest.
			logrus.WithFields(logrus.Fields{
				"owner_id":    ownerID,
				"customer_id": customers[i].ID,
			}).WithError(err).Error("Failed to schedule reminder")
			continue
		}
		scheduled++
	}
	return scheduled, nil
}

func (s *ReminderService) scheduleReminder(ctx context.Context, customer *models.Customer, now time.Time) error {
	day := utils.BeginningOfDay(now)

	// Cheap pre-check; the store's (customer, day) unique constraint is the
	// actual guarantee under concurrent sweeps.
	if _, err := s.store.FindReminderOn(ctx, customer.ID, day); err == nil {
		return store.ErrAlreadyRemindedToday
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	reminder := &models.Reminder{
		CustomerID:  customer.ID,
		UserID:      customer.UserID,
		Amount:      customer.AmountDue,
		ScheduledAt: now,
		ScheduledOn: day,
		Status:      models.ReminderPending,
		Channel:     models.ChannelWhatsApp,
	}
	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEvent{
		OwnerID:    customer.UserID,
		Action:     AuditReminderScheduled,
		EntityType: "reminder",
		EntityID:   reminder.ID,
		Detail:     fmt.Sprintf("Reminder of %.2f scheduled for customer %s", reminder.Amount, customer.ID),
	})

	reminder.Status = models.ReminderQueued
	if err := s.store.UpdateReminder(ctx, reminder); err != nil {
		logrus.WithField("reminder_id", reminder.ID).WithError(err).Error("Failed to mark reminder queued")
	}
	if err := s.queue.Enqueue(reminder.ID); err != nil {
		// Row stays QUEUED; the stale requeue pass picks it up.
		logrus.WithField("reminder_id", reminder.ID).WithError(err).Error("Failed to enqueue reminder")
	}
	return nil
}
