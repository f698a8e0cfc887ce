// services/reminder_queue.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"duebook-backend/models"
	"duebook-backend/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrQueueFull = errors.New("reminder queue is full")

// RetryPolicy bounds delivery attempts for one reminder job.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration // doubles after every failed attempt
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 5 * time.Second}
}

// BackoffFor returns the delay before the attempt following failedAttempt
// (1-based): initial, 2x initial, 4x initial, ...
func (p RetryPolicy) BackoffFor(failedAttempt int) time.Duration {
	backoff := p.InitialBackoff
	for i := 1; i < failedAttempt; i++ {
		backoff *= 2
	}
	return backoff
}

type QueueConfig struct {
	Workers         int
	BufferSize      int
	Policy          RetryPolicy
	DeliveryTimeout time.Duration
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:         4,
		BufferSize:      1024,
		Policy:          DefaultRetryPolicy(),
		DeliveryTimeout: 30 * time.Second,
	}
}

type reminderJob struct {
	reminderID uuid.UUID
	attempt    int
}

// ReminderQueue drains reminder jobs through a bounded worker pool. Each job
// loads the reminder and its customer, invokes the notification channel, and
// writes the outcome back: SENT on success, FAILED only after the retry
// budget is exhausted. Reminder state lives in the ledger store, so jobs
// interrupted by a restart are recovered by RequeueStale.
type ReminderQueue struct {
	store   store.LedgerStore
	sender  NotificationSender
	audit   AuditSink
	clock   Clock
	policy  RetryPolicy
	timeout time.Duration

	jobs chan reminderJob
	quit chan struct{}
	wg   sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
	workers   int
}

func NewReminderQueue(ledger store.LedgerStore, sender NotificationSender, audit AuditSink, clock Clock, cfg QueueConfig) *ReminderQueue {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.Policy.MaxAttempts < 1 {
		cfg.Policy = DefaultRetryPolicy()
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 30 * time.Second
	}
	return &ReminderQueue{
		store:   ledger,
		sender:  sender,
		audit:   audit,
		clock:   clock,
		policy:  cfg.Policy,
		timeout: cfg.DeliveryTimeout,
		jobs:    make(chan reminderJob, cfg.BufferSize),
		quit:    make(chan struct{}),
		workers: cfg.Workers,
	}
}

func (q *ReminderQueue) Start() {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker()
		}
		logrus.WithField("workers", q.workers).Info("Reminder delivery workers started")
	})
}

// Shutdown stops accepting retries and waits for in-flight deliveries to
// finish, up to the context deadline. Jobs still waiting in the channel are
// dropped; their rows stay QUEUED and are requeued on the next start.
func (q *ReminderQueue) Shutdown(ctx context.Context) error {
	q.stopOnce.Do(func() { close(q.quit) })
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue accepts a reminder for delivery. Non-blocking: a full queue is an
// error, and the reminder's QUEUED row will be recovered by RequeueStale.
func (q *ReminderQueue) Enqueue(reminderID uuid.UUID) error {
	select {
	case q.jobs <- reminderJob{reminderID: reminderID, attempt: 1}:
		return nil
	default:
		return ErrQueueFull
	}
}

// RequeueStale re-enqueues reminders left PENDING or QUEUED by a previous
// process. Attempt counts restart from one.
func (q *ReminderQueue) RequeueStale(ctx context.Context) (int, error) {
	reminders, err := q.store.ListUndeliveredReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list undelivered reminders: %w", err)
	}
	requeued := 0
	for i := range reminders {
		reminder := &reminders[i]
		if reminder.Status == models.ReminderPending {
			reminder.Status = models.ReminderQueued
			if err := q.store.UpdateReminder(ctx, reminder); err != nil {
				logrus.WithField("reminder_id", reminder.ID).WithError(err).Error("Failed to mark stale reminder queued")
				continue
			}
		}
		if err := q.Enqueue(reminder.ID); err != nil {
			logrus.WithField("reminder_id", reminder.ID).WithError(err).Error("Failed to requeue stale reminder")
			continue
		}
		requeued++
	}
	return requeued, nil
}

func (q *ReminderQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.quit:
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *ReminderQueue) process(job reminderJob) {
	ctx := context.Background()
	log := logrus.WithFields(logrus.Fields{
		"reminder_id": job.reminderID,
		"attempt":     job.attempt,
	})

	reminder, err := q.store.GetReminder(ctx, job.reminderID)
	if errors.Is(err, store.ErrNotFound) {
		// Not the customer's fault: data integrity issue, log and drop.
		log.Warn("Reminder vanished before delivery; dropping job")
		return
	}
	if err != nil {
		q.handleFailure(ctx, nil, job, fmt.Errorf("load reminder: %w", err))
		return
	}
	if reminder.Status.IsTerminal() {
		log.WithField("status", reminder.Status).Debug("Reminder already terminal; dropping job")
		return
	}

	customer, err := q.store.GetCustomer(ctx, reminder.CustomerID)
	if errors.Is(err, store.ErrNotFound) {
		log.WithField("customer_id", reminder.CustomerID).Warn("Customer vanished before delivery; dropping job")
		return
	}
	if err != nil {
		q.handleFailure(ctx, reminder, job, fmt.Errorf("load customer: %w", err))
		return
	}

	body := fmt.Sprintf("Payment reminder: %.2f is due. Please pay at your earliest convenience.", reminder.Amount)
	attemptCtx, cancel := context.WithTimeout(ctx, q.timeout)
	messageID, err := q.sender.Send(attemptCtx, reminder.Channel, customer.Phone, body)
	cancel()

	if err != nil {
		q.handleFailure(ctx, reminder, job, err)
		return
	}

	now := q.clock.Now()
	if !reminder.Status.CanTransitionTo(models.ReminderSent) {
		log.WithField("status", reminder.Status).Warn("Illegal transition to SENT; dropping job")
		return
	}
	reminder.Status = models.ReminderSent
	reminder.AttemptCount = job.attempt
	reminder.LastAttemptAt = &now
	reminder.NextRetryAt = nil
	reminder.ErrorMessage = ""
	if err := q.store.UpdateReminder(ctx, reminder); err != nil {
		log.WithError(err).Error("Delivered but failed to mark reminder SENT")
		return
	}
	q.audit.Record(ctx, AuditEvent{
		OwnerID:    reminder.UserID,
		Action:     AuditReminderSent,
		EntityType: "reminder",
		EntityID:   reminder.ID,
		Detail:     fmt.Sprintf("Delivered via %s, message %s", reminder.Channel, messageID),
	})
	log.WithField("message_id", messageID).Info("Reminder delivered")
}

// handleFailure either schedules a retry or, once the budget is exhausted,
// writes the terminal FAILED state. This is the only path that writes FAILED.
func (q *ReminderQueue) handleFailure(ctx context.Context, reminder *models.Reminder, job reminderJob, cause error) {
	log := logrus.WithFields(logrus.Fields{
		"reminder_id": job.reminderID,
		"attempt":     job.attempt,
	})

	if job.attempt >= q.policy.MaxAttempts {
		log.WithError(cause).Error("Reminder delivery exhausted retries")
		if reminder == nil {
			var err error
			reminder, err = q.store.GetReminder(ctx, job.reminderID)
			if err != nil {
				log.WithError(err).Error("Cannot load reminder to mark FAILED")
				return
			}
		}
		if !reminder.Status.CanTransitionTo(models.ReminderFailed) {
			log.WithField("status", reminder.Status).Warn("Illegal transition to FAILED; dropping job")
			return
		}
		now := q.clock.Now()
		reminder.Status = models.ReminderFailed
		reminder.AttemptCount = job.attempt
		reminder.LastAttemptAt = &now
		reminder.NextRetryAt = nil
		reminder.ErrorMessage = cause.Error()
		if err := q.store.UpdateReminder(ctx, reminder); err != nil {
			log.WithError(err).Error("Failed to mark reminder FAILED")
			return
		}
		q.audit.Record(ctx, AuditEvent{
			OwnerID:    reminder.UserID,
			Action:     AuditReminderFailed,
			EntityType: "reminder",
			EntityID:   reminder.ID,
			Detail:     cause.Error(),
		})
		return
	}

	backoff := q.policy.BackoffFor(job.attempt)
	log.WithError(cause).WithField("backoff", backoff).Warn("Reminder delivery failed; will retry")

	// Transient failures record retry metadata but never change the visible
	// status before exhaustion.
	if reminder != nil {
		now := q.clock.Now()
		retryAt := now.Add(backoff)
		reminder.AttemptCount = job.attempt
		reminder.LastAttemptAt = &now
		reminder.NextRetryAt = &retryAt
		if err := q.store.UpdateReminder(ctx, reminder); err != nil {
			log.WithError(err).Error("Failed to persist retry metadata")
		}
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(backoff)
		defer timer.Stop()
		select {
		case <-q.quit:
			return
		case <-timer.C:
		}
		select {
		case <-q.quit:
		case q.jobs <- reminderJob{reminderID: job.reminderID, attempt: job.attempt + 1}:
		}
	}()
}
