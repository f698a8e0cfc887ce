package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"duebook-backend/models"
	"duebook-backend/services"
	"duebook-backend/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSender) Send(ctx context.Context, channel models.ReminderChannel, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "SM123", nil
}

func (s *stubSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type queueFixture struct {
	ledger *store.MemoryStore
	queue  *services.ReminderQueue
	sender *stubSender
}

func newQueueFixture(t *testing.T, sender *stubSender) *queueFixture {
	t.Helper()
	ledger := store.NewMemoryStore()
	queue := services.NewReminderQueue(ledger, sender, services.NopAuditSink{}, services.SystemClock{}, services.QueueConfig{
		Workers:         2,
		BufferSize:      16,
		Policy:          services.RetryPolicy{MaxAttempts: 3, InitialBackoff: 2 * time.Millisecond},
		DeliveryTimeout: time.Second,
	})
	queue.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = queue.Shutdown(ctx)
	})
	return &queueFixture{ledger: ledger, queue: queue, sender: sender}
}

func (f *queueFixture) addQueuedReminder(t *testing.T) models.Reminder {
	t.Helper()
	customer := models.Customer{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Name:     "Meena",
		Phone:    "+918888777766",
		IsActive: true,
	}
	f.ledger.PutCustomer(customer)

	reminder := models.Reminder{
		CustomerID:  customer.ID,
		UserID:      customer.UserID,
		Amount:      450,
		ScheduledAt: time.Now(),
		Status:      models.ReminderQueued,
		Channel:     models.ChannelWhatsApp,
	}
	require.NoError(t, f.ledger.CreateReminder(context.Background(), &reminder))
	return reminder
}

func (f *queueFixture) reminderStatus(t *testing.T, id uuid.UUID) models.ReminderStatus {
	t.Helper()
	reminder, err := f.ledger.GetReminder(context.Background(), id)
	require.NoError(t, err)
	return reminder.Status
}

// =============================================================================
// DELIVERY OUTCOMES
// =============================================================================

func TestDelivery_SuccessMarksSent(t *testing.T) {
	f := newQueueFixture(t, &stubSender{})
	reminder := f.addQueuedReminder(t)

	require.NoError(t, f.queue.Enqueue(reminder.ID))

	require.Eventually(t, func() bool {
		return f.reminderStatus(t, reminder.ID) == models.ReminderSent
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := f.ledger.GetReminder(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AttemptCount)
	assert.NotNil(t, stored.LastAttemptAt)
	assert.Empty(t, stored.ErrorMessage)
	assert.Nil(t, stored.NextRetryAt)
	assert.Equal(t, 1, f.sender.callCount())
}

func TestDelivery_ExhaustedRetriesMarkFailed(t *testing.T) {
	// A sender that always fails drives the reminder to FAILED after exactly
	// MaxAttempts attempts, recording the last error.
	sender := &stubSender{err: errors.New("provider rejected message")}
	f := newQueueFixture(t, sender)
	reminder := f.addQueuedReminder(t)

	require.NoError(t, f.queue.Enqueue(reminder.ID))

	require.Eventually(t, func() bool {
		return f.reminderStatus(t, reminder.ID) == models.ReminderFailed
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := f.ledger.GetReminder(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.AttemptCount)
	assert.Contains(t, stored.ErrorMessage, "provider rejected message")
	assert.Equal(t, 3, sender.callCount())
}

func TestDelivery_MissingReminderIsDropped(t *testing.T) {
	// A job whose reminder vanished is a data-integrity issue: logged and
	// dropped, never marked FAILED, never sent.
	f := newQueueFixture(t, &stubSender{})

	require.NoError(t, f.queue.Enqueue(uuid.New()))
	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, f.sender.callCount())
	assert.Empty(t, f.ledger.Reminders())
}

func TestDelivery_MissingCustomerIsDropped(t *testing.T) {
	f := newQueueFixture(t, &stubSender{})
	reminder := models.Reminder{
		CustomerID:  uuid.New(), // never stored
		UserID:      uuid.New(),
		Amount:      100,
		ScheduledAt: time.Now(),
		Status:      models.ReminderQueued,
	}
	require.NoError(t, f.ledger.CreateReminder(context.Background(), &reminder))

	require.NoError(t, f.queue.Enqueue(reminder.ID))
	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, f.sender.callCount())
	assert.Equal(t, models.ReminderQueued, f.reminderStatus(t, reminder.ID))
}

func TestDelivery_TerminalReminderIsSkipped(t *testing.T) {
	f := newQueueFixture(t, &stubSender{})
	reminder := f.addQueuedReminder(t)

	stored, err := f.ledger.GetReminder(context.Background(), reminder.ID)
	require.NoError(t, err)
	stored.Status = models.ReminderSent
	require.NoError(t, f.ledger.UpdateReminder(context.Background(), stored))

	require.NoError(t, f.queue.Enqueue(reminder.ID))
	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, f.sender.callCount())
}

// =============================================================================
// RETRY POLICY & RECOVERY
// =============================================================================

func TestRetryPolicy_BackoffDoubles(t *testing.T) {
	policy := services.DefaultRetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 5*time.Second, policy.BackoffFor(1))
	assert.Equal(t, 10*time.Second, policy.BackoffFor(2))
	assert.Equal(t, 20*time.Second, policy.BackoffFor(3))
}

func TestRequeueStale_RecoversUndeliveredReminders(t *testing.T) {
	f := newQueueFixture(t, &stubSender{})

	customer := models.Customer{ID: uuid.New(), UserID: uuid.New(), Phone: "+917777666655", IsActive: true}
	f.ledger.PutCustomer(customer)
	pending := models.Reminder{
		CustomerID:  customer.ID,
		UserID:      customer.UserID,
		Amount:      320,
		ScheduledAt: time.Now(),
		Status:      models.ReminderPending,
	}
	require.NoError(t, f.ledger.CreateReminder(context.Background(), &pending))

	requeued, err := f.queue.RequeueStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)

	require.Eventually(t, func() bool {
		return f.reminderStatus(t, pending.ID) == models.ReminderSent
	}, 2*time.Second, 10*time.Millisecond)
}
