package services_test

import (
	"context"
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

type fakeEnqueuer struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (f *fakeEnqueuer) Enqueue(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

type sweepFixture struct {
	ledger    *store.MemoryStore
	clock     *fakeClock
	queue     *fakeEnqueuer
	reminders *services.ReminderService
	ownerID   uuid.UUID
}

// newSweepFixture sets up one business with auto-reminders at 08:00 and the
// clock at 08:30 on 2024-03-05.
func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	ledger := store.NewMemoryStore()
	clock := newFakeClock(time.Date(2024, time.March, 5, 8, 30, 0, 0, time.Local))
	queue := &fakeEnqueuer{}
	ownerID := uuid.New()

	ledger.PutBusiness(models.Business{
		UserID:               ownerID,
		BusinessName:         "Sharma Dairy",
		AutoRemindersEnabled: true,
		ReminderTime:         "08:00",
	})

	billing := services.NewBillingService(ledger, services.NopAuditSink{}, clock)
	reminders := services.NewReminderService(ledger, billing, queue, services.NopAuditSink{}, clock)

	return &sweepFixture{ledger: ledger, clock: clock, queue: queue, reminders: reminders, ownerID: ownerID}
}

func (f *sweepFixture) addDebtor(amountDue float64) models.Customer {
	customer := models.Customer{
		ID:              uuid.New(),
		UserID:          f.ownerID,
		Name:            "Ravi",
		Phone:           "+919876543210",
		AmountDue:       amountDue,
		BillingCycle:    models.CycleMonthly,
		BillingDuration: 1,
		IsActive:        true,
	}
	f.ledger.PutCustomer(customer)
	return customer
}

// =============================================================================
// PERIODIC SWEEP
// =============================================================================

func TestPeriodicSweep_SchedulesAtConfiguredHour(t *testing.T) {
	f := newSweepFixture(t)
	customer := f.addDebtor(750)

	scheduled, err := f.reminders.RunPeriodicSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, scheduled)
	assert.Equal(t, 1, f.queue.count())

	rows := f.ledger.Reminders()
	require.Len(t, rows, 1)
	assert.Equal(t, customer.ID, rows[0].CustomerID)
	assert.Equal(t, models.ReminderQueued, rows[0].Status)
	assert.Equal(t, models.ChannelWhatsApp, rows[0].Channel)
	assert.Equal(t, 750.0, rows[0].Amount)
}

func TestPeriodicSweep_NoOpOutsideConfiguredHour(t *testing.T) {
	f := newSweepFixture(t)
	f.addDebtor(750)
	f.clock.Set(time.Date(2024, time.March, 5, 9, 0, 0, 0, time.Local))

	scheduled, err := f.reminders.RunPeriodicSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, scheduled)
	assert.Empty(t, f.ledger.Reminders())
}

func TestPeriodicSweep_SkipsCustomersWithoutDebt(t *testing.T) {
	f := newSweepFixture(t)
	f.addDebtor(0)
	credit := f.addDebtor(-100)
	credit.Phone = "+919876543211"
	f.ledger.PutCustomer(credit)

	scheduled, err := f.reminders.RunPeriodicSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, scheduled)
}

func TestPeriodicSweep_SecondRunSameDayIsDeduplicated(t *testing.T) {
	f := newSweepFixture(t)
	f.addDebtor(750)

	first, err := f.reminders.RunPeriodicSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := f.reminders.RunPeriodicSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second)

	assert.Len(t, f.ledger.Reminders(), 1)
}

func TestPeriodicSweep_ConcurrentSweepsCreateOneReminder(t *testing.T) {
	f := newSweepFixture(t)
	f.addDebtor(750)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.reminders.RunPeriodicSweep(context.Background())
		}()
	}
	wg.Wait()

	assert.Len(t, f.ledger.Reminders(), 1)
}

func TestPeriodicSweep_PostsFeesBeforeScheduling(t *testing.T) {
	// A customer with no balance but an elapsed cycle gets the fee posted
	// first, then a reminder for the fresh amount.
	f := newSweepFixture(t)
	customer := f.addDebtor(0)
	customer.MonthlyFee = 500
	customer.NextDueDate = datePtr(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local))
	f.ledger.PutCustomer(customer)

	scheduled, err := f.reminders.RunPeriodicSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, scheduled)

	rows := f.ledger.Reminders()
	require.Len(t, rows, 1)
	assert.Equal(t, 500.0, rows[0].Amount)
}

// =============================================================================
// ON-DEMAND SWEEP
// =============================================================================

func TestOnDemandSweep_RateLimitedPerOwner(t *testing.T) {
	f := newSweepFixture(t)
	customer := f.addDebtor(0)
	customer.MonthlyFee = 400
	// Far behind: without the rate limit a second call would charge again.
	customer.NextDueDate = datePtr(time.Date(2023, time.December, 1, 0, 0, 0, 0, time.Local))
	f.ledger.PutCustomer(customer)

	f.reminders.RunOnDemandSweep(context.Background(), f.ownerID)
	f.reminders.RunOnDemandSweep(context.Background(), f.ownerID)

	stored, err := f.ledger.GetCustomer(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, stored.AmountDue)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local), *stored.NextDueDate)
}

func TestOnDemandSweep_RunsAgainAfterInterval(t *testing.T) {
	f := newSweepFixture(t)
	customer := f.addDebtor(0)
	customer.MonthlyFee = 400
	customer.NextDueDate = datePtr(time.Date(2023, time.December, 1, 0, 0, 0, 0, time.Local))
	f.ledger.PutCustomer(customer)

	f.reminders.RunOnDemandSweep(context.Background(), f.ownerID)
	f.clock.Set(f.clock.Now().Add(2 * time.Minute))
	f.reminders.RunOnDemandSweep(context.Background(), f.ownerID)

	stored, err := f.ledger.GetCustomer(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 800.0, stored.AmountDue)
}

func TestOnDemandSweep_NeverSchedulesReminders(t *testing.T) {
	f := newSweepFixture(t)
	f.addDebtor(900)

	f.reminders.RunOnDemandSweep(context.Background(), f.ownerID)

	assert.Empty(t, f.ledger.Reminders())
	assert.Zero(t, f.queue.count())
}

// =============================================================================
// MANUAL REMINDERS
// =============================================================================

func TestRecordManualReminder_WritesSentDirectly(t *testing.T) {
	f := newSweepFixture(t)
	customer := f.addDebtor(600)

	reminder, err := f.reminders.RecordManualReminder(context.Background(), f.ownerID, customer.ID, 0)

	require.NoError(t, err)
	assert.Equal(t, models.ReminderSent, reminder.Status)
	assert.Equal(t, 600.0, reminder.Amount) // defaults to the current balance
	assert.Equal(t, 1, reminder.AttemptCount)
	require.NotNil(t, reminder.LastAttemptAt)
	assert.Zero(t, f.queue.count())
}

func TestRecordManualReminder_BlockedByDailyDedup(t *testing.T) {
	f := newSweepFixture(t)
	customer := f.addDebtor(600)

	_, err := f.reminders.RecordManualReminder(context.Background(), f.ownerID, customer.ID, 100)
	require.NoError(t, err)

	_, err = f.reminders.RecordManualReminder(context.Background(), f.ownerID, customer.ID, 100)
	assert.ErrorIs(t, err, store.ErrAlreadyRemindedToday)
}

func TestRecordManualReminder_RejectsForeignCustomer(t *testing.T) {
	f := newSweepFixture(t)
	customer := f.addDebtor(600)

	_, err := f.reminders.RecordManualReminder(context.Background(), uuid.New(), customer.ID, 100)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
