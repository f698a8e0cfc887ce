package services

import (
	"context"
	"testing"
	"time"

	"duebook-backend/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type dropEnqueuer struct{}

func (dropEnqueuer) Enqueue(uuid.UUID) error { return nil }

func TestPeriodicSweep_PrunesStaleRateLimitEntries(t *testing.T) {
	now := time.Date(2024, time.March, 5, 8, 0, 0, 0, time.Local)
	ledger := store.NewMemoryStore()
	clock := fixedClock{now: now}
	billing := NewBillingService(ledger, NopAuditSink{}, clock)
	service := NewReminderService(ledger, billing, dropEnqueuer{}, NopAuditSink{}, clock)

	staleOwner := uuid.New()
	freshOwner := uuid.New()
	service.lastOnDemand[staleOwner] = now.Add(-2 * onDemandInterval)
	service.lastOnDemand[freshOwner] = now.Add(-onDemandInterval / 2)

	_, err := service.RunPeriodicSweep(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, service.lastOnDemand, staleOwner)
	assert.Contains(t, service.lastOnDemand, freshOwner)
}
