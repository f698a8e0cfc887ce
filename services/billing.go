// services/billing.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duebook-backend/models"
	"duebook-backend/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// NextDueDate returns the due date one billing cycle after from. FIXED plans
// have no recurring cycle and return nil.
func NextDueDate(cycle models.BillingCycle, duration int, from time.Time) *time.Time {
	if duration < 1 {
		duration = 1
	}
	switch cycle {
	case models.CycleMonthly:
		due := from.AddDate(0, duration, 0)
		return &due
	case models.CycleWeekly:
		due := from.AddDate(0, 0, 7*duration)
		return &due
	default:
		return nil
	}
}

// AdvanceIfDue applies at most one elapsed billing cycle to the customer: the
// fee is added to the balance, the due date moves exactly one cycle past the
// OLD due date (never to "now"), and the FEE transaction to persist alongside
// the mutated customer is returned. Nil means nothing was due.
//
// A customer who has missed several cycles catches up one cycle per call;
// repeated sweeps converge instead of charging all missed cycles at once.
func AdvanceIfDue(customer *models.Customer, now time.Time) *models.Transaction {
	if customer.NextDueDate == nil {
		customer.NextDueDate = NextDueDate(customer.BillingCycle, customer.BillingDuration, customer.StartDate)
	}
	if customer.NextDueDate == nil {
		// FIXED plan: no recurring charge
		return nil
	}
	if customer.MonthlyFee <= 0 || now.Before(*customer.NextDueDate) {
		return nil
	}

	oldDue := *customer.NextDueDate
	customer.AmountDue += customer.MonthlyFee
	customer.NextDueDate = NextDueDate(customer.BillingCycle, customer.BillingDuration, oldDue)

	return &models.Transaction{
		CustomerID: customer.ID,
		UserID:     customer.UserID,
		Amount:     customer.MonthlyFee,
		Type:       models.TxFee,
		Date:       now,
		Notes:      fmt.Sprintf("Auto fee for period ending %s", oldDue.Format("02 Jan 2006")),
	}
}

type BillingService struct {
	store store.LedgerStore
	audit AuditSink
	clock Clock
}

func NewBillingService(ledger store.LedgerStore, audit AuditSink, clock Clock) *BillingService {
	return &BillingService{store: ledger, audit: audit, clock: clock}
}

// ProcessAutoDues advances one billing cycle for every overdue customer of an
// owner. A persistence failure for one customer is logged and skipped; that
// customer is retried by the next sweep, since advancement recomputed from
// the stored pre-image yields the same result.
func (s *BillingService) ProcessAutoDues(ctx context.Context, ownerID uuid.UUID) (int, error) {
	now := s.clock.Now()
	customers, err := s.store.FindOverdueCustomers(ctx, ownerID, now)
	if err != nil {
		return 0, fmt.Errorf("find overdue customers: %w", err)
	}

	updated := 0
	for i := range customers {
		customer := &customers[i]
		prevDue := customer.NextDueDate
		fee := AdvanceIfDue(customer, now)
		if fee == nil {
			continue
		}
		err := s.store.ApplyCycleAdvance(ctx, customer, prevDue, fee)
		if errors.Is(err, store.ErrCycleAlreadyAdvanced) {
			// A concurrent sweep posted this fee already.
			continue
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"owner_id":    ownerID,
				"customer_id": customer.ID,
			}).WithError(err).Error("Cycle advance failed; customer will be retried next sweep")
			continue
		}
		s.audit.Record(ctx, AuditEvent{
			OwnerID:    ownerID,
			Action:     AuditFeePosted,
			EntityType: "customer",
			EntityID:   customer.ID,
			Detail:     fee.Notes,
		})
		updated++
	}
	return updated, nil
}

// RecordPayment subtracts a payment from the customer's balance and appends
// the PAYMENT transaction atomically.
func (s *BillingService) RecordPayment(ctx context.Context, ownerID, customerID uuid.UUID, amount float64, notes string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	payment, err := s.store.RecordPayment(ctx, customerID, ownerID, amount, notes, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEvent{
		OwnerID:    ownerID,
		Action:     AuditPaymentRecorded,
		EntityType: "customer",
		EntityID:   customerID,
		Detail:     fmt.Sprintf("Payment of %.2f recorded", amount),
	})
	return payment, nil
}
