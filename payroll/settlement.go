/*
settlement.go - The only code path that marks labor paid

PURPOSE:
  Settlement transitions a draft batch to paid exactly once, stamping the
  batch and every referenced time record with the same payment date in
  one unit of work. Everything else in the system treats payment status
  as read-only.

IDEMPOTENCE GUARD:
  Re-running settlement on a settled batch is rejected with
  AlreadySettled - not silently repeated. A repeat would re-stamp payment
  dates and hide the fact that money already moved. The store-level guard
  is part of the same statement that flips the status, so two concurrent
  settlements cannot both win.

DELETION:
  Draft batches may be deleted: items first, then the batch. The records
  were never mutated while in draft, so there is nothing to restore -
  they simply stop being referenced and show up as unpaid candidates
  again. Settled batches are permanent.

SEE ALSO:
  - batch.go: SettleBatch contract
  - timelog: PaymentStatus ownership note
*/
package payroll

import (
	"context"
	"fmt"

	"github.com/crewbase/labor-engine/core"
)

// =============================================================================
// SETTLEMENT
// =============================================================================

// Settlement finalizes and deletes pay runs.
type Settlement struct {
	store Store
	now   func() core.Date
}

func NewSettlement(store Store) *Settlement {
	return &Settlement{store: store, now: core.Today}
}

// WithClock overrides the payment-date clock. Tests only.
func (s *Settlement) WithClock(now func() core.Date) *Settlement {
	s.now = now
	return s
}

// MarkPaid settles a draft batch: status paid, payment date today, every
// referenced record stamped the same way, atomically. Fails with
// AlreadySettled when the batch is not draft.
func (s *Settlement) MarkPaid(ctx context.Context, id core.PayRunID) (*Batch, error) {
	batch, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if batch.Status != BatchDraft {
		return nil, core.ErrAlreadySettled
	}

	paymentDate := s.now()
	if err := s.store.SettleBatch(ctx, id, paymentDate); err != nil {
		return nil, fmt.Errorf("settle pay run %s: %w", id, err)
	}

	batch.Status = BatchPaid
	batch.PaymentDate = &paymentDate
	return batch, nil
}

// Delete removes a draft batch and its items. Referenced records keep
// their unpaid status - they were never touched while the batch was
// draft. Settled batches cannot be deleted.
func (s *Settlement) Delete(ctx context.Context, id core.PayRunID) error {
	batch, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return err
	}
	if batch.Status != BatchDraft {
		return core.ErrAlreadySettled
	}
	return s.store.DeleteBatch(ctx, id)
}
