/*
Package payroll aggregates unpaid time records into settled batches.

PURPOSE:
  A pay run batch is a draft grouping of selected unpaid time records.
  Each record becomes one line item; the batch total is the sum of item
  amounts, frozen at build time. Settlement flips the batch to paid and
  cascades status and payment date to every referenced record.

KEY INVARIANTS:
  1. TotalAmount == sum(item.Amount) at creation; not recomputed later
  2. Exactly one item per (pay run, time record) pair
  3. A time record belongs to at most one live (draft or paid) batch:
     a second claim fails with AlreadyClaimed instead of silently
     producing a double payment
  4. draft -> paid happens exactly once; a second settlement fails with
     AlreadySettled and stamps nothing
  5. Deleting a draft batch removes its items, never the records; deleting
     a settled batch is refused

SEE ALSO:
  - builder.go: Collecting -> Selecting -> Built state machine
  - settlement.go: The only code path that marks labor paid
*/
package payroll

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/timelog"
)

// =============================================================================
// PAY RUN MODELS
// =============================================================================

// BatchStatus is the pay run lifecycle: draft until settled, paid after.
type BatchStatus string

const (
	BatchDraft BatchStatus = "draft"
	BatchPaid  BatchStatus = "paid"
)

// Batch is a draft or settled payroll grouping.
type Batch struct {
	ID             core.PayRunID
	DateRangeStart core.Date
	DateRangeEnd   core.Date
	PayerCompanyID core.CompanyID // optional
	PayeeCompanyID core.CompanyID // optional
	Status         BatchStatus
	TotalAmount    decimal.Decimal // frozen at build time
	PaymentDate    *core.Date      // set on settlement
}

// Item binds one time record to one batch. Rate is derived for display
// (labor_cost / hours, zero-guarded); Amount is the record's frozen cost.
type Item struct {
	ID       core.PayRunItemID
	PayRunID core.PayRunID
	RecordID core.RecordID
	WorkerID core.WorkerID
	Hours    decimal.Decimal
	Rate     decimal.Decimal
	Amount   decimal.Decimal
}

// BatchDetail is the read model for the batch detail view: the batch, its
// items, and the referenced records joined in.
type BatchDetail struct {
	Batch   Batch
	Items   []Item
	Records []timelog.Record
}

// Detail loads the batch detail read model: the batch, its items, and the
// records the items pay for, in item order.
func Detail(ctx context.Context, batches Store, records timelog.Store, id core.PayRunID) (*BatchDetail, error) {
	batch, err := batches.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := batches.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	recs := make([]timelog.Record, 0, len(items))
	for _, item := range items {
		r, err := records.GetRecord(ctx, item.RecordID)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return &BatchDetail{Batch: *batch, Items: items, Records: recs}, nil
}

// =============================================================================
// STORE
// =============================================================================

// Store persists pay run batches and items.
//
// ATOMICITY: CreateBatch writes the batch and all items in one unit of
// work; a claim conflict surfaces as AlreadyClaimedError and nothing is
// written. SettleBatch updates the batch and cascades payment status and
// date to every referenced record in one unit of work.
type Store interface {
	// CreateBatch persists a draft batch with its items atomically. Fails
	// with AlreadyClaimedError when any record is already held by a live
	// batch.
	CreateBatch(ctx context.Context, b Batch, items []Item) error

	GetBatch(ctx context.Context, id core.PayRunID) (*Batch, error)
	ListBatches(ctx context.Context) ([]Batch, error)
	ListItems(ctx context.Context, id core.PayRunID) ([]Item, error)

	// SettleBatch atomically marks a draft batch paid and stamps every
	// referenced record paid with the given payment date. Returns
	// ErrAlreadySettled when the batch is not draft (race-safe: the guard
	// is part of the same statement that flips the status).
	SettleBatch(ctx context.Context, id core.PayRunID, paymentDate core.Date) error

	// DeleteBatch removes a batch and its items. Referenced records are
	// untouched. Callers enforce draft-only before calling.
	DeleteBatch(ctx context.Context, id core.PayRunID) error

	// ClaimedBy returns the live batch holding a record, if any. Advisory
	// pre-check; CreateBatch's constraint is authoritative.
	ClaimedBy(ctx context.Context, recordID core.RecordID) (core.PayRunID, bool, error)
}
