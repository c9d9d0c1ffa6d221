/*
Package timelog owns worked, billable units of labor.

PURPOSE:
  A time record is the costed, eventually-settled counterpart of a
  schedule entry. It is created either by converting a schedule entry
  (the normal path) or by direct manual entry, and it carries the one
  monetary fact this system must never get wrong: LaborCost, frozen at
  creation time.

KEY INVARIANTS:
  1. LaborCost = HoursWorked x worker's hourly rate AT CREATION. Changing
     the worker's rate later must not move any stored record - the cost is
     a snapshot, never re-derived
  2. At most one record references a given source schedule entry, and once
     conversion succeeds the entry no longer exists: the two are mutually
     exclusive representations of the same unit of work
  3. PaymentStatus flips to paid exclusively through the settlement
     service; nothing else may touch it

LIFECYCLE:
  Created unpaid -> optionally selected into a pay run -> settled paid.
  Deleting a record cascades its pay run item (dangling lines are never
  left behind) and never resurrects a schedule entry: that information
  loss is accepted by design.

SEE ALSO:
  - convert.go: Schedule entry -> time record materialization
  - payroll: Selection into batches and settlement
*/
package timelog

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/crewbase/labor-engine/core"
)

// =============================================================================
// TIME RECORD - A costed unit of worked labor
// =============================================================================

// Record is an immutable-once-created billable unit of labor.
type Record struct {
	ID            core.RecordID
	WorkerID      core.WorkerID
	ProjectID     core.ProjectID
	TradeID       core.TradeID // optional
	Date          core.Date
	HoursWorked   decimal.Decimal
	LaborCost     decimal.Decimal // frozen at creation; never recomputed
	Notes         string
	PaymentStatus core.PaymentStatus
	PaymentDate   *core.Date   // set only on settlement
	SourceEntryID core.EntryID // optional back-reference to the schedule entry
	CreatedBy     string
}

// Validate enforces record-level invariants for create and update.
func (r *Record) Validate() error {
	if r.WorkerID == "" {
		return core.NewValidationError("worker_id", "is required")
	}
	if r.ProjectID == "" {
		return core.NewValidationError("project_id", "is required")
	}
	if r.Date.IsZero() {
		return core.NewValidationError("date", "is required")
	}
	if !r.HoursWorked.IsPositive() {
		return core.NewValidationError("hours_worked", "must be positive")
	}
	if r.LaborCost.IsNegative() {
		return core.NewValidationError("labor_cost", "must not be negative")
	}
	return nil
}

// Filter narrows record listings. Zero values mean "no filter".
type Filter struct {
	WorkerID  core.WorkerID
	ProjectID core.ProjectID
	CompanyID core.CompanyID
}

// Patch is a partial update to a record. Payment fields are deliberately
// absent: status and payment date move only through settlement.
type Patch struct {
	ProjectID   *core.ProjectID
	TradeID     *core.TradeID
	HoursWorked *decimal.Decimal
	Notes       *string
}

// WorkerUnpaid is one line of the unpaid summary: how much outstanding
// labor cost a worker has in a range.
type WorkerUnpaid struct {
	WorkerID   core.WorkerID
	TotalHours decimal.Decimal
	TotalCost  decimal.Decimal
}

// =============================================================================
// STORE
// =============================================================================

// Store persists time records.
//
// ATOMICITY: CreateFromSchedule writes the records and deletes their
// source entries in one unit of work. DeleteRecord removes the record's
// pay run item in the same unit of work.
type Store interface {
	CreateRecord(ctx context.Context, r Record) error
	GetRecord(ctx context.Context, id core.RecordID) (*Record, error)
	UpdateRecord(ctx context.Context, r Record) error

	// DeleteRecord removes a record and cascades its pay run item, if any.
	// The originating schedule entry, long gone, is not resurrected.
	DeleteRecord(ctx context.Context, id core.RecordID) error

	ListRecords(ctx context.Context, rng core.DateRange, f Filter) ([]Record, error)

	// ListUnpaid is the selection set the pay run builder consumes. Filters
	// strictly on payment_status = unpaid.
	ListUnpaid(ctx context.Context, rng core.DateRange, f Filter) ([]Record, error)

	// GetBySourceEntry returns the record referencing a schedule entry.
	GetBySourceEntry(ctx context.Context, entryID core.EntryID) (*Record, error)

	// CreateFromSchedule atomically inserts the given records and deletes
	// the schedule entries they reference via SourceEntryID. Either the
	// whole conversion lands or none of it does.
	CreateFromSchedule(ctx context.Context, records []Record) error

	// UnpaidSummary sums outstanding hours and cost per worker in a range.
	UnpaidSummary(ctx context.Context, rng core.DateRange, f Filter) ([]WorkerUnpaid, error)
}
