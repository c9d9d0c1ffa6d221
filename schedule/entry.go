/*
Package schedule owns planned-but-not-yet-worked labor assignments.

PURPOSE:
  A schedule entry is one worker planned on one project for one calendar
  day. Entries are mutable while unlocked, can be redistributed across
  projects by the split engine, and leave this package exactly one way:
  conversion severs the entry and materializes a time record in its place.

KEY INVARIANTS:
  1. ScheduledHours > 0 on every create and update
  2. A (worker, project, date) triple may repeat - multiple shifts per day
     are supported; the unit the split engine operates on is the full set
     of a worker's entries for one day
  3. Once a linked time record exists and the entry's date is today or in
     the past, the entry is locked - the plan has become fact and edits
     must go through the time record instead
  4. Deleting an entry with a linked record deletes the record in the same
     unit of work; an orphaned payable record must never survive

OWNERSHIP:
  Entries are exclusively owned here. The back-reference a time record
  carries is a non-owning link used only for lookup and lock decisions.

SEE ALSO:
  - split.go: Redistribution across projects (hours conserved)
  - service.go: CRUD with lock enforcement
  - timelog/convert.go: The one consumer that destroys entries
*/
package schedule

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/crewbase/labor-engine/core"
)

// =============================================================================
// SCHEDULE ENTRY - A planned assignment
// =============================================================================

// Status of a schedule entry. Planned is the working state; other values
// exist for UI surfaces (e.g. tentative) and carry no pipeline semantics.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusTentative Status = "tentative"
)

// Entry is a planned assignment: worker, project, day, hours.
type Entry struct {
	ID             core.EntryID
	WorkerID       core.WorkerID
	ProjectID      core.ProjectID
	TradeID        core.TradeID    // optional
	CostCodeID     core.CostCodeID // optional
	Date           core.Date
	ScheduledHours decimal.Decimal
	Notes          string
	Status         Status
}

// Validate enforces the entry-level invariants shared by create and update.
func (e *Entry) Validate() error {
	if e.WorkerID == "" {
		return core.NewValidationError("worker_id", "is required")
	}
	if e.ProjectID == "" {
		return core.NewValidationError("project_id", "is required")
	}
	if e.Date.IsZero() {
		return core.NewValidationError("date", "is required")
	}
	if !e.ScheduledHours.IsPositive() {
		return core.NewValidationError("scheduled_hours", "must be positive")
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	WorkerID       *core.WorkerID
	ProjectID      *core.ProjectID
	TradeID        *core.TradeID
	CostCodeID     *core.CostCodeID
	ScheduledHours *decimal.Decimal
	Notes          *string
	Status         *Status
}

// Filter narrows day/range listings. Zero values mean "no filter".
// Company filtering resolves through the worker's company.
type Filter struct {
	WorkerID  core.WorkerID
	ProjectID core.ProjectID
	CompanyID core.CompanyID
}

// =============================================================================
// STORE
// =============================================================================

// Store persists schedule entries.
//
// ATOMICITY: ReplaceForWorkerDay and DeleteEntry are single units of work.
// The split engine's delete+insert and the entry-with-linked-record delete
// must never partially apply; implementations wrap them in one backend
// transaction (or rely on cascading deletes within one statement).
type Store interface {
	CreateEntry(ctx context.Context, e Entry) error
	GetEntry(ctx context.Context, id core.EntryID) (*Entry, error)
	UpdateEntry(ctx context.Context, e Entry) error

	// DeleteEntry removes an entry. A linked time record (and its pay run
	// item, if any) is removed in the same unit of work.
	DeleteEntry(ctx context.Context, id core.EntryID) error

	ListForDay(ctx context.Context, day core.Date, f Filter) ([]Entry, error)
	ListForRange(ctx context.Context, r core.DateRange, f Filter) ([]Entry, error)
	ListForWorkerDay(ctx context.Context, workerID core.WorkerID, day core.Date) ([]Entry, error)

	// ReplaceForWorkerDay atomically deletes the given entries and inserts
	// their replacements. Either everything applies or nothing does.
	ReplaceForWorkerDay(ctx context.Context, deleteIDs []core.EntryID, create []Entry) error

	// LinkedRecord returns the time record referencing this entry, if one
	// exists. Used for lock decisions only; the record is not owned here.
	LinkedRecord(ctx context.Context, id core.EntryID) (core.RecordID, bool, error)
}
