/*
split.go - Redistribute a worker's day across projects

PURPOSE:
  Takes a worker's total scheduled hours for one day - possibly spread
  across several existing entries - and replaces them with a new set of
  entries, one per allocation target. The total is conserved exactly:
  sum(allocations) must equal the current total or nothing happens.

THE CONSERVATION CONTRACT:
  This is the "hours conserved" invariant. The engine compares decimal
  sums, not floats, so 2.5 + 5.5 == 8 holds exactly. Any mismatch fails
  with AllocationMismatchError before a single write is issued.

ATOMICITY:
  Delete-originals + insert-replacements is one unit of work through
  Store.ReplaceForWorkerDay. Partial application (new entries created,
  originals still present) would double the day's hours - an unrecoverable
  data defect - so the store wraps the pair in one backend transaction.

CARRY-OVER:
  Trade and cost code are inherited from the first original entry unless
  an allocation overrides them. Each allocation may carry its own notes.

SEE ALSO:
  - entry.go: ReplaceForWorkerDay contract
  - service.go: Lock rule (split refuses days with locked entries)
*/
package schedule

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crewbase/labor-engine/core"
)

// =============================================================================
// ALLOCATION - One target line of a split
// =============================================================================

// Allocation is one target of a split: this many hours on this project.
// Trade/cost code default to the source entry's values when empty.
type Allocation struct {
	ProjectID  core.ProjectID
	Hours      decimal.Decimal
	TradeID    core.TradeID    // optional override
	CostCodeID core.CostCodeID // optional override
	Notes      string
}

// =============================================================================
// SPLITTER
// =============================================================================

// Splitter redistributes one worker-day across projects.
type Splitter struct {
	store Store
	now   func() core.Date
}

func NewSplitter(store Store) *Splitter {
	return &Splitter{store: store, now: core.Today}
}

// WithClock overrides "today" for lock checks. Tests only.
func (sp *Splitter) WithClock(now func() core.Date) *Splitter {
	sp.now = now
	return sp
}

// Split replaces the worker's entries for the day with one entry per
// allocation. The allocation total must equal the current scheduled total
// exactly, or the call fails with AllocationMismatchError and no write
// occurs.
func (sp *Splitter) Split(ctx context.Context, workerID core.WorkerID, day core.Date, allocations []Allocation) ([]Entry, error) {
	if workerID == "" {
		return nil, core.NewValidationError("worker_id", "is required")
	}
	if day.IsZero() {
		return nil, core.NewValidationError("date", "is required")
	}
	if len(allocations) == 0 {
		return nil, core.NewValidationError("allocations", "must not be empty")
	}
	for _, a := range allocations {
		if a.ProjectID == "" {
			return nil, core.NewValidationError("allocations.project_id", "is required")
		}
		if !a.Hours.IsPositive() {
			return nil, core.NewValidationError("allocations.hours", "must be positive")
		}
	}

	originals, err := sp.store.ListForWorkerDay(ctx, workerID, day)
	if err != nil {
		return nil, err
	}
	if len(originals) == 0 {
		return nil, &core.NotFoundError{Kind: "schedule entry", ID: string(workerID) + "@" + day.String()}
	}

	// A locked original means the day has already become fact; the split
	// would silently rewrite paid-for history.
	for _, o := range originals {
		recordID, linked, err := sp.store.LinkedRecord(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if linked && o.Date.BeforeOrEqual(sp.now()) {
			return nil, &core.LockedError{EntryID: o.ID, RecordID: recordID, Date: o.Date}
		}
	}

	total := decimal.Zero
	for _, o := range originals {
		total = total.Add(o.ScheduledHours)
	}
	allocated := decimal.Zero
	for _, a := range allocations {
		allocated = allocated.Add(a.Hours)
	}
	if !allocated.Equal(total) {
		return nil, &core.AllocationMismatchError{
			WorkerID:  workerID,
			Date:      day,
			Original:  total,
			Allocated: allocated,
		}
	}

	// Trade/cost code carry over from the first original unless overridden.
	source := originals[0]

	deleteIDs := make([]core.EntryID, len(originals))
	for i, o := range originals {
		deleteIDs[i] = o.ID
	}

	replacements := make([]Entry, len(allocations))
	for i, a := range allocations {
		tradeID := source.TradeID
		if a.TradeID != "" {
			tradeID = a.TradeID
		}
		costCodeID := source.CostCodeID
		if a.CostCodeID != "" {
			costCodeID = a.CostCodeID
		}
		replacements[i] = Entry{
			ID:             core.EntryID(uuid.NewString()),
			WorkerID:       workerID,
			ProjectID:      a.ProjectID,
			TradeID:        tradeID,
			CostCodeID:     costCodeID,
			Date:           day,
			ScheduledHours: a.Hours,
			Notes:          a.Notes,
			Status:         StatusPlanned,
		}
	}

	if err := sp.store.ReplaceForWorkerDay(ctx, deleteIDs, replacements); err != nil {
		return nil, err
	}
	return replacements, nil
}
