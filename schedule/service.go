/*
service.go - Schedule CRUD with lock enforcement

PURPOSE:
  Wraps the store with the business rules the UI must not be able to
  bypass: hours validation on every write, and the lock rule that freezes
  past-or-present entries once a time record references them.

THE LOCK RULE:
  An entry is locked when BOTH hold:
    1. A time record references it (conversion happened, or a log was
       created early against the plan)
    2. The entry's date is today or in the past

  A future-dated entry with a linked record stays editable: the log was
  created early, but the plan can still change. The caller receives
  LockedError with the record id so the UI can redirect the user there.

SEE ALSO:
  - entry.go: Model and store interface
  - split.go: Redistribution (also refuses locked days)
*/
package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewbase/labor-engine/core"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service owns schedule entry lifecycle outside of conversion.
type Service struct {
	store Store

	// now is injectable for lock-rule tests; defaults to core.Today.
	now func() core.Date
}

func NewService(store Store) *Service {
	return &Service{store: store, now: core.Today}
}

// WithClock overrides the service's notion of "today". Tests only.
func (s *Service) WithClock(now func() core.Date) *Service {
	s.now = now
	return s
}

// Create validates and persists a new entry. Missing status defaults to
// planned; a missing id is generated.
func (s *Service) Create(ctx context.Context, e Entry) (*Entry, error) {
	if e.ID == "" {
		e.ID = core.EntryID(uuid.NewString())
	}
	if e.Status == "" {
		e.Status = StatusPlanned
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("create schedule entry: %w", err)
	}
	return &e, nil
}

// Get returns an entry by id.
func (s *Service) Get(ctx context.Context, id core.EntryID) (*Entry, error) {
	return s.store.GetEntry(ctx, id)
}

// Update applies a patch to an entry. Fails with LockedError when a linked
// time record exists and the entry is dated today or earlier.
func (s *Service) Update(ctx context.Context, id core.EntryID, patch Patch) (*Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkLock(ctx, e); err != nil {
		return nil, err
	}

	if patch.WorkerID != nil {
		e.WorkerID = *patch.WorkerID
	}
	if patch.ProjectID != nil {
		e.ProjectID = *patch.ProjectID
	}
	if patch.TradeID != nil {
		e.TradeID = *patch.TradeID
	}
	if patch.CostCodeID != nil {
		e.CostCodeID = *patch.CostCodeID
	}
	if patch.ScheduledHours != nil {
		e.ScheduledHours = *patch.ScheduledHours
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
	if patch.Status != nil {
		e.Status = *patch.Status
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateEntry(ctx, *e); err != nil {
		return nil, fmt.Errorf("update schedule entry: %w", err)
	}
	return e, nil
}

// Delete removes an entry. A linked time record is removed in the same
// unit of work - deleting the plan without severing the link would orphan
// a payable record.
func (s *Service) Delete(ctx context.Context, id core.EntryID) error {
	if _, err := s.store.GetEntry(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteEntry(ctx, id)
}

// ListForDay returns entries for a date, optionally filtered by
// worker/project/company. Grouping by worker is the caller's concern.
func (s *Service) ListForDay(ctx context.Context, day core.Date, f Filter) ([]Entry, error) {
	return s.store.ListForDay(ctx, day, f)
}

// ListForRange returns entries in an inclusive date range (week/month views).
func (s *Service) ListForRange(ctx context.Context, r core.DateRange, f Filter) ([]Entry, error) {
	if !r.Valid() {
		return nil, core.NewValidationError("date_range", "end must not precede start")
	}
	return s.store.ListForRange(ctx, r, f)
}

// checkLock returns LockedError when the entry has a linked record and is
// dated today or earlier.
func (s *Service) checkLock(ctx context.Context, e *Entry) error {
	recordID, linked, err := s.store.LinkedRecord(ctx, e.ID)
	if err != nil {
		return err
	}
	if linked && e.Date.BeforeOrEqual(s.now()) {
		return &core.LockedError{EntryID: e.ID, RecordID: recordID, Date: e.Date}
	}
	return nil
}
