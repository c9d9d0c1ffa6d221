/*
service.go - Time record CRUD for manual entry and corrections

PURPOSE:
  The manual-entry path: hand-entered hours bypass conversion entirely
  and cost is baked from the worker's current rate here instead. Updates
  re-cost only when hours change, against the record's own effective rate
  (stored cost / stored hours), never against the worker's current rate -
  a later rate change must not leak into an existing record.

WHAT THIS SERVICE REFUSES:
  - Touching PaymentStatus or PaymentDate (settlement's monopoly)
  - Updating a paid record at all
  - Resurrecting a schedule entry on delete (accepted information loss)

SEE ALSO:
  - convert.go: The schedule-origin creation path
  - record.go: Model and store contract
*/
package timelog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/directory"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service owns the manual lifecycle of time records.
type Service struct {
	store   Store
	workers directory.Store
}

func NewService(store Store, workers directory.Store) *Service {
	return &Service{store: store, workers: workers}
}

// Create materializes a hand-entered record. The worker's current hourly
// rate is baked into LaborCost now; later rate changes leave it untouched.
func (s *Service) Create(ctx context.Context, r Record) (*Record, error) {
	if r.ID == "" {
		r.ID = core.RecordID(uuid.NewString())
	}
	r.PaymentStatus = core.PaymentUnpaid
	r.PaymentDate = nil
	r.SourceEntryID = "" // manual entries have no schedule origin

	worker, err := s.workers.GetWorker(ctx, r.WorkerID)
	if err != nil {
		return nil, err
	}
	r.LaborCost = core.Cost(r.HoursWorked, worker.HourlyRate)

	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateRecord(ctx, r); err != nil {
		return nil, fmt.Errorf("create time record: %w", err)
	}
	return &r, nil
}

// Get returns a record by id.
func (s *Service) Get(ctx context.Context, id core.RecordID) (*Record, error) {
	return s.store.GetRecord(ctx, id)
}

// Update applies a patch to an unpaid record. When hours change, cost is
// re-derived from the record's OWN effective rate so the original rate
// snapshot is preserved.
func (s *Service) Update(ctx context.Context, id core.RecordID, patch Patch) (*Record, error) {
	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.PaymentStatus == core.PaymentPaid {
		return nil, core.ErrAlreadySettled
	}

	if patch.HoursWorked != nil && !patch.HoursWorked.Equal(r.HoursWorked) {
		rate := core.EffectiveRate(r.LaborCost, r.HoursWorked)
		r.HoursWorked = *patch.HoursWorked
		r.LaborCost = core.Cost(r.HoursWorked, rate)
	}
	if patch.ProjectID != nil {
		r.ProjectID = *patch.ProjectID
	}
	if patch.TradeID != nil {
		r.TradeID = *patch.TradeID
	}
	if patch.Notes != nil {
		r.Notes = *patch.Notes
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRecord(ctx, *r); err != nil {
		return nil, fmt.Errorf("update time record: %w", err)
	}
	return r, nil
}

// Delete removes a record, cascading its pay run item if one exists. The
// record's schedule origin, if any, stays gone.
func (s *Service) Delete(ctx context.Context, id core.RecordID) error {
	if _, err := s.store.GetRecord(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteRecord(ctx, id)
}

// List returns records in an inclusive range.
func (s *Service) List(ctx context.Context, rng core.DateRange, f Filter) ([]Record, error) {
	if !rng.Valid() {
		return nil, core.NewValidationError("date_range", "end must not precede start")
	}
	return s.store.ListRecords(ctx, rng, f)
}

// ListUnpaid returns the unpaid records a pay run can draw from.
func (s *Service) ListUnpaid(ctx context.Context, rng core.DateRange, f Filter) ([]Record, error) {
	if !rng.Valid() {
		return nil, core.NewValidationError("date_range", "end must not precede start")
	}
	return s.store.ListUnpaid(ctx, rng, f)
}

// UnpaidSummary reports outstanding labor cost per worker in a range.
func (s *Service) UnpaidSummary(ctx context.Context, rng core.DateRange, f Filter) ([]WorkerUnpaid, error) {
	if !rng.Valid() {
		return nil, core.NewValidationError("date_range", "end must not precede start")
	}
	return s.store.UnpaidSummary(ctx, rng, f)
}
