/*
builder.go - Pay run builder state machine

PURPOSE:
  Builds a draft batch in three explicit states:

    Collecting --> Selecting --> Built
       (range set)    (candidates     (batch + items
                       fetched,        persisted,
                       subset chosen)  status draft)

  Collecting -> Selecting requires both dates set with end >= start.
  Selecting -> Built requires at least one record selected. The batch
  total is the sum of selected records' labor cost, frozen at build time.

CLAIMING:
  Two operators building over overlapping ranges can both see the same
  unpaid record. The claim is resolved at build time: CreateBatch's
  uniqueness guarantee admits each record into at most one live batch,
  and the loser fails with AlreadyClaimed rather than silently creating
  a second payable line.

SEE ALSO:
  - batch.go: Store contract and models
  - timelog: ListUnpaid, the candidate source
*/
package payroll

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/timelog"
)

// =============================================================================
// BUILDER STATES
// =============================================================================

type builderState int

const (
	stateCollecting builderState = iota
	stateSelecting
	stateBuilt
)

func (s builderState) String() string {
	switch s {
	case stateCollecting:
		return "collecting"
	case stateSelecting:
		return "selecting"
	case stateBuilt:
		return "built"
	default:
		return "unknown"
	}
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder assembles one draft pay run. A Builder is single-use: after a
// successful Build it refuses further mutation.
type Builder struct {
	batches Store
	records timelog.Store

	state      builderState
	rng        core.DateRange
	payer      core.CompanyID
	payee      core.CompanyID
	filter     timelog.Filter
	candidates []timelog.Record
	selected   map[core.RecordID]bool
}

func NewBuilder(batches Store, records timelog.Store) *Builder {
	return &Builder{
		batches:  batches,
		records:  records,
		state:    stateCollecting,
		selected: make(map[core.RecordID]bool),
	}
}

// State reports the builder's current phase: collecting, selecting, built.
func (b *Builder) State() string { return b.state.String() }

// SetDateRange fixes the collection window and optional payer/payee
// companies. Legal only while collecting.
func (b *Builder) SetDateRange(rng core.DateRange, payer, payee core.CompanyID) error {
	if b.state != stateCollecting {
		return core.NewValidationError("state", fmt.Sprintf("cannot set range while %s", b.state))
	}
	if rng.Start.IsZero() || rng.End.IsZero() {
		return core.NewValidationError("date_range", "both dates are required")
	}
	if rng.End.Before(rng.Start) {
		return core.NewValidationError("date_range", "end must not precede start")
	}
	b.rng = rng
	b.payer = payer
	b.payee = payee
	return nil
}

// SetFilter narrows candidates by worker or project. Optional.
func (b *Builder) SetFilter(f timelog.Filter) error {
	if b.state != stateCollecting {
		return core.NewValidationError("state", fmt.Sprintf("cannot set filter while %s", b.state))
	}
	b.filter = f
	return nil
}

// LoadCandidates fetches the unpaid records in range and moves the
// builder to selecting. Requires the range to be set first.
func (b *Builder) LoadCandidates(ctx context.Context) ([]timelog.Record, error) {
	if b.state != stateCollecting {
		return nil, core.NewValidationError("state", fmt.Sprintf("cannot load candidates while %s", b.state))
	}
	if !b.rng.Valid() {
		return nil, core.NewValidationError("date_range", "must be set before loading candidates")
	}

	f := b.filter
	if b.payee != "" && f.CompanyID == "" {
		f.CompanyID = b.payee
	}

	candidates, err := b.records.ListUnpaid(ctx, b.rng, f)
	if err != nil {
		return nil, err
	}
	b.candidates = candidates
	b.state = stateSelecting
	return candidates, nil
}

// Select marks a candidate for inclusion.
func (b *Builder) Select(id core.RecordID) error {
	if b.state != stateSelecting {
		return core.NewValidationError("state", fmt.Sprintf("cannot select while %s", b.state))
	}
	for _, c := range b.candidates {
		if c.ID == id {
			b.selected[id] = true
			return nil
		}
	}
	return &core.NotFoundError{Kind: "candidate time record", ID: string(id)}
}

// SelectAll marks every candidate.
func (b *Builder) SelectAll() error {
	if b.state != stateSelecting {
		return core.NewValidationError("state", fmt.Sprintf("cannot select while %s", b.state))
	}
	for _, c := range b.candidates {
		b.selected[c.ID] = true
	}
	return nil
}

// Deselect unmarks a candidate.
func (b *Builder) Deselect(id core.RecordID) error {
	if b.state != stateSelecting {
		return core.NewValidationError("state", fmt.Sprintf("cannot deselect while %s", b.state))
	}
	delete(b.selected, id)
	return nil
}

// Build persists the draft batch with one item per selected record. The
// total is frozen now; later item changes do not move it. Fails with
// AlreadyClaimed when a concurrent builder got to a record first.
func (b *Builder) Build(ctx context.Context) (*Batch, []Item, error) {
	if b.state != stateSelecting {
		return nil, nil, core.NewValidationError("state", fmt.Sprintf("cannot build while %s", b.state))
	}
	if len(b.selected) == 0 {
		return nil, nil, core.NewValidationError("selection", "at least one time record is required")
	}

	batch := Batch{
		ID:             core.PayRunID(uuid.NewString()),
		DateRangeStart: b.rng.Start,
		DateRangeEnd:   b.rng.End,
		PayerCompanyID: b.payer,
		PayeeCompanyID: b.payee,
		Status:         BatchDraft,
	}

	total := decimal.Zero
	var items []Item
	// Candidate order is preserved so line items mirror the selection UI.
	for _, c := range b.candidates {
		if !b.selected[c.ID] {
			continue
		}
		items = append(items, Item{
			ID:       core.PayRunItemID(uuid.NewString()),
			PayRunID: batch.ID,
			RecordID: c.ID,
			WorkerID: c.WorkerID,
			Hours:    c.HoursWorked,
			Rate:     core.EffectiveRate(c.LaborCost, c.HoursWorked),
			Amount:   c.LaborCost,
		})
		total = total.Add(c.LaborCost)
	}
	batch.TotalAmount = total

	if err := b.batches.CreateBatch(ctx, batch, items); err != nil {
		return nil, nil, err
	}
	b.state = stateBuilt
	return &batch, items, nil
}
