/*
convert.go - Schedule entry to time record conversion

PURPOSE:
  The one-way door between planning and fact. Converting N schedule
  entries produces N time records and removes the originals; there is no
  un-convert. Reverting means deleting the record and hand-recreating the
  plan.

RATE BAKING:
  This is the single moment a worker's current hourly rate touches money:
    labor_cost = scheduled_hours x worker.HourlyRate (now)
  The product is stored on the record and never recomputed. Rate changes
  after this instant affect only future conversions.

ATOMICITY:
  Record-created-but-entry-survives would leave two representations of
  the same labor, and the surviving entry could be converted again - a
  double payment. The create+delete pairs for the whole batch go through
  Store.CreateFromSchedule as one unit of work: all entries validated
  first, then everything lands or nothing does.

SEE ALSO:
  - record.go: CreateFromSchedule contract
  - schedule: The package whose rows this consumes
*/
package timelog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/directory"
	"github.com/crewbase/labor-engine/schedule"
)

// =============================================================================
// CONVERTER
// =============================================================================

// Converter turns schedule entries into costed, unpaid time records.
type Converter struct {
	records Store
	entries schedule.Store
	workers directory.Store
}

func NewConverter(records Store, entries schedule.Store, workers directory.Store) *Converter {
	return &Converter{records: records, entries: entries, workers: workers}
}

// Convert materializes one time record per schedule entry and deletes the
// originals atomically. Entries must exist and be unconverted; they need
// not share a worker or project.
func (c *Converter) Convert(ctx context.Context, entryIDs []core.EntryID, createdBy string) ([]Record, error) {
	if len(entryIDs) == 0 {
		return nil, core.NewValidationError("entry_ids", "must not be empty")
	}

	seen := make(map[core.EntryID]bool, len(entryIDs))
	records := make([]Record, 0, len(entryIDs))

	// Validate and cost everything before the first write.
	for _, id := range entryIDs {
		if seen[id] {
			return nil, core.NewValidationError("entry_ids", fmt.Sprintf("duplicate entry %s", id))
		}
		seen[id] = true

		entry, err := c.entries.GetEntry(ctx, id)
		if err != nil {
			return nil, err
		}

		// An entry with a record already against it is mid-conversion or
		// was logged early; converting it again would double the labor.
		if existing, err := c.records.GetBySourceEntry(ctx, id); err == nil && existing != nil {
			return nil, core.NewValidationError("entry_ids", fmt.Sprintf("entry %s already converted", id))
		} else if err != nil && !core.IsNotFound(err) {
			return nil, err
		}

		worker, err := c.workers.GetWorker(ctx, entry.WorkerID)
		if err != nil {
			return nil, err
		}

		records = append(records, Record{
			ID:            core.RecordID(uuid.NewString()),
			WorkerID:      entry.WorkerID,
			ProjectID:     entry.ProjectID,
			TradeID:       entry.TradeID,
			Date:          entry.Date,
			HoursWorked:   entry.ScheduledHours,
			LaborCost:     core.Cost(entry.ScheduledHours, worker.HourlyRate),
			Notes:         entry.Notes,
			PaymentStatus: core.PaymentUnpaid,
			SourceEntryID: entry.ID,
			CreatedBy:     createdBy,
		})
	}

	if err := c.records.CreateFromSchedule(ctx, records); err != nil {
		return nil, fmt.Errorf("convert schedule entries: %w", err)
	}
	return records, nil
}
