package timelog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/directory"
	"github.com/crewbase/labor-engine/payroll"
	"github.com/crewbase/labor-engine/store"
	"github.com/crewbase/labor-engine/timelog"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var workDay = core.NewDate(2026, time.March, 10)

func newTestService(t *testing.T) (*timelog.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return timelog.NewService(mem, mem), mem
}

func seedWorker(t *testing.T, mem *store.Memory, id, rate string) {
	t.Helper()
	err := mem.SaveWorker(context.Background(), directory.Worker{
		ID:         core.WorkerID(id),
		CompanyID:  "co1",
		Name:       "Worker " + id,
		HourlyRate: core.MustParseDecimal(rate),
	})
	require.NoError(t, err)
}

// markPaid settles the record through a throwaway pay run, the only path
// that flips payment status.
func markPaid(t *testing.T, mem *store.Memory, id core.RecordID) {
	t.Helper()
	ctx := context.Background()

	rec, err := mem.GetRecord(ctx, id)
	require.NoError(t, err)

	batch := payroll.Batch{
		ID:             core.PayRunID("settle-" + string(id)),
		DateRangeStart: rec.Date,
		DateRangeEnd:   rec.Date,
		Status:         payroll.BatchDraft,
		TotalAmount:    rec.LaborCost,
	}
	item := payroll.Item{
		ID:       core.PayRunItemID("item-" + string(id)),
		PayRunID: batch.ID,
		RecordID: id,
		WorkerID: rec.WorkerID,
		Hours:    rec.HoursWorked,
		Rate:     core.EffectiveRate(rec.LaborCost, rec.HoursWorked),
		Amount:   rec.LaborCost,
	}
	require.NoError(t, mem.CreateBatch(ctx, batch, []payroll.Item{item}))
	require.NoError(t, mem.SettleBatch(ctx, batch.ID, rec.Date))
}

// =============================================================================
// MANUAL ENTRY TESTS
// =============================================================================

func TestService_Create_BakesCostFromCurrentRate(t *testing.T) {
	// GIVEN: A worker earning $20/hour
	// WHEN: Hand-entering 8 hours
	// THEN: Labor cost is 160, status unpaid, no schedule origin

	svc, mem := newTestService(t)
	ctx := context.Background()
	seedWorker(t, mem, "w1", "20")

	created, err := svc.Create(ctx, timelog.Record{
		WorkerID:    "w1",
		ProjectID:   "p1",
		Date:        workDay,
		HoursWorked: core.MustParseDecimal("8"),
	})
	require.NoError(t, err)

	assert.True(t, created.LaborCost.Equal(core.MustParseDecimal("160")), "got %s", created.LaborCost)
	assert.Equal(t, core.PaymentUnpaid, created.PaymentStatus)
	assert.Nil(t, created.PaymentDate)
	assert.Empty(t, created.SourceEntryID)
}

func TestService_Create_IgnoresClientPaymentFields(t *testing.T) {
	// A client cannot smuggle a record in as already paid.

	svc, mem := newTestService(t)
	ctx := context.Background()
	seedWorker(t, mem, "w1", "20")

	paid := workDay
	created, err := svc.Create(ctx, timelog.Record{
		WorkerID:      "w1",
		ProjectID:     "p1",
		Date:          workDay,
		HoursWorked:   core.MustParseDecimal("8"),
		PaymentStatus: core.PaymentPaid,
		PaymentDate:   &paid,
		SourceEntryID: "forged",
	})
	require.NoError(t, err)

	assert.Equal(t, core.PaymentUnpaid, created.PaymentStatus)
	assert.Nil(t, created.PaymentDate)
	assert.Empty(t, created.SourceEntryID)
}

func TestService_Create_UnknownWorker_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), timelog.Record{
		WorkerID:    "ghost",
		ProjectID:   "p1",
		Date:        workDay,
		HoursWorked: core.MustParseDecimal("8"),
	})

	assert.ErrorIs(t, err, core.ErrNotFound)
}

// =============================================================================
// COST FREEZING TESTS
// =============================================================================

func TestService_Update_RecostsFromRecordsOwnRate(t *testing.T) {
	// GIVEN: A record costed at $20/hour, then the worker's rate raised to $30
	// WHEN: Changing the record's hours from 8 to 6
	// THEN: New cost is 6 x 20 = 120. The rate change never leaks in.

	svc, mem := newTestService(t)
	ctx := context.Background()
	seedWorker(t, mem, "w1", "20")

	created, err := svc.Create(ctx, timelog.Record{
		WorkerID:    "w1",
		ProjectID:   "p1",
		Date:        workDay,
		HoursWorked: core.MustParseDecimal("8"),
	})
	require.NoError(t, err)

	seedWorker(t, mem, "w1", "30") // rate change after the fact

	hours := core.MustParseDecimal("6")
	updated, err := svc.Update(ctx, created.ID, timelog.Patch{HoursWorked: &hours})
	require.NoError(t, err)

	assert.True(t, updated.LaborCost.Equal(core.MustParseDecimal("120")), "got %s", updated.LaborCost)
}

func TestService_Update_NoHoursChange_CostUntouched(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedWorker(t, mem, "w1", "20")

	created, err := svc.Create(ctx, timelog.Record{
		WorkerID:    "w1",
		ProjectID:   "p1",
		Date:        workDay,
		HoursWorked: core.MustParseDecimal("8"),
	})
	require.NoError(t, err)

	notes := "moved to night shift"
	updated, err := svc.Update(ctx, created.ID, timelog.Patch{Notes: &notes})
	require.NoError(t, err)

	assert.True(t, updated.LaborCost.Equal(created.LaborCost))
	assert.Equal(t, notes, updated.Notes)
}

func TestService_Update_PaidRecord_Refused(t *testing.T) {
	// GIVEN: A record that went through settlement
	// WHEN: Updating it
	// THEN: ErrAlreadySettled - paid history is immutable

	svc, mem := newTestService(t)
	ctx := context.Background()
	seedWorker(t, mem, "w1", "20")

	created, err := svc.Create(ctx, timelog.Record{
		WorkerID:    "w1",
		ProjectID:   "p1",
		Date:        workDay,
		HoursWorked: core.MustParseDecimal("8"),
	})
	require.NoError(t, err)

	markPaid(t, mem, created.ID)

	hours := core.MustParseDecimal("6")
	_, err = svc.Update(ctx, created.ID, timelog.Patch{HoursWorked: &hours})

	assert.ErrorIs(t, err, core.ErrAlreadySettled)
}

// =============================================================================
// LIST AND SUMMARY TESTS
// =============================================================================

func TestService_ListUnpaid_ExcludesPaid(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedWorker(t, mem, "w1", "20")

	r1, err := svc.Create(ctx, timelog.Record{
		WorkerID: "w1", ProjectID: "p1", Date: workDay,
		HoursWorked: core.MustParseDecimal("8"),
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, timelog.Record{
		WorkerID: "w1", ProjectID: "p1", Date: workDay.AddDays(1),
		HoursWorked: core.MustParseDecimal("4"),
	})
	require.NoError(t, err)

	markPaid(t, mem, r1.ID)

	rng := core.DateRange{Start: workDay, End: workDay.AddDays(7)}
	unpaid, err := svc.ListUnpaid(ctx, rng, timelog.Filter{})
	require.NoError(t, err)

	require.Len(t, unpaid, 1)
	assert.True(t, unpaid[0].HoursWorked.Equal(core.MustParseDecimal("4")))
}

func TestService_UnpaidSummary_TotalsPerWorker(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedWorker(t, mem, "w1", "20")
	seedWorker(t, mem, "w2", "25")

	for _, rec := range []timelog.Record{
		{WorkerID: "w1", ProjectID: "p1", Date: workDay, HoursWorked: core.MustParseDecimal("8")},
		{WorkerID: "w1", ProjectID: "p2", Date: workDay.AddDays(1), HoursWorked: core.MustParseDecimal("4")},
		{WorkerID: "w2", ProjectID: "p1", Date: workDay, HoursWorked: core.MustParseDecimal("6")},
	} {
		_, err := svc.Create(ctx, rec)
		require.NoError(t, err)
	}

	rng := core.DateRange{Start: workDay, End: workDay.AddDays(7)}
	summary, err := svc.UnpaidSummary(ctx, rng, timelog.Filter{})
	require.NoError(t, err)
	require.Len(t, summary, 2)

	totals := make(map[core.WorkerID]timelog.WorkerUnpaid)
	for _, s := range summary {
		totals[s.WorkerID] = s
	}
	assert.True(t, totals["w1"].TotalHours.Equal(core.MustParseDecimal("12")))
	assert.True(t, totals["w1"].TotalCost.Equal(core.MustParseDecimal("240")))
	assert.True(t, totals["w2"].TotalCost.Equal(core.MustParseDecimal("150")))
}

func TestService_List_RejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background(), core.DateRange{
		Start: workDay,
		End:   workDay.AddDays(-1),
	}, timelog.Filter{})

	assert.ErrorIs(t, err, core.ErrValidation)
}
