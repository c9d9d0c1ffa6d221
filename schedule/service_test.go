package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/schedule"
	"github.com/crewbase/labor-engine/store"
	"github.com/crewbase/labor-engine/timelog"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// The tests pin "today" to March 15 so the lock rule is deterministic.
var today = core.NewDate(2026, time.March, 15)

func newTestService(t *testing.T) (*schedule.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := schedule.NewService(mem).WithClock(func() core.Date { return today })
	return svc, mem
}

func plannedEntry(id, worker, project string, day core.Date, hours string) schedule.Entry {
	return schedule.Entry{
		ID:             core.EntryID(id),
		WorkerID:       core.WorkerID(worker),
		ProjectID:      core.ProjectID(project),
		Date:           day,
		ScheduledHours: core.MustParseDecimal(hours),
		Status:         schedule.StatusPlanned,
	}
}

// linkRecord plants a time record pointing back at the entry, which is what
// arms the lock rule.
func linkRecord(t *testing.T, mem *store.Memory, e schedule.Entry) {
	t.Helper()
	err := mem.CreateRecord(context.Background(), timelog.Record{
		ID:            core.RecordID("rec-" + string(e.ID)),
		WorkerID:      e.WorkerID,
		ProjectID:     e.ProjectID,
		Date:          e.Date,
		HoursWorked:   e.ScheduledHours,
		LaborCost:     core.MustParseDecimal("100"),
		PaymentStatus: core.PaymentUnpaid,
		SourceEntryID: e.ID,
	})
	require.NoError(t, err)
}

// =============================================================================
// CRUD TESTS
// =============================================================================

func TestService_Create_DefaultsAndGeneration(t *testing.T) {
	// GIVEN: An entry with no id and no status
	// WHEN: Creating it
	// THEN: An id is generated and status defaults to planned

	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, schedule.Entry{
		WorkerID:       "w1",
		ProjectID:      "p1",
		Date:           today.AddDays(1),
		ScheduledHours: core.MustParseDecimal("8"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, schedule.StatusPlanned, created.Status)
}

func TestService_Create_RejectsNonPositiveHours(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, schedule.Entry{
		WorkerID:       "w1",
		ProjectID:      "p1",
		Date:           today,
		ScheduledHours: core.MustParseDecimal("0"),
	})

	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestService_Update_UnlinkedEntry_Succeeds(t *testing.T) {
	// GIVEN: A past entry with no linked record
	// WHEN: Updating its hours
	// THEN: The update lands; the lock rule needs a record, not just age

	svc, mem := newTestService(t)
	ctx := context.Background()

	e := plannedEntry("e1", "w1", "p1", today.AddDays(-3), "8")
	require.NoError(t, mem.CreateEntry(ctx, e))

	hours := core.MustParseDecimal("6")
	updated, err := svc.Update(ctx, e.ID, schedule.Patch{ScheduledHours: &hours})
	require.NoError(t, err)

	assert.True(t, updated.ScheduledHours.Equal(hours))
}

// =============================================================================
// LOCK RULE TESTS
// =============================================================================

func TestService_Update_PastLinkedEntry_Locked(t *testing.T) {
	// GIVEN: A past entry that has been converted to a time record
	// WHEN: Updating it
	// THEN: LockedError carrying the record id, so the UI can redirect

	svc, mem := newTestService(t)
	ctx := context.Background()

	e := plannedEntry("e1", "w1", "p1", today.AddDays(-1), "8")
	require.NoError(t, mem.CreateEntry(ctx, e))
	linkRecord(t, mem, e)

	hours := core.MustParseDecimal("6")
	_, err := svc.Update(ctx, e.ID, schedule.Patch{ScheduledHours: &hours})

	require.Error(t, err)
	var lockErr *core.LockedError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, e.ID, lockErr.EntryID)
	assert.Equal(t, core.RecordID("rec-e1"), lockErr.RecordID)
	assert.ErrorIs(t, err, core.ErrLocked)
}

func TestService_Update_TodayLinkedEntry_Locked(t *testing.T) {
	// Today counts as past: the day has started, the hours may be real.

	svc, mem := newTestService(t)
	ctx := context.Background()

	e := plannedEntry("e1", "w1", "p1", today, "8")
	require.NoError(t, mem.CreateEntry(ctx, e))
	linkRecord(t, mem, e)

	hours := core.MustParseDecimal("6")
	_, err := svc.Update(ctx, e.ID, schedule.Patch{ScheduledHours: &hours})

	assert.ErrorIs(t, err, core.ErrLocked)
}

func TestService_Update_FutureLinkedEntry_Editable(t *testing.T) {
	// GIVEN: A future entry that already has a record logged against it
	// WHEN: Updating it
	// THEN: Allowed - the plan can still change before the day arrives

	svc, mem := newTestService(t)
	ctx := context.Background()

	e := plannedEntry("e1", "w1", "p1", today.AddDays(2), "8")
	require.NoError(t, mem.CreateEntry(ctx, e))
	linkRecord(t, mem, e)

	hours := core.MustParseDecimal("6")
	updated, err := svc.Update(ctx, e.ID, schedule.Patch{ScheduledHours: &hours})

	require.NoError(t, err)
	assert.True(t, updated.ScheduledHours.Equal(hours))
}

// =============================================================================
// DELETE AND LIST TESTS
// =============================================================================

func TestService_Delete_CascadesLinkedRecord(t *testing.T) {
	// GIVEN: An entry already converted to a record
	// WHEN: Deleting the entry
	// THEN: The record goes with it; no orphaned payable line remains

	svc, mem := newTestService(t)
	ctx := context.Background()

	e := plannedEntry("e1", "w1", "p1", today.AddDays(-1), "8")
	require.NoError(t, mem.CreateEntry(ctx, e))
	linkRecord(t, mem, e)

	require.NoError(t, svc.Delete(ctx, e.ID))

	_, err := mem.GetRecord(ctx, "rec-e1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_Delete_MissingEntry_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Delete(context.Background(), "nope")

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_ListForRange_RejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListForRange(context.Background(), core.DateRange{
		Start: today,
		End:   today.AddDays(-1),
	}, schedule.Filter{})

	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestService_ListForDay_FiltersByWorker(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	require.NoError(t, mem.CreateEntry(ctx, plannedEntry("e1", "w1", "p1", today, "8")))
	require.NoError(t, mem.CreateEntry(ctx, plannedEntry("e2", "w2", "p1", today, "8")))

	entries, err := svc.ListForDay(ctx, today, schedule.Filter{WorkerID: "w1"})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, core.EntryID("e1"), entries[0].ID)
}
