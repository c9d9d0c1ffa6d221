package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/payroll"
	"github.com/crewbase/labor-engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var payDay = core.NewDate(2026, time.March, 20)

func builtBatch(t *testing.T, mem *store.Memory, recordIDs ...string) *payroll.Batch {
	t.Helper()
	ctx := context.Background()

	b := payroll.NewBuilder(mem, mem)
	require.NoError(t, b.SetDateRange(week, "gc", "sub"))
	_, err := b.LoadCandidates(ctx)
	require.NoError(t, err)
	for _, id := range recordIDs {
		require.NoError(t, b.Select(core.RecordID(id)))
	}
	batch, _, err := b.Build(ctx)
	require.NoError(t, err)
	return batch
}

func newTestSettlement(mem *store.Memory) *payroll.Settlement {
	return payroll.NewSettlement(mem).WithClock(func() core.Date { return payDay })
}

// =============================================================================
// SETTLEMENT TESTS
// =============================================================================

func TestSettlement_MarkPaid_StampsBatchAndRecords(t *testing.T) {
	// GIVEN: A draft batch covering two records
	// WHEN: Settling it
	// THEN: Batch and both records are paid with the same payment date

	mem := newTestMemory(t)
	ctx := context.Background()
	seedUnpaidRecord(t, mem, "r1", "w1", weekStart, "8", "160")
	seedUnpaidRecord(t, mem, "r2", "w2", weekStart, "4", "100")
	batch := builtBatch(t, mem, "r1", "r2")

	settled, err := newTestSettlement(mem).MarkPaid(ctx, batch.ID)
	require.NoError(t, err)

	assert.Equal(t, payroll.BatchPaid, settled.Status)
	require.NotNil(t, settled.PaymentDate)
	assert.True(t, settled.PaymentDate.Equal(payDay))

	for _, id := range []core.RecordID{"r1", "r2"} {
		rec, err := mem.GetRecord(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.PaymentPaid, rec.PaymentStatus, "record %s", id)
		require.NotNil(t, rec.PaymentDate)
		assert.True(t, rec.PaymentDate.Equal(payDay))
	}
}

func TestSettlement_MarkPaid_Twice_Rejected(t *testing.T) {
	// GIVEN: A settled batch
	// WHEN: Settling again
	// THEN: AlreadySettled; the payment date is not re-stamped

	mem := newTestMemory(t)
	ctx := context.Background()
	seedUnpaidRecord(t, mem, "r1", "w1", weekStart, "8", "160")
	batch := builtBatch(t, mem, "r1")

	settlement := newTestSettlement(mem)
	_, err := settlement.MarkPaid(ctx, batch.ID)
	require.NoError(t, err)

	later := payroll.NewSettlement(mem).WithClock(func() core.Date { return payDay.AddDays(7) })
	_, err = later.MarkPaid(ctx, batch.ID)
	assert.ErrorIs(t, err, core.ErrAlreadySettled)

	got, err := mem.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.True(t, got.PaymentDate.Equal(payDay), "first payment date must stand")
}

func TestSettlement_MarkPaid_MissingBatch_NotFound(t *testing.T) {
	mem := newTestMemory(t)

	_, err := newTestSettlement(mem).MarkPaid(context.Background(), "ghost")

	assert.ErrorIs(t, err, core.ErrNotFound)
}

// =============================================================================
// DELETION TESTS
// =============================================================================

func TestSettlement_Delete_Draft_RecordsStayUnpaid(t *testing.T) {
	// GIVEN: A draft batch
	// WHEN: Deleting it
	// THEN: The batch and items are gone; the record is unpaid and unclaimed

	mem := newTestMemory(t)
	ctx := context.Background()
	seedUnpaidRecord(t, mem, "r1", "w1", weekStart, "8", "160")
	batch := builtBatch(t, mem, "r1")

	require.NoError(t, newTestSettlement(mem).Delete(ctx, batch.ID))

	_, err := mem.GetBatch(ctx, batch.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	rec, err := mem.GetRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, core.PaymentUnpaid, rec.PaymentStatus)

	_, claimed, err := mem.ClaimedBy(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestSettlement_Delete_Paid_Rejected(t *testing.T) {
	// Settled batches are the payment audit trail. They do not go away.

	mem := newTestMemory(t)
	ctx := context.Background()
	seedUnpaidRecord(t, mem, "r1", "w1", weekStart, "8", "160")
	batch := builtBatch(t, mem, "r1")

	settlement := newTestSettlement(mem)
	_, err := settlement.MarkPaid(ctx, batch.ID)
	require.NoError(t, err)

	err = settlement.Delete(ctx, batch.ID)

	assert.ErrorIs(t, err, core.ErrAlreadySettled)
}
