/*
handlers_test.go - API tests for the full scheduling-to-settlement flow

Tests for:
- The end-to-end pipeline: schedule -> convert -> pay run -> settle
- HTTP status mapping for conflicts and validation failures
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewbase/labor-engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mem := store.NewMemory()
	h := NewHandler(Stores{
		Directory: mem,
		Schedule:  mem,
		Timelog:   mem,
		Payroll:   mem,
	})
	return NewRouter(h)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

// =============================================================================
// END-TO-END PIPELINE
// =============================================================================

func TestPipeline_ScheduleToSettlement(t *testing.T) {
	// The whole story: a subcontractor's worker is scheduled for 8 hours at
	// $20/hour, the day is worked and converted, the GC builds a $160 pay
	// run and settles it. Settling again must fail.

	router := newTestRouter(t)

	// Directory
	rec := do(t, router, "POST", "/api/companies", SaveCompanyRequest{ID: "gc", Name: "General Contractor"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, "POST", "/api/companies", SaveCompanyRequest{ID: "sub", Name: "Subcontractor"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, "POST", "/api/workers", SaveWorkerRequest{
		ID: "w1", CompanyID: "sub", Name: "Alice", HourlyRate: "20",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, "POST", "/api/projects", SaveProjectRequest{
		ID: "p1", CompanyID: "gc", Name: "Site A",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Schedule 8 hours
	rec = do(t, router, "POST", "/api/schedule", CreateEntryRequest{
		WorkerID: "w1", ProjectID: "p1", Date: "2026-03-10", ScheduledHours: "8",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	entry := decode[EntryDTO](t, rec)
	assert.Equal(t, "planned", entry.Status)

	// Convert to a time record
	rec = do(t, router, "POST", "/api/timelogs/convert", ConvertRequest{
		EntryIDs: []string{entry.ID}, CreatedBy: "foreman",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	records := decode[[]RecordDTO](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "160", records[0].LaborCost)
	assert.Equal(t, "unpaid", records[0].PaymentStatus)

	// The entry is consumed
	rec = do(t, router, "GET", "/api/schedule/"+entry.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unpaid summary shows 8 hours / $160 for the worker
	rec = do(t, router, "GET", "/api/timelogs/unpaid/summary?start=2026-03-09&end=2026-03-13", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[[]WorkerUnpaidDTO](t, rec)
	require.Len(t, summary, 1)
	assert.Equal(t, "w1", summary[0].WorkerID)
	assert.Equal(t, "8", summary[0].TotalHours)
	assert.Equal(t, "160", summary[0].TotalCost)

	// Build the pay run
	rec = do(t, router, "POST", "/api/payruns", BuildBatchRequest{
		DateRangeStart: "2026-03-09",
		DateRangeEnd:   "2026-03-13",
		PayerCompanyID: "gc",
		PayeeCompanyID: "sub",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	detail := decode[BatchDetailDTO](t, rec)
	assert.Equal(t, "draft", detail.Batch.Status)
	assert.Equal(t, "160", detail.Batch.TotalAmount)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "20", detail.Items[0].Rate)

	// The detail view joins the records back in
	rec = do(t, router, "GET", "/api/payruns/"+detail.Batch.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	full := decode[BatchDetailDTO](t, rec)
	require.Len(t, full.Records, 1)
	assert.Equal(t, records[0].ID, full.Records[0].ID)

	// Settle it
	rec = do(t, router, "POST", fmt.Sprintf("/api/payruns/%s/settle", detail.Batch.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settled := decode[BatchDTO](t, rec)
	assert.Equal(t, "paid", settled.Status)
	assert.NotNil(t, settled.PaymentDate)

	// The record is now paid
	rec = do(t, router, "GET", "/api/timelogs/"+records[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	paid := decode[RecordDTO](t, rec)
	assert.Equal(t, "paid", paid.PaymentStatus)

	// Settling twice is a conflict, not a repeat
	rec = do(t, router, "POST", fmt.Sprintf("/api/payruns/%s/settle", detail.Batch.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// And the paid run cannot be deleted
	rec = do(t, router, "DELETE", "/api/payruns/"+detail.Batch.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Nothing unpaid remains in the range
	rec = do(t, router, "GET", "/api/timelogs/unpaid?start=2026-03-09&end=2026-03-13", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unpaid := decode[[]RecordDTO](t, rec)
	assert.Empty(t, unpaid)
}

// =============================================================================
// STATUS MAPPING TESTS
// =============================================================================

func TestSplitEndpoint_Mismatch_BadRequest(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, "POST", "/api/companies", SaveCompanyRequest{ID: "sub", Name: "Sub"})
	do(t, router, "POST", "/api/workers", SaveWorkerRequest{ID: "w1", CompanyID: "sub", Name: "Alice", HourlyRate: "20"})
	rec := do(t, router, "POST", "/api/schedule", CreateEntryRequest{
		WorkerID: "w1", ProjectID: "p1", Date: "2099-03-10", ScheduledHours: "8",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// 3 + 4 != 8
	rec = do(t, router, "POST", "/api/schedule/split", SplitRequest{
		WorkerID: "w1",
		Date:     "2099-03-10",
		Allocations: []AllocationRequest{
			{ProjectID: "p1", Hours: "3"},
			{ProjectID: "p2", Hours: "4"},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.NotEmpty(t, resp.Details)
}

func TestSplitEndpoint_Success(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, "POST", "/api/companies", SaveCompanyRequest{ID: "sub", Name: "Sub"})
	do(t, router, "POST", "/api/workers", SaveWorkerRequest{ID: "w1", CompanyID: "sub", Name: "Alice", HourlyRate: "20"})
	rec := do(t, router, "POST", "/api/schedule", CreateEntryRequest{
		WorkerID: "w1", ProjectID: "p1", Date: "2099-03-10", ScheduledHours: "8",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, "POST", "/api/schedule/split", SplitRequest{
		WorkerID: "w1",
		Date:     "2099-03-10",
		Allocations: []AllocationRequest{
			{ProjectID: "p1", Hours: "2.5"},
			{ProjectID: "p2", Hours: "5.5"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]EntryDTO](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "2.5", entries[0].ScheduledHours)
	assert.Equal(t, "5.5", entries[1].ScheduledHours)
}

func TestConvertEndpoint_MissingEntry_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, "POST", "/api/timelogs/convert", ConvertRequest{EntryIDs: []string{"ghost"}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildEndpoint_NoEligibleRecords_BadRequest(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, "POST", "/api/payruns", BuildBatchRequest{
		DateRangeStart: "2026-03-09",
		DateRangeEnd:   "2026-03-13",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEntry_BadDate_BadRequest(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, "POST", "/api/schedule", CreateEntryRequest{
		WorkerID: "w1", ProjectID: "p1", Date: "10/03/2026", ScheduledHours: "8",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEntry_NoContent(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, "POST", "/api/companies", SaveCompanyRequest{ID: "sub", Name: "Sub"})
	do(t, router, "POST", "/api/workers", SaveWorkerRequest{ID: "w1", CompanyID: "sub", Name: "Alice", HourlyRate: "20"})
	rec := do(t, router, "POST", "/api/schedule", CreateEntryRequest{
		WorkerID: "w1", ProjectID: "p1", Date: "2099-03-10", ScheduledHours: "8",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	entry := decode[EntryDTO](t, rec)

	rec = do(t, router, "DELETE", "/api/schedule/"+entry.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, "GET", "/api/schedule/"+entry.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
