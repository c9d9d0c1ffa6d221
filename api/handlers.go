/*
handlers.go - HTTP API handlers for the labor pipeline

PURPOSE:
  Exposes the scheduling-to-settlement pipeline via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  Directory:
    GET/POST       /api/companies, /api/workers, /api/projects
    GET/DELETE     /api/{collection}/{id}

  Schedule:
    GET    /api/schedule                List entries for a day or range
    POST   /api/schedule                Create entry
    GET    /api/schedule/{id}           Get entry
    PUT    /api/schedule/{id}           Update entry (locked once worked)
    DELETE /api/schedule/{id}           Delete entry (cascades to record)
    POST   /api/schedule/split          Split a worker's day across projects

  Time records:
    GET    /api/timelogs                List records for a range
    POST   /api/timelogs                Create manual record
    POST   /api/timelogs/convert        Convert schedule entries to records
    GET    /api/timelogs/unpaid         List unpaid records
    GET    /api/timelogs/unpaid/summary Per-worker unpaid totals
    GET/PUT/DELETE /api/timelogs/{id}

  Pay runs:
    GET    /api/payruns                 List pay runs
    POST   /api/payruns                 Build a pay run from unpaid records
    GET    /api/payruns/{id}            Pay run with items and records
    POST   /api/payruns/{id}/settle     Mark paid (paid runs stay paid)
    DELETE /api/payruns/{id}            Delete a draft pay run

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, allocation mismatches, invalid input
  - 404: Resource not found
  - 409: State conflicts (locked entry, settled run, claimed record)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/directory"
	"github.com/crewbase/labor-engine/payroll"
	"github.com/crewbase/labor-engine/schedule"
	"github.com/crewbase/labor-engine/timelog"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Directory directory.Store
	Schedule  *schedule.Service
	Splitter  *schedule.Splitter
	Records   *timelog.Service
	Converter *timelog.Converter
	Logs      timelog.Store
	Batches   payroll.Store
	Settle    *payroll.Settlement
}

// Stores bundles the storage interfaces a Handler is wired from. The
// SQLite store satisfies all of them at once; tests may mix and match.
type Stores struct {
	Directory directory.Store
	Schedule  schedule.Store
	Timelog   timelog.Store
	Payroll   payroll.Store
}

// NewHandler wires services on top of the given stores.
func NewHandler(s Stores) *Handler {
	return &Handler{
		Directory: s.Directory,
		Schedule:  schedule.NewService(s.Schedule),
		Splitter:  schedule.NewSplitter(s.Schedule),
		Records:   timelog.NewService(s.Timelog, s.Directory),
		Converter: timelog.NewConverter(s.Timelog, s.Schedule, s.Directory),
		Logs:      s.Timelog,
		Batches:   s.Payroll,
		Settle:    payroll.NewSettlement(s.Payroll),
	}
}

// =============================================================================
// DIRECTORY ENDPOINTS
// =============================================================================

// ListCompanies returns all companies.
// GET /api/companies
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Directory.ListCompanies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list companies", err)
		return
	}
	dtos := make([]CompanyDTO, 0, len(companies))
	for _, c := range companies {
		dtos = append(dtos, toCompanyDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveCompany creates or replaces a company.
// POST /api/companies
func (h *Handler) SaveCompany(w http.ResponseWriter, r *http.Request) {
	var req SaveCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	c := directory.Company{ID: core.CompanyID(req.ID), Name: req.Name}
	if c.ID == "" {
		c.ID = core.CompanyID(uuid.NewString())
	}
	if err := h.Directory.SaveCompany(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save company", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyDTO(c))
}

// GetCompany returns a single company.
// GET /api/companies/{id}
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.Directory.GetCompany(r.Context(), core.CompanyID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get company", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyDTO(*c))
}

// DeleteCompany removes a company.
// DELETE /api/companies/{id}
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.DeleteCompany(r.Context(), core.CompanyID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWorkers returns workers, optionally scoped to a company.
// GET /api/workers?company_id=...
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	companyID := core.CompanyID(r.URL.Query().Get("company_id"))
	workers, err := h.Directory.ListWorkers(r.Context(), companyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}
	dtos := make([]WorkerDTO, 0, len(workers))
	for _, worker := range workers {
		dtos = append(dtos, toWorkerDTO(worker))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveWorker creates or replaces a worker.
// POST /api/workers
func (h *Handler) SaveWorker(w http.ResponseWriter, r *http.Request) {
	var req SaveWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.CompanyID == "" {
		writeError(w, http.StatusBadRequest, "name and company_id are required", nil)
		return
	}
	rate, err := decimal.NewFromString(req.HourlyRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hourly_rate", err)
		return
	}
	worker := directory.Worker{
		ID:         core.WorkerID(req.ID),
		CompanyID:  core.CompanyID(req.CompanyID),
		Name:       req.Name,
		HourlyRate: rate,
	}
	if worker.ID == "" {
		worker.ID = core.WorkerID(uuid.NewString())
	}
	if err := h.Directory.SaveWorker(r.Context(), worker); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save worker", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkerDTO(worker))
}

// GetWorker returns a single worker.
// GET /api/workers/{id}
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := h.Directory.GetWorker(r.Context(), core.WorkerID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get worker", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*worker))
}

// DeleteWorker removes a worker.
// DELETE /api/workers/{id}
func (h *Handler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.DeleteWorker(r.Context(), core.WorkerID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete worker", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProjects returns projects, optionally scoped to a company.
// GET /api/projects?company_id=...
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	companyID := core.CompanyID(r.URL.Query().Get("company_id"))
	projects, err := h.Directory.ListProjects(r.Context(), companyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, toProjectDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveProject creates or replaces a project.
// POST /api/projects
func (h *Handler) SaveProject(w http.ResponseWriter, r *http.Request) {
	var req SaveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	p := directory.Project{
		ID:        core.ProjectID(req.ID),
		CompanyID: core.CompanyID(req.CompanyID),
		Name:      req.Name,
	}
	if p.ID == "" {
		p.ID = core.ProjectID(uuid.NewString())
	}
	if err := h.Directory.SaveProject(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(p))
}

// GetProject returns a single project.
// GET /api/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Directory.GetProject(r.Context(), core.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*p))
}

// DeleteProject removes a project.
// DELETE /api/projects/{id}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.DeleteProject(r.Context(), core.ProjectID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SCHEDULE ENDPOINTS
// =============================================================================

// ListSchedule lists entries for a single day (?date=) or a range
// (?start=&end=), filtered by worker_id, project_id, or company_id.
// GET /api/schedule
func (h *Handler) ListSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := schedule.Filter{
		WorkerID:  core.WorkerID(q.Get("worker_id")),
		ProjectID: core.ProjectID(q.Get("project_id")),
		CompanyID: core.CompanyID(q.Get("company_id")),
	}

	var (
		entries []schedule.Entry
		err     error
	)
	if dateStr := q.Get("date"); dateStr != "" {
		var day core.Date
		day, err = core.ParseDate(dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		entries, err = h.Schedule.ListForDay(r.Context(), day, filter)
	} else {
		var rng core.DateRange
		rng, err = parseRange(q.Get("start"), q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date range (use start=YYYY-MM-DD&end=YYYY-MM-DD)", err)
			return
		}
		entries, err = h.Schedule.ListForRange(r.Context(), rng, filter)
	}
	if err != nil {
		writeDomainError(w, "Failed to list schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// CreateEntry adds a schedule entry.
// POST /api/schedule
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	day, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	hours, err := decimal.NewFromString(req.ScheduledHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scheduled_hours", err)
		return
	}
	entry := schedule.Entry{
		WorkerID:       core.WorkerID(req.WorkerID),
		ProjectID:      core.ProjectID(req.ProjectID),
		TradeID:        core.TradeID(req.TradeID),
		CostCodeID:     core.CostCodeID(req.CostCodeID),
		Date:           day,
		ScheduledHours: hours,
		Notes:          req.Notes,
		Status:         schedule.Status(req.Status),
	}
	created, err := h.Schedule.Create(r.Context(), entry)
	if err != nil {
		writeDomainError(w, "Failed to create schedule entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*created))
}

// GetEntry returns a single schedule entry.
// GET /api/schedule/{id}
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Schedule.Get(r.Context(), core.EntryID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get schedule entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// UpdateEntry applies a partial update. Entries already worked and
// converted are locked and return 409.
// PUT /api/schedule/{id}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	var patch schedule.Patch
	if req.WorkerID != nil {
		id := core.WorkerID(*req.WorkerID)
		patch.WorkerID = &id
	}
	if req.ProjectID != nil {
		id := core.ProjectID(*req.ProjectID)
		patch.ProjectID = &id
	}
	if req.TradeID != nil {
		id := core.TradeID(*req.TradeID)
		patch.TradeID = &id
	}
	if req.CostCodeID != nil {
		id := core.CostCodeID(*req.CostCodeID)
		patch.CostCodeID = &id
	}
	if req.ScheduledHours != nil {
		hours, err := decimal.NewFromString(*req.ScheduledHours)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid scheduled_hours", err)
			return
		}
		patch.ScheduledHours = &hours
	}
	if req.Notes != nil {
		patch.Notes = req.Notes
	}
	if req.Status != nil {
		status := schedule.Status(*req.Status)
		patch.Status = &status
	}

	updated, err := h.Schedule.Update(r.Context(), core.EntryID(chi.URLParam(r, "id")), patch)
	if err != nil {
		writeDomainError(w, "Failed to update schedule entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*updated))
}

// DeleteEntry removes an entry. Any record converted from it, and any
// pay run item referencing that record, go with it.
// DELETE /api/schedule/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Schedule.Delete(r.Context(), core.EntryID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete schedule entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SplitDay replaces a worker's entries for one day with the given
// allocations. Allocated hours must equal the original total.
// POST /api/schedule/split
func (h *Handler) SplitDay(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	day, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	allocations := make([]schedule.Allocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		hours, err := decimal.NewFromString(a.Hours)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid allocation hours", err)
			return
		}
		allocations = append(allocations, schedule.Allocation{
			ProjectID:  core.ProjectID(a.ProjectID),
			Hours:      hours,
			TradeID:    core.TradeID(a.TradeID),
			CostCodeID: core.CostCodeID(a.CostCodeID),
			Notes:      a.Notes,
		})
	}

	entries, err := h.Splitter.Split(r.Context(), core.WorkerID(req.WorkerID), day, allocations)
	if err != nil {
		writeDomainError(w, "Failed to split day", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// =============================================================================
// TIME RECORD ENDPOINTS
// =============================================================================

// ListRecords lists records for a range, filtered by worker_id,
// project_id, or company_id.
// GET /api/timelogs?start=&end=
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	rng, filter, ok := h.parseRecordQuery(w, r)
	if !ok {
		return
	}
	records, err := h.Records.List(r.Context(), rng, filter)
	if err != nil {
		writeDomainError(w, "Failed to list time records", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTOs(records))
}

// CreateRecord adds a manual time record. Labor cost is computed from
// the worker's current rate and frozen.
// POST /api/timelogs
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	day, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	hours, err := decimal.NewFromString(req.HoursWorked)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours_worked", err)
		return
	}
	record := timelog.Record{
		WorkerID:    core.WorkerID(req.WorkerID),
		ProjectID:   core.ProjectID(req.ProjectID),
		TradeID:     core.TradeID(req.TradeID),
		Date:        day,
		HoursWorked: hours,
		Notes:       req.Notes,
		CreatedBy:   req.CreatedBy,
	}
	created, err := h.Records.Create(r.Context(), record)
	if err != nil {
		writeDomainError(w, "Failed to create time record", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordDTO(*created))
}

// ConvertEntries turns schedule entries into time records. All listed
// entries convert or none do.
// POST /api/timelogs/convert
func (h *Handler) ConvertEntries(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	entryIDs := make([]core.EntryID, 0, len(req.EntryIDs))
	for _, id := range req.EntryIDs {
		entryIDs = append(entryIDs, core.EntryID(id))
	}
	records, err := h.Converter.Convert(r.Context(), entryIDs, req.CreatedBy)
	if err != nil {
		writeDomainError(w, "Failed to convert schedule entries", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordDTOs(records))
}

// GetRecord returns a single time record.
// GET /api/timelogs/{id}
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.Records.Get(r.Context(), core.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get time record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(*record))
}

// UpdateRecord applies a partial update to an unpaid record. Changing
// hours re-costs at the record's own effective rate. Paid records
// return 409.
// PUT /api/timelogs/{id}
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	var patch timelog.Patch
	if req.ProjectID != nil {
		id := core.ProjectID(*req.ProjectID)
		patch.ProjectID = &id
	}
	if req.TradeID != nil {
		id := core.TradeID(*req.TradeID)
		patch.TradeID = &id
	}
	if req.HoursWorked != nil {
		hours, err := decimal.NewFromString(*req.HoursWorked)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hours_worked", err)
			return
		}
		patch.HoursWorked = &hours
	}
	if req.Notes != nil {
		patch.Notes = req.Notes
	}

	updated, err := h.Records.Update(r.Context(), core.RecordID(chi.URLParam(r, "id")), patch)
	if err != nil {
		writeDomainError(w, "Failed to update time record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(*updated))
}

// DeleteRecord removes a record and any pay run item referencing it.
// DELETE /api/timelogs/{id}
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.Records.Delete(r.Context(), core.RecordID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete time record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUnpaid lists unpaid records for a range.
// GET /api/timelogs/unpaid?start=&end=
func (h *Handler) ListUnpaid(w http.ResponseWriter, r *http.Request) {
	rng, filter, ok := h.parseRecordQuery(w, r)
	if !ok {
		return
	}
	records, err := h.Records.ListUnpaid(r.Context(), rng, filter)
	if err != nil {
		writeDomainError(w, "Failed to list unpaid records", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTOs(records))
}

// UnpaidSummary returns per-worker unpaid hour and cost totals.
// GET /api/timelogs/unpaid/summary?start=&end=
func (h *Handler) UnpaidSummary(w http.ResponseWriter, r *http.Request) {
	rng, filter, ok := h.parseRecordQuery(w, r)
	if !ok {
		return
	}
	summary, err := h.Records.UnpaidSummary(r.Context(), rng, filter)
	if err != nil {
		writeDomainError(w, "Failed to summarize unpaid records", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerUnpaidDTOs(summary))
}

func (h *Handler) parseRecordQuery(w http.ResponseWriter, r *http.Request) (core.DateRange, timelog.Filter, bool) {
	q := r.URL.Query()
	rng, err := parseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range (use start=YYYY-MM-DD&end=YYYY-MM-DD)", err)
		return core.DateRange{}, timelog.Filter{}, false
	}
	filter := timelog.Filter{
		WorkerID:  core.WorkerID(q.Get("worker_id")),
		ProjectID: core.ProjectID(q.Get("project_id")),
		CompanyID: core.CompanyID(q.Get("company_id")),
	}
	return rng, filter, true
}

// =============================================================================
// PAY RUN ENDPOINTS
// =============================================================================

// ListBatches returns all pay runs.
// GET /api/payruns
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.Batches.ListBatches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pay runs", err)
		return
	}
	dtos := make([]BatchDTO, 0, len(batches))
	for _, b := range batches {
		dtos = append(dtos, toBatchDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// BuildBatch builds a pay run from unpaid records in a date range,
// driving the builder through its collect/select/build sequence.
// POST /api/payruns
func (h *Handler) BuildBatch(w http.ResponseWriter, r *http.Request) {
	var req BuildBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rng, err := parseRange(req.DateRangeStart, req.DateRangeEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	builder := payroll.NewBuilder(h.Batches, h.Logs)
	if err := builder.SetDateRange(rng, core.CompanyID(req.PayerCompanyID), core.CompanyID(req.PayeeCompanyID)); err != nil {
		writeDomainError(w, "Failed to start pay run", err)
		return
	}
	if req.WorkerID != "" || req.ProjectID != "" {
		filter := timelog.Filter{
			WorkerID:  core.WorkerID(req.WorkerID),
			ProjectID: core.ProjectID(req.ProjectID),
		}
		if err := builder.SetFilter(filter); err != nil {
			writeDomainError(w, "Failed to filter pay run", err)
			return
		}
	}
	if _, err := builder.LoadCandidates(r.Context()); err != nil {
		writeDomainError(w, "Failed to load eligible records", err)
		return
	}
	if len(req.RecordIDs) == 0 {
		if err := builder.SelectAll(); err != nil {
			writeDomainError(w, "Failed to select records", err)
			return
		}
	} else {
		for _, id := range req.RecordIDs {
			if err := builder.Select(core.RecordID(id)); err != nil {
				writeDomainError(w, "Failed to select record", err)
				return
			}
		}
	}

	batch, items, err := builder.Build(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to build pay run", err)
		return
	}
	writeJSON(w, http.StatusCreated, BatchDetailDTO{
		Batch: toBatchDTO(*batch),
		Items: toItemDTOs(items),
	})
}

// GetBatch returns a pay run with its items and the records they pay.
// GET /api/payruns/{id}
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	detail, err := payroll.Detail(r.Context(), h.Batches, h.Logs, core.PayRunID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get pay run", err)
		return
	}
	writeJSON(w, http.StatusOK, BatchDetailDTO{
		Batch:   toBatchDTO(detail.Batch),
		Items:   toItemDTOs(detail.Items),
		Records: toRecordDTOs(detail.Records),
	})
}

// SettleBatch marks a draft pay run paid and flips every covered record
// to paid in the same step. Settling twice returns 409.
// POST /api/payruns/{id}/settle
func (h *Handler) SettleBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Settle.MarkPaid(r.Context(), core.PayRunID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to settle pay run", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(*batch))
}

// DeleteBatch removes a draft pay run, releasing its records for a
// future run. Paid runs return 409.
// DELETE /api/payruns/{id}
func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.Settle.Delete(r.Context(), core.PayRunID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete pay run", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseRange(start, end string) (core.DateRange, error) {
	s, err := core.ParseDate(start)
	if err != nil {
		return core.DateRange{}, err
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return core.DateRange{}, err
	}
	return core.DateRange{Start: s, End: e}, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case core.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case core.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
