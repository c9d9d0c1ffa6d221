/*
Package store provides an in-memory implementation of every storage
interface, for unit tests and development.

Semantics mirror store/sqlite exactly: the same cascades, the same
claim and settlement guards, the same filter behavior. A single mutex
makes every multi-step operation atomic, which is precisely what the
SQLite transactions guarantee.
*/
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/directory"
	"github.com/crewbase/labor-engine/payroll"
	"github.com/crewbase/labor-engine/schedule"
	"github.com/crewbase/labor-engine/timelog"
)

// Memory implements schedule.Store, timelog.Store, payroll.Store, and
// directory.Store in memory.
type Memory struct {
	mu sync.RWMutex

	entries   map[core.EntryID]schedule.Entry
	entrySeq  map[core.EntryID]int // insertion order, for stable listings
	seq       int
	records   map[core.RecordID]timelog.Record
	recordSeq map[core.RecordID]int
	batches   map[core.PayRunID]payroll.Batch
	items     map[core.PayRunItemID]payroll.Item
	workers   map[core.WorkerID]directory.Worker
	projects  map[core.ProjectID]directory.Project
	companies map[core.CompanyID]directory.Company
}

func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[core.EntryID]schedule.Entry),
		entrySeq:  make(map[core.EntryID]int),
		records:   make(map[core.RecordID]timelog.Record),
		recordSeq: make(map[core.RecordID]int),
		batches:   make(map[core.PayRunID]payroll.Batch),
		items:     make(map[core.PayRunItemID]payroll.Item),
		workers:   make(map[core.WorkerID]directory.Worker),
		projects:  make(map[core.ProjectID]directory.Project),
		companies: make(map[core.CompanyID]directory.Company),
	}
}

// =============================================================================
// SCHEDULE ENTRIES (schedule.Store)
// =============================================================================

func (m *Memory) CreateEntry(_ context.Context, e schedule.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putEntryLocked(e)
	return nil
}

func (m *Memory) putEntryLocked(e schedule.Entry) {
	m.seq++
	m.entries[e.ID] = e
	m.entrySeq[e.ID] = m.seq
}

func (m *Memory) GetEntry(_ context.Context, id core.EntryID) (*schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "schedule entry", ID: string(id)}
	}
	return &e, nil
}

func (m *Memory) UpdateEntry(_ context.Context, e schedule.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[e.ID]; !ok {
		return &core.NotFoundError{Kind: "schedule entry", ID: string(e.ID)}
	}
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) DeleteEntry(_ context.Context, id core.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return &core.NotFoundError{Kind: "schedule entry", ID: string(id)}
	}
	// Cascade: linked record and its pay run item go in the same unit of
	// work, exactly as the SQLite transaction does.
	for rid, r := range m.records {
		if r.SourceEntryID == id {
			m.deleteRecordLocked(rid)
		}
	}
	delete(m.entries, id)
	delete(m.entrySeq, id)
	return nil
}

func (m *Memory) ListForDay(ctx context.Context, day core.Date, f schedule.Filter) ([]schedule.Entry, error) {
	return m.ListForRange(ctx, core.DateRange{Start: day, End: day}, f)
}

func (m *Memory) ListForRange(_ context.Context, r core.DateRange, f schedule.Filter) ([]schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schedule.Entry
	for _, e := range m.entries {
		if !r.Contains(e.Date) {
			continue
		}
		if f.WorkerID != "" && e.WorkerID != f.WorkerID {
			continue
		}
		if f.ProjectID != "" && e.ProjectID != f.ProjectID {
			continue
		}
		if f.CompanyID != "" {
			w, ok := m.workers[e.WorkerID]
			if !ok || w.CompanyID != f.CompanyID {
				continue
			}
		}
		out = append(out, e)
	}
	m.sortEntriesLocked(out)
	return out, nil
}

func (m *Memory) ListForWorkerDay(_ context.Context, workerID core.WorkerID, day core.Date) ([]schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schedule.Entry
	for _, e := range m.entries {
		if e.WorkerID == workerID && e.Date.Equal(day) {
			out = append(out, e)
		}
	}
	m.sortEntriesLocked(out)
	return out, nil
}

func (m *Memory) ReplaceForWorkerDay(_ context.Context, deleteIDs []core.EntryID, create []schedule.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range deleteIDs {
		delete(m.entries, id)
		delete(m.entrySeq, id)
	}
	for _, e := range create {
		m.putEntryLocked(e)
	}
	return nil
}

func (m *Memory) LinkedRecord(_ context.Context, id core.EntryID) (core.RecordID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if r.SourceEntryID == id {
			return r.ID, true, nil
		}
	}
	return "", false, nil
}

func (m *Memory) sortEntriesLocked(entries []schedule.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return m.entrySeq[entries[i].ID] < m.entrySeq[entries[j].ID]
	})
}

// =============================================================================
// TIME RECORDS (timelog.Store)
// =============================================================================

func (m *Memory) CreateRecord(_ context.Context, r timelog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putRecordLocked(r)
}

func (m *Memory) putRecordLocked(r timelog.Record) error {
	if r.SourceEntryID != "" {
		for _, existing := range m.records {
			if existing.SourceEntryID == r.SourceEntryID {
				return core.NewValidationError("source_schedule_id", "already referenced by another time record")
			}
		}
	}
	m.seq++
	m.records[r.ID] = r
	m.recordSeq[r.ID] = m.seq
	return nil
}

func (m *Memory) GetRecord(_ context.Context, id core.RecordID) (*timelog.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "time record", ID: string(id)}
	}
	return &r, nil
}

func (m *Memory) UpdateRecord(_ context.Context, r timelog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[r.ID]
	if !ok {
		return &core.NotFoundError{Kind: "time record", ID: string(r.ID)}
	}
	// Payment fields move only through SettleBatch.
	r.PaymentStatus = existing.PaymentStatus
	r.PaymentDate = existing.PaymentDate
	m.records[r.ID] = r
	return nil
}

func (m *Memory) DeleteRecord(_ context.Context, id core.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return &core.NotFoundError{Kind: "time record", ID: string(id)}
	}
	m.deleteRecordLocked(id)
	return nil
}

func (m *Memory) deleteRecordLocked(id core.RecordID) {
	for iid, item := range m.items {
		if item.RecordID == id {
			delete(m.items, iid)
		}
	}
	delete(m.records, id)
	delete(m.recordSeq, id)
}

func (m *Memory) ListRecords(ctx context.Context, rng core.DateRange, f timelog.Filter) ([]timelog.Record, error) {
	return m.listRecords(rng, f, false)
}

func (m *Memory) ListUnpaid(ctx context.Context, rng core.DateRange, f timelog.Filter) ([]timelog.Record, error) {
	return m.listRecords(rng, f, true)
}

func (m *Memory) listRecords(rng core.DateRange, f timelog.Filter, unpaidOnly bool) ([]timelog.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []timelog.Record
	for _, r := range m.records {
		if !rng.Contains(r.Date) {
			continue
		}
		if unpaidOnly && r.PaymentStatus != core.PaymentUnpaid {
			continue
		}
		if f.WorkerID != "" && r.WorkerID != f.WorkerID {
			continue
		}
		if f.ProjectID != "" && r.ProjectID != f.ProjectID {
			continue
		}
		if f.CompanyID != "" {
			w, ok := m.workers[r.WorkerID]
			if !ok || w.CompanyID != f.CompanyID {
				continue
			}
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return m.recordSeq[out[i].ID] < m.recordSeq[out[j].ID]
	})
	return out, nil
}

func (m *Memory) GetBySourceEntry(_ context.Context, entryID core.EntryID) (*timelog.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if r.SourceEntryID == entryID {
			return &r, nil
		}
	}
	return nil, &core.NotFoundError{Kind: "time record", ID: "source:" + string(entryID)}
}

func (m *Memory) CreateFromSchedule(_ context.Context, records []timelog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole batch before the first write so the all-or-nothing
	// contract holds.
	for _, r := range records {
		if r.SourceEntryID == "" {
			return core.NewValidationError("source_schedule_id", "is required for conversion")
		}
		if _, ok := m.entries[r.SourceEntryID]; !ok {
			return &core.NotFoundError{Kind: "schedule entry", ID: string(r.SourceEntryID)}
		}
	}
	for _, r := range records {
		if err := m.putRecordLocked(r); err != nil {
			return err
		}
		delete(m.entries, r.SourceEntryID)
		delete(m.entrySeq, r.SourceEntryID)
	}
	return nil
}

func (m *Memory) UnpaidSummary(ctx context.Context, rng core.DateRange, f timelog.Filter) ([]timelog.WorkerUnpaid, error) {
	records, err := m.listRecords(rng, f, true)
	if err != nil {
		return nil, err
	}

	var summary []timelog.WorkerUnpaid
	index := make(map[core.WorkerID]int)
	for _, r := range records {
		i, ok := index[r.WorkerID]
		if !ok {
			i = len(summary)
			index[r.WorkerID] = i
			summary = append(summary, timelog.WorkerUnpaid{WorkerID: r.WorkerID})
		}
		summary[i].TotalHours = summary[i].TotalHours.Add(r.HoursWorked)
		summary[i].TotalCost = summary[i].TotalCost.Add(r.LaborCost)
	}
	return summary, nil
}

// =============================================================================
// PAY RUNS (payroll.Store)
// =============================================================================

func (m *Memory) CreateBatch(_ context.Context, b payroll.Batch, items []payroll.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Claim check before any write: a record held by any live batch blocks
	// the whole creation, as the unique index does in SQLite.
	for _, item := range items {
		for _, existing := range m.items {
			if existing.RecordID == item.RecordID {
				return &core.AlreadyClaimedError{RecordID: item.RecordID, PayRunID: existing.PayRunID}
			}
		}
	}

	m.batches[b.ID] = b
	for _, item := range items {
		m.items[item.ID] = item
	}
	return nil
}

func (m *Memory) GetBatch(_ context.Context, id core.PayRunID) (*payroll.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.batches[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "pay run", ID: string(id)}
	}
	return &b, nil
}

func (m *Memory) ListBatches(_ context.Context) ([]payroll.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]payroll.Batch, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListItems(_ context.Context, id core.PayRunID) ([]payroll.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.Item
	for _, item := range m.items {
		if item.PayRunID == id {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SettleBatch(_ context.Context, id core.PayRunID, paymentDate core.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[id]
	if !ok {
		return &core.NotFoundError{Kind: "pay run", ID: string(id)}
	}
	if b.Status != payroll.BatchDraft {
		return core.ErrAlreadySettled
	}

	b.Status = payroll.BatchPaid
	b.PaymentDate = &paymentDate
	m.batches[id] = b

	for _, item := range m.items {
		if item.PayRunID != id {
			continue
		}
		if r, ok := m.records[item.RecordID]; ok {
			r.PaymentStatus = core.PaymentPaid
			d := paymentDate
			r.PaymentDate = &d
			m.records[r.ID] = r
		}
	}
	return nil
}

func (m *Memory) DeleteBatch(_ context.Context, id core.PayRunID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.batches[id]; !ok {
		return &core.NotFoundError{Kind: "pay run", ID: string(id)}
	}
	for iid, item := range m.items {
		if item.PayRunID == id {
			delete(m.items, iid)
		}
	}
	delete(m.batches, id)
	return nil
}

func (m *Memory) ClaimedBy(_ context.Context, recordID core.RecordID) (core.PayRunID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.items {
		if item.RecordID == recordID {
			return item.PayRunID, true, nil
		}
	}
	return "", false, nil
}

// =============================================================================
// DIRECTORY (directory.Store)
// =============================================================================

func (m *Memory) SaveWorker(_ context.Context, w directory.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.ID] = w
	return nil
}

func (m *Memory) GetWorker(_ context.Context, id core.WorkerID) (*directory.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.workers[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "worker", ID: string(id)}
	}
	return &w, nil
}

func (m *Memory) ListWorkers(_ context.Context, companyID core.CompanyID) ([]directory.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []directory.Worker
	for _, w := range m.workers {
		if companyID != "" && w.CompanyID != companyID {
			continue
		}
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteWorker(_ context.Context, id core.WorkerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workers, id)
	return nil
}

func (m *Memory) SaveProject(_ context.Context, p directory.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

func (m *Memory) GetProject(_ context.Context, id core.ProjectID) (*directory.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "project", ID: string(id)}
	}
	return &p, nil
}

func (m *Memory) ListProjects(_ context.Context, companyID core.CompanyID) ([]directory.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []directory.Project
	for _, p := range m.projects {
		if companyID != "" && p.CompanyID != companyID {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteProject(_ context.Context, id core.ProjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	return nil
}

func (m *Memory) SaveCompany(_ context.Context, c directory.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
	return nil
}

func (m *Memory) GetCompany(_ context.Context, id core.CompanyID) (*directory.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "company", ID: string(id)}
	}
	return &c, nil
}

func (m *Memory) ListCompanies(_ context.Context) ([]directory.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]directory.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteCompany(_ context.Context, id core.CompanyID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.companies, id)
	return nil
}
