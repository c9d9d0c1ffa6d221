/*
timelog.go - time_logs persistence (timelog.Store)

CreateFromSchedule is the conversion boundary: every record insert and
its source-entry delete commit together or not at all. The partial
uniqueness index on source_schedule_id backs up the service-level
"already converted" check.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/timelog"
)

// =============================================================================
// TIME RECORDS (timelog.Store interface)
// =============================================================================

// CreateRecord inserts a time record.
func (s *Store) CreateRecord(ctx context.Context, r timelog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertRecord(ctx, s.db, r)
}

func (s *Store) insertRecord(ctx context.Context, db execer, r timelog.Record) error {
	query := `
		INSERT INTO time_logs
		(id, worker_id, project_id, trade_id, date, hours_worked, labor_cost,
		 notes, payment_status, payment_date, source_schedule_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var paymentDate *string
	if r.PaymentDate != nil {
		d := r.PaymentDate.String()
		paymentDate = &d
	}

	_, err := db.ExecContext(ctx, query,
		r.ID,
		r.WorkerID,
		r.ProjectID,
		nullString(string(r.TradeID)),
		r.Date.String(),
		r.HoursWorked.String(),
		r.LaborCost.String(),
		r.Notes,
		r.PaymentStatus,
		paymentDate,
		nullString(string(r.SourceEntryID)),
		r.CreatedBy,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			// idx_time_logs_source: a second record against the same entry.
			return core.NewValidationError("source_schedule_id", "already referenced by another time record")
		}
		return fmt.Errorf("failed to insert time record: %w", err)
	}
	return nil
}

// GetRecord returns a record by id.
func (s *Store) GetRecord(ctx context.Context, id core.RecordID) (*timelog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectRecord+" WHERE t.id = ?", id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, &core.NotFoundError{Kind: "time record", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRecord rewrites a record's mutable fields. Payment status and
// payment date are deliberately not touched here; SettleBatch owns them.
func (s *Store) UpdateRecord(ctx context.Context, r timelog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE time_logs
		SET project_id = ?, trade_id = ?, hours_worked = ?, labor_cost = ?, notes = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		r.ProjectID,
		nullString(string(r.TradeID)),
		r.HoursWorked.String(),
		r.LaborCost.String(),
		r.Notes,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update time record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "time record", ID: string(r.ID)}
	}
	return nil
}

// DeleteRecord removes a record. Its pay run item, if any, goes with it
// via the ON DELETE CASCADE on pay_run_items.time_log_id.
func (s *Store) DeleteRecord(ctx context.Context, id core.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM time_logs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete time record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "time record", ID: string(id)}
	}
	return nil
}

// ListRecords returns records in a range with optional filters.
func (s *Store) ListRecords(ctx context.Context, rng core.DateRange, f timelog.Filter) ([]timelog.Record, error) {
	return s.listRecords(ctx, rng, f, false)
}

// ListUnpaid returns the unpaid records in a range - the pay run
// builder's candidate set. Filters strictly on payment_status.
func (s *Store) ListUnpaid(ctx context.Context, rng core.DateRange, f timelog.Filter) ([]timelog.Record, error) {
	return s.listRecords(ctx, rng, f, true)
}

func (s *Store) listRecords(ctx context.Context, rng core.DateRange, f timelog.Filter, unpaidOnly bool) ([]timelog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectRecord
	args := []any{}

	if f.CompanyID != "" {
		query += " JOIN workers w ON w.id = t.worker_id AND w.company_id = ?"
		args = append(args, f.CompanyID)
	}

	query += " WHERE t.date >= ? AND t.date <= ?"
	args = append(args, rng.Start.String(), rng.End.String())

	if unpaidOnly {
		query += " AND t.payment_status = 'unpaid'"
	}
	if f.WorkerID != "" {
		query += " AND t.worker_id = ?"
		args = append(args, f.WorkerID)
	}
	if f.ProjectID != "" {
		query += " AND t.project_id = ?"
		args = append(args, f.ProjectID)
	}

	query += " ORDER BY t.date ASC, t.worker_id ASC, t.created_at ASC"

	return s.queryRecords(ctx, query, args...)
}

// GetBySourceEntry returns the record back-referencing a schedule entry.
func (s *Store) GetBySourceEntry(ctx context.Context, entryID core.EntryID) (*timelog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectRecord+" WHERE t.source_schedule_id = ?", entryID)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, &core.NotFoundError{Kind: "time record", ID: "source:" + string(entryID)}
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateFromSchedule inserts the given records and deletes their source
// entries in one transaction. Both representations of the same labor
// existing at once is the defect this method exists to prevent.
func (s *Store) CreateFromSchedule(ctx context.Context, records []timelog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if r.SourceEntryID == "" {
			return core.NewValidationError("source_schedule_id", "is required for conversion")
		}
		if err := s.insertRecord(ctx, tx, r); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"DELETE FROM schedule_entries WHERE id = ?", r.SourceEntryID)
		if err != nil {
			return fmt.Errorf("failed to delete converted entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &core.NotFoundError{Kind: "schedule entry", ID: string(r.SourceEntryID)}
		}
	}

	return tx.Commit()
}

// UnpaidSummary sums outstanding hours and cost per worker.
func (s *Store) UnpaidSummary(ctx context.Context, rng core.DateRange, f timelog.Filter) ([]timelog.WorkerUnpaid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Decimal strings don't SUM() safely in SQLite, so the rows are summed
	// in Go with full precision.
	query := selectRecord
	args := []any{}
	if f.CompanyID != "" {
		query += " JOIN workers w ON w.id = t.worker_id AND w.company_id = ?"
		args = append(args, f.CompanyID)
	}
	query += " WHERE t.date >= ? AND t.date <= ? AND t.payment_status = 'unpaid'"
	args = append(args, rng.Start.String(), rng.End.String())
	if f.WorkerID != "" {
		query += " AND t.worker_id = ?"
		args = append(args, f.WorkerID)
	}
	if f.ProjectID != "" {
		query += " AND t.project_id = ?"
		args = append(args, f.ProjectID)
	}
	query += " ORDER BY t.worker_id ASC"

	records, err := s.queryRecords(ctx, query, args...)
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
// SCANNING
// =============================================================================

const selectRecord = `
	SELECT t.id, t.worker_id, t.project_id, t.trade_id, t.date, t.hours_worked,
	       t.labor_cost, t.notes, t.payment_status, t.payment_date,
	       t.source_schedule_id, t.created_by
	FROM time_logs t
`

func scanRecord(row rowScanner) (*timelog.Record, error) {
	var (
		r             timelog.Record
		tradeID       sql.NullString
		date          string
		hours         string
		cost          string
		notes         sql.NullString
		paymentDate   sql.NullString
		sourceEntryID sql.NullString
		createdBy     sql.NullString
	)

	err := row.Scan(&r.ID, &r.WorkerID, &r.ProjectID, &tradeID, &date, &hours,
		&cost, &notes, &r.PaymentStatus, &paymentDate, &sourceEntryID, &createdBy)
	if err != nil {
		return nil, err
	}

	d, err := core.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse record date: %w", err)
	}
	r.Date = d
	r.HoursWorked = core.MustParseDecimal(hours)
	r.LaborCost = core.MustParseDecimal(cost)
	r.TradeID = core.TradeID(tradeID.String)
	r.Notes = notes.String
	r.SourceEntryID = core.EntryID(sourceEntryID.String)
	r.CreatedBy = createdBy.String

	if paymentDate.Valid {
		pd, err := core.ParseDate(paymentDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse payment date: %w", err)
		}
		r.PaymentDate = &pd
	}

	return &r, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]timelog.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time records: %w", err)
	}
	defer rows.Close()

	var records []timelog.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}
