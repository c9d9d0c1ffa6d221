/*
schedule.go - schedule_entries persistence (schedule.Store)

The two operations with teeth live here: ReplaceForWorkerDay (the split
engine's atomic delete+insert) and DeleteEntry (cascading removal of the
linked time record and its pay run item in one transaction).
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/schedule"
)

// =============================================================================
// SCHEDULE ENTRIES (schedule.Store interface)
// =============================================================================

// CreateEntry inserts a schedule entry.
func (s *Store) CreateEntry(ctx context.Context, e schedule.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertEntry(ctx, s.db, e)
}

func (s *Store) insertEntry(ctx context.Context, db execer, e schedule.Entry) error {
	query := `
		INSERT INTO schedule_entries
		(id, worker_id, project_id, trade_id, cost_code_id, date, scheduled_hours, notes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.WorkerID,
		e.ProjectID,
		nullString(string(e.TradeID)),
		nullString(string(e.CostCodeID)),
		e.Date.String(),
		e.ScheduledHours.String(),
		e.Notes,
		e.Status,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert schedule entry: %w", err)
	}
	return nil
}

// GetEntry returns an entry by id.
func (s *Store) GetEntry(ctx context.Context, id core.EntryID) (*schedule.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, worker_id, project_id, trade_id, cost_code_id, date, scheduled_hours, notes, status
		FROM schedule_entries
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, &core.NotFoundError{Kind: "schedule entry", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEntry rewrites an entry's mutable fields.
func (s *Store) UpdateEntry(ctx context.Context, e schedule.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE schedule_entries
		SET worker_id = ?, project_id = ?, trade_id = ?, cost_code_id = ?,
		    scheduled_hours = ?, notes = ?, status = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		e.WorkerID,
		e.ProjectID,
		nullString(string(e.TradeID)),
		nullString(string(e.CostCodeID)),
		e.ScheduledHours.String(),
		e.Notes,
		e.Status,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "schedule entry", ID: string(e.ID)}
	}
	return nil
}

// DeleteEntry removes an entry together with its linked time record and
// that record's pay run item, in one transaction. Deleting the plan while
// leaving a payable record behind would orphan money.
func (s *Store) DeleteEntry(ctx context.Context, id core.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The item cascade rides on the time_logs FK; the record delete must
	// come before the entry delete so the link never dangles mid-flight.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM time_logs WHERE source_schedule_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete linked time record: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM schedule_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "schedule entry", ID: string(id)}
	}

	return tx.Commit()
}

// ListForDay returns entries for one date with optional filters.
func (s *Store) ListForDay(ctx context.Context, day core.Date, f schedule.Filter) ([]schedule.Entry, error) {
	return s.ListForRange(ctx, core.DateRange{Start: day, End: day}, f)
}

// ListForRange returns entries in an inclusive date range with optional
// filters. Company filtering resolves through the worker.
func (s *Store) ListForRange(ctx context.Context, r core.DateRange, f schedule.Filter) ([]schedule.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT e.id, e.worker_id, e.project_id, e.trade_id, e.cost_code_id,
		       e.date, e.scheduled_hours, e.notes, e.status
		FROM schedule_entries e
	`
	args := []any{}

	if f.CompanyID != "" {
		query += " JOIN workers w ON w.id = e.worker_id AND w.company_id = ?"
		args = append(args, f.CompanyID)
	}

	query += " WHERE e.date >= ? AND e.date <= ?"
	args = append(args, r.Start.String(), r.End.String())

	if f.WorkerID != "" {
		query += " AND e.worker_id = ?"
		args = append(args, f.WorkerID)
	}
	if f.ProjectID != "" {
		query += " AND e.project_id = ?"
		args = append(args, f.ProjectID)
	}

	query += " ORDER BY e.date ASC, e.worker_id ASC, e.created_at ASC"

	return s.queryEntries(ctx, query, args...)
}

// ListForWorkerDay returns a worker's entries for one day - the unit the
// split engine operates on.
func (s *Store) ListForWorkerDay(ctx context.Context, workerID core.WorkerID, day core.Date) ([]schedule.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, worker_id, project_id, trade_id, cost_code_id, date, scheduled_hours, notes, status
		FROM schedule_entries
		WHERE worker_id = ? AND date = ?
		ORDER BY created_at ASC
	`

	return s.queryEntries(ctx, query, workerID, day.String())
}

// ReplaceForWorkerDay deletes the given entries and inserts their
// replacements in one transaction. Partial application would change the
// day's total hours, so either everything lands or nothing does.
func (s *Store) ReplaceForWorkerDay(ctx context.Context, deleteIDs []core.EntryID, create []schedule.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range deleteIDs {
		if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_entries WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete original entry: %w", err)
		}
	}
	for _, e := range create {
		if err := s.insertEntry(ctx, tx, e); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LinkedRecord returns the time record referencing this entry, if any.
func (s *Store) LinkedRecord(ctx context.Context, id core.EntryID) (core.RecordID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recordID core.RecordID
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM time_logs WHERE source_schedule_id = ? LIMIT 1", id,
	).Scan(&recordID)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return recordID, true, nil
}

// =============================================================================
// SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*schedule.Entry, error) {
	var (
		e          schedule.Entry
		tradeID    sql.NullString
		costCodeID sql.NullString
		date       string
		hours      string
		notes      sql.NullString
	)

	err := row.Scan(&e.ID, &e.WorkerID, &e.ProjectID, &tradeID, &costCodeID,
		&date, &hours, &notes, &e.Status)
	if err != nil {
		return nil, err
	}

	d, err := core.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entry date: %w", err)
	}
	e.Date = d
	e.ScheduledHours = core.MustParseDecimal(hours)
	e.TradeID = core.TradeID(tradeID.String)
	e.CostCodeID = core.CostCodeID(costCodeID.String)
	e.Notes = notes.String

	return &e, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]schedule.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule entries: %w", err)
	}
	defer rows.Close()

	var entries []schedule.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
