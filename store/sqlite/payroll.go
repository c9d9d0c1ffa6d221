/*
payroll.go - pay_runs / pay_run_items persistence (payroll.Store)

CreateBatch and SettleBatch carry the money invariants: the unique index
on pay_run_items.time_log_id turns a double-claim race into
AlreadyClaimedError, and SettleBatch's status guard is part of the same
transaction that stamps the records, so settlement can only happen once.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/payroll"
)

// =============================================================================
// PAY RUN BATCHES (payroll.Store interface)
// =============================================================================

// CreateBatch persists a draft batch and its items atomically. When any
// item's record is already claimed by a live batch, nothing is written
// and AlreadyClaimedError identifies the holder.
func (s *Store) CreateBatch(ctx context.Context, b payroll.Batch, items []payroll.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var paymentDate *string
	if b.PaymentDate != nil {
		d := b.PaymentDate.String()
		paymentDate = &d
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pay_runs
		(id, date_range_start, date_range_end, payer_company_id, payee_company_id,
		 status, total_amount, payment_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.DateRangeStart.String(),
		b.DateRangeEnd.String(),
		nullString(string(b.PayerCompanyID)),
		nullString(string(b.PayeeCompanyID)),
		b.Status,
		b.TotalAmount.String(),
		paymentDate,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pay run: %w", err)
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pay_run_items (id, pay_run_id, time_log_id, worker_id, hours, rate, amount)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			item.ID, item.PayRunID, item.RecordID, item.WorkerID,
			item.Hours.String(), item.Rate.String(), item.Amount.String(),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				// idx_pay_run_items_record: someone else claimed it first.
				holder, _, lookupErr := s.claimedByTx(ctx, tx, item.RecordID)
				if lookupErr != nil {
					holder = ""
				}
				return &core.AlreadyClaimedError{RecordID: item.RecordID, PayRunID: holder}
			}
			return fmt.Errorf("failed to insert pay run item: %w", err)
		}
	}

	return tx.Commit()
}

// GetBatch returns a batch by id.
func (s *Store) GetBatch(ctx context.Context, id core.PayRunID) (*payroll.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectBatch+" WHERE id = ?", id)
	b, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, &core.NotFoundError{Kind: "pay run", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBatches returns all batches, newest first.
func (s *Store) ListBatches(ctx context.Context) ([]payroll.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectBatch+" ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query pay runs: %w", err)
	}
	defer rows.Close()

	var batches []payroll.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

// ListItems returns a batch's line items.
func (s *Store) ListItems(ctx context.Context, id core.PayRunID) ([]payroll.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pay_run_id, time_log_id, worker_id, hours, rate, amount
		FROM pay_run_items
		WHERE pay_run_id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query pay run items: %w", err)
	}
	defer rows.Close()

	var items []payroll.Item
	for rows.Next() {
		var (
			item  payroll.Item
			hours string
			rate  string
			amt   string
		)
		if err := rows.Scan(&item.ID, &item.PayRunID, &item.RecordID, &item.WorkerID,
			&hours, &rate, &amt); err != nil {
			return nil, err
		}
		item.Hours = core.MustParseDecimal(hours)
		item.Rate = core.MustParseDecimal(rate)
		item.Amount = core.MustParseDecimal(amt)
		items = append(items, item)
	}
	return items, rows.Err()
}

// SettleBatch marks a draft batch paid and stamps every referenced record
// in one transaction. The draft guard is part of the UPDATE itself, so a
// concurrent second settlement sees zero rows and fails cleanly.
func (s *Store) SettleBatch(ctx context.Context, id core.PayRunID, paymentDate core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE pay_runs
		SET status = 'paid', payment_date = ?
		WHERE id = ? AND status = 'draft'
	`, paymentDate.String(), id)
	if err != nil {
		return fmt.Errorf("failed to settle pay run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrAlreadySettled
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE time_logs
		SET payment_status = 'paid', payment_date = ?
		WHERE id IN (SELECT time_log_id FROM pay_run_items WHERE pay_run_id = ?)
	`, paymentDate.String(), id)
	if err != nil {
		return fmt.Errorf("failed to stamp time records: %w", err)
	}

	return tx.Commit()
}

// DeleteBatch removes a batch; its items go with it via the FK cascade.
// Referenced records are untouched.
func (s *Store) DeleteBatch(ctx context.Context, id core.PayRunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM pay_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete pay run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "pay run", ID: string(id)}
	}
	return nil
}

// ClaimedBy returns the live batch holding a record, if any.
func (s *Store) ClaimedBy(ctx context.Context, recordID core.RecordID) (core.PayRunID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.claimedByTx(ctx, s.db, recordID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) claimedByTx(ctx context.Context, db querier, recordID core.RecordID) (core.PayRunID, bool, error) {
	var payRunID core.PayRunID
	err := db.QueryRowContext(ctx,
		"SELECT pay_run_id FROM pay_run_items WHERE time_log_id = ? LIMIT 1", recordID,
	).Scan(&payRunID)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return payRunID, true, nil
}

// =============================================================================
// SCANNING
// =============================================================================

const selectBatch = `
	SELECT id, date_range_start, date_range_end, payer_company_id, payee_company_id,
	       status, total_amount, payment_date
	FROM pay_runs
`

func scanBatch(row rowScanner) (*payroll.Batch, error) {
	var (
		b           payroll.Batch
		start       string
		end         string
		payer       sql.NullString
		payee       sql.NullString
		total       string
		paymentDate sql.NullString
	)

	err := row.Scan(&b.ID, &start, &end, &payer, &payee, &b.Status, &total, &paymentDate)
	if err != nil {
		return nil, err
	}

	s, err := core.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch start date: %w", err)
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch end date: %w", err)
	}
	b.DateRangeStart = s
	b.DateRangeEnd = e
	b.PayerCompanyID = core.CompanyID(payer.String)
	b.PayeeCompanyID = core.CompanyID(payee.String)
	b.TotalAmount = core.MustParseDecimal(total)

	if paymentDate.Valid {
		pd, err := core.ParseDate(paymentDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse batch payment date: %w", err)
		}
		b.PaymentDate = &pd
	}

	return &b, nil
}
