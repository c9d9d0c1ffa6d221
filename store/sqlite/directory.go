/*
directory.go - companies / workers / projects persistence (directory.Store)

Reference data only. Saves are upserts; deletes do not cascade into
schedules or records, which keep their frozen values.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewbase/labor-engine/core"
	"github.com/crewbase/labor-engine/directory"
)

// =============================================================================
// WORKERS
// =============================================================================

// SaveWorker inserts or updates a worker. Updating the hourly rate moves
// nothing downstream: existing records keep their frozen cost.
func (s *Store) SaveWorker(ctx context.Context, w directory.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO workers (id, company_id, name, hourly_rate, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			name = excluded.name,
			hourly_rate = excluded.hourly_rate
	`

	_, err := s.db.ExecContext(ctx, query,
		w.ID, w.CompanyID, w.Name, w.HourlyRate.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetWorker retrieves a worker by id.
func (s *Store) GetWorker(ctx context.Context, id core.WorkerID) (*directory.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		w    directory.Worker
		rate string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, company_id, name, hourly_rate FROM workers WHERE id = ?", id,
	).Scan(&w.ID, &w.CompanyID, &w.Name, &rate)

	if err == sql.ErrNoRows {
		return nil, &core.NotFoundError{Kind: "worker", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	w.HourlyRate = core.MustParseDecimal(rate)
	return &w, nil
}

// ListWorkers returns workers, optionally filtered by company.
func (s *Store) ListWorkers(ctx context.Context, companyID core.CompanyID) ([]directory.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, company_id, name, hourly_rate FROM workers"
	args := []any{}
	if companyID != "" {
		query += " WHERE company_id = ?"
		args = append(args, companyID)
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []directory.Worker
	for rows.Next() {
		var (
			w    directory.Worker
			rate string
		)
		if err := rows.Scan(&w.ID, &w.CompanyID, &w.Name, &rate); err != nil {
			return nil, err
		}
		w.HourlyRate = core.MustParseDecimal(rate)
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// DeleteWorker removes a worker.
func (s *Store) DeleteWorker(ctx context.Context, id core.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM workers WHERE id = ?", id)
	return err
}

// =============================================================================
// PROJECTS
// =============================================================================

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(ctx context.Context, p directory.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO projects (id, company_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.CompanyID, p.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(ctx context.Context, id core.ProjectID) (*directory.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p directory.Project
	err := s.db.QueryRowContext(ctx,
		"SELECT id, company_id, name FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.CompanyID, &p.Name)

	if err == sql.ErrNoRows {
		return nil, &core.NotFoundError{Kind: "project", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns projects, optionally filtered by company.
func (s *Store) ListProjects(ctx context.Context, companyID core.CompanyID) ([]directory.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, company_id, name FROM projects"
	args := []any{}
	if companyID != "" {
		query += " WHERE company_id = ?"
		args = append(args, companyID)
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []directory.Project
	for rows.Next() {
		var p directory.Project
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project.
func (s *Store) DeleteProject(ctx context.Context, id core.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

// =============================================================================
// COMPANIES
// =============================================================================

// SaveCompany inserts or updates a company.
func (s *Store) SaveCompany(ctx context.Context, c directory.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO companies (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetCompany retrieves a company by id.
func (s *Store) GetCompany(ctx context.Context, id core.CompanyID) (*directory.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c directory.Company
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM companies WHERE id = ?", id,
	).Scan(&c.ID, &c.Name)

	if err == sql.ErrNoRows {
		return nil, &core.NotFoundError{Kind: "company", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCompanies returns all companies.
func (s *Store) ListCompanies(ctx context.Context) ([]directory.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM companies ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []directory.Company
	for rows.Next() {
		var c directory.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// DeleteCompany removes a company.
func (s *Store) DeleteCompany(ctx context.Context, id core.CompanyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM companies WHERE id = ?", id)
	return err
}
