/*
Package directory holds the read-mostly reference data the pipeline consumes.

PURPOSE:
  Workers, projects, and companies are reference data: the scheduling and
  payroll core reads them (worker hourly rate, project/company filters) but
  never derives state from them after the fact. A worker's rate matters at
  exactly one instant - when a time record is materialized - and changing
  it later must not move any stored cost.

OWNERSHIP:
  This package owns nothing downstream. Deleting a worker does not cascade
  into schedules or records; those keep their frozen values.

SEE ALSO:
  - timelog/convert.go: The only consumer of HourlyRate
  - store/sqlite: Persistence
*/
package directory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/crewbase/labor-engine/core"
)

// =============================================================================
// REFERENCE DATA MODELS
// =============================================================================

// Worker is a person who can be scheduled. HourlyRate is the rate in force
// right now; historical records carry their own frozen cost.
type Worker struct {
	ID         core.WorkerID
	CompanyID  core.CompanyID
	Name       string
	HourlyRate decimal.Decimal
}

// Project is a job site labor can be assigned to.
type Project struct {
	ID        core.ProjectID
	CompanyID core.CompanyID
	Name      string
}

// Company groups workers and projects; pay runs may be filtered by payer or
// payee company.
type Company struct {
	ID   core.CompanyID
	Name string
}

// =============================================================================
// STORE
// =============================================================================

// Store persists reference data. Save is an upsert; Get returns
// core.NotFoundError when the row does not exist.
type Store interface {
	SaveWorker(ctx context.Context, w Worker) error
	GetWorker(ctx context.Context, id core.WorkerID) (*Worker, error)
	ListWorkers(ctx context.Context, companyID core.CompanyID) ([]Worker, error)
	DeleteWorker(ctx context.Context, id core.WorkerID) error

	SaveProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id core.ProjectID) (*Project, error)
	ListProjects(ctx context.Context, companyID core.CompanyID) ([]Project, error)
	DeleteProject(ctx context.Context, id core.ProjectID) error

	SaveCompany(ctx context.Context, c Company) error
	GetCompany(ctx context.Context, id core.CompanyID) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	DeleteCompany(ctx context.Context, id core.CompanyID) error
}
