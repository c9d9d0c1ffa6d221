/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND HOURS:
  All decimal quantities travel as JSON strings ("8.5", "170.00") so that
  clients never round them through float64. Dates travel as "YYYY-MM-DD".

VALIDATION:
  Structural validation (parseable dates, parseable decimals) happens in
  the handlers when converting a request into domain types. Business
  validation lives in the domain services.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Route definitions
*/
package api

import (
	"github.com/crewbase/labor-engine/directory"
	"github.com/crewbase/labor-engine/payroll"
	"github.com/crewbase/labor-engine/schedule"
	"github.com/crewbase/labor-engine/timelog"
)

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DIRECTORY
// =============================================================================

type CompanyDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SaveCompanyRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type WorkerDTO struct {
	ID         string `json:"id"`
	CompanyID  string `json:"company_id"`
	Name       string `json:"name"`
	HourlyRate string `json:"hourly_rate"`
}

type SaveWorkerRequest struct {
	ID         string `json:"id,omitempty"`
	CompanyID  string `json:"company_id"`
	Name       string `json:"name"`
	HourlyRate string `json:"hourly_rate"`
}

type ProjectDTO struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
}

type SaveProjectRequest struct {
	ID        string `json:"id,omitempty"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
}

// =============================================================================
// SCHEDULE
// =============================================================================

type EntryDTO struct {
	ID             string `json:"id"`
	WorkerID       string `json:"worker_id"`
	ProjectID      string `json:"project_id"`
	TradeID        string `json:"trade_id,omitempty"`
	CostCodeID     string `json:"cost_code_id,omitempty"`
	Date           string `json:"date"`
	ScheduledHours string `json:"scheduled_hours"`
	Notes          string `json:"notes,omitempty"`
	Status         string `json:"status"`
}

type CreateEntryRequest struct {
	WorkerID       string `json:"worker_id"`
	ProjectID      string `json:"project_id"`
	TradeID        string `json:"trade_id,omitempty"`
	CostCodeID     string `json:"cost_code_id,omitempty"`
	Date           string `json:"date"`
	ScheduledHours string `json:"scheduled_hours"`
	Notes          string `json:"notes,omitempty"`
	Status         string `json:"status,omitempty"`
}

// UpdateEntryRequest carries partial updates. Absent fields stay unchanged.
type UpdateEntryRequest struct {
	WorkerID       *string `json:"worker_id,omitempty"`
	ProjectID      *string `json:"project_id,omitempty"`
	TradeID        *string `json:"trade_id,omitempty"`
	CostCodeID     *string `json:"cost_code_id,omitempty"`
	ScheduledHours *string `json:"scheduled_hours,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Status         *string `json:"status,omitempty"`
}

type AllocationRequest struct {
	ProjectID  string `json:"project_id"`
	Hours      string `json:"hours"`
	TradeID    string `json:"trade_id,omitempty"`
	CostCodeID string `json:"cost_code_id,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type SplitRequest struct {
	WorkerID    string              `json:"worker_id"`
	Date        string              `json:"date"`
	Allocations []AllocationRequest `json:"allocations"`
}

// =============================================================================
// TIME RECORDS
// =============================================================================

type RecordDTO struct {
	ID            string  `json:"id"`
	WorkerID      string  `json:"worker_id"`
	ProjectID     string  `json:"project_id"`
	TradeID       string  `json:"trade_id,omitempty"`
	Date          string  `json:"date"`
	HoursWorked   string  `json:"hours_worked"`
	LaborCost     string  `json:"labor_cost"`
	Notes         string  `json:"notes,omitempty"`
	PaymentStatus string  `json:"payment_status"`
	PaymentDate   *string `json:"payment_date,omitempty"`
	SourceEntryID string  `json:"source_schedule_id,omitempty"`
	CreatedBy     string  `json:"created_by,omitempty"`
}

type CreateRecordRequest struct {
	WorkerID    string `json:"worker_id"`
	ProjectID   string `json:"project_id"`
	TradeID     string `json:"trade_id,omitempty"`
	Date        string `json:"date"`
	HoursWorked string `json:"hours_worked"`
	Notes       string `json:"notes,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

type UpdateRecordRequest struct {
	ProjectID   *string `json:"project_id,omitempty"`
	TradeID     *string `json:"trade_id,omitempty"`
	HoursWorked *string `json:"hours_worked,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type ConvertRequest struct {
	EntryIDs  []string `json:"entry_ids"`
	CreatedBy string   `json:"created_by,omitempty"`
}

type WorkerUnpaidDTO struct {
	WorkerID   string `json:"worker_id"`
	TotalHours string `json:"total_hours"`
	TotalCost  string `json:"total_cost"`
}

// =============================================================================
// PAY RUNS
// =============================================================================

type BatchDTO struct {
	ID             string  `json:"id"`
	DateRangeStart string  `json:"date_range_start"`
	DateRangeEnd   string  `json:"date_range_end"`
	PayerCompanyID string  `json:"payer_company_id,omitempty"`
	PayeeCompanyID string  `json:"payee_company_id,omitempty"`
	Status         string  `json:"status"`
	TotalAmount    string  `json:"total_amount"`
	PaymentDate    *string `json:"payment_date,omitempty"`
}

type ItemDTO struct {
	ID       string `json:"id"`
	PayRunID string `json:"pay_run_id"`
	RecordID string `json:"time_log_id"`
	WorkerID string `json:"worker_id"`
	Hours    string `json:"hours"`
	Rate     string `json:"rate"`
	Amount   string `json:"amount"`
}

type BatchDetailDTO struct {
	Batch   BatchDTO    `json:"pay_run"`
	Items   []ItemDTO   `json:"items"`
	Records []RecordDTO `json:"time_logs"`
}

type BuildBatchRequest struct {
	DateRangeStart string `json:"date_range_start"`
	DateRangeEnd   string `json:"date_range_end"`
	PayerCompanyID string `json:"payer_company_id,omitempty"`
	PayeeCompanyID string `json:"payee_company_id,omitempty"`
	WorkerID       string `json:"worker_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	// RecordIDs narrows the batch to a subset of the eligible records.
	// Empty means everything eligible in the range.
	RecordIDs []string `json:"time_log_ids,omitempty"`
}

// =============================================================================
// DOMAIN -> DTO CONVERSIONS
// =============================================================================

func toCompanyDTO(c directory.Company) CompanyDTO {
	return CompanyDTO{ID: string(c.ID), Name: c.Name}
}

func toWorkerDTO(w directory.Worker) WorkerDTO {
	return WorkerDTO{
		ID:         string(w.ID),
		CompanyID:  string(w.CompanyID),
		Name:       w.Name,
		HourlyRate: w.HourlyRate.String(),
	}
}

func toProjectDTO(p directory.Project) ProjectDTO {
	return ProjectDTO{ID: string(p.ID), CompanyID: string(p.CompanyID), Name: p.Name}
}

func toEntryDTO(e schedule.Entry) EntryDTO {
	return EntryDTO{
		ID:             string(e.ID),
		WorkerID:       string(e.WorkerID),
		ProjectID:      string(e.ProjectID),
		TradeID:        string(e.TradeID),
		CostCodeID:     string(e.CostCodeID),
		Date:           e.Date.String(),
		ScheduledHours: e.ScheduledHours.String(),
		Notes:          e.Notes,
		Status:         string(e.Status),
	}
}

func toEntryDTOs(entries []schedule.Entry) []EntryDTO {
	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	return dtos
}

func toRecordDTO(r timelog.Record) RecordDTO {
	dto := RecordDTO{
		ID:            string(r.ID),
		WorkerID:      string(r.WorkerID),
		ProjectID:     string(r.ProjectID),
		TradeID:       string(r.TradeID),
		Date:          r.Date.String(),
		HoursWorked:   r.HoursWorked.String(),
		LaborCost:     r.LaborCost.String(),
		Notes:         r.Notes,
		PaymentStatus: string(r.PaymentStatus),
		SourceEntryID: string(r.SourceEntryID),
		CreatedBy:     r.CreatedBy,
	}
	if r.PaymentDate != nil {
		s := r.PaymentDate.String()
		dto.PaymentDate = &s
	}
	return dto
}

func toRecordDTOs(records []timelog.Record) []RecordDTO {
	dtos := make([]RecordDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, toRecordDTO(r))
	}
	return dtos
}

func toBatchDTO(b payroll.Batch) BatchDTO {
	dto := BatchDTO{
		ID:             string(b.ID),
		DateRangeStart: b.DateRangeStart.String(),
		DateRangeEnd:   b.DateRangeEnd.String(),
		PayerCompanyID: string(b.PayerCompanyID),
		PayeeCompanyID: string(b.PayeeCompanyID),
		Status:         string(b.Status),
		TotalAmount:    b.TotalAmount.String(),
	}
	if b.PaymentDate != nil {
		s := b.PaymentDate.String()
		dto.PaymentDate = &s
	}
	return dto
}

func toItemDTOs(items []payroll.Item) []ItemDTO {
	dtos := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, ItemDTO{
			ID:       string(item.ID),
			PayRunID: string(item.PayRunID),
			RecordID: string(item.RecordID),
			WorkerID: string(item.WorkerID),
			Hours:    item.Hours.String(),
			Rate:     item.Rate.String(),
			Amount:   item.Amount.String(),
		})
	}
	return dtos
}

func toWorkerUnpaidDTOs(summary []timelog.WorkerUnpaid) []WorkerUnpaidDTO {
	dtos := make([]WorkerUnpaidDTO, 0, len(summary))
	for _, s := range summary {
		dtos = append(dtos, WorkerUnpaidDTO{
			WorkerID:   string(s.WorkerID),
			TotalHours: s.TotalHours.String(),
			TotalCost:  s.TotalCost.String(),
		})
	}
	return dtos
}
