/*
errors.go - Centralized error taxonomy for the labor pipeline

PURPOSE:
  All error types in one place for consistency and discoverability.
  Service packages return these; the API layer maps them to HTTP status.

ERROR CATEGORIES:
  1. Validation errors - bad input, recovered locally by the caller
  2. Locked - schedule edit blocked by a past-or-present linked record
  3. AllocationMismatch - split targets don't conserve total hours
  4. AlreadySettled / AlreadyClaimed - payroll state conflicts
  5. NotFound - referenced row does not exist

USAGE:
  if errors.Is(err, core.ErrLocked) { ... }

  var mismatch *core.AllocationMismatchError
  if errors.As(err, &mismatch) { ... }

SEE ALSO:
  - schedule/service.go, payroll/settlement.go: Producers
  - api/handlers.go: HTTP status mapping
*/
package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for missing required fields, non-positive
	// hours, or an end date before a start date.
	ErrValidation = errors.New("validation failed")

	// ErrLocked is returned when editing a schedule entry that has a linked
	// time record and is dated today or in the past.
	ErrLocked = errors.New("schedule entry locked by linked time record")

	// ErrAllocationMismatch is returned when split targets don't sum to the
	// original total hours. Rejected before any write.
	ErrAllocationMismatch = errors.New("allocation hours do not match original total")

	// ErrAlreadySettled is returned when settlement or deletion is attempted
	// on a non-draft pay run. Rejected, no partial effect.
	ErrAlreadySettled = errors.New("pay run already settled")

	// ErrAlreadyClaimed is returned when a time record is already held by a
	// live (draft or paid) pay run and a second builder tries to claim it.
	ErrAlreadyClaimed = errors.New("time record already claimed by a pay run")

	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError identifies the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError constructs a field-level validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// LockedError carries the entry and the record that locks it, so the UI can
// redirect the user to edit the time record instead.
type LockedError struct {
	EntryID  EntryID
	RecordID RecordID
	Date     Date
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("entry %s dated %s is locked by time record %s", e.EntryID, e.Date, e.RecordID)
}

func (e *LockedError) Unwrap() error { return ErrLocked }

// AllocationMismatchError reports the conservation failure in a split.
type AllocationMismatchError struct {
	WorkerID  WorkerID
	Date      Date
	Original  decimal.Decimal
	Allocated decimal.Decimal
}

func (e *AllocationMismatchError) Error() string {
	return fmt.Sprintf("allocation mismatch for worker %s on %s: original %s, allocated %s",
		e.WorkerID, e.Date, e.Original, e.Allocated)
}

func (e *AllocationMismatchError) Unwrap() error { return ErrAllocationMismatch }

// AlreadyClaimedError identifies the record and the pay run holding it.
type AlreadyClaimedError struct {
	RecordID RecordID
	PayRunID PayRunID
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("time record %s already claimed by pay run %s", e.RecordID, e.PayRunID)
}

func (e *AlreadyClaimedError) Unwrap() error { return ErrAlreadyClaimed }

// NotFoundError names the missing row.
type NotFoundError struct {
	Kind string // "schedule entry", "time record", "pay run", "worker", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAllocationMismatch)
}

// IsConflict returns true if the error is a state conflict the client must
// resolve before retrying.
func IsConflict(err error) bool {
	return errors.Is(err, ErrLocked) ||
		errors.Is(err, ErrAlreadySettled) ||
		errors.Is(err, ErrAlreadyClaimed)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
