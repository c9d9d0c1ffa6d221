/*
Package core provides the shared leaf types for the labor pipeline.

PURPOSE:
  This package contains the types every other package agrees on: calendar
  dates, decimal hours and money, type-safe identifiers, and the error
  taxonomy. It has no dependencies on storage or transport.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar day with no time component (schedule/record dates)
  - WorkerID/ProjectID/...: Type-safe identifiers
  - PaymentStatus: unpaid | paid, the sole arbiter of "has this been paid"

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing worker/project IDs
  3. Day Granularity: Scheduling is per calendar day; Date normalizes to UTC
     midnight so comparisons never depend on wall-clock time

SEE ALSO:
  - rate.go: Cost and effective-rate derivation
  - errors.go: Error taxonomy shared across services
*/
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WorkerID string
type ProjectID string
type CompanyID string
type TradeID string
type CostCodeID string
type EntryID string
type RecordID string
type PayRunID string
type PayRunItemID string

// =============================================================================
// PAYMENT STATUS
// =============================================================================

// PaymentStatus is the sole arbiter of whether a unit of labor has been paid.
// Only the settlement service may flip it to PaymentPaid.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// =============================================================================
// DATE - Calendar day with no time component
// =============================================================================

// Date is a calendar day. All scheduling and payroll dates are day-granular;
// the underlying time is always UTC midnight.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }
func (d Date) IsZero() bool                  { return d.Time.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// DateRange is an inclusive [Start, End] span of calendar days.
type DateRange struct {
	Start Date
	End   Date
}

// Valid reports whether the range is well-formed: both ends set and End not
// before Start.
func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.End.AfterOrEqual(r.Start)
}

// Contains reports whether d falls within the range, inclusive on both ends.
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MustParseDecimal parses a decimal string, returning zero on failure.
// Used when scanning values we wrote ourselves.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalFromFloat converts a float input (API boundary) to a decimal.
func DecimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
