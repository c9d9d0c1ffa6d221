/*
rate.go - Rate and cost derivation

PURPOSE:
  The two pure calculations that connect hours and money. Cost is applied
  exactly once, when a time record is materialized: the worker's current
  hourly rate is multiplied in and the result is stored. It is never
  recomputed from a later rate.

  EffectiveRate runs the other way - given a stored cost and hours it
  derives the rate that was in force at creation. It exists for display
  and pay-run line items only; the stored cost stays authoritative.

SEE ALSO:
  - timelog/convert.go: The one place Cost bakes a rate into a record
  - payroll/builder.go: Uses EffectiveRate for line items
*/
package core

import "github.com/shopspring/decimal"

// Cost computes the monetary cost of hours worked at an hourly rate.
// Full precision is kept; rounding to the currency's minor unit is a
// presentation concern.
func Cost(hours, rate decimal.Decimal) decimal.Decimal {
	return hours.Mul(rate)
}

// EffectiveRate derives the hourly rate implied by a stored cost.
// Returns zero when hours is zero. Display/derivation only - never a new
// source of truth.
func EffectiveRate(amount, hours decimal.Decimal) decimal.Decimal {
	if hours.IsZero() {
		return decimal.Zero
	}
	return amount.Div(hours)
}
