package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetLine represents a planned monthly amount tied to an account and a
// category for a specific calendar year. Amounts are stored per month in
// a fixed 12-slot array (index 0 = January).
type BudgetLine struct {
	ID          uuid.UUID
	BudgetID    uuid.UUID
	AccountID   uuid.UUID
	Category    string
	Subcategory string
	Provider    string
	Description string
	Year        int
	// ExpectedDay is the day of month the planned charge usually lands on.
	// Zero means no planned day is recorded for this line.
	ExpectedDay    int
	MonthlyAmounts [12]decimal.Decimal
}

// AmountForMonth returns the planned amount for the given month.
func (b *BudgetLine) AmountForMonth(month time.Month) decimal.Decimal {
	return b.MonthlyAmounts[int(month)-1]
}

// AppliesTo reports whether the line participates in matching for the
// movement's month. A line with a zero amount for that month never
// matches, regardless of any other criterion.
func (b *BudgetLine) AppliesTo(date time.Time) bool {
	if b.Year != date.Year() {
		return false
	}
	return !b.AmountForMonth(date.Month()).IsZero()
}

// ExpectedDate returns the planned calendar date for the movement's month,
// or the zero time when the line has no expected day.
func (b *BudgetLine) ExpectedDate(month time.Month) time.Time {
	if b.ExpectedDay == 0 {
		return time.Time{}
	}
	return time.Date(b.Year, month, b.ExpectedDay, 0, 0, 0, 0, time.UTC)
}
