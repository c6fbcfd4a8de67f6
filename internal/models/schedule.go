package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DayCountBasis is the denominator used to turn an annual rate into a daily rate
type DayCountBasis int

const (
	Basis360 DayCountBasis = 360
	Basis365 DayCountBasis = 365
)

// Valid reports whether the basis is one of the supported conventions
func (b DayCountBasis) Valid() bool {
	return b == Basis360 || b == Basis365
}

// Tenure is either a MonthlyTenure or a DailyTenure
type Tenure interface {
	tenure()
}

// MonthlyTenure is a whole number of months with an optional trailing stub in days
type MonthlyTenure struct {
	Years    int `json:"years"`
	Months   int `json:"months"`
	StubDays int `json:"stub_days"`
}

func (MonthlyTenure) tenure() {}

// Periods returns the number of whole monthly periods
func (t MonthlyTenure) Periods() int {
	return t.Years*12 + t.Months
}

// DailyTenure is an exact number of daily periods
type DailyTenure struct {
	Days int `json:"days"`
}

func (DailyTenure) tenure() {}

// LoanTerms holds everything needed to build a repayment schedule.
// AnnualRate is a fraction: 0.09 means 9%.
type LoanTerms struct {
	Principal  decimal.Decimal
	AnnualRate decimal.Decimal
	StartDate  civil.Date
	Basis      DayCountBasis
	Tenure     Tenure
}

// ScheduleRow represents one installment of an amortization schedule
type ScheduleRow struct {
	Period      int             `json:"period"`
	DueDate     civil.Date      `json:"due_date"`
	Opening     decimal.Decimal `json:"opening"`
	Interest    decimal.Decimal `json:"interest"`
	Principal   decimal.Decimal `json:"principal"`
	Installment decimal.Decimal `json:"installment"`
	Closing     decimal.Decimal `json:"closing"`
	Stub        bool            `json:"stub,omitempty"`
}

// Schedule is an ordered list of installments
type Schedule []ScheduleRow
