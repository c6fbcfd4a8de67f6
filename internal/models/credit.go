package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenure modes stored with a credit
const (
	ModeMonthly = "monthly"
	ModeDaily   = "daily"
)

// Credit represents a booked loan
type Credit struct {
	ID           int64           `json:"id"`
	Reference    uuid.UUID       `json:"reference"`
	UserID       int64           `json:"user_id"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"` // fraction
	Basis        DayCountBasis   `json:"basis"`
	StartDate    civil.Date      `json:"start_date"`
	Mode         string          `json:"mode"`
	Years        int             `json:"years"`
	Months       int             `json:"months"`
	StubDays     int             `json:"stub_days"`
	Days         int             `json:"days"`
	EMI          decimal.Decimal `json:"emi"`
	Account      string          `json:"-"` // encrypted disbursement account
	HMAC         string          `json:"hmac"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Terms rebuilds the loan terms the credit was booked with
func (c *Credit) Terms() LoanTerms {
	terms := LoanTerms{
		Principal:  c.Principal,
		AnnualRate: c.InterestRate,
		StartDate:  c.StartDate,
		Basis:      c.Basis,
	}
	if c.Mode == ModeDaily {
		terms.Tenure = DailyTenure{Days: c.Days}
	} else {
		terms.Tenure = MonthlyTenure{Years: c.Years, Months: c.Months, StubDays: c.StubDays}
	}
	return terms
}

// SetTenure copies the tenure variant into the flat credit columns
func (c *Credit) SetTenure(t Tenure) {
	switch v := t.(type) {
	case MonthlyTenure:
		c.Mode = ModeMonthly
		c.Years, c.Months, c.StubDays, c.Days = v.Years, v.Months, v.StubDays, 0
	case DailyTenure:
		c.Mode = ModeDaily
		c.Years, c.Months, c.StubDays, c.Days = 0, 0, 0, v.Days
	}
}
