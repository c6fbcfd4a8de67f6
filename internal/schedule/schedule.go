// Package schedule builds amortization schedules for monthly and daily loans.
//
// Every monetary value is rounded to two decimals (half away from zero) as soon as it is
// derived, and the next period starts from the rounded closing balance. The final row of
// every schedule closes at exactly zero.
package schedule

import (
	"errors"
	"fmt"
	"math"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

// ErrInvalidInput is returned when loan terms cannot produce a schedule
var ErrInvalidInput = errors.New("invalid input")

var (
	monthsPerYear   = decimal.NewFromInt(12)
	zeroRateEpsilon = decimal.New(1, -15)
	// balances at or below half a cent are rounding residue, not debt
	payoffThreshold = decimal.New(5, -3)
)

// Tenure limits: a thousand years in either mode
const (
	maxMonthlyPeriods = 12000
	maxDays           = 366000
)

// Validate checks loan terms before any row is computed
func Validate(terms models.LoanTerms) error {
	if !terms.Principal.IsPositive() {
		return fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidInput, terms.Principal)
	}
	if terms.AnnualRate.IsNegative() {
		return fmt.Errorf("%w: annual rate must not be negative, got %s", ErrInvalidInput, terms.AnnualRate)
	}
	if !terms.Basis.Valid() {
		return fmt.Errorf("%w: day count basis must be 360 or 365, got %d", ErrInvalidInput, terms.Basis)
	}
	if !terms.StartDate.IsValid() {
		return fmt.Errorf("%w: start date %s is not a valid date", ErrInvalidInput, terms.StartDate)
	}

	switch t := terms.Tenure.(type) {
	case models.MonthlyTenure:
		if t.Years < 0 || t.Months < 0 || t.StubDays < 0 {
			return fmt.Errorf("%w: years, months and stub days must not be negative", ErrInvalidInput)
		}
		// checked piecewise so Years*12 cannot overflow
		if t.Years > maxMonthlyPeriods/12 || t.Months > maxMonthlyPeriods || t.Periods() > maxMonthlyPeriods {
			return fmt.Errorf("%w: tenure must not exceed %d months", ErrInvalidInput, maxMonthlyPeriods)
		}
		if t.StubDays > maxDays {
			return fmt.Errorf("%w: stub days must not exceed %d", ErrInvalidInput, maxDays)
		}
	case models.DailyTenure:
		if t.Days <= 0 {
			return fmt.Errorf("%w: days must be positive, got %d", ErrInvalidInput, t.Days)
		}
		if t.Days > maxDays {
			return fmt.Errorf("%w: days must not exceed %d, got %d", ErrInvalidInput, maxDays, t.Days)
		}
	default:
		return fmt.Errorf("%w: tenure is required", ErrInvalidInput)
	}
	return nil
}

// Generate builds the schedule matching the tenure variant of terms
func Generate(terms models.LoanTerms) (models.Schedule, error) {
	if _, ok := terms.Tenure.(models.DailyTenure); ok {
		return Daily(terms)
	}
	return Monthly(terms)
}

// AnnuityPayment returns the unrounded level installment that repays principal over n
// periods at the periodic rate r.
func AnnuityPayment(principal, r decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	if r.Abs().LessThan(zeroRateEpsilon) {
		return principal.Div(decimal.NewFromInt(int64(n)))
	}

	rate := r.InexactFloat64()
	factor := math.Pow(1+rate, float64(n))
	if math.IsInf(factor, 1) {
		// the factor/(factor-1) term tends to 1
		return principal.Mul(r)
	}
	return decimal.NewFromFloat(principal.InexactFloat64() * rate * factor / (factor - 1))
}

// Monthly builds a schedule of whole monthly periods, paid in arrears, optionally followed
// by a stub row that settles the remaining balance with simple daily interest.
func Monthly(terms models.LoanTerms) (models.Schedule, error) {
	if err := Validate(terms); err != nil {
		return nil, err
	}
	tenure, ok := terms.Tenure.(models.MonthlyTenure)
	if !ok {
		return nil, fmt.Errorf("%w: monthly schedule needs a monthly tenure", ErrInvalidInput)
	}

	periods := tenure.Periods()
	monthlyRate := terms.AnnualRate.Div(monthsPerYear)
	dailyRate := terms.AnnualRate.Div(decimal.NewFromInt(int64(terms.Basis)))
	emi := AnnuityPayment(terms.Principal, monthlyRate, periods).Round(2)

	rows := make(models.Schedule, 0, periods+1)
	opening := terms.Principal.Round(2)
	due := AddMonths(terms.StartDate, 1)

	for k := 1; k <= periods; k++ {
		row := levelRow(k, due, opening, monthlyRate, emi)
		// Without a stub to absorb it, the last month settles whatever is left.
		if k == periods && (tenure.StubDays == 0 || !row.Closing.GreaterThan(payoffThreshold)) {
			row = settle(row)
		}
		rows = append(rows, row)
		opening = row.Closing
		due = AddMonths(due, 1)
	}

	if tenure.StubDays > 0 && opening.GreaterThan(payoffThreshold) {
		last := terms.StartDate
		if len(rows) > 0 {
			last = rows[len(rows)-1].DueDate
		}
		interest := opening.Mul(dailyRate).Mul(decimal.NewFromInt(int64(tenure.StubDays))).Round(2)
		rows = append(rows, models.ScheduleRow{
			Period:      periods + 1,
			DueDate:     last.AddDays(tenure.StubDays),
			Opening:     opening,
			Interest:    interest,
			Principal:   opening,
			Installment: opening.Add(interest),
			Closing:     decimal.Zero,
			Stub:        true,
		})
	}

	return rows, nil
}

// Daily builds a schedule with one installment per day, the first due the day after start.
func Daily(terms models.LoanTerms) (models.Schedule, error) {
	if err := Validate(terms); err != nil {
		return nil, err
	}
	tenure, ok := terms.Tenure.(models.DailyTenure)
	if !ok {
		return nil, fmt.Errorf("%w: daily schedule needs a daily tenure", ErrInvalidInput)
	}

	dailyRate := terms.AnnualRate.Div(decimal.NewFromInt(int64(terms.Basis)))
	emi := AnnuityPayment(terms.Principal, dailyRate, tenure.Days).Round(2)

	rows := make(models.Schedule, 0, tenure.Days)
	opening := terms.Principal.Round(2)

	for d := 1; d <= tenure.Days; d++ {
		row := levelRow(d, terms.StartDate.AddDays(d), opening, dailyRate, emi)
		if d == tenure.Days {
			row = settle(row)
		}
		rows = append(rows, row)
		opening = row.Closing
	}

	return rows, nil
}

// levelRow pays the level installment. The rounded EMI can exceed the exact one by up to half
// a cent, so on long tenures the balance may run out early; that row repays only what is left
// and every later row is zero.
func levelRow(period int, due civil.Date, opening, rate, emi decimal.Decimal) models.ScheduleRow {
	interest := opening.Mul(rate).Round(2)
	principal := emi.Sub(interest)
	row := models.ScheduleRow{
		Period:      period,
		DueDate:     due,
		Opening:     opening,
		Interest:    interest,
		Principal:   principal,
		Installment: emi,
		Closing:     opening.Sub(principal),
	}
	if principal.GreaterThan(opening) {
		return settle(row)
	}
	return row
}

// settle turns a level row into the payoff row: the whole opening balance is repaid.
func settle(row models.ScheduleRow) models.ScheduleRow {
	row.Principal = row.Opening
	row.Installment = row.Interest.Add(row.Opening)
	row.Closing = decimal.Zero
	return row
}
