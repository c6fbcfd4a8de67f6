package schedule

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

// Summary holds the headline figures of a schedule, as shown on a key fact sheet
type Summary struct {
	Installments   int             `json:"installments"`
	EMI            decimal.Decimal `json:"emi"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	TotalPrincipal decimal.Decimal `json:"total_principal"`
	TotalPayable   decimal.Decimal `json:"total_payable"`
	FirstDueDate   civil.Date      `json:"first_due_date"`
	LastDueDate    civil.Date      `json:"last_due_date"`
}

// Summarize totals a schedule. The EMI is the installment of the first row.
func Summarize(rows models.Schedule) Summary {
	s := Summary{
		Installments:   len(rows),
		EMI:            decimal.Zero,
		TotalInterest:  decimal.Zero,
		TotalPrincipal: decimal.Zero,
		TotalPayable:   decimal.Zero,
	}
	if len(rows) == 0 {
		return s
	}

	s.EMI = rows[0].Installment
	s.FirstDueDate = rows[0].DueDate
	s.LastDueDate = rows[len(rows)-1].DueDate
	for _, r := range rows {
		s.TotalInterest = s.TotalInterest.Add(r.Interest)
		s.TotalPrincipal = s.TotalPrincipal.Add(r.Principal)
		s.TotalPayable = s.TotalPayable.Add(r.Installment)
	}
	return s
}
