package handler

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Hj567/ub-unsecured-onboard/internal/models"
	"github.com/Hj567/ub-unsecured-onboard/internal/schedule"
)

var hundred = decimal.NewFromInt(100)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// termsRequest describes a loan. The rate is in percent; when it is omitted the current
// quoted rate applies.
type termsRequest struct {
	Principal         decimal.Decimal  `json:"principal"`
	AnnualRatePercent *decimal.Decimal `json:"annual_rate_percent,omitempty"`
	StartDate         civil.Date       `json:"start_date"`
	Basis             int              `json:"basis"`
	Mode              string           `json:"mode"`
	Years             int              `json:"years"`
	Months            int              `json:"months"`
	StubDays          int              `json:"stub_days"`
	Days              int              `json:"days"`
}

type createCreditRequest struct {
	termsRequest
	Account string `json:"account"`
}

type payRequest struct {
	PaidOn *civil.Date `json:"paid_on,omitempty"`
}

// toTerms converts the request into engine terms; ratePercent is the rate to use
func (req termsRequest) toTerms(ratePercent decimal.Decimal) (models.LoanTerms, error) {
	terms := models.LoanTerms{
		Principal:  req.Principal,
		AnnualRate: ratePercent.Div(hundred),
		StartDate:  req.StartDate,
		Basis:      models.DayCountBasis(req.Basis),
	}
	if req.Basis == 0 {
		terms.Basis = models.Basis365
	}

	switch req.Mode {
	case models.ModeMonthly, "":
		terms.Tenure = models.MonthlyTenure{Years: req.Years, Months: req.Months, StubDays: req.StubDays}
	case models.ModeDaily:
		terms.Tenure = models.DailyTenure{Days: req.Days}
	default:
		return terms, fmt.Errorf("%w: mode must be %q or %q, got %q", schedule.ErrInvalidInput, models.ModeMonthly, models.ModeDaily, req.Mode)
	}
	return terms, nil
}

type rowResponse struct {
	Period      int    `json:"period"`
	DueDate     string `json:"EMI_DUE_DATE"`
	Opening     string `json:"OPENING_OUTSTANDING"`
	Interest    string `json:"INTEREST"`
	Principal   string `json:"PRINCIPLE"`
	Installment string `json:"INSTALMENT"`
	Closing     string `json:"CLOSING_PRINCIPLE"`
	Stub        bool   `json:"stub,omitempty"`
}

func newRowResponse(r models.ScheduleRow) rowResponse {
	return rowResponse{
		Period:      r.Period,
		DueDate:     r.DueDate.String(),
		Opening:     r.Opening.StringFixed(2),
		Interest:    r.Interest.StringFixed(2),
		Principal:   r.Principal.StringFixed(2),
		Installment: r.Installment.StringFixed(2),
		Closing:     r.Closing.StringFixed(2),
		Stub:        r.Stub,
	}
}

type summaryResponse struct {
	Installments   int    `json:"installments"`
	EMI            string `json:"emi"`
	TotalInterest  string `json:"total_interest"`
	TotalPrincipal string `json:"total_principal"`
	TotalPayable   string `json:"total_payable"`
	FirstDueDate   string `json:"first_due_date,omitempty"`
	LastDueDate    string `json:"last_due_date,omitempty"`
}

func newSummaryResponse(rows models.Schedule) summaryResponse {
	s := schedule.Summarize(rows)
	resp := summaryResponse{
		Installments:   s.Installments,
		EMI:            s.EMI.StringFixed(2),
		TotalInterest:  s.TotalInterest.StringFixed(2),
		TotalPrincipal: s.TotalPrincipal.StringFixed(2),
		TotalPayable:   s.TotalPayable.StringFixed(2),
	}
	if len(rows) > 0 {
		resp.FirstDueDate = s.FirstDueDate.String()
		resp.LastDueDate = s.LastDueDate.String()
	}
	return resp
}

type scheduleResponse struct {
	Summary summaryResponse `json:"summary"`
	Rows    []rowResponse   `json:"rows"`
}

func newScheduleResponse(rows models.Schedule) scheduleResponse {
	resp := scheduleResponse{Summary: newSummaryResponse(rows), Rows: make([]rowResponse, 0, len(rows))}
	for _, r := range rows {
		resp.Rows = append(resp.Rows, newRowResponse(r))
	}
	return resp
}

type installmentResponse struct {
	rowResponse
	Paid   bool       `json:"paid"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

func newInstallmentResponse(ps models.PaymentSchedule) installmentResponse {
	return installmentResponse{rowResponse: newRowResponse(ps.ScheduleRow), Paid: ps.Paid, PaidAt: ps.PaidAt}
}

type creditResponse struct {
	ID                int64     `json:"id"`
	Reference         string    `json:"reference"`
	Principal         string    `json:"principal"`
	AnnualRatePercent string    `json:"annual_rate_percent"`
	Basis             int       `json:"basis"`
	StartDate         string    `json:"start_date"`
	Mode              string    `json:"mode"`
	Years             int       `json:"years,omitempty"`
	Months            int       `json:"months,omitempty"`
	StubDays          int       `json:"stub_days,omitempty"`
	Days              int       `json:"days,omitempty"`
	EMI               string    `json:"emi"`
	Account           string    `json:"account"`
	CreatedAt         time.Time `json:"created_at"`
}

func newCreditResponse(c *models.Credit) creditResponse {
	return creditResponse{
		ID:                c.ID,
		Reference:         c.Reference.String(),
		Principal:         c.Principal.StringFixed(2),
		AnnualRatePercent: c.InterestRate.Mul(hundred).String(),
		Basis:             int(c.Basis),
		StartDate:         c.StartDate.String(),
		Mode:              c.Mode,
		Years:             c.Years,
		Months:            c.Months,
		StubDays:          c.StubDays,
		Days:              c.Days,
		EMI:               c.EMI.StringFixed(2),
		Account:           c.Account,
		CreatedAt:         c.CreatedAt,
	}
}

type ledgerDayResponse struct {
	Date            string `json:"date"`
	Deployed        string `json:"deployed"`
	Collected       string `json:"collected"`
	NetInflow       string `json:"net_inflow"`
	CorpusRemaining string `json:"corpus_remaining"`
}

type ledgerResponse struct {
	StartCorpus     string              `json:"start_corpus"`
	TotalDeployed   string              `json:"total_deployed"`
	TotalCollected  string              `json:"total_collected"`
	CorpusRemaining string              `json:"corpus_remaining"`
	Days            []ledgerDayResponse `json:"days"`
}

func newLedgerResponse(r models.LedgerReport) ledgerResponse {
	resp := ledgerResponse{
		StartCorpus:     r.StartCorpus.StringFixed(2),
		TotalDeployed:   r.TotalDeployed.StringFixed(2),
		TotalCollected:  r.TotalCollected.StringFixed(2),
		CorpusRemaining: r.CorpusRemaining.StringFixed(2),
		Days:            make([]ledgerDayResponse, 0, len(r.Days)),
	}
	for _, d := range r.Days {
		resp.Days = append(resp.Days, ledgerDayResponse{
			Date:            d.Date.String(),
			Deployed:        d.Deployed.StringFixed(2),
			Collected:       d.Collected.StringFixed(2),
			NetInflow:       d.NetInflow.StringFixed(2),
			CorpusRemaining: d.CorpusRemaining.StringFixed(2),
		})
	}
	return resp
}
