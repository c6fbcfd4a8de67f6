package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

// CreateCredit books a loan for the authenticated user
func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req createCreditRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	terms, err := h.resolveTerms(r.Context(), req.termsRequest)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	credit, rows, err := h.svc.CreateCredit(r.Context(), uid, terms, req.Account)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Credit   creditResponse   `json:"credit"`
		Schedule scheduleResponse `json:"schedule"`
	}{newCreditResponse(credit), newScheduleResponse(rows)})
}

// GetCredit returns one of the user's credits
func (h *Handler) GetCredit(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}

	credit, err := h.svc.GetCredit(r.Context(), uid, id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCreditResponse(credit))
}

// GetSchedule returns the stored installments of a credit with their payment status
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	installments, ok := h.installments(w, r)
	if !ok {
		return
	}

	rows := make([]installmentResponse, 0, len(installments))
	for _, ps := range installments {
		rows = append(rows, newInstallmentResponse(ps))
	}
	writeJSON(w, http.StatusOK, struct {
		Summary summaryResponse       `json:"summary"`
		Rows    []installmentResponse `json:"rows"`
	}{newSummaryResponse(toSchedule(installments)), rows})
}

// ExportSchedule returns the stored schedule of a credit as a spreadsheet
func (h *Handler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	installments, ok := h.installments(w, r)
	if !ok {
		return
	}
	h.writeExport(w, r, toSchedule(installments))
}

func (h *Handler) installments(w http.ResponseWriter, r *http.Request) ([]models.PaymentSchedule, bool) {
	uid, ok := userID(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathInt(w, r, "id")
	if !ok {
		return nil, false
	}

	installments, err := h.svc.GetSchedule(r.Context(), uid, id)
	if err != nil {
		h.serviceError(w, err)
		return nil, false
	}
	return installments, true
}

// PayInstallment records the payment of one installment; paid_on defaults to today
func (h *Handler) PayInstallment(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	period, ok := pathInt(w, r, "period")
	if !ok {
		return
	}

	var req payRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	paidOn := civil.DateOf(h.now())
	if req.PaidOn != nil {
		paidOn = *req.PaidOn
	}

	installment, err := h.svc.RecordPayment(r.Context(), uid, id, int(period), paidOn)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newInstallmentResponse(*installment))
}

// Ledger returns the daily deployment and collection report.
// Query parameters: from, to (YYYY-MM-DD) and start_corpus.
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
		return
	}
	to, err := queryDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
		return
	}
	startCorpus := decimal.Zero
	if raw := q.Get("start_corpus"); raw != "" {
		if startCorpus, err = decimal.NewFromString(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_corpus")
			return
		}
	}

	report, err := h.svc.Ledger(r.Context(), from, to, startCorpus)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLedgerResponse(report))
}

func toSchedule(installments []models.PaymentSchedule) models.Schedule {
	rows := make(models.Schedule, 0, len(installments))
	for _, ps := range installments {
		rows = append(rows, ps.ScheduleRow)
	}
	return rows
}

func queryDate(raw string) (*civil.Date, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// decodeOptional decodes a JSON body that may be absent
func decodeOptional(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}
