package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Hj567/ub-unsecured-onboard/internal/middleware"
	"github.com/Hj567/ub-unsecured-onboard/internal/models"
	"github.com/Hj567/ub-unsecured-onboard/internal/schedule"
	"github.com/Hj567/ub-unsecured-onboard/internal/service"
)

// Service is the business logic behind the HTTP API
type Service interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	QuoteRate(ctx context.Context) (decimal.Decimal, error)
	PreviewSchedule(ctx context.Context, terms models.LoanTerms) (models.Schedule, error)
	CreateCredit(ctx context.Context, userID int64, terms models.LoanTerms, account string) (*models.Credit, models.Schedule, error)
	GetCredit(ctx context.Context, userID, id int64) (*models.Credit, error)
	GetSchedule(ctx context.Context, userID, id int64) ([]models.PaymentSchedule, error)
	RecordPayment(ctx context.Context, userID, creditID int64, period int, paidOn civil.Date) (*models.PaymentSchedule, error)
	Ledger(ctx context.Context, from, to *civil.Date, startCorpus decimal.Decimal) (models.LedgerReport, error)
}

var _ Service = &service.Service{}

// Handler serves the HTTP API
type Handler struct {
	svc Service
	log *logrus.Logger
	now func() time.Time
}

// NewHandler initializes a new handler
func NewHandler(svc Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, now: time.Now}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// KeyRate returns the annual rate currently offered
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.svc.QuoteRate(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"annual_rate_percent": rate.StringFixed(2)})
}

// resolveTerms fills in the quoted rate when the request has none
func (h *Handler) resolveTerms(ctx context.Context, req termsRequest) (models.LoanTerms, error) {
	var rate decimal.Decimal
	if req.AnnualRatePercent != nil {
		rate = *req.AnnualRatePercent
	} else {
		quoted, err := h.svc.QuoteRate(ctx)
		if err != nil {
			return models.LoanTerms{}, err
		}
		rate = quoted
	}
	return req.toTerms(rate)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicate), errors.Is(err, service.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUpstream):
		h.log.Errorf("Failed to get key rate: %v", err)
		writeError(w, http.StatusBadGateway, "key rate unavailable")
	default:
		h.log.Errorf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	}
	return id, ok
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
