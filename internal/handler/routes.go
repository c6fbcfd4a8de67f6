package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Hj567/ub-unsecured-onboard/internal/config"
	"github.com/Hj567/ub-unsecured-onboard/internal/middleware"
)

// NewRouter wires the public and authenticated routes
func NewRouter(h *Handler, cfg *config.Config, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))

	// Public routes
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/key-rate", h.KeyRate).Methods(http.MethodGet)
	r.HandleFunc("/schedule/preview", h.PreviewSchedule).Methods(http.MethodPost)
	r.HandleFunc("/schedule/export", h.ExportPreview).Methods(http.MethodPost)

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/credits", h.CreateCredit).Methods(http.MethodPost)
	authRouter.HandleFunc("/credits/{id:[0-9]+}", h.GetCredit).Methods(http.MethodGet)
	authRouter.HandleFunc("/credits/{id:[0-9]+}/schedule", h.GetSchedule).Methods(http.MethodGet)
	authRouter.HandleFunc("/credits/{id:[0-9]+}/schedule/export", h.ExportSchedule).Methods(http.MethodGet)
	authRouter.HandleFunc("/credits/{id:[0-9]+}/installments/{period:[0-9]+}/pay", h.PayInstallment).Methods(http.MethodPost)
	authRouter.HandleFunc("/ledger", h.Ledger).Methods(http.MethodGet)

	return r
}
