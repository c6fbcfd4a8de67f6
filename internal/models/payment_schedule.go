package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentSchedule represents a persisted installment of a credit
type PaymentSchedule struct {
	ID       int64      `json:"id"`
	CreditID int64      `json:"credit_id"`
	Paid     bool       `json:"paid"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
	ScheduleRow
}

// DueInstallment is an unpaid installment joined with its borrower
type DueInstallment struct {
	PaymentSchedule
	Reference uuid.UUID `json:"reference"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
}
