package models

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionDisbursement = "disbursement"
	TransactionCollection   = "collection"
)

// Transaction represents money leaving (disbursement) or entering (collection) the book
type Transaction struct {
	ID          int64           `json:"id"`
	CreditID    int64           `json:"credit_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
