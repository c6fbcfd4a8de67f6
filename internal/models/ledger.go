package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// LedgerDay is one calendar day of the cash ledger
type LedgerDay struct {
	Date            civil.Date      `json:"date"`
	Deployed        decimal.Decimal `json:"deployed"`
	Collected       decimal.Decimal `json:"collected"`
	NetInflow       decimal.Decimal `json:"net_inflow"` // Collected - Deployed
	CorpusRemaining decimal.Decimal `json:"corpus_remaining"`
}

// LedgerReport is the daily ledger with its totals
type LedgerReport struct {
	StartCorpus     decimal.Decimal `json:"start_corpus"`
	Days            []LedgerDay     `json:"days"`
	TotalDeployed   decimal.Decimal `json:"total_deployed"`
	TotalCollected  decimal.Decimal `json:"total_collected"`
	CorpusRemaining decimal.Decimal `json:"corpus_remaining"`
}
