// Package ledger rebuilds the daily cash view of the loan book: money deployed through
// disbursements against money collected through installments.
package ledger

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

// Range bounds the ledger; nil ends are derived from the data and today
type Range struct {
	From *civil.Date
	To   *civil.Date
}

// Build lays disbursements and collections on a day-by-day calendar. The calendar starts at
// the earliest of the data and r.From, and ends at the latest of the data and r.To (today when
// r.To is nil). CorpusRemaining is startCorpus less everything deployed and not yet collected.
func Build(disbursed, collected []models.Transaction, startCorpus decimal.Decimal, r Range, today civil.Date) models.LedgerReport {
	report := models.LedgerReport{
		StartCorpus:     startCorpus,
		Days:            []models.LedgerDay{},
		TotalDeployed:   decimal.Zero,
		TotalCollected:  decimal.Zero,
		CorpusRemaining: startCorpus,
	}
	if len(disbursed) == 0 && len(collected) == 0 && r.From == nil && r.To == nil {
		return report
	}

	deployedByDay := sumByDay(disbursed)
	collectedByDay := sumByDay(collected)
	first, last := Bounds(disbursed, collected, r, today)

	cumDeployed, cumCollected := decimal.Zero, decimal.Zero
	for day := first; !day.After(last); day = day.AddDays(1) {
		deployed := valueOr(deployedByDay, day)
		received := valueOr(collectedByDay, day)
		cumDeployed = cumDeployed.Add(deployed)
		cumCollected = cumCollected.Add(received)

		report.Days = append(report.Days, models.LedgerDay{
			Date:            day,
			Deployed:        deployed,
			Collected:       received,
			NetInflow:       received.Sub(deployed),
			CorpusRemaining: startCorpus.Sub(cumDeployed.Sub(cumCollected)),
		})
	}

	report.TotalDeployed = cumDeployed
	report.TotalCollected = cumCollected
	report.CorpusRemaining = report.Days[len(report.Days)-1].CorpusRemaining
	return report
}

// Bounds returns the first and last calendar day Build would report
func Bounds(disbursed, collected []models.Transaction, r Range, today civil.Date) (civil.Date, civil.Date) {
	var mins []civil.Date
	if r.From != nil {
		mins = append(mins, *r.From)
	}
	maxs := []civil.Date{today}
	if r.To != nil {
		maxs[0] = *r.To
	}
	for _, txs := range [][]models.Transaction{disbursed, collected} {
		for _, tx := range txs {
			mins = append(mins, tx.Date)
			maxs = append(maxs, tx.Date)
		}
	}

	first := today
	if len(mins) > 0 {
		first = mins[0]
		for _, d := range mins[1:] {
			if d.Before(first) {
				first = d
			}
		}
	}
	last := maxs[0]
	for _, d := range maxs[1:] {
		if d.After(last) {
			last = d
		}
	}
	if last.Before(first) {
		last = first
	}
	return first, last
}

func sumByDay(txs []models.Transaction) map[civil.Date]decimal.Decimal {
	sums := make(map[civil.Date]decimal.Decimal, len(txs))
	for _, tx := range txs {
		sums[tx.Date] = valueOr(sums, tx.Date).Add(tx.Amount)
	}
	return sums
}

func valueOr(m map[civil.Date]decimal.Decimal, day civil.Date) decimal.Decimal {
	if v, ok := m[day]; ok {
		return v
	}
	return decimal.Zero
}
