package ledger

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2025, Month: 3, Day: d}
}

func tx(kind string, d int, amount string) models.Transaction {
	return models.Transaction{Type: kind, Date: day(d), Amount: decimal.RequireFromString(amount)}
}

func TestBuild(t *testing.T) {
	disbursed := []models.Transaction{
		tx(models.TransactionDisbursement, 2, "100000"),
		tx(models.TransactionDisbursement, 2, "50000"),
		tx(models.TransactionDisbursement, 4, "25000"),
	}
	collected := []models.Transaction{
		tx(models.TransactionCollection, 3, "9505.09"),
		tx(models.TransactionCollection, 5, "1000"),
	}

	report := Build(disbursed, collected, decimal.NewFromInt(1000000), Range{}, day(5))
	require.Len(t, report.Days, 4)

	want := []struct {
		date                         civil.Date
		deployed, collected, net, cr string
	}{
		{day(2), "150000.00", "0.00", "-150000.00", "850000.00"},
		{day(3), "0.00", "9505.09", "9505.09", "859505.09"},
		{day(4), "25000.00", "0.00", "-25000.00", "834505.09"},
		{day(5), "0.00", "1000.00", "1000.00", "835505.09"},
	}
	for i, w := range want {
		got := report.Days[i]
		assert.Equal(t, w.date, got.Date)
		assert.Equal(t, w.deployed, got.Deployed.StringFixed(2))
		assert.Equal(t, w.collected, got.Collected.StringFixed(2))
		assert.Equal(t, w.net, got.NetInflow.StringFixed(2))
		assert.Equal(t, w.cr, got.CorpusRemaining.StringFixed(2))
	}
	assert.Equal(t, "175000.00", report.TotalDeployed.StringFixed(2))
	assert.Equal(t, "10505.09", report.TotalCollected.StringFixed(2))
	assert.Equal(t, "835505.09", report.CorpusRemaining.StringFixed(2))
}

func TestBuildExtendsToRangeAndToday(t *testing.T) {
	from, to := day(1), day(6)
	report := Build([]models.Transaction{tx(models.TransactionDisbursement, 3, "10")}, nil,
		decimal.NewFromInt(100), Range{From: &from, To: &to}, day(20))

	require.Len(t, report.Days, 6)
	assert.Equal(t, day(1), report.Days[0].Date)
	assert.Equal(t, day(6), report.Days[5].Date)
	assert.Equal(t, "100.00", report.Days[1].CorpusRemaining.StringFixed(2))
	assert.Equal(t, "90.00", report.CorpusRemaining.StringFixed(2))

	// without an end the calendar runs to today
	report = Build([]models.Transaction{tx(models.TransactionDisbursement, 3, "10")}, nil,
		decimal.NewFromInt(100), Range{From: &from}, day(10))
	require.Len(t, report.Days, 10)
}

func TestBuildEmpty(t *testing.T) {
	report := Build(nil, nil, decimal.NewFromInt(500), Range{}, day(10))
	assert.Empty(t, report.Days)
	assert.Equal(t, "500.00", report.CorpusRemaining.StringFixed(2))

	// an explicit range with no data still yields a calendar
	from := day(8)
	report = Build(nil, nil, decimal.NewFromInt(500), Range{From: &from}, day(10))
	assert.Len(t, report.Days, 3)
}

func TestBuildEndBeforeStart(t *testing.T) {
	from, to := day(9), day(3)
	report := Build(nil, nil, decimal.Zero, Range{From: &from, To: &to}, day(1))
	require.Len(t, report.Days, 1)
	assert.Equal(t, day(9), report.Days[0].Date)
}
