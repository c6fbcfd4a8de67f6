package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hj567/ub-unsecured-onboard/internal/cache"
	"github.com/Hj567/ub-unsecured-onboard/internal/config"
	"github.com/Hj567/ub-unsecured-onboard/internal/models"
	"github.com/Hj567/ub-unsecured-onboard/internal/schedule"
)

type fakeStore struct {
	mu           sync.Mutex
	users        map[string]*models.User
	credits      map[int64]*models.Credit
	installments map[int64][]models.PaymentSchedule
	transactions []models.Transaction
	nextID       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[string]*models.User),
		credits:      make(map[int64]*models.Credit),
		installments: make(map[int64][]models.PaymentSchedule),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
	}
	user.ID = f.id()
	stored := *user
	f.users[user.Email] = &stored
	return nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (f *fakeStore) CreateCredit(_ context.Context, credit *models.Credit, rows models.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	credit.ID = f.id()
	stored := *credit
	f.credits[credit.ID] = &stored
	for _, row := range rows {
		f.installments[credit.ID] = append(f.installments[credit.ID], models.PaymentSchedule{
			ID:          f.id(),
			CreditID:    credit.ID,
			ScheduleRow: row,
		})
	}
	f.transactions = append(f.transactions, models.Transaction{
		ID:       f.id(),
		CreditID: credit.ID,
		Amount:   credit.Principal,
		Type:     models.TransactionDisbursement,
		Date:     credit.StartDate,
	})
	return nil
}

func (f *fakeStore) FindCreditByID(_ context.Context, id int64) (*models.Credit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	credit, ok := f.credits[id]
	if !ok {
		return nil, fmt.Errorf("credit %d: %w", id, ErrNotFound)
	}
	copied := *credit
	return &copied, nil
}

func (f *fakeStore) ListSchedule(_ context.Context, creditID int64) ([]models.PaymentSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.PaymentSchedule(nil), f.installments[creditID]...), nil
}

func (f *fakeStore) MarkInstallmentPaid(_ context.Context, creditID int64, period int, paidOn civil.Date) (*models.PaymentSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.installments[creditID]
	for i := range rows {
		if rows[i].Period != period {
			continue
		}
		if rows[i].Paid {
			return nil, fmt.Errorf("installment %d: %w", period, ErrAlreadyPaid)
		}
		paidAt := paidOn.In(time.UTC)
		rows[i].Paid = true
		rows[i].PaidAt = &paidAt
		f.transactions = append(f.transactions, models.Transaction{
			ID:       f.id(),
			CreditID: creditID,
			Amount:   rows[i].Installment,
			Type:     models.TransactionCollection,
			Date:     paidOn,
		})
		paid := rows[i]
		return &paid, nil
	}
	return nil, fmt.Errorf("installment %d: %w", period, ErrNotFound)
}

func (f *fakeStore) ListDueInstallments(_ context.Context, from, to civil.Date) ([]models.DueInstallment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DueInstallment
	for creditID, rows := range f.installments {
		credit := f.credits[creditID]
		for _, row := range rows {
			if row.Paid || row.DueDate.Before(from) || row.DueDate.After(to) {
				continue
			}
			due := models.DueInstallment{PaymentSchedule: row, Reference: credit.Reference}
			for _, u := range f.users {
				if u.ID == credit.UserID {
					due.Email, due.Username = u.Email, u.Username
				}
			}
			out = append(out, due)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, kind string, from, to *civil.Date) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.transactions {
		if t.Type != kind || (from != nil && t.Date.Before(*from)) || (to != nil && t.Date.After(*to)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type countingCache struct {
	*cache.MemoryCache
	sets int
}

func (c *countingCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.sets++
	return c.MemoryCache.Set(ctx, key, value, ttl)
}

type fixedRate struct {
	rate decimal.Decimal
	err  error
}

func (f fixedRate) AnnualRatePercent(context.Context) (decimal.Decimal, error) {
	return f.rate, f.err
}

type recordingNotifier struct {
	sent    []models.DueInstallment
	overdue []bool
	failFor int
}

func (n *recordingNotifier) SendInstallmentReminder(due models.DueInstallment, overdue bool) error {
	if due.Period == n.failFor {
		return errors.New("mailbox unavailable")
	}
	n.sent = append(n.sent, due)
	n.overdue = append(n.overdue, overdue)
	return nil
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	cache    *countingCache
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		JWTSecret:       "test-secret",
		HMACSecret:      "hmac-secret",
		EncryptionKey:   []byte("0123456789abcdef0123456789abcdef"),
		CacheTTL:        time.Minute,
		ReminderDays:    3,
		MaxScheduleRows: 3660,
		MaxLedgerDays:   3660,
		StartingCorpus:  decimal.RequireFromString("7500000"),
	}
	f := &fixture{
		store:    newFakeStore(),
		cache:    &countingCache{MemoryCache: cache.NewMemoryCache()},
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(f.store, f.cache, fixedRate{rate: decimal.RequireFromString("23.5")}, f.notifier, logger, cfg)
	f.svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func loanTerms() models.LoanTerms {
	return models.LoanTerms{
		Principal:  decimal.RequireFromString("100000"),
		AnnualRate: decimal.RequireFromString("0.09"),
		StartDate:  civil.Date{Year: 2025, Month: time.January, Day: 31},
		Basis:      models.Basis365,
		Tenure:     models.MonthlyTenure{Months: 11, StubDays: 10},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "asha", "asha@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	_, err = f.svc.Register(ctx, "asha", "asha@example.com", "other")
	assert.ErrorIs(t, err, ErrDuplicate)

	token, err := f.svc.Login(ctx, "asha@example.com", "s3cret")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithTimeFunc(f.svc.now))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(user.ID, 10), claims.Subject)

	_, err = f.svc.Login(ctx, "asha@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPreviewScheduleUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.PreviewSchedule(ctx, loanTerms())
	require.NoError(t, err)
	require.Len(t, first, 12)
	assert.Equal(t, 1, f.cache.sets)

	second, err := f.svc.PreviewSchedule(ctx, loanTerms())
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.sets)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.JSONEq(t, string(a), string(b))

	other := loanTerms()
	other.Tenure = models.MonthlyTenure{Months: 12}
	_, err = f.svc.PreviewSchedule(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 2, f.cache.sets)
}

func TestPreviewScheduleRejectsInvalidTerms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := loanTerms()
	bad.Principal = decimal.Zero
	_, err := f.svc.PreviewSchedule(ctx, bad)
	assert.ErrorIs(t, err, schedule.ErrInvalidInput)

	f.svc.config.MaxScheduleRows = 11
	_, err = f.svc.PreviewSchedule(ctx, loanTerms())
	assert.ErrorIs(t, err, schedule.ErrInvalidInput)
	assert.Zero(t, f.cache.sets)
}

func TestQuoteRate(t *testing.T) {
	f := newFixture(t)
	rate, err := f.svc.QuoteRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "23.50", rate.StringFixed(2))

	f.svc.rates = fixedRate{err: errors.New("upstream down")}
	_, err = f.svc.QuoteRate(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorContains(t, err, "upstream down")
}

func TestCreditLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "asha", "asha@example.com", "s3cret")
	require.NoError(t, err)

	credit, rows, err := f.svc.CreateCredit(ctx, user.ID, loanTerms(), "40817810099910004312")
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.Equal(t, "9505.09", credit.EMI.StringFixed(2))
	assert.Equal(t, models.ModeMonthly, credit.Mode)
	assert.Equal(t, "****************4312", credit.Account)
	assert.NotEqual(t, credit.Account, f.store.credits[credit.ID].Account)

	loaded, err := f.svc.GetCredit(ctx, user.ID, credit.ID)
	require.NoError(t, err)
	assert.Equal(t, credit.Reference, loaded.Reference)
	assert.Equal(t, "****************4312", loaded.Account)

	_, err = f.svc.GetCredit(ctx, user.ID+100, credit.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	installments, err := f.svc.GetSchedule(ctx, user.ID, credit.ID)
	require.NoError(t, err)
	require.Len(t, installments, 12)
	assert.True(t, installments[11].Stub)

	paidOn := civil.Date{Year: 2025, Month: time.February, Day: 28}
	paid, err := f.svc.RecordPayment(ctx, user.ID, credit.ID, 1, paidOn)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	assert.Equal(t, "9505.09", paid.Installment.StringFixed(2))

	_, err = f.svc.RecordPayment(ctx, user.ID, credit.ID, 1, paidOn)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	_, err = f.svc.RecordPayment(ctx, user.ID, credit.ID, 99, paidOn)
	assert.ErrorIs(t, err, ErrNotFound)

	report, err := f.svc.Ledger(ctx, nil, nil, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "7500000.00", report.StartCorpus.StringFixed(2))
	assert.Equal(t, "100000.00", report.TotalDeployed.StringFixed(2))
	assert.Equal(t, "9505.09", report.TotalCollected.StringFixed(2))
	assert.Equal(t, "7409505.09", report.CorpusRemaining.StringFixed(2))
	require.NotEmpty(t, report.Days)
	assert.Equal(t, "2025-01-31", report.Days[0].Date.String())
	assert.Equal(t, "2025-03-01", report.Days[len(report.Days)-1].Date.String())
}

func TestGetCreditDetectsTampering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	credit, _, err := f.svc.CreateCredit(ctx, 7, loanTerms(), "40817810099910004312")
	require.NoError(t, err)

	f.store.credits[credit.ID].Principal = decimal.RequireFromString("1000000")
	_, err = f.svc.GetCredit(ctx, 7, credit.ID)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestLedgerRejectsLongSpan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	from := civil.Date{Year: 1, Month: time.January, Day: 1}
	to := civil.Date{Year: 9999, Month: time.December, Day: 31}
	_, err := f.svc.Ledger(ctx, &from, &to, decimal.Zero)
	assert.ErrorIs(t, err, schedule.ErrInvalidInput)

	// an open end runs to today, 2025-03-01
	_, err = f.svc.Ledger(ctx, &from, nil, decimal.Zero)
	assert.ErrorIs(t, err, schedule.ErrInvalidInput)

	f.svc.config.MaxLedgerDays = 31
	from = civil.Date{Year: 2025, Month: time.January, Day: 1}
	to = civil.Date{Year: 2025, Month: time.January, Day: 31}
	report, err := f.svc.Ledger(ctx, &from, &to, decimal.Zero)
	require.NoError(t, err)
	assert.Len(t, report.Days, 31)

	to = to.AddDays(1)
	_, err = f.svc.Ledger(ctx, &from, &to, decimal.Zero)
	assert.ErrorIs(t, err, schedule.ErrInvalidInput)
}

func TestLedgerRejectsInvertedRange(t *testing.T) {
	f := newFixture(t)
	from := civil.Date{Year: 2025, Month: time.March, Day: 10}
	to := civil.Date{Year: 2025, Month: time.March, Day: 1}
	_, err := f.svc.Ledger(context.Background(), &from, &to, decimal.Zero)
	assert.ErrorIs(t, err, schedule.ErrInvalidInput)
}

func TestSendDueReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "asha", "asha@example.com", "s3cret")
	require.NoError(t, err)
	_, _, err = f.svc.CreateCredit(ctx, user.ID, loanTerms(), "40817810099910004312")
	require.NoError(t, err)

	// 2025-02-28 is overdue, 2025-03-28 falls in the three day window
	today := civil.Date{Year: 2025, Month: time.March, Day: 27}
	sent, err := f.svc.SendDueReminders(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, 2, f.notifier.sent[0].Period)
	assert.False(t, f.notifier.overdue[0])
	assert.Equal(t, 1, f.notifier.sent[1].Period)
	assert.True(t, f.notifier.overdue[1])
	assert.Equal(t, "asha@example.com", f.notifier.sent[0].Email)

	f.notifier.sent, f.notifier.overdue = nil, nil
	f.notifier.failFor = 1
	sent, err = f.svc.SendDueReminders(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}
