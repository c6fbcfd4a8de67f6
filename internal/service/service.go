package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hj567/ub-unsecured-onboard/internal/cache"
	"github.com/Hj567/ub-unsecured-onboard/internal/config"
	"github.com/Hj567/ub-unsecured-onboard/internal/ledger"
	"github.com/Hj567/ub-unsecured-onboard/internal/models"
	"github.com/Hj567/ub-unsecured-onboard/internal/repository"
	"github.com/Hj567/ub-unsecured-onboard/internal/schedule"
	"github.com/Hj567/ub-unsecured-onboard/internal/utils"
)

var (
	ErrNotFound           = repository.ErrNotFound
	ErrAlreadyPaid        = repository.ErrAlreadyPaid
	ErrDuplicate          = repository.ErrDuplicate
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIntegrity          = errors.New("credit integrity check failed")
	ErrUpstream           = errors.New("rate provider unavailable")
)

// earliest date searched for overdue installments
var epoch = civil.Date{Year: 1900, Month: time.January, Day: 1}

// Store is the persistence the service needs
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateCredit(ctx context.Context, credit *models.Credit, rows models.Schedule) error
	FindCreditByID(ctx context.Context, id int64) (*models.Credit, error)
	ListSchedule(ctx context.Context, creditID int64) ([]models.PaymentSchedule, error)
	MarkInstallmentPaid(ctx context.Context, creditID int64, period int, paidOn civil.Date) (*models.PaymentSchedule, error)
	ListDueInstallments(ctx context.Context, from, to civil.Date) ([]models.DueInstallment, error)
	ListTransactions(ctx context.Context, kind string, from, to *civil.Date) ([]models.Transaction, error)
}

var _ Store = &repository.Repository{}

// RateProvider quotes the current annual lending rate in percent
type RateProvider interface {
	AnnualRatePercent(ctx context.Context) (decimal.Decimal, error)
}

// Notifier delivers installment reminders
type Notifier interface {
	SendInstallmentReminder(due models.DueInstallment, overdue bool) error
}

// Service handles business logic
type Service struct {
	store    Store
	cache    cache.Cache
	rates    RateProvider
	notifier Notifier
	log      *logrus.Logger
	config   *config.Config
	now      func() time.Time
}

// NewService initializes a new service
func NewService(store Store, c cache.Cache, rates RateProvider, notifier Notifier, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		cache:    c,
		rates:    rates,
		notifier: notifier,
		log:      log,
		config:   cfg,
		now:      time.Now,
	}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// QuoteRate returns the annual rate offered today, in percent
func (s *Service) QuoteRate(ctx context.Context) (decimal.Decimal, error) {
	rate, err := s.rates.AnnualRatePercent(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return rate, nil
}

// PreviewSchedule validates terms and returns their schedule, served from the cache when
// the same terms were priced recently.
func (s *Service) PreviewSchedule(ctx context.Context, terms models.LoanTerms) (models.Schedule, error) {
	if err := schedule.Validate(terms); err != nil {
		return nil, err
	}
	if n := rowCount(terms.Tenure); n > s.config.MaxScheduleRows {
		return nil, fmt.Errorf("%w: schedule would have %d rows, limit is %d", schedule.ErrInvalidInput, n, s.config.MaxScheduleRows)
	}

	key := previewKey(terms)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var rows models.Schedule
		if err := json.Unmarshal([]byte(cached), &rows); err == nil {
			s.log.Debugf("Schedule preview served from cache: %s", key)
			return rows, nil
		}
		s.log.Warnf("Discarding unreadable cached schedule %s", key)
	}

	rows, err := schedule.Generate(terms)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schedule: %w", err)
	}
	if err := s.cache.Set(ctx, key, string(payload), s.config.CacheTTL); err != nil {
		s.log.Warnf("Failed to cache schedule %s: %v", key, err)
	}
	return rows, nil
}

// CreateCredit books a loan for the user together with its schedule
func (s *Service) CreateCredit(ctx context.Context, userID int64, terms models.LoanTerms, account string) (*models.Credit, models.Schedule, error) {
	rows, err := s.PreviewSchedule(ctx, terms)
	if err != nil {
		return nil, nil, err
	}

	encryptedAccount, err := utils.Encrypt(account, s.config.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt account: %w", err)
	}

	credit := &models.Credit{
		Reference:    uuid.New(),
		UserID:       userID,
		Principal:    terms.Principal,
		InterestRate: terms.AnnualRate,
		Basis:        terms.Basis,
		StartDate:    terms.StartDate,
		EMI:          schedule.Summarize(rows).EMI,
		Account:      encryptedAccount,
	}
	credit.SetTenure(terms.Tenure)
	credit.HMAC = utils.GenerateHMAC(s.config.HMACSecret, signedFields(credit)...)

	if err := s.store.CreateCredit(ctx, credit, rows); err != nil {
		return nil, nil, err
	}

	credit.Account = utils.MaskAccount(account)
	s.log.Infof("Credit %s created for user %d: %s over %d installments", credit.Reference, userID, credit.Principal.StringFixed(2), len(rows))
	return credit, rows, nil
}

// GetCredit loads a credit owned by the user and checks its signature
func (s *Service) GetCredit(ctx context.Context, userID, id int64) (*models.Credit, error) {
	credit, err := s.store.FindCreditByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if credit.UserID != userID {
		return nil, fmt.Errorf("credit %d: %w", id, ErrNotFound)
	}
	if !utils.VerifyHMAC(s.config.HMACSecret, credit.HMAC, signedFields(credit)...) {
		s.log.Errorf("HMAC mismatch for credit %d", id)
		return nil, fmt.Errorf("credit %d: %w", id, ErrIntegrity)
	}

	account, err := utils.Decrypt(credit.Account, s.config.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt account: %w", err)
	}
	credit.Account = utils.MaskAccount(account)
	return credit, nil
}

// GetSchedule returns the stored installments of a credit owned by the user
func (s *Service) GetSchedule(ctx context.Context, userID, id int64) ([]models.PaymentSchedule, error) {
	if _, err := s.GetCredit(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.store.ListSchedule(ctx, id)
}

// RecordPayment marks one installment of the user's credit as paid on paidOn
func (s *Service) RecordPayment(ctx context.Context, userID, creditID int64, period int, paidOn civil.Date) (*models.PaymentSchedule, error) {
	if _, err := s.GetCredit(ctx, userID, creditID); err != nil {
		return nil, err
	}

	installment, err := s.store.MarkInstallmentPaid(ctx, creditID, period, paidOn)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Installment %d of credit %d paid on %s: %s", period, creditID, paidOn, installment.Installment.StringFixed(2))
	return installment, nil
}

// Ledger builds the daily deployment and collection report. A zero startCorpus falls back
// to the configured starting corpus.
func (s *Service) Ledger(ctx context.Context, from, to *civil.Date, startCorpus decimal.Decimal) (models.LedgerReport, error) {
	if from != nil && to != nil && to.Before(*from) {
		return models.LedgerReport{}, fmt.Errorf("%w: ledger range ends %s before it starts %s", schedule.ErrInvalidInput, to, from)
	}
	if startCorpus.IsZero() {
		startCorpus = s.config.StartingCorpus
	}

	disbursed, err := s.store.ListTransactions(ctx, models.TransactionDisbursement, from, to)
	if err != nil {
		return models.LedgerReport{}, err
	}
	collected, err := s.store.ListTransactions(ctx, models.TransactionCollection, from, to)
	if err != nil {
		return models.LedgerReport{}, err
	}

	today := civil.DateOf(s.now())
	r := ledger.Range{From: from, To: to}
	first, last := ledger.Bounds(disbursed, collected, r, today)
	if days := last.DaysSince(first) + 1; days > s.config.MaxLedgerDays {
		return models.LedgerReport{}, fmt.Errorf("%w: ledger would span %d days, limit is %d", schedule.ErrInvalidInput, days, s.config.MaxLedgerDays)
	}
	return ledger.Build(disbursed, collected, startCorpus, r, today), nil
}

// SendDueReminders notifies borrowers about installments due in the next ReminderDays days
// and about unpaid installments already past due. It returns how many reminders were sent.
func (s *Service) SendDueReminders(ctx context.Context, today civil.Date) (int, error) {
	upcoming, err := s.store.ListDueInstallments(ctx, today, today.AddDays(s.config.ReminderDays))
	if err != nil {
		return 0, err
	}
	overdue, err := s.store.ListDueInstallments(ctx, epoch, today.AddDays(-1))
	if err != nil {
		return 0, err
	}

	sent := 0
	notify := func(dues []models.DueInstallment, isOverdue bool) {
		for _, due := range dues {
			if err := s.notifier.SendInstallmentReminder(due, isOverdue); err != nil {
				s.log.WithFields(logrus.Fields{
					"credit_id": due.CreditID,
					"period":    due.Period,
				}).Errorf("Reminder failed: %v", err)
				continue
			}
			sent++
		}
	}
	notify(upcoming, false)
	notify(overdue, true)

	s.log.Infof("Sent %d installment reminders (%d upcoming, %d overdue)", sent, len(upcoming), len(overdue))
	return sent, nil
}

func rowCount(t models.Tenure) int {
	switch v := t.(type) {
	case models.DailyTenure:
		return v.Days
	case models.MonthlyTenure:
		n := v.Periods()
		if v.StubDays > 0 {
			n++
		}
		return n
	}
	return 0
}

func previewKey(terms models.LoanTerms) string {
	canonical := fmt.Sprintf("%s|%s|%s|%d|%#v",
		terms.Principal.String(), terms.AnnualRate.String(), terms.StartDate, terms.Basis, terms.Tenure)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func signedFields(c *models.Credit) []string {
	return []string{
		c.Reference.String(),
		strconv.FormatInt(c.UserID, 10),
		c.Principal.StringFixed(2),
		c.InterestRate.StringFixed(8),
		strconv.Itoa(int(c.Basis)),
		c.StartDate.String(),
		c.Mode,
		strconv.Itoa(c.Years),
		strconv.Itoa(c.Months),
		strconv.Itoa(c.StubDays),
		strconv.Itoa(c.Days),
		c.EMI.StringFixed(2),
	}
}
