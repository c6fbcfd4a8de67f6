package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/lib/pq"

	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("not found")
	// ErrAlreadyPaid is returned when an installment is paid twice
	ErrAlreadyPaid = errors.New("installment already paid")
	// ErrDuplicate is returned when a unique column already holds the value
	ErrDuplicate = errors.New("already exists")
)

const uniqueViolation = "23505"

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the schema if it does not exist yet
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO lending.users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM lending.users
		WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CreateCredit stores a credit, its schedule and the disbursement in one transaction
func (r *Repository) CreateCredit(ctx context.Context, credit *models.Credit, rows models.Schedule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO lending.credits (reference, user_id, principal, interest_rate, basis, start_date,
			mode, years, months, stub_days, days, emi, account, hmac, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, query,
		credit.Reference, credit.UserID, credit.Principal, credit.InterestRate, int(credit.Basis),
		dateValue(credit.StartDate), credit.Mode, credit.Years, credit.Months, credit.StubDays, credit.Days,
		credit.EMI, credit.Account, credit.HMAC,
	).Scan(&credit.ID, &credit.CreatedAt, &credit.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create credit: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lending.payment_schedules (credit_id, period, due_date, opening, interest, principal,
			installment, closing, stub)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("failed to prepare schedule insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx, credit.ID, row.Period, dateValue(row.DueDate), row.Opening,
			row.Interest, row.Principal, row.Installment, row.Closing, row.Stub)
		if err != nil {
			return fmt.Errorf("failed to create installment %d: %w", row.Period, err)
		}
	}

	disbursement := &models.Transaction{
		CreditID:    credit.ID,
		Amount:      credit.Principal,
		Type:        models.TransactionDisbursement,
		Date:        credit.StartDate,
		Description: "Loan disbursement " + credit.Reference.String(),
	}
	if err := insertTransaction(ctx, tx, disbursement); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credit: %w", err)
	}
	return nil
}

// FindCreditByID retrieves a credit by id
func (r *Repository) FindCreditByID(ctx context.Context, id int64) (*models.Credit, error) {
	credit := &models.Credit{}
	var basis int
	var start time.Time
	query := `
		SELECT id, reference, user_id, principal, interest_rate, basis, start_date, mode, years, months,
			stub_days, days, emi, account, hmac, created_at, updated_at
		FROM lending.credits
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&credit.ID, &credit.Reference, &credit.UserID, &credit.Principal, &credit.InterestRate, &basis,
		&start, &credit.Mode, &credit.Years, &credit.Months, &credit.StubDays, &credit.Days,
		&credit.EMI, &credit.Account, &credit.HMAC, &credit.CreatedAt, &credit.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("credit %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit: %w", err)
	}
	credit.Basis = models.DayCountBasis(basis)
	credit.StartDate = civil.DateOf(start)
	return credit, nil
}

const scheduleColumns = `ps.id, ps.credit_id, ps.period, ps.due_date, ps.opening, ps.interest, ps.principal,
	ps.installment, ps.closing, ps.stub, ps.paid, ps.paid_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanInstallment(s scanner, extra ...any) (models.PaymentSchedule, error) {
	var ps models.PaymentSchedule
	var due time.Time
	var paidAt sql.NullTime
	dest := []any{
		&ps.ID, &ps.CreditID, &ps.Period, &due, &ps.Opening, &ps.Interest, &ps.Principal,
		&ps.Installment, &ps.Closing, &ps.Stub, &ps.Paid, &paidAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return ps, err
	}
	ps.DueDate = civil.DateOf(due)
	if paidAt.Valid {
		ps.PaidAt = &paidAt.Time
	}
	return ps, nil
}

// ListSchedule retrieves the installments of a credit in order
func (r *Repository) ListSchedule(ctx context.Context, creditID int64) ([]models.PaymentSchedule, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM lending.payment_schedules ps
		WHERE ps.credit_id = $1
		ORDER BY ps.period`
	rows, err := r.db.QueryContext(ctx, query, creditID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule: %w", err)
	}
	defer rows.Close()

	var out []models.PaymentSchedule
	for rows.Next() {
		ps, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// MarkInstallmentPaid flags an installment as paid and books the collection
func (r *Repository) MarkInstallmentPaid(ctx context.Context, creditID int64, period int, paidOn civil.Date) (*models.PaymentSchedule, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + scheduleColumns + `
		FROM lending.payment_schedules ps
		WHERE ps.credit_id = $1 AND ps.period = $2
		FOR UPDATE`
	ps, err := scanInstallment(tx.QueryRowContext(ctx, query, creditID, period))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("installment %d of credit %d: %w", period, creditID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find installment: %w", err)
	}
	if ps.Paid {
		return nil, fmt.Errorf("installment %d of credit %d: %w", period, creditID, ErrAlreadyPaid)
	}

	var paidAt time.Time
	err = tx.QueryRowContext(ctx,
		`UPDATE lending.payment_schedules SET paid = TRUE, paid_at = CURRENT_TIMESTAMP WHERE id = $1 RETURNING paid_at`,
		ps.ID,
	).Scan(&paidAt)
	if err != nil {
		return nil, fmt.Errorf("failed to mark installment paid: %w", err)
	}
	ps.Paid = true
	ps.PaidAt = &paidAt

	collection := &models.Transaction{
		CreditID:    creditID,
		Amount:      ps.Installment,
		Type:        models.TransactionCollection,
		Date:        paidOn,
		Description: fmt.Sprintf("Installment %d", period),
	}
	if err := insertTransaction(ctx, tx, collection); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return &ps, nil
}

// ListDueInstallments retrieves unpaid installments due between from and to, inclusive
func (r *Repository) ListDueInstallments(ctx context.Context, from, to civil.Date) ([]models.DueInstallment, error) {
	query := `SELECT ` + scheduleColumns + `, c.reference, u.email, u.username
		FROM lending.payment_schedules ps
		JOIN lending.credits c ON c.id = ps.credit_id
		JOIN lending.users u ON u.id = c.user_id
		WHERE NOT ps.paid AND ps.due_date BETWEEN $1 AND $2
		ORDER BY ps.due_date, ps.credit_id`
	rows, err := r.db.QueryContext(ctx, query, dateValue(from), dateValue(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list due installments: %w", err)
	}
	defer rows.Close()

	var out []models.DueInstallment
	for rows.Next() {
		var due models.DueInstallment
		ps, err := scanInstallment(rows, &due.Reference, &due.Email, &due.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due installment: %w", err)
		}
		due.PaymentSchedule = ps
		out = append(out, due)
	}
	return out, rows.Err()
}

// ListTransactions retrieves transactions of one type, optionally bounded by date
func (r *Repository) ListTransactions(ctx context.Context, kind string, from, to *civil.Date) ([]models.Transaction, error) {
	query := `
		SELECT id, credit_id, amount, type, date, description, created_at
		FROM lending.transactions
		WHERE type = $1
			AND ($2::date IS NULL OR date >= $2)
			AND ($3::date IS NULL OR date <= $3)
		ORDER BY date, id`
	rows, err := r.db.QueryContext(ctx, query, kind, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var date time.Time
		if err := rows.Scan(&t.ID, &t.CreditID, &t.Amount, &t.Type, &date, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Date = civil.DateOf(date)
		out = append(out, t)
	}
	return out, rows.Err()
}

type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertTransaction(ctx context.Context, db execer, t *models.Transaction) error {
	query := `
		INSERT INTO lending.transactions (credit_id, amount, type, date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := db.QueryRowContext(ctx, query, t.CreditID, t.Amount, t.Type, dateValue(t.Date), t.Description).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s transaction: %w", t.Type, err)
	}
	return nil
}

func dateValue(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func nullableDate(d *civil.Date) sql.NullTime {
	if d == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: dateValue(*d), Valid: true}
}
