package email

import (
	"errors"
	"io"
	"net/smtp"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hj567/ub-unsecured-onboard/internal/config"
	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

func testSender() *Sender {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewSender(&config.Config{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "587",
		SenderEmail: "loans@example.com",
	}, logger)
}

func testDue() models.DueInstallment {
	var due models.DueInstallment
	due.Reference = uuid.MustParse("6f1c2a52-4b8e-4e62-9f0f-0d5a1c7b9e21")
	due.Email = "asha@example.com"
	due.Username = "Asha"
	due.Period = 3
	due.DueDate = civil.Date{Year: 2025, Month: 4, Day: 1}
	due.Installment = decimal.RequireFromString("9505.09")
	return due
}

func TestBuildReminder(t *testing.T) {
	s := testSender()

	e := s.buildReminder(testDue(), false)
	assert.Equal(t, "loans@example.com", e.From)
	assert.Equal(t, []string{"asha@example.com"}, e.To)
	assert.Equal(t, "Upcoming Loan Installment Reminder", e.Subject)
	assert.Contains(t, string(e.Text), "Dear Asha")
	assert.Contains(t, string(e.Text), "installment 3 of your loan 6f1c2a52-4b8e-4e62-9f0f-0d5a1c7b9e21 for 9505.09 INR is due on 2025-04-01")

	e = s.buildReminder(testDue(), true)
	assert.Equal(t, "Overdue Loan Installment Notification", e.Subject)
	assert.Contains(t, string(e.Text), "now overdue")
}

func TestSendInstallmentReminder(t *testing.T) {
	s := testSender()
	var gotAddr string
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		gotAddr = addr
		assert.Nil(t, auth)
		return nil
	}

	require.NoError(t, s.SendInstallmentReminder(testDue(), false))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
}

func TestSendInstallmentReminderError(t *testing.T) {
	s := testSender()
	s.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }

	err := s.SendInstallmentReminder(testDue(), true)
	assert.ErrorContains(t, err, "connection refused")
}
