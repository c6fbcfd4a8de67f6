package email

import (
	"fmt"
	"net/smtp"

	"github.com/Hj567/ub-unsecured-onboard/internal/config"
	"github.com/Hj567/ub-unsecured-onboard/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendInstallmentReminder sends an upcoming or overdue installment reminder
func (s *Sender) SendInstallmentReminder(due models.DueInstallment, overdue bool) error {
	e := s.buildReminder(due, overdue)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", due.Email, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", due.Email, e.Subject)
	return nil
}

func (s *Sender) buildReminder(due models.DueInstallment, overdue bool) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{due.Email}
	if overdue {
		e.Subject = "Overdue Loan Installment Notification"
	} else {
		e.Subject = "Upcoming Loan Installment Reminder"
	}

	body := fmt.Sprintf("Dear %s,\n\n", due.Username)
	if overdue {
		body += fmt.Sprintf(
			"Installment %d of your loan %s for %s INR was due on %s and is now overdue.\n"+
				"Please make the payment as soon as possible.\n",
			due.Period, due.Reference, due.Installment.StringFixed(2), due.DueDate,
		)
	} else {
		body += fmt.Sprintf(
			"This is a reminder that installment %d of your loan %s for %s INR is due on %s.\n"+
				"Please ensure sufficient funds are available in your account.\n",
			due.Period, due.Reference, due.Installment.StringFixed(2), due.DueDate,
		)
	}
	if due.Stub {
		body += "This is the final installment and settles the loan in full.\n"
	}
	body += "\nBest regards,\nLoan Servicing"
	e.Text = []byte(body)
	return e
}
