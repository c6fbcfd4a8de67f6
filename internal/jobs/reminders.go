// Package jobs runs scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderSender sends installment reminders for the given day
type ReminderSender interface {
	SendDueReminders(ctx context.Context, today civil.Date) (int, error)
}

// Reminders runs ReminderSender on a cron schedule
type Reminders struct {
	cron    *cron.Cron
	sender  ReminderSender
	log     *logrus.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewReminders registers the reminder run under expr, a standard five field cron expression
func NewReminders(expr string, sender ReminderSender, log *logrus.Logger) (*Reminders, error) {
	r := &Reminders{
		cron:    cron.New(),
		sender:  sender,
		log:     log,
		timeout: 5 * time.Minute,
		now:     time.Now,
	}
	if _, err := r.cron.AddFunc(expr, r.Run); err != nil {
		return nil, fmt.Errorf("failed to schedule reminders %q: %w", expr, err)
	}
	return r, nil
}

// Run sends today's reminders once
func (r *Reminders) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	today := civil.DateOf(r.now())
	sent, err := r.sender.SendDueReminders(ctx, today)
	if err != nil {
		r.log.Errorf("Reminder run for %s failed: %v", today, err)
		return
	}
	r.log.Infof("Reminder run for %s sent %d reminders", today, sent)
}

// Start begins running the schedule in the background
func (r *Reminders) Start() {
	r.cron.Start()
	r.log.Info("Reminder scheduler started")
}

// Stop halts the schedule and waits for a running job to finish or ctx to expire
func (r *Reminders) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		r.log.Warn("Reminder scheduler stop timed out")
	}
}
