// Package cli prints or exports an amortization schedule from the command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Hj567/ub-unsecured-onboard/internal/export"
	"github.com/Hj567/ub-unsecured-onboard/internal/models"
	"github.com/Hj567/ub-unsecured-onboard/internal/schedule"
)

// Options are the parsed command line flags
type Options struct {
	Principal   string
	RatePercent string
	Start       string
	Basis       int
	Mode        string
	Years       int
	Months      int
	StubDays    int
	Days        int
	Output      string
	LogLevel    string
}

// NewFlagSet declares the flags bound to o
func NewFlagSet(name string, o *Options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&o.Principal, "principal", "", "loan amount (required)")
	fs.StringVar(&o.RatePercent, "rate", "", "annual interest rate in percent, e.g. 9 (required)")
	fs.StringVar(&o.Start, "start", "", "disbursement date YYYY-MM-DD (required)")
	fs.IntVar(&o.Basis, "basis", int(models.Basis365), "day count basis, 360 or 365")
	fs.StringVar(&o.Mode, "mode", models.ModeMonthly, "monthly or daily")
	fs.IntVar(&o.Years, "years", 0, "whole years (monthly mode)")
	fs.IntVar(&o.Months, "months", 0, "additional months (monthly mode)")
	fs.IntVar(&o.StubDays, "stub", 0, "trailing stub period in days (monthly mode)")
	fs.IntVar(&o.Days, "days", 0, "number of daily installments (daily mode)")
	fs.StringVar(&o.Output, "out", "", "write to a .xlsx or .csv file instead of printing")
	fs.StringVar(&o.LogLevel, "log-level", "warn", "log level")
	return fs
}

// Terms converts the options into loan terms
func (o Options) Terms() (models.LoanTerms, error) {
	var terms models.LoanTerms
	if o.Principal == "" || o.RatePercent == "" || o.Start == "" {
		return terms, errors.New("-principal, -rate and -start are required")
	}

	principal, err := decimal.NewFromString(o.Principal)
	if err != nil {
		return terms, fmt.Errorf("invalid -principal: %w", err)
	}
	rate, err := decimal.NewFromString(o.RatePercent)
	if err != nil {
		return terms, fmt.Errorf("invalid -rate: %w", err)
	}
	start, err := civil.ParseDate(o.Start)
	if err != nil {
		return terms, fmt.Errorf("invalid -start: %w", err)
	}

	terms = models.LoanTerms{
		Principal:  principal,
		AnnualRate: rate.Div(decimal.NewFromInt(100)),
		StartDate:  start,
		Basis:      models.DayCountBasis(o.Basis),
	}
	switch o.Mode {
	case models.ModeMonthly:
		terms.Tenure = models.MonthlyTenure{Years: o.Years, Months: o.Months, StubDays: o.StubDays}
	case models.ModeDaily:
		terms.Tenure = models.DailyTenure{Days: o.Days}
	default:
		return terms, fmt.Errorf("invalid -mode %q", o.Mode)
	}
	return terms, nil
}

// Run executes the command and returns the process exit code
func Run(argv []string, stdout, stderr io.Writer) int {
	var o Options
	fs := NewFlagSet("schedule", &o)
	fs.SetOutput(stderr)
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	log := logrus.New()
	log.SetOutput(stderr)
	level, err := logrus.ParseLevel(o.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	terms, err := o.Terms()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	rows, err := schedule.Generate(terms)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	log.WithFields(logrus.Fields{
		"principal": terms.Principal.String(),
		"rate":      terms.AnnualRate.String(),
		"rows":      len(rows),
	}).Debug("Schedule generated")

	if o.Output != "" {
		if err := writeFile(o.Output, rows); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		log.Infof("Schedule written to %s", o.Output)
		return 0
	}

	if err := PrintTable(stdout, rows); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func writeFile(path string, rows models.Schedule) error {
	write := export.WriteScheduleXLSX
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
	case ".csv":
		write = export.WriteScheduleCSV
	default:
		return fmt.Errorf("unsupported output %q, use .xlsx or .csv", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PrintTable writes rows as an aligned table followed by the totals
func PrintTable(w io.Writer, rows models.Schedule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\t"+strings.Join(export.Headers, "\t")+"\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n", r.Period, r.DueDate,
			r.Opening.StringFixed(2), r.Interest.StringFixed(2), r.Principal.StringFixed(2),
			r.Installment.StringFixed(2), r.Closing.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := schedule.Summarize(rows)
	_, err := fmt.Fprintf(w, "\nInstallments: %d  EMI: %s  Interest: %s  Total payable: %s\n",
		s.Installments, s.EMI.StringFixed(2), s.TotalInterest.StringFixed(2), s.TotalPayable.StringFixed(2))
	return err
}
