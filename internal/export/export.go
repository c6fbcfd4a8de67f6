// Package export writes amortization schedules as spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

// SheetName is the worksheet holding the schedule
const SheetName = "Schedule"

const columnWidth = 22

// Headers are the column titles of an exported schedule
var Headers = []string{
	"EMI DUE DATE", "OPENING OUTSTANDING", "INTEREST", "PRINCIPLE", "INSTALMENT", "CLOSING PRINCIPLE",
}

// WriteScheduleXLSX writes rows as a workbook with a bold header row
func WriteScheduleXLSX(w io.Writer, rows models.Schedule) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			r.DueDate.String(),
			r.Opening.InexactFloat64(),
			r.Interest.InexactFloat64(),
			r.Principal.InexactFloat64(),
			r.Installment.InexactFloat64(),
			r.Closing.InexactFloat64(),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(Headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, columnWidth); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteScheduleCSV writes rows as CSV with amounts fixed at two decimals
func WriteScheduleCSV(w io.Writer, rows models.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.DueDate.String(),
			r.Opening.StringFixed(2),
			r.Interest.StringFixed(2),
			r.Principal.StringFixed(2),
			r.Installment.StringFixed(2),
			r.Closing.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.Period, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
