package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Hj567/ub-unsecured-onboard/internal/models"
)

func sampleRows() models.Schedule {
	d := decimal.RequireFromString
	return models.Schedule{
		{Period: 1, DueDate: civil.Date{Year: 2025, Month: 2, Day: 28}, Opening: d("100000"), Interest: d("750.00"),
			Principal: d("8755.09"), Installment: d("9505.09"), Closing: d("91244.91")},
		{Period: 2, DueDate: civil.Date{Year: 2025, Month: 3, Day: 28}, Opening: d("91244.91"), Interest: d("684.34"),
			Principal: d("91244.91"), Installment: d("91929.25"), Closing: decimal.Zero},
	}
}

func TestWriteScheduleXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScheduleXLSX(&buf, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "2025-02-28", rows[1][0])
	assert.Equal(t, "9505.09", rows[1][4])
	assert.Equal(t, "91244.91", rows[2][1])

	width, err := f.GetColWidth(SheetName, "C")
	require.NoError(t, err)
	assert.Equal(t, float64(columnWidth), width)

	style, err := f.GetCellStyle(SheetName, "A1")
	require.NoError(t, err)
	assert.NotZero(t, style)
}

func TestWriteScheduleCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScheduleCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Headers, records[0])
	assert.Equal(t, []string{"2025-02-28", "100000.00", "750.00", "8755.09", "9505.09", "91244.91"}, records[1])
	assert.Equal(t, "0.00", records[2][5])
}

func TestWriteEmptySchedule(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScheduleCSV(&buf, nil))
	assert.Equal(t, "EMI DUE DATE,OPENING OUTSTANDING,INTEREST,PRINCIPLE,INSTALMENT,CLOSING PRINCIPLE\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteScheduleXLSX(&buf, nil))
	assert.NotZero(t, buf.Len())
}
