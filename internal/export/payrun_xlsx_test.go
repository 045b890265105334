package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"timesheet.service/internal/core/model"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestWritePayRunWorkbook(t *testing.T) {
	detail := &model.PayRunDetail{
		PayRun: model.PayRun{
			ID:          "run-1",
			PeriodStart: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
			Status:      model.PayRunStatusOpen,
		},
		Items: []model.PayRunItem{
			{EmployeeName: "Bo", TotalMinutes: 480, MissingDaysCount: 13},
			{EmployeeName: "Ann", EmployeeHourlyWage: dec("12.50"), TotalMinutes: 600, TotalWage: dec("125.00")},
		},
		Totals: model.PayRunTotals{TotalMinutes: 1080, WageKnown: false, IncompleteEmployees: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePayRunWorkbook(&buf, detail))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue(SheetName, cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "2025-03-03 ~ 2025-03-16 (Biweekly Pay Run, open)", get("A1"))
	assert.Equal(t, "Employee", get("A3"))
	assert.Equal(t, "Missing Days", get("F3"))

	assert.Equal(t, "Bo", get("A4"))
	assert.Equal(t, "", get("B4"))
	assert.Equal(t, "8:00", get("C4"))
	assert.Equal(t, "480", get("D4"))
	assert.Equal(t, "13", get("F4"))

	assert.Equal(t, "Ann", get("A5"))
	assert.Equal(t, "12.5", get("B5"))
	assert.Equal(t, "125", get("E5"))

	assert.Equal(t, "Total", get("A6"))
	assert.Equal(t, "18:00", get("C6"))
	assert.Equal(t, "unknown", get("E6"))
	assert.Equal(t, "1", get("F6"))
}

func TestWritePayRunWorkbookEmpty(t *testing.T) {
	detail := &model.PayRunDetail{
		PayRun: model.PayRun{
			PeriodStart: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
			Status:      model.PayRunStatusPaid,
		},
		Totals: model.PayRunTotals{TotalWage: dec("0"), WageKnown: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePayRunWorkbook(&buf, detail))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SheetName, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Total", v)
	v, err = f.GetCellValue(SheetName, "E4")
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}
