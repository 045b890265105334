// Package export renders pay runs as spreadsheets for the payroll owner.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/core/period"
	"timesheet.service/internal/core/timeclock"
)

const SheetName = "Pay Run"

var headers = []string{"Employee", "Hourly Wage", "Worked (h:mm)", "Worked Minutes", "Estimated Wage", "Missing Days"}

// WritePayRunWorkbook writes the pay run detail as an xlsx workbook:
// a title row, a header row, one row per item and a totals row.
func WritePayRunWorkbook(w io.Writer, detail *model.PayRunDetail) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	highlight, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFF2CC"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	run := detail.PayRun
	title := fmt.Sprintf("%s ~ %s (Biweekly Pay Run, %s)",
		period.FormatDate(run.PeriodStart), period.FormatDate(run.PeriodEnd), run.Status)
	if err := f.SetCellValue(SheetName, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "A1", bold); err != nil {
		return err
	}

	headerCell, _ := excelize.CoordinatesToCellName(1, 3)
	if err := f.SetSheetRow(SheetName, headerCell, &headers); err != nil {
		return err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 3)
	if err := f.SetCellStyle(SheetName, headerCell, lastHeader, bold); err != nil {
		return err
	}

	row := 4
	for _, it := range detail.Items {
		values := []interface{}{
			it.EmployeeName,
			decimalCell(it.EmployeeHourlyWage),
			timeclock.FormatMinutes(it.TotalMinutes),
			it.TotalMinutes,
			decimalCell(it.TotalWage),
			it.MissingDaysCount,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
		if it.MissingDaysCount > 0 {
			end, _ := excelize.CoordinatesToCellName(len(headers), row)
			if err := f.SetCellStyle(SheetName, cell, end, highlight); err != nil {
				return err
			}
		}
		row++
	}

	var wage interface{} = "unknown"
	if detail.Totals.WageKnown && detail.Totals.TotalWage != nil {
		wage = detail.Totals.TotalWage.InexactFloat64()
	}
	totals := []interface{}{
		"Total",
		"",
		timeclock.FormatMinutes(detail.Totals.TotalMinutes),
		detail.Totals.TotalMinutes,
		wage,
		detail.Totals.IncompleteEmployees,
	}
	totalCell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(SheetName, totalCell, &totals); err != nil {
		return err
	}
	totalEnd, _ := excelize.CoordinatesToCellName(len(headers), row)
	if err := f.SetCellStyle(SheetName, totalCell, totalEnd, bold); err != nil {
		return err
	}

	if err := f.SetColWidth(SheetName, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "F", 16); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func decimalCell(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}
