package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/core/period"
	"timesheet.service/internal/core/timeclock"
	"timesheet.service/internal/ports/repository"
)

var sixty = decimal.NewFromInt(60)

// ComputeDay derives work minutes and completeness for one day.
// A day is complete only when both times are present and the worked time is not negative.
func ComputeDay(date time.Time, start, end timeclock.ClockTime, breakMinutes int) (model.DayShift, error) {
	day := model.DayShift{
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		BreakMinutes: breakMinutes,
	}

	if breakMinutes < 0 {
		return day, &model.ValidationError{Field: "breakMinutes", Reason: "must not be negative"}
	}
	if start.IsZero() || end.IsZero() {
		return day, nil
	}

	work := end.Minutes() - start.Minutes() - breakMinutes
	if work < 0 {
		return day, &model.ValidationError{
			Field:  "endTime",
			Reason: "work minutes would be negative (end before start or break longer than shift)",
		}
	}

	day.WorkMinutes = &work
	day.IsComplete = true
	return day, nil
}

// WageFor estimates pay for the worked minutes, rounded to cents. Nil wage yields nil.
func WageFor(minutes int, hourlyWage *decimal.Decimal) *decimal.Decimal {
	if hourlyWage == nil {
		return nil
	}
	w := hourlyWage.Mul(decimal.NewFromInt(int64(minutes))).Div(sixty).Round(2)
	return &w
}

// ComputeWeekTotals rolls stored days up into week totals. Days without a stored row count as missing.
func ComputeWeekTotals(days []model.DayShift, hourlyWage *decimal.Decimal) repository.WeekTotals {
	total, complete := 0, 0
	for _, d := range days {
		if !d.IsComplete || d.WorkMinutes == nil || *d.WorkMinutes < 0 {
			continue
		}
		total += *d.WorkMinutes
		complete++
	}

	missing := period.DaysPerWeek - complete
	if missing < 0 {
		missing = 0
	}

	return repository.WeekTotals{
		TotalMinutes:     total,
		TotalWage:        WageFor(total, hourlyWage),
		MissingDaysCount: missing,
	}
}

// recomputeWeek rereads the stored days of a week and writes fresh totals back.
func recomputeWeek(ctx context.Context, tx repository.Repository, week *model.WeekTimesheet, hourlyWage *decimal.Decimal) (repository.WeekTotals, error) {
	days, err := tx.ListDayShifts(ctx, week.ID)
	if err != nil {
		return repository.WeekTotals{}, err
	}

	totals := ComputeWeekTotals(days, hourlyWage)
	if err := tx.UpdateWeekTotals(ctx, week.ID, totals); err != nil {
		return repository.WeekTotals{}, err
	}

	log.Ctx(ctx).Debug().
		Str("week_id", week.ID).
		Int("total_minutes", totals.TotalMinutes).
		Int("missing_days", totals.MissingDaysCount).
		Msg("week totals recomputed")
	return totals, nil
}

// recomputeEmployeeWeeks refreshes every unlocked week of the employee, e.g. after a wage change.
// Weeks inside a paid pay run keep the totals they were paid with.
func recomputeEmployeeWeeks(ctx context.Context, tx repository.Repository, employee *model.Employee) (int, error) {
	weeks, err := tx.ListWeeks(ctx, repository.WeekFilter{EmployeeID: employee.ID})
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for i := range weeks {
		w := &weeks[i]
		locked, err := rangeLocked(ctx, tx, employee.ID, w.WeekStart, period.WeekEnd(w.WeekStart))
		if err != nil {
			return refreshed, err
		}
		if locked {
			continue
		}
		if _, err := recomputeWeek(ctx, tx, w, employee.HourlyWage); err != nil {
			return refreshed, err
		}
		refreshed++
	}
	return refreshed, nil
}

func rangeLocked(ctx context.Context, repo repository.Repository, employeeID string, start, end time.Time) (bool, error) {
	return repo.HasPaidPayRunOverlapping(ctx, employeeID, start, end)
}

// aggregatePayRunItems sums week totals per employee. An item's wage is unknown (nil) as soon as
// one contributing week has no wage.
func aggregatePayRunItems(payRunID string, weeks []model.WeekTimesheet) []model.PayRunItem {
	byEmployee := make(map[string]*model.PayRunItem)
	wageUnknown := make(map[string]bool)
	var order []string

	for _, w := range weeks {
		it, ok := byEmployee[w.EmployeeID]
		if !ok {
			zero := decimal.Zero
			it = &model.PayRunItem{PayRunID: payRunID, EmployeeID: w.EmployeeID, TotalWage: &zero}
			byEmployee[w.EmployeeID] = it
			order = append(order, w.EmployeeID)
		}

		it.TotalMinutes += w.TotalMinutes
		it.MissingDaysCount += w.MissingDaysCount
		if w.TotalWage == nil {
			wageUnknown[w.EmployeeID] = true
			continue
		}
		sum := it.TotalWage.Add(*w.TotalWage)
		it.TotalWage = &sum
	}

	items := make([]model.PayRunItem, 0, len(order))
	for _, id := range order {
		it := byEmployee[id]
		if wageUnknown[id] {
			it.TotalWage = nil
		}
		items = append(items, *it)
	}
	return items
}
