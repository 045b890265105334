package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/core/period"
	"timesheet.service/internal/core/timeclock"
	"timesheet.service/internal/ports/repository"
)

// SaveDayInput is one day-entry edit. Times are raw user text ("7", "19:30", ...);
// an empty string clears the time.
type SaveDayInput struct {
	EmployeeID   string
	WeekStart    string
	WorkDate     string
	StartTime    string
	EndTime      string
	BreakMinutes int
}

type TimesheetService struct {
	repo repository.Repository
}

// NewTimesheetService creates the service that owns day entries and weekly totals.
func NewTimesheetService(repo repository.Repository) *TimesheetService {
	return &TimesheetService{repo: repo}
}

func parseDateField(field, value string) (time.Time, error) {
	d, err := period.ParseDate(value)
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: field, Reason: err.Error()}
	}
	return d, nil
}

func parseWeekStart(value string) (time.Time, error) {
	weekStart, err := parseDateField("weekStart", value)
	if err != nil {
		return time.Time{}, err
	}
	if !period.IsMonday(weekStart) {
		return time.Time{}, &model.ValidationError{Field: "weekStart", Reason: "week must start on a Monday"}
	}
	return weekStart, nil
}

func parseClockField(field, raw string) (timeclock.ClockTime, error) {
	if strings.TrimSpace(raw) == "" {
		return timeclock.None, nil
	}
	c := timeclock.Normalize(raw)
	if c.IsZero() {
		return timeclock.None, &model.ValidationError{Field: field, Reason: "expected H, HH, H:MM or HH:MM within 00:00-23:59"}
	}
	return c, nil
}

// SaveDay validates and stores one day entry, then recomputes the owning week from stored rows.
// Writes into a period covered by a paid pay run fail with LockedPeriodError before anything is written.
func (s *TimesheetService) SaveDay(ctx context.Context, in SaveDayInput) (*model.DayShift, error) {
	weekStart, err := parseWeekStart(in.WeekStart)
	if err != nil {
		return nil, err
	}
	workDate, err := parseDateField("workDate", in.WorkDate)
	if err != nil {
		return nil, err
	}
	if !period.Contains(weekStart, period.WeekEnd(weekStart), workDate) {
		return nil, &model.ValidationError{Field: "workDate", Reason: "date is outside the given week"}
	}

	start, err := parseClockField("startTime", in.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseClockField("endTime", in.EndTime)
	if err != nil {
		return nil, err
	}
	end = timeclock.RelaxEnd(start, end)

	day, err := ComputeDay(workDate, start, end, in.BreakMinutes)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		employee, err := tx.GetEmployee(ctx, in.EmployeeID)
		if err != nil {
			if model.IsNotFound(err) {
				return &model.ValidationError{Field: "employeeId", Reason: "employee does not exist", Err: err}
			}
			return err
		}

		locked, err := rangeLocked(ctx, tx, employee.ID, workDate, workDate)
		if err != nil {
			return err
		}
		if locked {
			return &model.LockedPeriodError{EmployeeID: employee.ID, Start: workDate, End: workDate}
		}

		week, err := tx.EnsureWeek(ctx, employee.ID, weekStart)
		if err != nil {
			return err
		}
		if err := tx.UpsertDayShift(ctx, week.ID, day); err != nil {
			return err
		}
		_, err = recomputeWeek(ctx, tx, week, employee.HourlyWage)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("employee_id", in.EmployeeID).
		Str("work_date", in.WorkDate).
		Bool("complete", day.IsComplete).
		Msg("day entry saved")
	return &day, nil
}

// GetWeekDetail returns the week with all seven days Monday..Sunday.
// Reading ensures the week row exists (idempotent create); totals are the stored ones.
// The status reads as paid while a paid pay run covers any day of the week.
func (s *TimesheetService) GetWeekDetail(ctx context.Context, employeeID, weekStartISO string) (*model.WeekTimesheet, error) {
	weekStart, err := parseWeekStart(weekStartISO)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	week, err := s.repo.EnsureWeek(ctx, employeeID, weekStart)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.ListDayShifts(ctx, week.ID)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]model.DayShift, len(stored))
	for _, d := range stored {
		byDate[period.FormatDate(d.Date)] = d
	}

	week.Days = make([]model.DayShift, 0, period.DaysPerWeek)
	for _, date := range period.WeekDays(weekStart) {
		d, ok := byDate[period.FormatDate(date)]
		if !ok {
			d = model.DayShift{Date: date}
		}
		week.Days = append(week.Days, d)
	}

	locked, err := rangeLocked(ctx, s.repo, employeeID, weekStart, period.WeekEnd(weekStart))
	if err != nil {
		return nil, err
	}
	if locked {
		week.Status = model.WeekStatusPaid
	}
	return week, nil
}

// ConfirmWeek moves a draft week to confirmed.
func (s *TimesheetService) ConfirmWeek(ctx context.Context, employeeID, weekStartISO string) error {
	return s.transitionWeek(ctx, employeeID, weekStartISO, "confirm", model.WeekStatusDraft, model.WeekStatusConfirmed)
}

// ReopenWeek moves a confirmed week back to draft.
func (s *TimesheetService) ReopenWeek(ctx context.Context, employeeID, weekStartISO string) error {
	return s.transitionWeek(ctx, employeeID, weekStartISO, "reopen", model.WeekStatusConfirmed, model.WeekStatusDraft)
}

func (s *TimesheetService) transitionWeek(ctx context.Context, employeeID, weekStartISO, action string, from, to model.WeekStatus) error {
	weekStart, err := parseWeekStart(weekStartISO)
	if err != nil {
		return err
	}
	weekEnd := period.WeekEnd(weekStart)

	return s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		if _, err := tx.GetEmployee(ctx, employeeID); err != nil {
			return err
		}

		locked, err := rangeLocked(ctx, tx, employeeID, weekStart, weekEnd)
		if err != nil {
			return err
		}
		if locked {
			return &model.LockedPeriodError{EmployeeID: employeeID, Start: weekStart, End: weekEnd}
		}

		week, err := tx.EnsureWeek(ctx, employeeID, weekStart)
		if err != nil {
			return err
		}
		if week.Status != from {
			return &model.InvalidTransitionError{Entity: "week", ID: week.ID, From: string(week.Status), Action: action}
		}
		return tx.UpdateWeekStatus(ctx, week.ID, to)
	})
}
