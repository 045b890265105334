package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"timesheet.service/internal/core/model"
)

// WeekFilter selects week timesheets by the Monday they start on (inclusive bounds).
// An empty EmployeeID matches every employee; zero From/To leave that side open.
type WeekFilter struct {
	EmployeeID string
	From       time.Time
	To         time.Time
}

// WeekTotals is the aggregate written back after a week is recomputed.
type WeekTotals struct {
	TotalMinutes     int
	TotalWage        *decimal.Decimal
	MissingDaysCount int
}

// Repository contract
type Repository interface {
	// WithinTx runs fn against a transactional view of the store. Nested calls reuse the
	// outer transaction. Returning an error rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	CreateEmployee(ctx context.Context, e *model.Employee) error
	UpdateEmployee(ctx context.Context, e *model.Employee) error
	DeleteEmployee(ctx context.Context, id string) error
	GetEmployee(ctx context.Context, id string) (*model.Employee, error)
	ListEmployees(ctx context.Context) ([]model.Employee, error)

	// EnsureWeek returns the week row for (employee, weekStart), creating a draft if absent.
	// Inside a transaction the row stays locked until commit.
	EnsureWeek(ctx context.Context, employeeID string, weekStart time.Time) (*model.WeekTimesheet, error)
	ListWeeks(ctx context.Context, filter WeekFilter) ([]model.WeekTimesheet, error)
	UpdateWeekTotals(ctx context.Context, weekID string, totals WeekTotals) error
	UpdateWeekStatus(ctx context.Context, weekID string, status model.WeekStatus) error
	ListDayShifts(ctx context.Context, weekID string) ([]model.DayShift, error)
	// UpsertDayShift stores the day keyed by (week, date); the last write wins.
	UpsertDayShift(ctx context.Context, weekID string, day model.DayShift) error

	// UpsertPayRun returns the pay run for the exact period, creating an open one if absent.
	UpsertPayRun(ctx context.Context, periodStart, periodEnd time.Time) (*model.PayRun, error)
	GetPayRun(ctx context.Context, id string) (*model.PayRun, error)
	ListPayRuns(ctx context.Context) ([]model.PayRun, error)
	UpdatePayRunStatus(ctx context.Context, id string, status model.PayRunStatus, paidAt *time.Time) error
	UpdatePayrollStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error
	UpdateEmailStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error
	// ReplacePayRunItems makes items the complete item set of the pay run.
	ReplacePayRunItems(ctx context.Context, payRunID string, items []model.PayRunItem) error
	ListPayRunItems(ctx context.Context, payRunID string) ([]model.PayRunItem, error)

	// HasPaidPayRunOverlapping reports whether a paid pay run holding an item for the employee
	// overlaps the inclusive range [start, end].
	HasPaidPayRunOverlapping(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
}
