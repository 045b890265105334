package model

import (
	"time"

	"github.com/shopspring/decimal"

	"timesheet.service/internal/core/timeclock"
)

// WeekStatus defines the review state of a weekly timesheet.
type WeekStatus string

const (
	WeekStatusDraft     WeekStatus = "draft"
	WeekStatusConfirmed WeekStatus = "confirmed"
	WeekStatusPaid      WeekStatus = "paid"
)

// PayRunStatus defines the lifecycle state of a pay run.
type PayRunStatus string

const (
	PayRunStatusOpen      PayRunStatus = "open"
	PayRunStatusConfirmed PayRunStatus = "confirmed"
	PayRunStatusPaid      PayRunStatus = "paid"
)

// DeliveryStatus tracks the asynchronous hand-off of a paid pay run (payroll export, summary email).
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryCompleted DeliveryStatus = "COMPLETED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

type Employee struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	HourlyWage *decimal.Decimal `json:"hourlyWage"`
	Memo       *string          `json:"memo"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// DayShift is one calendar day of a weekly timesheet.
type DayShift struct {
	Date         time.Time           `json:"-"`
	StartTime    timeclock.ClockTime `json:"startTime"`
	EndTime      timeclock.ClockTime `json:"endTime"`
	BreakMinutes int                 `json:"breakMinutes"`
	WorkMinutes  *int                `json:"workMinutes"`
	IsComplete   bool                `json:"isComplete"`
}

type WeekTimesheet struct {
	ID               string           `json:"id"`
	EmployeeID       string           `json:"employeeId"`
	WeekStart        time.Time        `json:"-"`
	Status           WeekStatus       `json:"status"`
	TotalMinutes     int              `json:"totalMinutes"`
	TotalWage        *decimal.Decimal `json:"totalWage"`
	MissingDaysCount int              `json:"missingDaysCount"`
	Days             []DayShift       `json:"days,omitempty"`
}

type PayRun struct {
	ID          string       `json:"id"`
	PeriodStart time.Time    `json:"-"`
	PeriodEnd   time.Time    `json:"-"`
	Status      PayRunStatus `json:"status"`
	PaidAt      *time.Time   `json:"paidAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	PayrollStatus     DeliveryStatus `json:"payrollStatus,omitempty"`
	PayrollRetryCount int            `json:"payrollRetryCount"`
	EmailStatus       DeliveryStatus `json:"emailStatus,omitempty"`
	EmailRetryCount   int            `json:"emailRetryCount"`
}

// PayRunItem is the per-employee aggregate of a pay run. It is derived from week totals only.
type PayRunItem struct {
	ID                 string           `json:"id"`
	PayRunID           string           `json:"payRunId"`
	EmployeeID         string           `json:"employeeId"`
	EmployeeName       string           `json:"employeeName"`
	EmployeeHourlyWage *decimal.Decimal `json:"employeeHourlyWage"`
	TotalMinutes       int              `json:"totalMinutes"`
	TotalWage          *decimal.Decimal `json:"totalWage"`
	MissingDaysCount   int              `json:"missingDaysCount"`
}

// PayRunTotals summarizes all items of a pay run for display.
type PayRunTotals struct {
	TotalMinutes        int             `json:"totalMinutes"`
	TotalWage           *decimal.Decimal `json:"totalWage"`
	WageKnown           bool            `json:"wageKnown"`
	IncompleteEmployees int             `json:"incompleteEmployees"`
}

type PayRunDetail struct {
	PayRun PayRun       `json:"payRun"`
	Items  []PayRunItem `json:"items"`
	Totals PayRunTotals `json:"totals"`
}
