package messaging

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PayRunPaidItem is one employee line forwarded to the payroll system.
type PayRunPaidItem struct {
	EmployeeID       string           `json:"employeeId"`
	EmployeeName     string           `json:"employeeName"`
	TotalMinutes     int              `json:"totalMinutes"`
	TotalWage        *decimal.Decimal `json:"totalWage"`
	MissingDaysCount int              `json:"missingDaysCount"`
}

// PayRunPaidEvent is the JSON payload sent via SQS for the payroll queue
type PayRunPaidEvent struct {
	PayRunID    string           `json:"payRunId"`
	PeriodStart string           `json:"periodStart"`
	PeriodEnd   string           `json:"periodEnd"`
	PaidAt      time.Time        `json:"paidAt"`
	Items       []PayRunPaidItem `json:"items"`
}

// IdempotencyKey identifies one payment of a pay run. Paying the run again after an undo
// yields a new key.
func (e PayRunPaidEvent) IdempotencyKey() string {
	return fmt.Sprintf("%s:%d", e.PayRunID, e.PaidAt.UnixMicro())
}

// PayRunSummaryEmailEvent is the JSON payload sent via SQS for the email queue
type PayRunSummaryEmailEvent struct {
	PayRunID            string          `json:"payRunId"`
	PeriodStart         string          `json:"periodStart"`
	PeriodEnd           string          `json:"periodEnd"`
	TotalMinutes        int             `json:"totalMinutes"`
	TotalWage           *decimal.Decimal `json:"totalWage"`
	WageKnown           bool            `json:"wageKnown"`
	Employees           int             `json:"employees"`
	IncompleteEmployees int             `json:"incompleteEmployees"`
	OccurredAt          time.Time       `json:"occurredAt"`
}
