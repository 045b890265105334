package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/ports/messaging"
	"timesheet.service/internal/ports/repository"
)

// ── Recording publisher ──

type recordingPublisher struct {
	mu      sync.Mutex
	payroll []messaging.PayRunPaidEvent
	emails  []messaging.PayRunSummaryEmailEvent
	fail    bool
}

func (p *recordingPublisher) PublishPayroll(_ context.Context, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("queue unavailable")
	}
	p.payroll = append(p.payroll, body.(messaging.PayRunPaidEvent))
	return nil
}

func (p *recordingPublisher) PublishEmail(_ context.Context, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("queue unavailable")
	}
	p.emails = append(p.emails, body.(messaging.PayRunSummaryEmailEvent))
	return nil
}

// ── Test environment ──

var fixedNow = time.Date(2025, 3, 17, 18, 30, 0, 0, time.UTC)

type testEnv struct {
	ctx       context.Context
	repo      *repository.MemoryRepository
	publisher *recordingPublisher
	timesheet *TimesheetService
	payRuns   *PayRunService
	employees *EmployeeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewMemoryRepository()
	pub := &recordingPublisher{}
	payRuns := NewPayRunService(repo, pub, time.UTC)
	payRuns.now = func() time.Time { return fixedNow }

	return &testEnv{
		ctx:       context.Background(),
		repo:      repo,
		publisher: pub,
		timesheet: NewTimesheetService(repo),
		payRuns:   payRuns,
		employees: NewEmployeeService(repo),
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (e *testEnv) employee(t *testing.T, name string, wage *decimal.Decimal) *model.Employee {
	t.Helper()
	emp, err := e.employees.Create(e.ctx, EmployeeInput{Name: name, HourlyWage: wage})
	require.NoError(t, err)
	return emp
}

func (e *testEnv) save(t *testing.T, employeeID, weekStart, date, start, end string, breakMin int) {
	t.Helper()
	_, err := e.timesheet.SaveDay(e.ctx, SaveDayInput{
		EmployeeID:   employeeID,
		WeekStart:    weekStart,
		WorkDate:     date,
		StartTime:    start,
		EndTime:      end,
		BreakMinutes: breakMin,
	})
	require.NoError(t, err)
}

func intPtr(v int) *int { return &v }
