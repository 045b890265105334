package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/core/timeclock"
)

func newMockRepo(t *testing.T) (*TimesheetRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTimesheetRepository(db).(*TimesheetRepository), mock
}

func TestGetEmployeeNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	// malformed ids never reach the database
	_, err := repo.GetEmployee(ctx, "not-a-uuid")
	assert.True(t, model.IsNotFound(err))

	id := uuid.NewString()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM employees WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "hourly_wage", "memo", "created_at"}))

	_, err = repo.GetEmployee(ctx, id)
	assert.True(t, model.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEmployeeScansNullableColumns(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.NewString()
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM employees WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "hourly_wage", "memo", "created_at"}).
			AddRow(id, "Ann", "12.50", nil, created))

	e, err := repo.GetEmployee(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ann", e.Name)
	require.NotNil(t, e.HourlyWage)
	assert.Equal(t, "12.5", e.HourlyWage.String())
	assert.Nil(t, e.Memo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEmployeeAssignsID(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO employees`)).
		WithArgs(sqlmock.AnyArg(), "Ann", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	e := &model.Employee{Name: "Ann"}
	require.NoError(t, repo.CreateEmployee(context.Background(), e))
	_, err := uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.Equal(t, created, e.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureWeekForeignKeyViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	employeeID := uuid.NewString()
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO week_timesheets`)).
		WithArgs(sqlmock.AnyArg(), employeeID, monday).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.EnsureWeek(context.Background(), employeeID, monday)
	assert.True(t, model.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDayShiftsReadsClockTimes(t *testing.T) {
	repo, mock := newMockRepo(t)
	weekID := uuid.NewString()
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM day_shifts`)).
		WithArgs(weekID).
		WillReturnRows(sqlmock.NewRows([]string{"work_date", "start", "end", "break_minutes", "work_minutes", "is_complete"}).
			AddRow(day, "09:00", "17:30", 30, 480, true).
			AddRow(day.AddDate(0, 0, 1), "09:00", nil, 0, nil, false))

	days, err := repo.ListDayShifts(context.Background(), weekID)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, timeclock.ClockTime("17:30"), days[0].EndTime)
	require.NotNil(t, days[0].WorkMinutes)
	assert.Equal(t, 480, *days[0].WorkMinutes)
	assert.True(t, days[1].EndTime.IsZero())
	assert.Nil(t, days[1].WorkMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPaidPayRunOverlapping(t *testing.T) {
	repo, mock := newMockRepo(t)
	employeeID := uuid.NewString()
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(employeeID, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	locked, err := repo.HasPaidPayRunOverlapping(context.Background(), employeeID, start, end)
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = repo.HasPaidPayRunOverlapping(context.Background(), "not-a-uuid", start, end)
	require.NoError(t, err)
	assert.False(t, locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPaidPayRunOverlappingSharesLocksInTx(t *testing.T) {
	repo, mock := newMockRepo(t)
	employeeID := uuid.NewString()
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR SHARE OF pr`)).
		WithArgs(employeeID, start, start).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("open").AddRow("paid"))
	mock.ExpectCommit()

	var locked bool
	err := repo.WithinTx(context.Background(), func(tx Repository) error {
		var err error
		locked, err = tx.HasPaidPayRunOverlapping(context.Background(), employeeID, start, start)
		return err
	})
	require.NoError(t, err)
	assert.True(t, locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxLocksPayRunAndCommits(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.NewString()
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM pay_runs WHERE id = $1 FOR UPDATE`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "period_start", "period_end", "status", "paid_at",
			"payroll_status", "payroll_retry_count", "email_status", "email_retry_count", "created_at", "updated_at"}).
			AddRow(id, start, start.AddDate(0, 0, 13), "open", nil, nil, 0, nil, 0, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pay_runs`)).
		WithArgs(model.PayRunStatusConfirmed, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(tx Repository) error {
		pr, err := tx.GetPayRun(context.Background(), id)
		if err != nil {
			return err
		}
		assert.Equal(t, model.PayRunStatusOpen, pr.Status)
		assert.Nil(t, pr.PaidAt)
		return tx.UpdatePayRunStatus(context.Background(), id, model.PayRunStatusConfirmed, nil)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx Repository) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePayRunItemsDropsStaleEmployees(t *testing.T) {
	repo, mock := newMockRepo(t)
	payRunID := uuid.NewString()
	keep, stale := uuid.NewString(), uuid.NewString()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT employee_id FROM pay_run_items`)).
		WithArgs(payRunID).
		WillReturnRows(sqlmock.NewRows([]string{"employee_id"}).AddRow(keep).AddRow(stale))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM pay_run_items`)).
		WithArgs(payRunID, stale).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pay_run_items`)).
		WithArgs(sqlmock.AnyArg(), payRunID, keep, 480, sqlmock.AnyArg(), 6).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ReplacePayRunItems(context.Background(), payRunID, []model.PayRunItem{
		{EmployeeID: keep, TotalMinutes: 480, MissingDaysCount: 6},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
