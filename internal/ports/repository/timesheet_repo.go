package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/core/timeclock"
)

const foreignKeyViolation = "23503"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// TimesheetRepository is the concrete implementation for a PostgreSQL database.
type TimesheetRepository struct {
	DB *sql.DB
	q  querier
	tx *sql.Tx
}

// NewTimesheetRepository create new instance
func NewTimesheetRepository(db *sql.DB) Repository {
	return &TimesheetRepository{DB: db, q: db}
}

func (r *TimesheetRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&TimesheetRepository{DB: r.DB, q: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Ctx(ctx).Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func tagEmployee(ctx context.Context, employeeID string) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.employeeId", employeeID))
}

func tagPayRun(ctx context.Context, payRunID string) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.payRunId", payRunID))
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullClock(c timeclock.ClockTime) sql.NullString {
	if c.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func notFoundIfNoRows(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &model.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func notFoundIfNothingChanged(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &model.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// ---- employees ----

const employeeColumns = `id, name, hourly_wage, memo, created_at`

func scanEmployee(row rowScanner) (*model.Employee, error) {
	var (
		e    model.Employee
		wage decimal.NullDecimal
		memo sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Name, &wage, &memo, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.HourlyWage = decimalPtr(wage)
	if memo.Valid {
		e.Memo = &memo.String
	}
	return &e, nil
}

// CreateEmployee inserts a new employee, assigning its id.
func (r *TimesheetRepository) CreateEmployee(ctx context.Context, e *model.Employee) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	tagEmployee(ctx, e.ID)

	query := `INSERT INTO employees (id, name, hourly_wage, memo)
              VALUES ($1, $2, $3, $4) RETURNING created_at`

	return r.q.QueryRowContext(ctx, query, e.ID, e.Name, nullDecimal(e.HourlyWage), nullString(e.Memo)).Scan(&e.CreatedAt)
}

func (r *TimesheetRepository) UpdateEmployee(ctx context.Context, e *model.Employee) error {
	if !isUUID(e.ID) {
		return &model.NotFoundError{Entity: "employee", ID: e.ID}
	}
	tagEmployee(ctx, e.ID)

	query := `UPDATE employees
              SET name = $1,
                  hourly_wage = $2,
                  memo = $3
              WHERE id = $4
              RETURNING created_at`

	err := r.q.QueryRowContext(ctx, query, e.Name, nullDecimal(e.HourlyWage), nullString(e.Memo), e.ID).Scan(&e.CreatedAt)
	return notFoundIfNoRows(err, "employee", e.ID)
}

// DeleteEmployee removes the employee; weeks, days and pay-run items cascade.
func (r *TimesheetRepository) DeleteEmployee(ctx context.Context, id string) error {
	if !isUUID(id) {
		return &model.NotFoundError{Entity: "employee", ID: id}
	}
	tagEmployee(ctx, id)

	res, err := r.q.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return notFoundIfNothingChanged(res, "employee", id)
}

func (r *TimesheetRepository) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	if !isUUID(id) {
		return nil, &model.NotFoundError{Entity: "employee", ID: id}
	}
	tagEmployee(ctx, id)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	e, err := scanEmployee(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundIfNoRows(err, "employee", id)
	}
	return e, nil
}

// ListEmployees returns employees in creation order.
func (r *TimesheetRepository) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

// ---- weeks and days ----

const weekColumns = `id, employee_id, week_start_date, status, total_minutes, total_wage, missing_days_count`

func scanWeek(row rowScanner) (*model.WeekTimesheet, error) {
	var (
		w    model.WeekTimesheet
		wage decimal.NullDecimal
	)
	if err := row.Scan(&w.ID, &w.EmployeeID, &w.WeekStart, &w.Status, &w.TotalMinutes, &wage, &w.MissingDaysCount); err != nil {
		return nil, err
	}
	w.TotalWage = decimalPtr(wage)
	return &w, nil
}

// EnsureWeek upserts the week row. The no-op DO UPDATE makes RETURNING yield the existing row
// and holds its row lock for the rest of the transaction.
func (r *TimesheetRepository) EnsureWeek(ctx context.Context, employeeID string, weekStart time.Time) (*model.WeekTimesheet, error) {
	if !isUUID(employeeID) {
		return nil, &model.NotFoundError{Entity: "employee", ID: employeeID}
	}
	tagEmployee(ctx, employeeID)

	query := `INSERT INTO week_timesheets (id, employee_id, week_start_date)
              VALUES ($1, $2, $3)
              ON CONFLICT (employee_id, week_start_date)
              DO UPDATE SET employee_id = EXCLUDED.employee_id
              RETURNING ` + weekColumns

	w, err := scanWeek(r.q.QueryRowContext(ctx, query, uuid.NewString(), employeeID, weekStart))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, &model.NotFoundError{Entity: "employee", ID: employeeID}
		}
		return nil, err
	}
	return w, nil
}

func (r *TimesheetRepository) ListWeeks(ctx context.Context, filter WeekFilter) ([]model.WeekTimesheet, error) {
	query := `SELECT ` + weekColumns + ` FROM week_timesheets WHERE TRUE`
	var args []any

	if filter.EmployeeID != "" {
		if !isUUID(filter.EmployeeID) {
			return nil, nil
		}
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND week_start_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND week_start_date <= $%d", len(args))
	}
	query += " ORDER BY employee_id, week_start_date"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weeks []model.WeekTimesheet
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, *w)
	}
	return weeks, rows.Err()
}

func (r *TimesheetRepository) UpdateWeekTotals(ctx context.Context, weekID string, totals WeekTotals) error {
	query := `UPDATE week_timesheets
              SET total_minutes = $1,
                  total_wage = $2,
                  missing_days_count = $3
              WHERE id = $4`

	res, err := r.q.ExecContext(ctx, query, totals.TotalMinutes, nullDecimal(totals.TotalWage), totals.MissingDaysCount, weekID)
	if err != nil {
		return err
	}
	return notFoundIfNothingChanged(res, "week", weekID)
}

func (r *TimesheetRepository) UpdateWeekStatus(ctx context.Context, weekID string, status model.WeekStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE week_timesheets SET status = $1 WHERE id = $2`, status, weekID)
	if err != nil {
		return err
	}
	return notFoundIfNothingChanged(res, "week", weekID)
}

// ListDayShifts returns the stored days of a week ordered by date. Days never saved are absent.
func (r *TimesheetRepository) ListDayShifts(ctx context.Context, weekID string) ([]model.DayShift, error) {
	query := `SELECT work_date, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
                     break_minutes, work_minutes, is_complete
              FROM day_shifts
              WHERE week_timesheet_id = $1
              ORDER BY work_date`

	rows, err := r.q.QueryContext(ctx, query, weekID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []model.DayShift
	for rows.Next() {
		var (
			d          model.DayShift
			start, end sql.NullString
			work       sql.NullInt64
		)
		if err := rows.Scan(&d.Date, &start, &end, &d.BreakMinutes, &work, &d.IsComplete); err != nil {
			return nil, err
		}
		d.StartTime = timeclock.FromStorage(start.String)
		d.EndTime = timeclock.FromStorage(end.String)
		if work.Valid {
			m := int(work.Int64)
			d.WorkMinutes = &m
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (r *TimesheetRepository) UpsertDayShift(ctx context.Context, weekID string, day model.DayShift) error {
	query := `INSERT INTO day_shifts (week_timesheet_id, work_date, start_time, end_time, break_minutes, work_minutes, is_complete)
              VALUES ($1, $2, $3::time, $4::time, $5, $6, $7)
              ON CONFLICT (week_timesheet_id, work_date)
              DO UPDATE SET start_time = EXCLUDED.start_time,
                            end_time = EXCLUDED.end_time,
                            break_minutes = EXCLUDED.break_minutes,
                            work_minutes = EXCLUDED.work_minutes,
                            is_complete = EXCLUDED.is_complete`

	var work sql.NullInt64
	if day.WorkMinutes != nil {
		work = sql.NullInt64{Int64: int64(*day.WorkMinutes), Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query, weekID, day.Date, nullClock(day.StartTime), nullClock(day.EndTime),
		day.BreakMinutes, work, day.IsComplete)
	return err
}

// ---- pay runs ----

const payRunColumns = `id, period_start, period_end, status, paid_at, payroll_status, payroll_retry_count,
                       email_status, email_retry_count, created_at, updated_at`

func scanPayRun(row rowScanner) (*model.PayRun, error) {
	var (
		pr                 model.PayRun
		paidAt             sql.NullTime
		payroll, emailStat sql.NullString
	)
	err := row.Scan(&pr.ID, &pr.PeriodStart, &pr.PeriodEnd, &pr.Status, &paidAt, &payroll, &pr.PayrollRetryCount,
		&emailStat, &pr.EmailRetryCount, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		pr.PaidAt = &paidAt.Time
	}
	pr.PayrollStatus = model.DeliveryStatus(payroll.String)
	pr.EmailStatus = model.DeliveryStatus(emailStat.String)
	return &pr, nil
}

// UpsertPayRun returns the single pay run of the period. Concurrent callers serialize on the
// unique (period_start, period_end) row.
func (r *TimesheetRepository) UpsertPayRun(ctx context.Context, periodStart, periodEnd time.Time) (*model.PayRun, error) {
	query := `INSERT INTO pay_runs (id, period_start, period_end)
              VALUES ($1, $2, $3)
              ON CONFLICT (period_start, period_end)
              DO UPDATE SET updated_at = now()
              RETURNING ` + payRunColumns

	pr, err := scanPayRun(r.q.QueryRowContext(ctx, query, uuid.NewString(), periodStart, periodEnd))
	if err != nil {
		return nil, err
	}
	tagPayRun(ctx, pr.ID)
	return pr, nil
}

// GetPayRun fetches a pay run. Inside a transaction the row is locked for update.
func (r *TimesheetRepository) GetPayRun(ctx context.Context, id string) (*model.PayRun, error) {
	if !isUUID(id) {
		return nil, &model.NotFoundError{Entity: "pay run", ID: id}
	}
	tagPayRun(ctx, id)

	query := `SELECT ` + payRunColumns + ` FROM pay_runs WHERE id = $1`
	if r.tx != nil {
		query += ` FOR UPDATE`
	}

	pr, err := scanPayRun(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundIfNoRows(err, "pay run", id)
	}
	return pr, nil
}

func (r *TimesheetRepository) ListPayRuns(ctx context.Context) ([]model.PayRun, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+payRunColumns+` FROM pay_runs ORDER BY period_start DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.PayRun
	for rows.Next() {
		pr, err := scanPayRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *pr)
	}
	return runs, rows.Err()
}

func (r *TimesheetRepository) UpdatePayRunStatus(ctx context.Context, id string, status model.PayRunStatus, paidAt *time.Time) error {
	tagPayRun(ctx, id)

	query := `UPDATE pay_runs
              SET status = $1,
                  paid_at = $2,
                  updated_at = now()
              WHERE id = $3`

	res, err := r.q.ExecContext(ctx, query, status, nullTime(paidAt), id)
	if err != nil {
		return err
	}
	return notFoundIfNothingChanged(res, "pay run", id)
}

// UpdatePayrollStatus updates the status and retry count of the payroll export job.
func (r *TimesheetRepository) UpdatePayrollStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	query := `UPDATE pay_runs SET payroll_status = $1, payroll_retry_count = $2 WHERE id = $3`
	_, err := r.q.ExecContext(ctx, query, status, retryCount, id)
	return err
}

// UpdateEmailStatus updates the status and retry count of the summary email job.
func (r *TimesheetRepository) UpdateEmailStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	query := `UPDATE pay_runs SET email_status = $1, email_retry_count = $2 WHERE id = $3`
	_, err := r.q.ExecContext(ctx, query, status, retryCount, id)
	return err
}

// ReplacePayRunItems upserts items on (pay_run_id, employee_id) and drops items of employees
// no longer present, so item ids stay stable across rebuilds.
func (r *TimesheetRepository) ReplacePayRunItems(ctx context.Context, payRunID string, items []model.PayRunItem) error {
	tagPayRun(ctx, payRunID)

	rows, err := r.q.QueryContext(ctx, `SELECT employee_id FROM pay_run_items WHERE pay_run_id = $1`, payRunID)
	if err != nil {
		return err
	}
	var existing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(items))
	for _, it := range items {
		keep[it.EmployeeID] = struct{}{}
	}
	for _, employeeID := range existing {
		if _, ok := keep[employeeID]; ok {
			continue
		}
		if _, err := r.q.ExecContext(ctx, `DELETE FROM pay_run_items WHERE pay_run_id = $1 AND employee_id = $2`, payRunID, employeeID); err != nil {
			return fmt.Errorf("drop stale pay run item: %w", err)
		}
	}

	query := `INSERT INTO pay_run_items (id, pay_run_id, employee_id, total_minutes, total_wage, missing_days_count)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (pay_run_id, employee_id)
              DO UPDATE SET total_minutes = EXCLUDED.total_minutes,
                            total_wage = EXCLUDED.total_wage,
                            missing_days_count = EXCLUDED.missing_days_count`
	for _, it := range items {
		_, err := r.q.ExecContext(ctx, query, uuid.NewString(), payRunID, it.EmployeeID, it.TotalMinutes,
			nullDecimal(it.TotalWage), it.MissingDaysCount)
		if err != nil {
			return fmt.Errorf("upsert pay run item: %w", err)
		}
	}
	return nil
}

// ListPayRunItems returns the items joined with the employee's name and wage.
func (r *TimesheetRepository) ListPayRunItems(ctx context.Context, payRunID string) ([]model.PayRunItem, error) {
	if !isUUID(payRunID) {
		return nil, nil
	}

	query := `SELECT i.id, i.pay_run_id, i.employee_id, e.name, e.hourly_wage,
                     i.total_minutes, i.total_wage, i.missing_days_count
              FROM pay_run_items i
              JOIN employees e ON e.id = i.employee_id
              WHERE i.pay_run_id = $1
              ORDER BY i.created_at, i.employee_id`

	rows, err := r.q.QueryContext(ctx, query, payRunID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.PayRunItem
	for rows.Next() {
		var (
			it          model.PayRunItem
			rate, total decimal.NullDecimal
		)
		err := rows.Scan(&it.ID, &it.PayRunID, &it.EmployeeID, &it.EmployeeName, &rate,
			&it.TotalMinutes, &total, &it.MissingDaysCount)
		if err != nil {
			return nil, err
		}
		it.EmployeeHourlyWage = decimalPtr(rate)
		it.TotalWage = decimalPtr(total)
		items = append(items, it)
	}
	return items, rows.Err()
}

// HasPaidPayRunOverlapping is the lock predicate; it runs as a single indexed EXISTS query.
// Inside a transaction it share-locks every overlapping pay run of the employee instead, so a
// concurrent MarkPaid cannot commit before the caller does.
func (r *TimesheetRepository) HasPaidPayRunOverlapping(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	if !isUUID(employeeID) {
		return false, nil
	}
	tagEmployee(ctx, employeeID)

	if r.tx != nil {
		return r.lockOverlappingPayRuns(ctx, employeeID, start, end)
	}

	query := `SELECT EXISTS (
                  SELECT 1
                  FROM pay_runs pr
                  JOIN pay_run_items i ON i.pay_run_id = pr.id
                  WHERE pr.status = 'paid'
                    AND i.employee_id = $1
                    AND pr.period_start <= $3
                    AND pr.period_end >= $2
              )`

	var locked bool
	if err := r.q.QueryRowContext(ctx, query, employeeID, start, end).Scan(&locked); err != nil {
		return false, err
	}
	return locked, nil
}

// lockOverlappingPayRuns reads the status of every overlapping pay run holding an item for the
// employee under FOR SHARE. A run being marked paid is waited for and read in its new state.
func (r *TimesheetRepository) lockOverlappingPayRuns(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	query := `SELECT pr.status
              FROM pay_runs pr
              JOIN pay_run_items i ON i.pay_run_id = pr.id
              WHERE i.employee_id = $1
                AND pr.period_start <= $3
                AND pr.period_end >= $2
              FOR SHARE OF pr`

	rows, err := r.q.QueryContext(ctx, query, employeeID, start, end)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	locked := false
	for rows.Next() {
		var status model.PayRunStatus
		if err := rows.Scan(&status); err != nil {
			return false, err
		}
		if status == model.PayRunStatusPaid {
			locked = true
		}
	}
	return locked, rows.Err()
}
