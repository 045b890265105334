package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
    id          UUID PRIMARY KEY,
    name        TEXT NOT NULL CHECK (length(btrim(name)) > 0),
    hourly_wage NUMERIC(12, 2) CHECK (hourly_wage >= 0),
    memo        TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS week_timesheets (
    id                 UUID PRIMARY KEY,
    employee_id        UUID NOT NULL REFERENCES employees (id) ON DELETE CASCADE,
    week_start_date    DATE NOT NULL,
    status             TEXT NOT NULL DEFAULT 'draft',
    total_minutes      INTEGER NOT NULL DEFAULT 0 CHECK (total_minutes >= 0),
    total_wage         NUMERIC(14, 2),
    missing_days_count INTEGER NOT NULL DEFAULT 7 CHECK (missing_days_count BETWEEN 0 AND 7),
    UNIQUE (employee_id, week_start_date)
)`,
	`CREATE TABLE IF NOT EXISTS day_shifts (
    week_timesheet_id UUID NOT NULL REFERENCES week_timesheets (id) ON DELETE CASCADE,
    work_date         DATE NOT NULL,
    start_time        TIME,
    end_time          TIME,
    break_minutes     INTEGER NOT NULL DEFAULT 0 CHECK (break_minutes >= 0),
    work_minutes      INTEGER CHECK (work_minutes >= 0),
    is_complete       BOOLEAN NOT NULL DEFAULT false,
    PRIMARY KEY (week_timesheet_id, work_date)
)`,
	`CREATE TABLE IF NOT EXISTS pay_runs (
    id                  UUID PRIMARY KEY,
    period_start        DATE NOT NULL,
    period_end          DATE NOT NULL CHECK (period_end >= period_start),
    status              TEXT NOT NULL DEFAULT 'open',
    paid_at             TIMESTAMPTZ,
    payroll_status      TEXT,
    payroll_retry_count INTEGER NOT NULL DEFAULT 0,
    email_status        TEXT,
    email_retry_count   INTEGER NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (period_start, period_end)
)`,
	`CREATE INDEX IF NOT EXISTS pay_runs_paid_period_idx
    ON pay_runs (period_start, period_end) WHERE status = 'paid'`,
	`CREATE TABLE IF NOT EXISTS pay_run_items (
    id                 UUID PRIMARY KEY,
    pay_run_id         UUID NOT NULL REFERENCES pay_runs (id) ON DELETE CASCADE,
    employee_id        UUID NOT NULL REFERENCES employees (id) ON DELETE CASCADE,
    total_minutes      INTEGER NOT NULL DEFAULT 0,
    total_wage         NUMERIC(14, 2),
    missing_days_count INTEGER NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (pay_run_id, employee_id)
)`,
	`CREATE INDEX IF NOT EXISTS pay_run_items_employee_idx ON pay_run_items (employee_id)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
