package model

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports malformed input. Nothing is written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// LockedPeriodError is returned when a write targets dates covered by a paid pay run.
type LockedPeriodError struct {
	EmployeeID string
	Start      time.Time
	End        time.Time
}

func (e *LockedPeriodError) Error() string {
	return fmt.Sprintf("period %s..%s is locked for employee %s: covered by a paid pay run",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.EmployeeID)
}

// InvalidTransitionError is returned when a status change is not allowed from the current state.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %q", e.Action, e.Entity, e.ID, e.From)
}

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsNotFound reports whether err (or anything it wraps) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
