package core

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/ports/repository"
)

type EmployeeInput struct {
	Name       string
	HourlyWage *decimal.Decimal
	Memo       *string
}

// EmployeePatch updates only the fields that are set. SetHourlyWage/SetMemo with a nil value clears them.
type EmployeePatch struct {
	Name          *string
	SetHourlyWage bool
	HourlyWage    *decimal.Decimal
	SetMemo       bool
	Memo          *string
}

type EmployeeService struct {
	repo repository.Repository
}

func NewEmployeeService(repo repository.Repository) *EmployeeService {
	return &EmployeeService{repo: repo}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &model.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return name, nil
}

func validateWage(w *decimal.Decimal) error {
	if w != nil && w.IsNegative() {
		return &model.ValidationError{Field: "hourlyWage", Reason: "must not be negative"}
	}
	return nil
}

func (s *EmployeeService) Create(ctx context.Context, in EmployeeInput) (*model.Employee, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := validateWage(in.HourlyWage); err != nil {
		return nil, err
	}

	e := &model.Employee{Name: name, HourlyWage: in.HourlyWage, Memo: in.Memo}
	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("employee_id", e.ID).Msg("employee created")
	return e, nil
}

// Update applies the patch. A wage change recomputes the wage totals of every week that is not
// covered by a paid pay run.
func (s *EmployeeService) Update(ctx context.Context, id string, patch EmployeePatch) (*model.Employee, error) {
	var updated *model.Employee

	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		e, err := tx.GetEmployee(ctx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name, err := validateName(*patch.Name)
			if err != nil {
				return err
			}
			e.Name = name
		}
		wageChanged := false
		if patch.SetHourlyWage {
			if err := validateWage(patch.HourlyWage); err != nil {
				return err
			}
			wageChanged = !sameWage(e.HourlyWage, patch.HourlyWage)
			e.HourlyWage = patch.HourlyWage
		}
		if patch.SetMemo {
			e.Memo = patch.Memo
		}

		if err := tx.UpdateEmployee(ctx, e); err != nil {
			return err
		}

		if wageChanged {
			n, err := recomputeEmployeeWeeks(ctx, tx, e)
			if err != nil {
				return err
			}
			log.Ctx(ctx).Info().Str("employee_id", e.ID).Int("weeks", n).Msg("wage changed, week totals refreshed")
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func sameWage(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Delete removes the employee together with all weeks and day entries.
func (s *EmployeeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("employee_id", id).Msg("employee deleted")
	return nil
}

func (s *EmployeeService) Get(ctx context.Context, id string) (*model.Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

// List returns employees in creation order.
func (s *EmployeeService) List(ctx context.Context) ([]model.Employee, error) {
	return s.repo.ListEmployees(ctx)
}
