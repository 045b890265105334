package core

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/core/period"
	"timesheet.service/internal/ports/messaging"
	"timesheet.service/internal/ports/repository"
)

type PayRunService struct {
	repo      repository.Repository
	publisher messaging.Publisher
	now       func() time.Time
}

// NewPayRunService creates the pay-run builder and lock state machine.
// loc is the single locale "now" is taken in when a pay run is marked paid.
func NewPayRunService(repo repository.Repository, publisher messaging.Publisher, loc *time.Location) *PayRunService {
	if loc == nil {
		loc = time.UTC
	}
	return &PayRunService{
		repo:      repo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// BuildPayRun creates the pay run of a 14-day period or refreshes the existing one, and returns
// its id. Items are recomputed from every week overlapping the period, so repeated or concurrent
// calls converge on the same items. Items of a paid pay run are frozen.
func (s *PayRunService) BuildPayRun(ctx context.Context, periodStartISO, periodEndISO string) (string, error) {
	start, err := parseDateField("periodStart", periodStartISO)
	if err != nil {
		return "", err
	}
	end, err := parseDateField("periodEnd", periodEndISO)
	if err != nil {
		return "", err
	}
	if !end.Equal(period.PayPeriodEnd(start)) {
		return "", &model.ValidationError{Field: "periodEnd", Reason: "pay period must span exactly 14 days"}
	}

	var payRunID string
	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		run, err := tx.UpsertPayRun(ctx, start, end)
		if err != nil {
			return err
		}
		payRunID = run.ID

		if run.Status == model.PayRunStatusPaid {
			log.Ctx(ctx).Info().Str("pay_run_id", run.ID).Msg("pay run already paid, items left unchanged")
			return nil
		}

		// A week overlaps the period when it starts no earlier than six days before it.
		weeks, err := tx.ListWeeks(ctx, repository.WeekFilter{From: period.AddDays(start, -(period.DaysPerWeek - 1)), To: end})
		if err != nil {
			return err
		}

		items := aggregatePayRunItems(run.ID, weeks)
		if err := tx.ReplacePayRunItems(ctx, run.ID, items); err != nil {
			return err
		}

		log.Ctx(ctx).Info().
			Str("pay_run_id", run.ID).
			Str("period_start", periodStartISO).
			Int("items", len(items)).
			Msg("pay run built")
		return nil
	})
	if err != nil {
		return "", err
	}
	return payRunID, nil
}

// GetPayRunDetail returns the pay run with its items ordered incomplete-first, then by name.
func (s *PayRunService) GetPayRunDetail(ctx context.Context, payRunID string) (*model.PayRunDetail, error) {
	run, err := s.repo.GetPayRun(ctx, payRunID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListPayRunItems(ctx, payRunID)
	if err != nil {
		return nil, err
	}
	SortPayRunItems(items)

	return &model.PayRunDetail{
		PayRun: *run,
		Items:  items,
		Totals: SummarizePayRunItems(items),
	}, nil
}

// ListPayRuns returns all pay runs, newest period first.
func (s *PayRunService) ListPayRuns(ctx context.Context) ([]model.PayRun, error) {
	return s.repo.ListPayRuns(ctx)
}

// SortPayRunItems puts employees with missing days first, then orders by case-insensitive name.
func SortPayRunItems(items []model.PayRunItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		aMissing, bMissing := a.MissingDaysCount > 0, b.MissingDaysCount > 0
		if aMissing != bMissing {
			return aMissing
		}
		an, bn := strings.ToLower(a.EmployeeName), strings.ToLower(b.EmployeeName)
		if an != bn {
			return an < bn
		}
		return a.EmployeeID < b.EmployeeID
	})
}

// SummarizePayRunItems totals the items. The wage total is only known, and only set, when every
// item has a wage.
func SummarizePayRunItems(items []model.PayRunItem) model.PayRunTotals {
	totals := model.PayRunTotals{WageKnown: true}
	wage := decimal.Zero
	for _, it := range items {
		totals.TotalMinutes += it.TotalMinutes
		if it.TotalWage == nil {
			totals.WageKnown = false
		} else {
			wage = wage.Add(*it.TotalWage)
		}
		if it.MissingDaysCount > 0 {
			totals.IncompleteEmployees++
		}
	}
	if totals.WageKnown {
		totals.TotalWage = &wage
	}
	return totals
}

// Confirm moves an open pay run to confirmed.
func (s *PayRunService) Confirm(ctx context.Context, payRunID string) error {
	return s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		run, err := tx.GetPayRun(ctx, payRunID)
		if err != nil {
			return err
		}
		if run.Status != model.PayRunStatusOpen {
			return &model.InvalidTransitionError{Entity: "pay run", ID: payRunID, From: string(run.Status), Action: "confirm"}
		}
		return tx.UpdatePayRunStatus(ctx, payRunID, model.PayRunStatusConfirmed, nil)
	})
}

// MarkPaid locks the pay run's period for its employees and queues the payroll export and
// summary email. A publish failure is logged; the pay run stays paid.
func (s *PayRunService) MarkPaid(ctx context.Context, payRunID string) error {
	// Stored timestamps keep microseconds; events are matched against them.
	paidAt := s.now().Truncate(time.Microsecond)

	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		run, err := tx.GetPayRun(ctx, payRunID)
		if err != nil {
			return err
		}
		if run.Status == model.PayRunStatusPaid {
			return &model.InvalidTransitionError{Entity: "pay run", ID: payRunID, From: string(run.Status), Action: "mark paid"}
		}
		if err := tx.UpdatePayRunStatus(ctx, payRunID, model.PayRunStatusPaid, &paidAt); err != nil {
			return err
		}
		if err := tx.UpdatePayrollStatus(ctx, payRunID, model.DeliveryPending, 0); err != nil {
			return err
		}
		return tx.UpdateEmailStatus(ctx, payRunID, model.DeliveryPending, 0)
	})
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().Str("pay_run_id", payRunID).Time("paid_at", paidAt).Msg("pay run marked paid")
	s.publishPaid(ctx, payRunID, paidAt)
	return nil
}

func (s *PayRunService) publishPaid(ctx context.Context, payRunID string, paidAt time.Time) {
	detail, err := s.GetPayRunDetail(ctx, payRunID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("pay_run_id", payRunID).Msg("failed to load paid pay run for publishing")
		return
	}

	paid := messaging.PayRunPaidEvent{
		PayRunID:    payRunID,
		PeriodStart: period.FormatDate(detail.PayRun.PeriodStart),
		PeriodEnd:   period.FormatDate(detail.PayRun.PeriodEnd),
		PaidAt:      paidAt,
		Items:       make([]messaging.PayRunPaidItem, 0, len(detail.Items)),
	}
	for _, it := range detail.Items {
		paid.Items = append(paid.Items, messaging.PayRunPaidItem{
			EmployeeID:       it.EmployeeID,
			EmployeeName:     it.EmployeeName,
			TotalMinutes:     it.TotalMinutes,
			TotalWage:        it.TotalWage,
			MissingDaysCount: it.MissingDaysCount,
		})
	}
	if err := s.publisher.PublishPayroll(ctx, paid); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("pay_run_id", payRunID).Msg("failed to publish payroll event")
	}

	summary := messaging.PayRunSummaryEmailEvent{
		PayRunID:            payRunID,
		PeriodStart:         paid.PeriodStart,
		PeriodEnd:           paid.PeriodEnd,
		TotalMinutes:        detail.Totals.TotalMinutes,
		TotalWage:           detail.Totals.TotalWage,
		WageKnown:           detail.Totals.WageKnown,
		Employees:           len(detail.Items),
		IncompleteEmployees: detail.Totals.IncompleteEmployees,
		OccurredAt:          paidAt,
	}
	if err := s.publisher.PublishEmail(ctx, summary); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("pay_run_id", payRunID).Msg("failed to publish summary email event")
	}
}

// UndoPaid reopens a paid pay run, unlocking its period.
func (s *PayRunService) UndoPaid(ctx context.Context, payRunID string) error {
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		run, err := tx.GetPayRun(ctx, payRunID)
		if err != nil {
			return err
		}
		if run.Status != model.PayRunStatusPaid {
			return &model.InvalidTransitionError{Entity: "pay run", ID: payRunID, From: string(run.Status), Action: "undo paid"}
		}
		return tx.UpdatePayRunStatus(ctx, payRunID, model.PayRunStatusOpen, nil)
	})
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().Str("pay_run_id", payRunID).Msg("pay run reopened")
	return nil
}

// IsRangeLocked reports whether a paid pay run with an item for the employee overlaps
// the inclusive date range.
func (s *PayRunService) IsRangeLocked(ctx context.Context, employeeID, startISO, endISO string) (bool, error) {
	start, err := parseDateField("start", startISO)
	if err != nil {
		return false, err
	}
	end, err := parseDateField("end", endISO)
	if err != nil {
		return false, err
	}
	if end.Before(start) {
		return false, &model.ValidationError{Field: "end", Reason: "end must not be before start"}
	}
	return rangeLocked(ctx, s.repo, employeeID, start, end)
}
