package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/ports/messaging"
	"timesheet.service/internal/ports/repository"
	"timesheet.service/internal/worker/payrollapi"
)

// MaxAttempts is how often a pay run is submitted before its payroll status becomes FAILED.
const MaxAttempts = 8

// Processor handles jobs from the payroll queue: it forwards paid pay runs to the payroll system.
// A circuit breaker keeps a failing payroll system from being hammered.
type Processor struct {
	repo   repository.Repository
	client payrollapi.Client
	cb     *gobreaker.CircuitBreaker
}

// NewProcessor creates a new processor for the payroll queue.
func NewProcessor(r repository.Repository, client payrollapi.Client) *Processor {
	settings := gobreaker.Settings{
		Name:        "Payroll-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is at least 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		// Rejected payloads say nothing about the health of the payroll system.
		IsSuccessful: func(err error) bool {
			var se *payrollapi.StatusError
			return err == nil || (errors.As(err, &se) && se.Permanent())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}

	return &Processor{
		repo:   r,
		client: client,
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

// Process submits one paid pay run. Pay runs that were reopened (undo paid) or already delivered,
// and events from an earlier payment of the run, are acknowledged without calling the payroll system.
func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.PayRunPaidEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal payroll event")
		return false, 0, err // Do not retry on malformed message
	}
	if event.PayRunID == "" {
		return false, 0, errors.New("payroll event without payRunId")
	}

	run, err := p.repo.GetPayRun(ctx, event.PayRunID)
	if err != nil {
		if model.IsNotFound(err) {
			log.Ctx(ctx).Warn().Str("pay_run_id", event.PayRunID).Msg("Pay run no longer exists. Skipping.")
			return false, 0, nil
		}
		return true, 10, fmt.Errorf("failed to get pay run from db: %w", err)
	}

	if run.Status != model.PayRunStatusPaid {
		log.Ctx(ctx).Info().Str("pay_run_id", run.ID).Str("status", string(run.Status)).Msg("Pay run is no longer paid. Skipping.")
		return false, 0, nil
	}
	if run.PaidAt == nil || !run.PaidAt.Equal(event.PaidAt) {
		log.Ctx(ctx).Info().Str("pay_run_id", run.ID).Time("event_paid_at", event.PaidAt).Msg("Event belongs to an earlier payment. Skipping.")
		return false, 0, nil
	}
	if run.PayrollStatus == model.DeliveryCompleted {
		log.Ctx(ctx).Info().Str("pay_run_id", run.ID).Msg("Pay run already submitted. Skipping.")
		return false, 0, nil
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.client.SubmitPayRun(ctx, event)
	})
	if err != nil {
		return p.fail(ctx, run, err)
	}

	if err := p.repo.UpdatePayrollStatus(ctx, run.ID, model.DeliveryCompleted, run.PayrollRetryCount); err != nil {
		// The payroll system deduplicates on the idempotency key, so a retry is safe.
		return true, 10, fmt.Errorf("failed to record payroll completion: %w", err)
	}
	return false, 0, nil
}

func (p *Processor) fail(ctx context.Context, run *model.PayRun, err error) (bool, int32, error) {
	var se *payrollapi.StatusError
	if errors.As(err, &se) && se.Permanent() {
		p.setStatus(ctx, run.ID, model.DeliveryFailed, run.PayrollRetryCount)
		return false, 0, err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Ctx(ctx).Warn().Msg("Circuit breaker is open; payroll API call skipped")
	}

	newCount := run.PayrollRetryCount + 1
	if newCount >= MaxAttempts {
		p.setStatus(ctx, run.ID, model.DeliveryFailed, newCount)
		return false, 0, fmt.Errorf("giving up after %d attempts: %w", newCount, err)
	}

	p.setStatus(ctx, run.ID, model.DeliveryPending, newCount)
	return true, calculateBackoff(newCount), err
}

func (p *Processor) setStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) {
	if err := p.repo.UpdatePayrollStatus(ctx, id, status, retryCount); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("status", string(status)).Msg("Failed to update payroll status")
	}
}

// calculateBackoff grows the retry delay exponentially with each attempt, capped at one hour.
func calculateBackoff(retryCount int) int32 {
	backoff := int32(math.Pow(2, float64(retryCount)) * 10)
	if backoff > 3600 {
		return 3600 // max at 1 hour
	}
	return backoff
}
