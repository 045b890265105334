package email

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"timesheet.service/internal/core"
	"timesheet.service/internal/core/model"
	"timesheet.service/internal/ports/messaging"
	"timesheet.service/internal/ports/repository"
)

// maxAttempts bounds how often a summary is sent before its email status becomes FAILED.
const maxAttempts = 8

type EmailProcessor struct {
	emailService core.EmailService
	repo         repository.Repository
	ownerEmail   string
}

// NewProcessor sets up a new processor for handling pay-run summary emails.
// Summaries go to the payroll owner's address.
func NewProcessor(emailService core.EmailService, repo repository.Repository, ownerEmail string) *EmailProcessor {
	return &EmailProcessor{
		emailService: emailService,
		repo:         repo,
		ownerEmail:   ownerEmail,
	}
}

// Process is the main entry point for handling a message from the email queue.
// It tries to send an email and will tell the worker to retry if something goes wrong.
func (p *EmailProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.PayRunSummaryEmailEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal email event")
		return false, 0, err // Do not retry on malformed message
	}

	run, err := p.repo.GetPayRun(ctx, event.PayRunID)
	if err != nil {
		if model.IsNotFound(err) {
			log.Ctx(ctx).Warn().Str("pay_run_id", event.PayRunID).Msg("Pay run no longer exists. Skipping email.")
			return false, 0, nil
		}
		// If we can't get the record, retry after a short delay.
		return true, 10, fmt.Errorf("failed to get pay run from db for email processing: %w", err)
	}

	if run.Status != model.PayRunStatusPaid {
		log.Ctx(ctx).Info().Str("pay_run_id", run.ID).Str("status", string(run.Status)).Msg("Pay run is no longer paid. Skipping email.")
		return false, 0, nil
	}
	if run.PaidAt == nil || !run.PaidAt.Equal(event.OccurredAt) {
		log.Ctx(ctx).Info().Str("pay_run_id", run.ID).Time("event_paid_at", event.OccurredAt).Msg("Email event belongs to an earlier payment. Skipping.")
		return false, 0, nil
	}

	switch run.EmailStatus {
	case model.DeliveryCompleted:
		log.Ctx(ctx).Info().Str("pay_run_id", run.ID).Msg("Email already sent. Skipping.")
		return false, 0, nil
	case model.DeliveryFailed:
		log.Ctx(ctx).Warn().Str("pay_run_id", run.ID).Msg("Email delivery already gave up. Skipping.")
		return false, 0, nil
	}

	err = p.emailService.SendPayRunSummary(ctx, p.ownerEmail, event)
	if err != nil {
		newCount := run.EmailRetryCount + 1
		if newCount >= maxAttempts {
			log.Ctx(ctx).Error().Err(err).Str("pay_run_id", run.ID).Int("attempts", newCount).Msg("Giving up on summary email")
			if uerr := p.repo.UpdateEmailStatus(ctx, run.ID, model.DeliveryFailed, newCount); uerr != nil {
				log.Ctx(ctx).Error().Err(uerr).Msg("Failed to update email status")
			}
			return false, 0, err
		}
		if uerr := p.repo.UpdateEmailStatus(ctx, run.ID, model.DeliveryPending, newCount); uerr != nil {
			log.Ctx(ctx).Error().Err(uerr).Msg("Failed to update email status")
		}

		delay := calculateBackoff(newCount)
		return true, delay, err
	}

	err = p.repo.UpdateEmailStatus(ctx, run.ID, model.DeliveryCompleted, 0)
	return false, 0, err
}

// calculateBackoff determines how long to wait before retrying a failed job.
// It increases the delay exponentially with each retry to avoid overwhelming a struggling service.
func calculateBackoff(retryCount int) int32 {
	backoff := int32(math.Pow(2, float64(retryCount)) * 10)
	if backoff > 3600 { // Cap at 1 hour
		return 3600
	}
	return backoff
}
