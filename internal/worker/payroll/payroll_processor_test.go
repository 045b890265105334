package payroll

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/ports/messaging"
	"timesheet.service/internal/ports/repository"
	"timesheet.service/internal/worker/payrollapi"
)

type fakePayrollAPI struct {
	calls     int
	err       error
	submitted []messaging.PayRunPaidEvent
}

func (f *fakePayrollAPI) SubmitPayRun(_ context.Context, event messaging.PayRunPaidEvent) error {
	f.calls++
	if f.err == nil {
		f.submitted = append(f.submitted, event)
	}
	return f.err
}

var firstPayment = time.Date(2025, 3, 17, 18, 30, 0, 0, time.UTC)

func paidRun(t *testing.T, repo *repository.MemoryRepository) *model.PayRun {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	run, err := repo.UpsertPayRun(ctx, start, start.AddDate(0, 0, 13))
	require.NoError(t, err)
	markPaid(t, repo, run.ID, firstPayment)
	return run
}

func markPaid(t *testing.T, repo *repository.MemoryRepository, id string, paidAt time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.UpdatePayRunStatus(ctx, id, model.PayRunStatusPaid, &paidAt))
	require.NoError(t, repo.UpdatePayrollStatus(ctx, id, model.DeliveryPending, 0))
}

func paymentMessage(payRunID string, paidAt time.Time, totalMinutes int) types.Message {
	body := fmt.Sprintf(`{"payRunId":%q,"periodStart":"2025-03-03","periodEnd":"2025-03-16","paidAt":%q,"items":[{"employeeId":"e-1","totalMinutes":%d}]}`,
		payRunID, paidAt.Format(time.RFC3339Nano), totalMinutes)
	return types.Message{Body: aws.String(body)}
}

func eventMessage(payRunID string) types.Message {
	return paymentMessage(payRunID, firstPayment, 480)
}

func TestProcessSubmitsPaidPayRun(t *testing.T) {
	repo := repository.NewMemoryRepository()
	run := paidRun(t, repo)
	api := &fakePayrollAPI{}

	retry, _, err := NewProcessor(repo, api).Process(context.Background(), eventMessage(run.ID))
	require.NoError(t, err)
	assert.False(t, retry)
	assert.Equal(t, 1, api.calls)

	stored, err := repo.GetPayRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryCompleted, stored.PayrollStatus)

	// redelivery is acknowledged without a second submission
	_, _, err = NewProcessor(repo, api).Process(context.Background(), eventMessage(run.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)
}

func TestProcessSkipsReopenedPayRun(t *testing.T) {
	repo := repository.NewMemoryRepository()
	run := paidRun(t, repo)
	require.NoError(t, repo.UpdatePayRunStatus(context.Background(), run.ID, model.PayRunStatusOpen, nil))
	api := &fakePayrollAPI{}

	retry, _, err := NewProcessor(repo, api).Process(context.Background(), eventMessage(run.ID))
	require.NoError(t, err)
	assert.False(t, retry)
	assert.Zero(t, api.calls)
}

func TestProcessAfterUndoAndRepay(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	run := paidRun(t, repo)
	api := &fakePayrollAPI{}
	proc := NewProcessor(repo, api)

	// first payment delivered, then undone and paid again with edited hours
	_, _, err := proc.Process(ctx, eventMessage(run.ID))
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePayRunStatus(ctx, run.ID, model.PayRunStatusOpen, nil))
	secondPayment := firstPayment.Add(2 * time.Hour)
	markPaid(t, repo, run.ID, secondPayment)

	// a redelivered event of the first payment is dropped
	retry, _, err := proc.Process(ctx, paymentMessage(run.ID, firstPayment, 100))
	require.NoError(t, err)
	assert.False(t, retry)

	stored, err := repo.GetPayRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryPending, stored.PayrollStatus)

	_, _, err = proc.Process(ctx, paymentMessage(run.ID, secondPayment, 900))
	require.NoError(t, err)

	require.Len(t, api.submitted, 2)
	assert.Equal(t, 900, api.submitted[1].Items[0].TotalMinutes)
	assert.NotEqual(t, api.submitted[0].IdempotencyKey(), api.submitted[1].IdempotencyKey())

	stored, err = repo.GetPayRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryCompleted, stored.PayrollStatus)
}

func TestProcessRetriesWithBackoff(t *testing.T) {
	repo := repository.NewMemoryRepository()
	run := paidRun(t, repo)
	api := &fakePayrollAPI{err: errors.New("connection refused")}
	proc := NewProcessor(repo, api)

	retry, delay, err := proc.Process(context.Background(), eventMessage(run.ID))
	assert.Error(t, err)
	assert.True(t, retry)
	assert.Equal(t, int32(20), delay)

	retry, delay, err = proc.Process(context.Background(), eventMessage(run.ID))
	assert.Error(t, err)
	assert.True(t, retry)
	assert.Equal(t, int32(40), delay)

	stored, err := repo.GetPayRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryPending, stored.PayrollStatus)
	assert.Equal(t, 2, stored.PayrollRetryCount)
}

func TestProcessGivesUpAfterMaxAttempts(t *testing.T) {
	repo := repository.NewMemoryRepository()
	run := paidRun(t, repo)
	require.NoError(t, repo.UpdatePayrollStatus(context.Background(), run.ID, model.DeliveryPending, MaxAttempts-1))

	retry, _, err := NewProcessor(repo, &fakePayrollAPI{err: errors.New("timeout")}).Process(context.Background(), eventMessage(run.ID))
	assert.Error(t, err)
	assert.False(t, retry)

	stored, err := repo.GetPayRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryFailed, stored.PayrollStatus)
}

func TestProcessPermanentRejection(t *testing.T) {
	repo := repository.NewMemoryRepository()
	run := paidRun(t, repo)
	api := &fakePayrollAPI{err: &payrollapi.StatusError{StatusCode: 422}}

	retry, _, err := NewProcessor(repo, api).Process(context.Background(), eventMessage(run.ID))
	assert.Error(t, err)
	assert.False(t, retry)

	stored, err := repo.GetPayRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryFailed, stored.PayrollStatus)
}

func TestProcessMalformedAndUnknown(t *testing.T) {
	repo := repository.NewMemoryRepository()
	proc := NewProcessor(repo, &fakePayrollAPI{})

	retry, _, err := proc.Process(context.Background(), types.Message{Body: aws.String("{not json")})
	assert.Error(t, err)
	assert.False(t, retry)

	retry, _, err = proc.Process(context.Background(), eventMessage("gone"))
	assert.NoError(t, err)
	assert.False(t, retry)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, int32(20), calculateBackoff(1))
	assert.Equal(t, int32(160), calculateBackoff(4))
	assert.Equal(t, int32(3600), calculateBackoff(12))
}
