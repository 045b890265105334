package core

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet.service/internal/ports/messaging"
)

type fakeSES struct {
	input *ses.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{}, nil
}

func TestSendPayRunSummary(t *testing.T) {
	client := &fakeSES{}
	svc := NewSESEmailService(client, "payroll@example.com")

	err := svc.SendPayRunSummary(context.Background(), "owner@example.com", messaging.PayRunSummaryEmailEvent{
		PayRunID:            "run-1",
		PeriodStart:         "2025-03-03",
		PeriodEnd:           "2025-03-16",
		TotalMinutes:        2400,
		TotalWage:           dec("400"),
		WageKnown:           true,
		Employees:           2,
		IncompleteEmployees: 1,
	})
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "payroll@example.com", *client.input.Source)
	assert.Equal(t, []string{"owner@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Pay run 2025-03-03 ~ 2025-03-16 marked paid", *client.input.Message.Subject.Data)

	body := *client.input.Message.Body.Text.Data
	assert.Contains(t, body, "Total worked: 40:00")
	assert.Contains(t, body, "Estimated wages: 400.00")
	assert.Contains(t, body, "1 employee(s) had missing days")
}

func TestSummaryTextUnknownWage(t *testing.T) {
	text := SummaryText(messaging.PayRunSummaryEmailEvent{PeriodStart: "2025-03-03", PeriodEnd: "2025-03-16"})
	assert.Contains(t, text, "Estimated wages: unknown")
	assert.NotContains(t, text, "Warning")
}
