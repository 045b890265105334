package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"timesheet.service/internal/core/timeclock"
	"timesheet.service/internal/ports/messaging"
	"timesheet.service/pkg/telemetry"
)

type EmailService interface {
	SendPayRunSummary(ctx context.Context, to string, summary messaging.PayRunSummaryEmailEvent) error
}

// SESClient is the part of the SES API the email service uses.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESEmailService struct {
	client SESClient
	sender string
}

func NewSESEmailService(client SESClient, sender string) *SESEmailService {
	return &SESEmailService{client: client, sender: sender}
}

func (s *SESEmailService) SendPayRunSummary(ctx context.Context, to string, summary messaging.PayRunSummaryEmailEvent) error {
	tracer := otel.Tracer("ses-email-service")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if id := telemetry.GetPayRunIDFromContext(ctx); id != "" {
		span.SetAttributes(attribute.String("app.payRunId", id))
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(fmt.Sprintf("Pay run %s ~ %s marked paid", summary.PeriodStart, summary.PeriodEnd)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(SummaryText(summary)),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}

// SummaryText renders the plain-text body of the pay-run summary email.
func SummaryText(summary messaging.PayRunSummaryEmailEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nThe pay run for %s ~ %s was marked paid.\n\n", summary.PeriodStart, summary.PeriodEnd)
	fmt.Fprintf(&b, "Employees: %d\n", summary.Employees)
	fmt.Fprintf(&b, "Total worked: %s\n", timeclock.FormatMinutes(summary.TotalMinutes))
	if summary.WageKnown && summary.TotalWage != nil {
		fmt.Fprintf(&b, "Estimated wages: %s\n", summary.TotalWage.StringFixed(2))
	} else {
		b.WriteString("Estimated wages: unknown (some employees have no hourly wage)\n")
	}
	if summary.IncompleteEmployees > 0 {
		fmt.Fprintf(&b, "\nWarning: %d employee(s) had missing days in this period.\n", summary.IncompleteEmployees)
	}
	return b.String()
}
