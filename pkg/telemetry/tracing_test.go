package telemetry

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestStartSpanFromSQSMessageCarriesPayRunID(t *testing.T) {
	body := `{"payRunId":"run-1","periodStart":"2025-03-03"}`
	ctx, span := StartSpanFromSQSMessage(context.Background(), types.Message{
		MessageId: aws.String("msg-1"),
		Body:      &body,
	})
	defer span.End()

	assert.Equal(t, "run-1", GetPayRunIDFromContext(ctx))
}

func TestGetPayRunIDFromContextEmpty(t *testing.T) {
	assert.Equal(t, "", GetPayRunIDFromContext(context.Background()))
}

func TestTraceContextRoundTripThroughMessageAttributes(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, parent := tp.Tracer("test").Start(context.Background(), "publish")
	attrs := InjectTraceContext(ctx)
	parent.End()

	require.Contains(t, attrs, "traceparent")

	extracted := otel.GetTextMapPropagator().Extract(context.Background(), sqsCarrier{attrs: attrs})
	remote := trace.SpanContextFromContext(extracted)
	assert.Equal(t, parent.SpanContext().TraceID(), remote.TraceID())
	assert.True(t, remote.IsRemote())
}
