package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"timesheet.service/pkg/telemetry"
)

// Setup configures the global zerolog logger for one service binary.
func Setup(service string, isLocalDev bool) {
	// Use Unix timestamps for performance and consistency
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// log.Ctx falls back to the global logger for contexts without one
	zerolog.DefaultContextLogger = &log.Logger

	if isLocalDev {
		// Pretty printing for local development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Str("service", service).Logger()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", service).Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// EnrichContextWithLogger adds a logger to the context carrying the trace ids of the
// current span and, for queue jobs, the pay run being processed.
func EnrichContextWithLogger(ctx context.Context) context.Context {
	lc := log.With()
	enriched := false

	span := trace.SpanFromContext(ctx)
	if sCtx := span.SpanContext(); span.IsRecording() && sCtx.HasTraceID() {
		lc = lc.Str("trace_id", sCtx.TraceID().String()).Str("span_id", sCtx.SpanID().String())
		enriched = true
	}
	if payRunID := telemetry.GetPayRunIDFromContext(ctx); payRunID != "" {
		lc = lc.Str("pay_run_id", payRunID)
		enriched = true
	}

	if !enriched {
		return ctx
	}
	l := lc.Logger()
	return l.WithContext(ctx)
}
