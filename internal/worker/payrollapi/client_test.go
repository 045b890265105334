package payrollapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet.service/internal/ports/messaging"
)

func TestSubmitPayRun(t *testing.T) {
	var got messaging.PayRunPaidEvent
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		key = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	paidAt := time.Date(2025, 3, 17, 18, 30, 0, 0, time.UTC)
	err := NewHTTPClient(srv.URL).SubmitPayRun(context.Background(), messaging.PayRunPaidEvent{
		PayRunID:    "run-1",
		PeriodStart: "2025-03-03",
		PaidAt:      paidAt,
		Items:       []messaging.PayRunPaidItem{{EmployeeID: "e-1", TotalMinutes: 480}},
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("run-1:%d", paidAt.UnixMicro()), key)
	assert.Equal(t, "run-1", got.PayRunID)
	require.Len(t, got.Items, 1)
}

func TestIdempotencyKeyChangesPerPayment(t *testing.T) {
	first := messaging.PayRunPaidEvent{PayRunID: "run-1", PaidAt: time.Date(2025, 3, 17, 18, 30, 0, 0, time.UTC)}
	again := first
	again.PaidAt = first.PaidAt.Add(time.Hour)

	assert.Equal(t, first.IdempotencyKey(), first.IdempotencyKey())
	assert.NotEqual(t, first.IdempotencyKey(), again.IdempotencyKey())
}

func TestSubmitPayRunStatusErrors(t *testing.T) {
	cases := map[int]bool{
		http.StatusBadRequest:          true,
		http.StatusTooManyRequests:     false,
		http.StatusInternalServerError: false,
	}
	for status, permanent := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", status)
		}))

		err := NewHTTPClient(srv.URL).SubmitPayRun(context.Background(), messaging.PayRunPaidEvent{PayRunID: "run-1"})
		srv.Close()

		var se *StatusError
		require.True(t, errors.As(err, &se), "status %d", status)
		assert.Equal(t, status, se.StatusCode)
		assert.Equal(t, permanent, se.Permanent(), "status %d", status)
	}
}
