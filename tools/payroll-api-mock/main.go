package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"timesheet.service/internal/ports/messaging"
	"timesheet.service/pkg/logger"
)

// seen remembers idempotency keys so a redelivered pay run is acknowledged without being booked again.
var seen sync.Map

func payRunHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event messaging.PayRunPaidEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = event.IdempotencyKey()
	}
	if _, dup := seen.LoadOrStore(key, struct{}{}); dup {
		log.Info().Str("pay_run_id", event.PayRunID).Msg("Duplicate pay run ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	log.Info().
		Str("pay_run_id", event.PayRunID).
		Str("period_start", event.PeriodStart).
		Str("period_end", event.PeriodEnd).
		Int("items", len(event.Items)).
		Msg("Received pay run")
	w.WriteHeader(http.StatusOK)
}

func main() {
	logger.Setup("payroll-api-mock", true)

	http.HandleFunc("/", payRunHandler)
	log.Info().Msg("Payroll API mock server starting on port 8081...")
	if err := http.ListenAndServe(":8081", nil); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
