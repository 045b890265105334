package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"timesheet.service/internal/core/model"
	"timesheet.service/internal/core/period"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP status codes. Anything unrecognized is a 500 and
// its details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *model.ValidationError
		locked     *model.LockedPeriodError
		transition *model.InvalidTransitionError
		notFound   *model.NotFoundError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.As(err, &locked):
		writeJSON(w, http.StatusLocked, errorResponse{Error: locked.Error()})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: transition.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFound.Error()})
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body: " + err.Error()})
		return false
	}
	return true
}

// ── Response bodies ──

type dayResponse struct {
	Date string `json:"date"`
	model.DayShift
}

type weekResponse struct {
	model.WeekTimesheet
	WeekStart string        `json:"weekStart"`
	WeekEnd   string        `json:"weekEnd"`
	Days      []dayResponse `json:"days"`
}

func newWeekResponse(w *model.WeekTimesheet) weekResponse {
	resp := weekResponse{
		WeekTimesheet: *w,
		WeekStart:     period.FormatDate(w.WeekStart),
		WeekEnd:       period.FormatDate(period.WeekEnd(w.WeekStart)),
		Days:          make([]dayResponse, 0, len(w.Days)),
	}
	for _, d := range w.Days {
		resp.Days = append(resp.Days, dayResponse{Date: period.FormatDate(d.Date), DayShift: d})
	}
	return resp
}

type payRunResponse struct {
	model.PayRun
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

func newPayRunResponse(pr model.PayRun) payRunResponse {
	return payRunResponse{
		PayRun:      pr,
		PeriodStart: period.FormatDate(pr.PeriodStart),
		PeriodEnd:   period.FormatDate(pr.PeriodEnd),
	}
}

type payRunDetailResponse struct {
	PayRun payRunResponse     `json:"payRun"`
	Items  []model.PayRunItem `json:"items"`
	Totals model.PayRunTotals `json:"totals"`
}

func newPayRunDetailResponse(d *model.PayRunDetail) payRunDetailResponse {
	items := d.Items
	if items == nil {
		items = []model.PayRunItem{}
	}
	return payRunDetailResponse{
		PayRun: newPayRunResponse(d.PayRun),
		Items:  items,
		Totals: d.Totals,
	}
}
