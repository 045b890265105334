package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"timesheet.service/internal/core"
)

type TimesheetHandler struct {
	Service *core.TimesheetService
	PayRuns *core.PayRunService
}

// SaveDayRequest carries raw time text as typed by the user ("7", "19:30"); empty clears it.
type SaveDayRequest struct {
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	BreakMinutes int    `json:"breakMinutes"`
}

type lockedResponse struct {
	EmployeeID string `json:"employeeId"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Locked     bool   `json:"locked"`
}

func (h *TimesheetHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	week, err := h.Service.GetWeekDetail(r.Context(), vars["employeeId"], vars["weekStart"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newWeekResponse(week))
}

// SaveDay stores one day and answers with the recomputed week.
func (h *TimesheetHandler) SaveDay(w http.ResponseWriter, r *http.Request) {
	var req SaveDayRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	_, err := h.Service.SaveDay(r.Context(), core.SaveDayInput{
		EmployeeID:   vars["employeeId"],
		WeekStart:    vars["weekStart"],
		WorkDate:     vars["workDate"],
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		BreakMinutes: req.BreakMinutes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	week, err := h.Service.GetWeekDetail(r.Context(), vars["employeeId"], vars["weekStart"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newWeekResponse(week))
}

func (h *TimesheetHandler) ConfirmWeek(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.ConfirmWeek)
}

func (h *TimesheetHandler) ReopenWeek(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.ReopenWeek)
}

func (h *TimesheetHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, employeeID, weekStart string) error) {
	vars := mux.Vars(r)
	if err := fn(r.Context(), vars["employeeId"], vars["weekStart"]); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetWeek(w, r)
}

// Locked answers whether the employee's inclusive date range is covered by a paid pay run.
func (h *TimesheetHandler) Locked(w http.ResponseWriter, r *http.Request) {
	employeeID := mux.Vars(r)["employeeId"]
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if end == "" {
		end = start
	}

	locked, err := h.PayRuns.IsRangeLocked(r.Context(), employeeID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lockedResponse{EmployeeID: employeeID, Start: start, End: end, Locked: locked})
}
