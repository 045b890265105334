package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"timesheet.service/internal/core"
	"timesheet.service/internal/core/period"
	"timesheet.service/internal/export"
)

type PayRunHandler struct {
	Service *core.PayRunService
}

type BuildPayRunRequest struct {
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

func (h *PayRunHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Service.ListPayRuns(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]payRunResponse, 0, len(runs))
	for _, pr := range runs {
		resp = append(resp, newPayRunResponse(pr))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Build creates or refreshes the pay run of a period and answers with its detail.
// periodEnd defaults to the end of the 14-day period starting at periodStart.
func (h *PayRunHandler) Build(w http.ResponseWriter, r *http.Request) {
	var req BuildPayRunRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PeriodEnd == "" {
		if start, err := period.ParseDate(req.PeriodStart); err == nil {
			req.PeriodEnd = period.FormatDate(period.PayPeriodEnd(start))
		}
	}

	id, err := h.Service.BuildPayRun(r.Context(), req.PeriodStart, req.PeriodEnd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, id, http.StatusOK)
}

func (h *PayRunHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeDetail(w, r, mux.Vars(r)["payRunId"], http.StatusOK)
}

func (h *PayRunHandler) writeDetail(w http.ResponseWriter, r *http.Request, id string, status int) {
	detail, err := h.Service.GetPayRunDetail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, newPayRunDetailResponse(detail))
}

// Export streams the pay run as an xlsx workbook.
func (h *PayRunHandler) Export(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.GetPayRunDetail(r.Context(), mux.Vars(r)["payRunId"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePayRunWorkbook(&buf, detail); err != nil {
		writeError(w, r, fmt.Errorf("render pay run workbook: %w", err))
		return
	}

	filename := fmt.Sprintf("payrun_%s_%s.xlsx", period.FormatDate(detail.PayRun.PeriodStart), period.FormatDate(detail.PayRun.PeriodEnd))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *PayRunHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Confirm)
}

func (h *PayRunHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.MarkPaid)
}

func (h *PayRunHandler) UndoPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.UndoPaid)
}

func (h *PayRunHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) error) {
	id := mux.Vars(r)["payRunId"]
	if err := fn(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeDetail(w, r, id, http.StatusOK)
}
