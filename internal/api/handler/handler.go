package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"timesheet.service/internal/core"
	"timesheet.service/internal/core/model"
)

type EmployeeHandler struct {
	Service *core.EmployeeService
}

type CreateEmployeeRequest struct {
	Name       string           `json:"name"`
	HourlyWage *decimal.Decimal `json:"hourlyWage"`
	Memo       *string          `json:"memo"`
}

// UpdateEmployeeRequest distinguishes an absent field (unchanged) from an explicit null (cleared).
type UpdateEmployeeRequest struct {
	Name       *string         `json:"name"`
	HourlyWage json.RawMessage `json:"hourlyWage"`
	Memo       json.RawMessage `json:"memo"`
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if employees == nil {
		employees = []model.Employee{}
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.Service.Create(r.Context(), core.EmployeeInput{Name: req.Name, HourlyWage: req.HourlyWage, Memo: req.Memo})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Get(r.Context(), mux.Vars(r)["employeeId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := core.EmployeePatch{Name: req.Name}
	if req.HourlyWage != nil {
		patch.SetHourlyWage = true
		if err := json.Unmarshal(req.HourlyWage, &patch.HourlyWage); err != nil {
			writeError(w, r, &model.ValidationError{Field: "hourlyWage", Reason: "must be a decimal number", Err: err})
			return
		}
	}
	if req.Memo != nil {
		patch.SetMemo = true
		if err := json.Unmarshal(req.Memo, &patch.Memo); err != nil {
			writeError(w, r, &model.ValidationError{Field: "memo", Reason: "must be a string", Err: err})
			return
		}
	}

	e, err := h.Service.Update(r.Context(), mux.Vars(r)["employeeId"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["employeeId"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
