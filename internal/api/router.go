package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"timesheet.service/internal/api/handler"
	"timesheet.service/internal/core"
)

// Services bundles the core services the HTTP layer exposes.
type Services struct {
	Employees  *core.EmployeeService
	Timesheets *core.TimesheetService
	PayRuns    *core.PayRunService
}

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(services Services) *mux.Router {
	employees := handler.EmployeeHandler{Service: services.Employees}
	timesheets := handler.TimesheetHandler{Service: services.Timesheets, PayRuns: services.PayRuns}
	payRuns := handler.PayRunHandler{Service: services.PayRuns}

	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	api.HandleFunc("/employees", employees.List).Methods(http.MethodGet)
	api.HandleFunc("/employees", employees.Create).Methods(http.MethodPost)
	api.HandleFunc("/employees/{employeeId}", employees.Get).Methods(http.MethodGet)
	api.HandleFunc("/employees/{employeeId}", employees.Update).Methods(http.MethodPatch)
	api.HandleFunc("/employees/{employeeId}", employees.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/employees/{employeeId}/locked", timesheets.Locked).Methods(http.MethodGet)
	api.HandleFunc("/employees/{employeeId}/weeks/{weekStart}", timesheets.GetWeek).Methods(http.MethodGet)
	api.HandleFunc("/employees/{employeeId}/weeks/{weekStart}/days/{workDate}", timesheets.SaveDay).Methods(http.MethodPut)
	api.HandleFunc("/employees/{employeeId}/weeks/{weekStart}/confirm", timesheets.ConfirmWeek).Methods(http.MethodPost)
	api.HandleFunc("/employees/{employeeId}/weeks/{weekStart}/reopen", timesheets.ReopenWeek).Methods(http.MethodPost)

	api.HandleFunc("/payruns", payRuns.List).Methods(http.MethodGet)
	api.HandleFunc("/payruns", payRuns.Build).Methods(http.MethodPost)
	api.HandleFunc("/payruns/{payRunId}", payRuns.Get).Methods(http.MethodGet)
	api.HandleFunc("/payruns/{payRunId}/export.xlsx", payRuns.Export).Methods(http.MethodGet)
	api.HandleFunc("/payruns/{payRunId}/confirm", payRuns.Confirm).Methods(http.MethodPost)
	api.HandleFunc("/payruns/{payRunId}/paid", payRuns.MarkPaid).Methods(http.MethodPost)
	api.HandleFunc("/payruns/{payRunId}/undo-paid", payRuns.UndoPaid).Methods(http.MethodPost)

	return r
}
