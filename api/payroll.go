package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tess/backoffice/payroll"
	"github.com/tess/backoffice/records"
)

// defaultRunLimit is how many runs the scheduler endpoints return.
const defaultRunLimit = 20

// =============================================================================
// PRODUCTION HANDLERS
// =============================================================================

func productionFilter(r *http.Request) payroll.ProductionFilter {
	q := r.URL.Query()
	return payroll.ProductionFilter{
		EmployeeID: records.EmployeeID(q.Get("employeeId")),
		Status:     records.ProductionStatus(q.Get("status")),
		Search:     q.Get("q"),
		Period:     payroll.Selector(q.Get("period")),
	}
}

// ListProduction returns production records filtered by ?employeeId=,
// ?status=, ?q= and ?period=.
// GET /api/admin/production
func (h *Handler) ListProduction(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Payroll.ListProduction(r.Context(), productionFilter(r))
	if err != nil {
		writeServiceError(w, "Failed to list production", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(recs))
}

// ReviewProduction marks a pending record reviewed.
// POST /api/admin/production/{id}/review
func (h *Handler) ReviewProduction(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Payroll.ReviewProduction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "Failed to review production", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteProduction(w http.ResponseWriter, r *http.Request) {
	if err := h.Payroll.DeleteProduction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "Failed to delete production", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitMyProduction logs work for the logged-in employee.
// POST /api/employee/production
func (h *Handler) SubmitMyProduction(w http.ResponseWriter, r *http.Request) {
	var req payroll.ProductionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	emp, err := h.currentEmployee(r)
	if err != nil {
		writeServiceError(w, "Failed to get employee", err)
		return
	}
	rec, err := h.Payroll.SubmitProduction(r.Context(), emp, req)
	if err != nil {
		writeServiceError(w, "Failed to submit production", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListMyProduction returns the logged-in employee's production records.
// GET /api/employee/production
func (h *Handler) ListMyProduction(w http.ResponseWriter, r *http.Request) {
	emp, err := h.currentEmployee(r)
	if err != nil {
		writeServiceError(w, "Failed to get employee", err)
		return
	}
	f := productionFilter(r)
	f.EmployeeID = emp.ID
	recs, err := h.Payroll.ListProduction(r.Context(), f)
	if err != nil {
		writeServiceError(w, "Failed to list production", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(recs))
}

// =============================================================================
// SALARY HANDLERS
// =============================================================================

func salaryFilter(r *http.Request) payroll.SalaryFilter {
	q := r.URL.Query()
	return payroll.SalaryFilter{
		EmployeeID: records.EmployeeID(q.Get("employeeId")),
		Search:     q.Get("q"),
		Status:     records.SalaryStatus(q.Get("status")),
		Period:     payroll.Selector(q.Get("period")),
	}
}

// GenerateSalaries runs a manual generation pass.
// POST /api/admin/payroll/generate
func (h *Handler) GenerateSalaries(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Period == "" {
		req.Period = payroll.SelectCurrent
	}
	ids := make([]records.EmployeeID, len(req.EmployeeIDs))
	for i, id := range req.EmployeeIDs {
		ids[i] = records.EmployeeID(id)
	}

	run, generated, err := h.Scheduler.Generate(r.Context(), req.Period, ids, TriggerManual)
	if err != nil {
		writeServiceError(w, "Failed to generate salaries", err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Run: run, Salaries: nonNil(generated)})
}

// ListSalaries returns salary records filtered by ?employeeId=, ?q=,
// ?status= and ?period=, with their totals.
// GET /api/admin/salaries
func (h *Handler) ListSalaries(w http.ResponseWriter, r *http.Request) {
	h.writeSalaries(w, r, salaryFilter(r))
}

// ListMySalaries returns the logged-in employee's salary records.
// GET /api/employee/salaries
func (h *Handler) ListMySalaries(w http.ResponseWriter, r *http.Request) {
	emp, err := h.currentEmployee(r)
	if err != nil {
		writeServiceError(w, "Failed to get employee", err)
		return
	}
	f := salaryFilter(r)
	f.EmployeeID = emp.ID
	h.writeSalaries(w, r, f)
}

func (h *Handler) writeSalaries(w http.ResponseWriter, r *http.Request, f payroll.SalaryFilter) {
	salaries, err := h.Payroll.ListSalaries(r.Context(), f)
	if err != nil {
		writeServiceError(w, "Failed to list salaries", err)
		return
	}
	writeJSON(w, http.StatusOK, SalaryListResponse{Salaries: nonNil(salaries), Totals: payroll.Summarize(salaries)})
}

func (h *Handler) GetSalary(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Payroll.GetSalary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "Failed to get salary", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetMySalary returns one of the logged-in employee's salary records.
// Another employee's record is reported as not found.
func (h *Handler) GetMySalary(w http.ResponseWriter, r *http.Request) {
	emp, err := h.currentEmployee(r)
	if err != nil {
		writeServiceError(w, "Failed to get employee", err)
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := h.Payroll.GetSalary(r.Context(), id)
	if err == nil && rec.EmployeeID != emp.ID {
		err = &records.NotFoundError{Kind: "salary record", ID: id}
	}
	if err != nil {
		writeServiceError(w, "Failed to get salary", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// EditSalary changes bonuses, deductions and payment method.
// PUT /api/admin/salaries/{id}
func (h *Handler) EditSalary(w http.ResponseWriter, r *http.Request) {
	var req payroll.Adjustments
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.Payroll.EditAdjustments(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, "Failed to update salary", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// AdvanceSalary moves a salary record to its next payment status.
// POST /api/admin/salaries/{id}/status
func (h *Handler) AdvanceSalary(w http.ResponseWriter, r *http.Request) {
	var req AdvancePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.Payroll.AdvancePayment(r.Context(), chi.URLParam(r, "id"), req.Status, req.Notes)
	if err != nil {
		writeServiceError(w, "Failed to update payment status", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteSalary(w http.ResponseWriter, r *http.Request) {
	if err := h.Payroll.DeleteSalary(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "Failed to delete salary", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SCHEDULER HANDLERS
// =============================================================================

// ListPayrollRuns returns the newest runs, ?limit= of them (default 20).
// GET /api/admin/payroll/runs
func (h *Handler) ListPayrollRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultRunLimit)
	if err != nil {
		writeServiceError(w, "Invalid query", err)
		return
	}
	runs, err := h.Scheduler.Runs.Runs(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "Failed to list payroll runs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": nonNil(runs)})
}

// GetScheduler reports the payroll schedule and its recent runs.
// GET /api/admin/payroll/scheduler
func (h *Handler) GetScheduler(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Scheduler.Runs.Runs(r.Context(), defaultRunLimit)
	if err != nil {
		writeServiceError(w, "Failed to list payroll runs", err)
		return
	}
	dto := SchedulerDTO{Enabled: h.Scheduler.Enabled, Spec: h.Scheduler.Spec, Runs: nonNil(runs)}
	if next, ok := h.Scheduler.NextRun(); ok {
		dto.NextRun = &next
	}
	writeJSON(w, http.StatusOK, dto)
}

// RunScheduler triggers the scheduled job immediately.
// POST /api/admin/payroll/scheduler/run
func (h *Handler) RunScheduler(w http.ResponseWriter, r *http.Request) {
	run, err := h.Scheduler.RunScheduled(r.Context())
	if err != nil {
		writeServiceError(w, "Scheduled run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
