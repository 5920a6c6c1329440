package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/tess/backoffice/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// AdminDashboard returns sales and inventory metrics as of ?date= (default
// today).
// GET /api/admin/dashboard
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	at, err := h.queryDate(r, "date")
	if err != nil {
		writeServiceError(w, "Invalid query", err)
		return
	}
	m, err := h.Reports.AdminDashboard(r.Context(), at)
	if err != nil {
		writeServiceError(w, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// EmployeeDashboard returns the logged-in employee's production and pay
// metrics.
// GET /api/employee/dashboard
func (h *Handler) EmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	emp, err := h.currentEmployee(r)
	if err != nil {
		writeServiceError(w, "Failed to get employee", err)
		return
	}
	m, err := h.Reports.EmployeeDashboard(r.Context(), emp.ID, h.now())
	if err != nil {
		writeServiceError(w, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// DailySalesReport covers the calendar day of ?date= (default today).
// GET /api/admin/reports/sales/daily
func (h *Handler) DailySalesReport(w http.ResponseWriter, r *http.Request) {
	day, err := h.queryDate(r, "date")
	if err != nil {
		writeServiceError(w, "Invalid query", err)
		return
	}
	rep, err := h.Reports.DailySales(r.Context(), day)
	if err != nil {
		writeServiceError(w, "Failed to build sales report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// MonthlySalesReport covers the calendar month of ?date= (default today).
// GET /api/admin/reports/sales/monthly
func (h *Handler) MonthlySalesReport(w http.ResponseWriter, r *http.Request) {
	day, err := h.queryDate(r, "date")
	if err != nil {
		writeServiceError(w, "Invalid query", err)
		return
	}
	rep, err := h.Reports.MonthlySales(r.Context(), day)
	if err != nil {
		writeServiceError(w, "Failed to build sales report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) InventoryReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Reports.InventoryStatus(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to build inventory report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) ExpiringReport(w http.ResponseWriter, r *http.Request) {
	items, err := h.Reports.ExpiringItems(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, "Failed to build expiry report", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// =============================================================================
// EXPORTS
// =============================================================================

// ExportPayroll downloads salary records as XLSX, filtered like ListSalaries.
// GET /api/admin/exports/payroll.xlsx
func (h *Handler) ExportPayroll(w http.ResponseWriter, r *http.Request) {
	salaries, err := h.Payroll.ListSalaries(r.Context(), salaryFilter(r))
	if err != nil {
		writeServiceError(w, "Failed to list salaries", err)
		return
	}
	var buf bytes.Buffer
	if err := reports.WritePayrollWorkbook(&buf, salaries); err != nil {
		writeServiceError(w, "Failed to render workbook", err)
		return
	}
	writeWorkbook(w, fmt.Sprintf("payroll-%s.xlsx", h.now().Format("2006-01-02")), &buf)
}

// ExportSales downloads sales within ?from=&to= (default today) as XLSX.
// GET /api/admin/exports/sales.xlsx
func (h *Handler) ExportSales(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.queryRange(r)
	if err != nil {
		writeServiceError(w, "Invalid query", err)
		return
	}
	found, err := h.Sales.Between(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, "Failed to list sales", err)
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteSalesWorkbook(&buf, found); err != nil {
		writeServiceError(w, "Failed to render workbook", err)
		return
	}
	name := fmt.Sprintf("sales-%s-%s.xlsx", from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102"))
	writeWorkbook(w, name, &buf)
}

func writeWorkbook(w http.ResponseWriter, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
